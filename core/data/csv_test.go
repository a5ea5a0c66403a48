package data

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/goautoml/pkg/errors"
)

func TestReadCSV(t *testing.T) {
	in := `x1, label, x2
1.5, yes, 2
-1, no, NA
0, yes,
`
	f, err := ReadCSV(strings.NewReader(in), "label")
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if diff := cmp.Diff([]string{"x1", "x2"}, f.Features); diff != "" {
		t.Errorf("features (-want +got):\n%s", diff)
	}
	want := []float64{1.5, 2, -1, math.NaN(), 0, math.NaN()}
	if diff := cmp.Diff(want, f.X.RawMatrix().Data, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("X (-want +got):\n%s", diff)
	}
	if f.Y.Kind() != KindString {
		t.Errorf("target kind = %v, want string", f.Y.Kind())
	}
	if diff := cmp.Diff([]string{"yes", "no", "yes"}, f.Y.Strings()); diff != "" {
		t.Errorf("target (-want +got):\n%s", diff)
	}

	numeric, err := ReadCSV(strings.NewReader("a,y\n1,0.5\n2,1.5\n"), "y")
	if err != nil {
		t.Fatal(err)
	}
	if numeric.Y.Kind() != KindFloat {
		t.Errorf("target kind = %v, want float", numeric.Y.Kind())
	}
	if r, c := numeric.X.Dims(); r != 2 || c != 1 {
		t.Errorf("dims = (%d, %d)", r, c)
	}
	var _ mat.Matrix = numeric.X
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		target string
		empty  bool
	}{
		{"header only", "a,y\n", "y", true},
		{"missing target", "a,b\n1,2\n", "y", false},
		{"no features", "y\n1\n", "y", false},
		{"text feature", "a,y\nred,1\n", "y", false},
		{"ragged rows", "a,y\n1,2,3\n", "y", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.in), tt.target)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, errors.ErrEmptyData); got != tt.empty {
				t.Errorf("errors.Is(err, ErrEmptyData) = %v, want %v (%v)", got, tt.empty, err)
			}
		})
	}
}
