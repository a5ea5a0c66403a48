package modelfamily

import "testing"

func TestParseAndString(t *testing.T) {
	for i := range names {
		f := ModelFamily(i)
		got, err := Parse(f.String())
		if err != nil || got != f {
			t.Errorf("Parse(%q) = %v, %v", f.String(), got, err)
		}
	}
	if got, _ := Parse("Linear Model"); got != LinearModel {
		t.Errorf("Parse should accept spaces, got %v", got)
	}
	if _, err := Parse("neural_network"); err == nil {
		t.Error("expected error for unknown family")
	}
	if ModelFamily(99).String() != "unknown" {
		t.Error("out-of-range family should be unknown")
	}
}

func TestRank(t *testing.T) {
	order := DefaultOrder()
	if Rank(order, LinearModel) != 0 {
		t.Error("linear models come first")
	}
	if Rank(order, Ensemble) != len(order) {
		t.Error("families outside the order rank last")
	}
}

func TestDisplayName(t *testing.T) {
	if got := LinearModel.DisplayName(); got != "Linear Model" {
		t.Errorf("DisplayName() = %q", got)
	}
	if got := ModelFamily(99).DisplayName(); got != "Unknown" {
		t.Errorf("DisplayName() = %q", got)
	}
}
