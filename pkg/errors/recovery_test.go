package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRecover(t *testing.T) {
	tests := []struct {
		name       string
		panicValue interface{}
		want       string
	}{
		{"string panic", "boom", "panic in Fit: boom"},
		{"int panic", 42, "panic in Fit: 42"},
		{"error panic", fmt.Errorf("singular"), "panic in Fit: singular"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := func() (err error) {
				defer Recover(&err, "Fit")
				panic(tt.panicValue)
			}

			err := run()
			var panicErr *PanicError
			if !errors.As(err, &panicErr) {
				t.Fatalf("expected *PanicError, got %T", err)
			}
			if panicErr.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", panicErr.Error(), tt.want)
			}
			if panicErr.StackTrace == "" {
				t.Error("expected stack trace to be recorded")
			}
		})
	}
}

func TestRecoverKeepsExistingError(t *testing.T) {
	original := fmt.Errorf("original error")
	run := func() (err error) {
		defer Recover(&err, "Score")
		err = original
		panic("after error")
	}

	err := run()
	if !errors.Is(err, original) {
		t.Errorf("expected wrapped original error, got %v", err)
	}
	if !strings.Contains(err.Error(), "panic in Score") {
		t.Errorf("expected panic context in %q", err.Error())
	}
}

func TestSafeExecute(t *testing.T) {
	if err := SafeExecute("ok", func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sentinel := fmt.Errorf("fit failed")
	if err := SafeExecute("fail", func() error { return sentinel }); err != sentinel {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	err := SafeExecute("panic", func() error { panic("index out of range") })
	var panicErr *PanicError
	if !errors.As(err, &panicErr) {
		t.Fatalf("expected *PanicError, got %T", err)
	}
	if !strings.Contains(panicErr.String(), "Stack trace:") {
		t.Error("String() should include the stack trace")
	}
}

func TestPanicErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("inner")
	if got := NewPanicError("op", inner).Unwrap(); got != inner {
		t.Errorf("Unwrap() = %v, want %v", got, inner)
	}
	if got := NewPanicError("op", "text").Unwrap(); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func BenchmarkSafeExecuteNoPanic(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = SafeExecute("bench", func() error { return nil })
	}
}
