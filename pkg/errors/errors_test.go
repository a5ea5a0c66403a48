package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "automl: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			wantMsg: "automl: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestTypedErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "dimension",
			err:     NewDimensionError("Predict", 4, 3, 1),
			wantMsg: "automl: Predict: dimension mismatch on axis 1 (features). Expected 4, got 3",
		},
		{
			name:    "missing component",
			err:     NewMissingComponentError("Fake Component"),
			wantMsg: `Component "Fake Component" was not found`,
		},
		{
			name:    "pipeline not found",
			err:     NewPipelineNotFoundError(7),
			wantMsg: "Pipeline not found: id 7",
		},
		{
			name:    "graph validation",
			err:     NewGraphValidationError("cycle detected", "a", "b"),
			wantMsg: "automl: invalid component graph: cycle detected: [a, b]",
		},
		{
			name:    "value",
			err:     NewValueError("NewIterativeAlgorithm", "No allowed pipelines to search"),
			wantMsg: "automl: NewIterativeAlgorithm: No allowed pipelines to search",
		},
		{
			name:    "not yet fitted",
			err:     NewPipelineNotYetFittedError("Logistic Regression Classifier", "predict"),
			wantMsg: "automl: this Logistic Regression Classifier is not fitted yet. You must fit Logistic Regression Classifier before calling predict.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestErrorsAreCastable(t *testing.T) {
	var valueErr *ValueError
	if !As(Wrap(NewValueErrorf("Score", "%s", "y contains previously unseen labels"), "scoring"), &valueErr) {
		t.Fatal("wrapped ValueError should be castable to *ValueError")
	}
	if valueErr.Message != "y contains previously unseen labels" {
		t.Errorf("Message = %q", valueErr.Message)
	}

	var schedErr *AutoMLAlgorithmError
	if !As(NewAutoMLAlgorithmError("NextBatch", "No results were reported from the first batch"), &schedErr) {
		t.Error("expected *AutoMLAlgorithmError")
	}

	var missing *MissingComponentError
	if !As(NewMissingComponentError("x"), &missing) || missing.Name != "x" {
		t.Error("expected *MissingComponentError with name x")
	}
}

func TestParameterNotUsedWarning(t *testing.T) {
	w := NewParameterNotUsedWarning([]string{"Imputer", "Fake Component"})
	if got, want := strings.Join(w.Components, ","), "Fake Component,Imputer"; got != want {
		t.Errorf("Components = %v, want %v", got, want)
	}
	if !strings.Contains(w.Error(), "will not be used") {
		t.Errorf("unexpected message %q", w.Error())
	}
}

func TestWarnRouting(t *testing.T) {
	var captured []error
	SetWarningHandler(func(w error) { captured = append(captured, w) })
	defer SetWarningHandler(nil)

	Warn(NewConvergenceWarning("LogisticRegression", 200, ""))
	if len(captured) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(captured))
	}

	var zl []error
	SetZerologWarnFunc(func(w error) { zl = append(zl, w) })
	Warn(NewParameterNotUsedWarning([]string{"a"}))
	SetZerologWarnFunc(nil)

	if len(zl) != 1 || len(captured) != 1 {
		t.Errorf("zerolog func should take precedence: zerolog=%d handler=%d", len(zl), len(captured))
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Fit", 10, 0)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in Fit: expected 10, got 0") {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
}
