package report

import (
	"errors"
	"fmt"
	"testing"
)

func TestStageErrorKeepsUnderlyingMessage(t *testing.T) {
	base := errors.New("Image too small to scale!! (1x1 vs min width of 3)")
	err := NewRecognitionError(base)

	if err.Error() != base.Error() {
		t.Fatalf("expected message %q, got %q", base.Error(), err.Error())
	}
	if !errors.Is(err, base) {
		t.Fatal("expected stage error to unwrap to base")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	stage, ok := StageOf(wrapped)
	if !ok || stage != StageRecognition {
		t.Fatalf("expected recognition stage, got %q (ok=%t)", stage, ok)
	}
}

func TestStageOfPlainError(t *testing.T) {
	if _, ok := StageOf(errors.New("plain")); ok {
		t.Fatal("expected no stage on a plain error")
	}
	if NewAnalysisError(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestOutcomeShapes(t *testing.T) {
	ok := Succeeded("Hemoglobin: 10.2 g/dL", "Your hemoglobin is slightly low.")
	if !ok.Succeeded() || ok.Failure != nil {
		t.Fatalf("expected success outcome, got %+v", ok)
	}

	failed := Failed(StageAnalysis, NewAnalysisError(errors.New("language model error: 401")))
	if failed.Succeeded() {
		t.Fatal("expected failed outcome")
	}
	if failed.Failure.Stage != StageAnalysis {
		t.Fatalf("unexpected stage: %s", failed.Failure.Stage)
	}
	if failed.Failure.Message != "language model error: 401" {
		t.Fatalf("unexpected message: %s", failed.Failure.Message)
	}
	if failed.Text != "" || failed.Explanation != "" {
		t.Fatalf("failed outcome must not carry partial results: %+v", failed)
	}
}
