package report

import "errors"

// Stage tags the part of the pipeline that failed.
type Stage string

const (
	StageStorage     Stage = "storage"
	StageRecognition Stage = "recognition"
	StageAnalysis    Stage = "analysis"
)

// Error is a stage-tagged pipeline error. Its message is the underlying
// message unchanged so it can be handed to the caller as-is.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewStorageError tags err as a transient storage failure.
func NewStorageError(err error) error { return newError(StageStorage, err) }

// NewRecognitionError tags err as an OCR failure.
func NewRecognitionError(err error) error { return newError(StageRecognition, err) }

// NewAnalysisError tags err as a language-model failure.
func NewAnalysisError(err error) error { return newError(StageAnalysis, err) }

func newError(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Stage: stage, Err: err}
}

// StageOf returns the stage attached to err, if any.
func StageOf(err error) (Stage, bool) {
	var stageErr *Error
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}
