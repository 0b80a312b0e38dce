// Package report holds the values that flow through the report processing
// pipeline: the upload descriptor, the per-stage results and the final outcome.
package report

import "time"

// Descriptor identifies one uploaded report image in transient storage. It is
// owned by a single pipeline invocation and its file is removed before that
// invocation returns.
type Descriptor struct {
	RequestID    string
	StoragePath  string
	OriginalName string
	SizeBytes    int64
}

// RecognitionResult is the text extracted from a report image.
type RecognitionResult struct {
	Text string
}

// AnalysisResult is the plain-language explanation of recognized text.
type AnalysisResult struct {
	Explanation string
}

// State is a step of the per-request pipeline state machine.
type State string

const (
	StateReceived    State = "received"
	StateRecognizing State = "recognizing"
	StateAnalyzing   State = "analyzing"
	StateCleaningUp  State = "cleaning_up"
	StateDone        State = "done"
)

// Failure describes which stage aborted the pipeline and why.
type Failure struct {
	Stage   Stage
	Message string
}

// Outcome is the only value handed back to the HTTP boundary. Exactly one of
// the success fields or Failure is meaningful.
type Outcome struct {
	Text        string
	Explanation string
	Failure     *Failure
}

// Succeeded builds a successful outcome.
func Succeeded(text, explanation string) Outcome {
	return Outcome{Text: text, Explanation: explanation}
}

// Failed builds a failed outcome for stage carrying err's message.
func Failed(stage Stage, err error) Outcome {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Outcome{Failure: &Failure{Stage: stage, Message: msg}}
}

// Succeeded reports whether the pipeline completed every stage.
func (o Outcome) Succeeded() bool {
	return o.Failure == nil
}

// Status is the tracked progress of one request.
type Status struct {
	RequestID string    `json:"request_id"`
	State     State     `json:"state"`
	Stage     Stage     `json:"failed_stage,omitempty"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
