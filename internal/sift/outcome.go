package sift

import "fmt"

// Status is the tag of an Outcome.
type Status string

const (
	StatusMoved       Status = "moved"
	StatusKeptInPlace Status = "kept_in_place"
	StatusSkipped     Status = "skipped"
	StatusFailed      Status = "failed"
)

// Reason explains a KeptInPlace or Skipped outcome.
type Reason string

const (
	ReasonLowConfidence     Reason = "low_confidence"
	ReasonNoCategories      Reason = "no_categories"
	ReasonHiddenFile        Reason = "hidden_file"
	ReasonSizeLimitExceeded Reason = "size_limit_exceeded"
	ReasonNotFound          Reason = "not_found"
	ReasonAlreadyProcessed  Reason = "already_processed"
)

// Outcome is the result of one DecideAndApply call. It is one of Moved,
// KeptInPlace, Skipped or Failed.
type Outcome interface {
	Status() Status
	outcome()
}

// Moved means the file now lives at Destination.
type Moved struct {
	Destination string
	Category    string
	Confidence  float64
	RecordID    int64
}

// KeptInPlace means the file was classified but left where it was.
type KeptInPlace struct {
	Confidence float64
	Reason     Reason
}

// Skipped means the file was not classified.
type Skipped struct {
	Reason Reason
}

// Failed means an error stopped processing. The file was not moved.
type Failed struct {
	Message string
}

func (Moved) Status() Status       { return StatusMoved }
func (KeptInPlace) Status() Status { return StatusKeptInPlace }
func (Skipped) Status() Status     { return StatusSkipped }
func (Failed) Status() Status      { return StatusFailed }

func (Moved) outcome()       {}
func (KeptInPlace) outcome() {}
func (Skipped) outcome()     {}
func (Failed) outcome()      {}

// StatusTag is the string stored in the processing cache, e.g. "skipped:hidden_file".
func StatusTag(o Outcome) string {
	switch v := o.(type) {
	case KeptInPlace:
		return fmt.Sprintf("%s:%s", v.Status(), v.Reason)
	case Skipped:
		return fmt.Sprintf("%s:%s", v.Status(), v.Reason)
	default:
		return string(o.Status())
	}
}

// OutcomeView is a flat, serializable rendering of an Outcome.
type OutcomeView struct {
	Status      Status  `json:"status"`
	Reason      Reason  `json:"reason,omitempty"`
	Category    string  `json:"category,omitempty"`
	Destination string  `json:"destination,omitempty"`
	Confidence  float64 `json:"confidence"`
	RecordID    int64   `json:"record_id,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// Describe flattens an Outcome.
func Describe(o Outcome) OutcomeView {
	switch v := o.(type) {
	case Moved:
		return OutcomeView{Status: v.Status(), Category: v.Category, Destination: v.Destination, Confidence: v.Confidence, RecordID: v.RecordID}
	case KeptInPlace:
		return OutcomeView{Status: v.Status(), Reason: v.Reason, Confidence: v.Confidence}
	case Skipped:
		return OutcomeView{Status: v.Status(), Reason: v.Reason}
	case Failed:
		return OutcomeView{Status: v.Status(), Error: v.Message}
	default:
		return OutcomeView{Status: StatusFailed, Error: fmt.Sprintf("unknown outcome %T", o)}
	}
}
