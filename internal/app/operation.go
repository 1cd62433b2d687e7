package app

import (
	"time"

	"sift-go/internal/sift"
)

// Operation tracks the CLI command being run. Every log line of the run
// carries its RunID, and Close logs how it ended.
type Operation struct {
	RunID     string
	Name      string
	Status    string // "success" or "error"
	StartedAt time.Time
}

// NewOperation starts an operation that succeeds unless Fail is called.
func NewOperation(name string, clock sift.Clock, ids sift.IDGenerator) *Operation {
	return &Operation{
		RunID:     ids.New(),
		Name:      name,
		Status:    "success",
		StartedAt: clock.Now(),
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() { op.Status = "error" }

// Elapsed is the time since the operation started, according to clock.
func (op *Operation) Elapsed(clock sift.Clock) time.Duration {
	return clock.Now().Sub(op.StartedAt)
}
