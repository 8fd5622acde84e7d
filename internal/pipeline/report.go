package pipeline

import (
	"errors"
	"fmt"
	"time"
)

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeWarning  BuildOutcome = "warning"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// BuildReport summarizes one build pass.
type BuildReport struct {
	ID              string
	Hash            string // empty when the pass failed before hashing
	Start           time.Time
	End             time.Time
	Errors          []error // fatal or canceled stage errors (at most one)
	Warnings        []error
	StageDurations  map[StageName]time.Duration
	StageErrorKinds map[StageName]StageErrorKind
	Emitted         int // files written under dist, pages excluded
	Pages           int
	Outcome         BuildOutcome
}

func newBuildReport(id string) *BuildReport {
	return &BuildReport{
		ID:              id,
		Start:           time.Now(),
		StageDurations:  make(map[StageName]time.Duration),
		StageErrorKinds: make(map[StageName]StageErrorKind),
	}
}

// Duration is the wall time of the pass.
func (r *BuildReport) Duration() time.Duration {
	if r.End.IsZero() {
		return time.Since(r.Start)
	}
	return r.End.Sub(r.Start)
}

// Summary returns a one-line human readable description.
func (r *BuildReport) Summary() string {
	return fmt.Sprintf("hash=%s emitted=%d pages=%d duration=%s errors=%d warnings=%d outcome=%s",
		r.Hash, r.Emitted, r.Pages, r.Duration().Truncate(time.Millisecond), len(r.Errors), len(r.Warnings), r.Outcome)
}

func (r *BuildReport) finish() {
	r.End = time.Now()
	r.deriveOutcome()
}

func (r *BuildReport) deriveOutcome() {
	for _, err := range r.Errors {
		var se *StageError
		if errors.As(err, &se) && se.Kind == StageErrorCanceled {
			r.Outcome = OutcomeCanceled
			return
		}
	}
	switch {
	case len(r.Errors) > 0:
		r.Outcome = OutcomeFailed
	case len(r.Warnings) > 0:
		r.Outcome = OutcomeWarning
	default:
		r.Outcome = OutcomeSuccess
	}
}
