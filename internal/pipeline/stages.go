package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/metrics"
)

// Stage is a discrete unit of work in a build pass.
type Stage func(ctx context.Context, bs *BuildState) error

// StageErrorKind enumerates structured stage error categories.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // Build must abort.
	StageErrorWarning  StageErrorKind = "warning"  // Non-fatal; record and continue.
	StageErrorCanceled StageErrorKind = "canceled" // Context cancellation.
)

// StageError is a structured error carrying the stage and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}
func newWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}
func newCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// runStages executes stages in order, recording timings and stopping on the
// first fatal or canceled error.
func runStages(ctx context.Context, bs *BuildState, stages []StageDef) error {
	for _, st := range stages {
		select {
		case <-ctx.Done():
			se := newCanceledStageError(st.Name, ctx.Err())
			bs.recordStageError(se)
			return se
		default:
		}

		t0 := time.Now()
		err := st.Fn(ctx, bs)
		dur := time.Since(t0)
		bs.Report.StageDurations[st.Name] = dur
		bs.recorder.ObserveStageDuration(string(st.Name), dur)
		bs.logger.Debug("Stage finished", logfields.Stage(string(st.Name)), logfields.DurationMS(float64(dur.Microseconds())/1000))

		if err == nil {
			bs.recorder.IncStageResult(string(st.Name), metrics.ResultSuccess)
			continue
		}

		var se *StageError
		if !errors.As(err, &se) {
			if ctx.Err() != nil {
				se = newCanceledStageError(st.Name, err)
			} else if ce, ok := ferrors.AsClassified(err); ok && ce.IsWarning() {
				se = newWarnStageError(st.Name, err)
			} else {
				se = newFatalStageError(st.Name, err)
			}
		}
		bs.recordStageError(se)
		if se.Kind == StageErrorWarning {
			bs.logger.Warn("Stage completed with warnings", logfields.Stage(string(st.Name)), logfields.Error(se.Err))
			continue
		}
		return se
	}
	return nil
}

func (bs *BuildState) recordStageError(se *StageError) {
	bs.Report.StageErrorKinds[se.Stage] = se.Kind
	switch se.Kind {
	case StageErrorWarning:
		bs.Report.Warnings = append(bs.Report.Warnings, se)
		bs.recorder.IncStageResult(string(se.Stage), metrics.ResultWarning)
	case StageErrorCanceled:
		bs.Report.Errors = append(bs.Report.Errors, se)
		bs.recorder.IncStageResult(string(se.Stage), metrics.ResultCanceled)
	default:
		bs.Report.Errors = append(bs.Report.Errors, se)
		bs.recorder.IncStageResult(string(se.Stage), metrics.ResultFatal)
	}
}

// warn records a non-stage warning (collisions, missing references).
func (bs *BuildState) warn(stage StageName, err error, attrs ...slog.Attr) {
	bs.Report.Warnings = append(bs.Report.Warnings, err)
	args := make([]any, 0, len(attrs)+2)
	args = append(args, logfields.Stage(string(stage)), logfields.Error(err))
	for _, a := range attrs {
		args = append(args, a)
	}
	bs.logger.Warn("Build warning", args...)
}
