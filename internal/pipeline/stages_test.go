package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/metrics"
)

func testState() *BuildState {
	return &BuildState{
		Report:   newBuildReport("test"),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		recorder: metrics.NoopRecorder{},
	}
}

func TestRunStages_WarningContinues(t *testing.T) {
	bs := testState()
	var ran []StageName
	stages := []StageDef{
		{"a", func(context.Context, *BuildState) error { ran = append(ran, "a"); return newWarnStageError("a", errors.New("meh")) }},
		{"b", func(context.Context, *BuildState) error { ran = append(ran, "b"); return nil }},
	}
	require.NoError(t, runStages(context.Background(), bs, stages))
	assert.Equal(t, []StageName{"a", "b"}, ran)
	bs.Report.finish()
	assert.Equal(t, OutcomeWarning, bs.Report.Outcome)
	assert.Equal(t, StageErrorWarning, bs.Report.StageErrorKinds["a"])
}

func TestRunStages_UnclassifiedErrorIsFatal(t *testing.T) {
	bs := testState()
	called := false
	stages := []StageDef{
		{"a", func(context.Context, *BuildState) error { return errors.New("boom") }},
		{"b", func(context.Context, *BuildState) error { called = true; return nil }},
	}
	err := runStages(context.Background(), bs, stages)
	require.Error(t, err)
	assert.False(t, called)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageErrorFatal, se.Kind)
	bs.Report.finish()
	assert.Equal(t, OutcomeFailed, bs.Report.Outcome)
}

func TestRunStages_ClassifiedWarningContinues(t *testing.T) {
	bs := testState()
	stages := []StageDef{
		{"a", func(context.Context, *BuildState) error {
			return ferrors.ImageError("re-encode skipped").WithSeverity(ferrors.SeverityWarning).Build()
		}},
		{"b", func(context.Context, *BuildState) error { return nil }},
	}
	require.NoError(t, runStages(context.Background(), bs, stages))
	assert.Equal(t, StageErrorWarning, bs.Report.StageErrorKinds["a"])
}

func TestRunStages_CanceledBeforeStage(t *testing.T) {
	bs := testState()
	ctx, cancel := context.WithCancel(context.Background())
	stages := []StageDef{
		{"a", func(context.Context, *BuildState) error { cancel(); return nil }},
		{"b", func(context.Context, *BuildState) error { t.Fatal("must not run"); return nil }},
	}
	err := runStages(ctx, bs, stages)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageErrorCanceled, se.Kind)
	assert.Equal(t, StageName("b"), se.Stage)
	bs.Report.finish()
	assert.Equal(t, OutcomeCanceled, bs.Report.Outcome)
}

func TestComputeHash_ContentSensitive(t *testing.T) {
	a := computeHash(nil, []copyItem{{Kind: copyImage, Rel: "logo.png", Data: []byte("a")}})
	b := computeHash(nil, []copyItem{{Kind: copyImage, Rel: "logo.png", Data: []byte("b")}})
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 16)

	// public files are copied verbatim and do not feed the hash
	c := computeHash(nil, []copyItem{{Kind: copyImage, Rel: "logo.png", Data: []byte("a")}, {Kind: copyPublic, Rel: "robots.txt"}})
	assert.Equal(t, a, c)
}
