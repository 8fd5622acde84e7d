package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/assetpipe/internal/bundle"
	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/hashref"
	"git.home.luguber.info/inful/assetpipe/internal/imageopt"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/manifest"
	"git.home.luguber.info/inful/assetpipe/internal/metrics"
	"git.home.luguber.info/inful/assetpipe/internal/refcheck"
	"git.home.luguber.info/inful/assetpipe/internal/render"
	"git.home.luguber.info/inful/assetpipe/internal/sprite"
)

// Builder runs build passes for one project root.
type Builder struct {
	root     string
	env      config.Env
	paths    config.Paths
	logger   *slog.Logger
	recorder metrics.Recorder
	sprites  *sprite.Generator

	mu sync.Mutex // one pass at a time
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder; the default records nothing.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

// NewBuilder returns a Builder for the project at root. Relative paths in env
// are resolved against root.
func NewBuilder(root string, env config.Env, opts ...Option) *Builder {
	b := &Builder{
		root:     root,
		env:      env,
		paths:    env.Paths.Abs(root),
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.sprites = sprite.NewGenerator(b.logger)
	return b
}

// Paths returns the absolute source, public and dist directories.
func (b *Builder) Paths() config.Paths { return b.paths }

// Env returns the environment the builder was created with.
func (b *Builder) Env() config.Env { return b.env }

// BuildState carries mutable state across the stages of one pass.
type BuildState struct {
	Env     config.Env
	Paths   config.Paths // absolute
	Root    string
	Project *config.Project
	Report  *BuildReport

	Bundle   *bundle.Result
	Copies   []copyItem
	Hash     string
	Emitted  []string
	Files    []manifest.FileDescriptor
	Manifest manifest.Manifest
	Snapshot hashref.Snapshot
	Pages    map[string][]byte

	logger    *slog.Logger
	recorder  metrics.Recorder
	sprites   *sprite.Generator
	optimizer *imageopt.Optimizer
	renderer  *render.Renderer
	checker   *refcheck.Checker
}

// Build runs one full pass. The report is always returned; err is the fatal
// or canceled stage error, if any.
func (b *Builder) Build(ctx context.Context) (*BuildReport, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	report := newBuildReport(uuid.NewString())
	logger := b.logger.With(logfields.BuildID(report.ID))
	bs := &BuildState{
		Env:      b.env,
		Paths:    b.paths,
		Root:     b.root,
		Report:   report,
		Pages:    make(map[string][]byte),
		logger:   logger,
		recorder: b.recorder,
		sprites:  b.sprites,
		renderer: render.New(b.paths.TemplatesDir(), b.paths.Dist, logger),
		checker:  refcheck.NewChecker(b.paths.Dist),
	}

	logger.Info("Build started",
		slog.Bool("production", b.env.Production),
		slog.Bool("legacy", b.env.Legacy))
	err := runStages(ctx, bs, pipelineStages())
	report.finish()

	b.recorder.ObserveBuildDuration(report.Duration())
	b.recorder.IncBuildOutcome(metrics.BuildOutcomeLabel(report.Outcome))
	attrs := []any{
		logfields.BuildHash(report.Hash),
		logfields.Count(report.Emitted),
		logfields.DurationMS(float64(report.Duration().Microseconds()) / 1000),
		slog.String("outcome", string(report.Outcome)),
	}
	if err != nil {
		logger.Error("Build failed", append(attrs, logfields.Error(err))...)
		return report, err
	}
	logger.Info("Build completed", append(attrs, slog.Int("warnings", len(report.Warnings)))...)
	return report, nil
}
