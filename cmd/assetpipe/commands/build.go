package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/pipeline"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Production bool `help:"Minify, optimize images and drop source maps (same as ASSETPIPE_ENV=production)"`
	Legacy     bool `help:"Target older browsers (same as setting ASSETPIPE_LEGACY)"`
	Strict     bool `help:"Fail when the build finishes with warnings"`
}

func (b *BuildCmd) Run(g *Global, cli *CLI) error {
	root, env, err := cli.environment(b.Production, b.Legacy)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report, err := pipeline.NewBuilder(root, env, pipeline.WithLogger(g.Logger)).Build(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Build complete:", report.Summary())
	if b.Strict && len(report.Warnings) > 0 {
		return errors.ValidationError("build finished with warnings").
			WithContext("warnings", len(report.Warnings)).Build()
	}
	return nil
}
