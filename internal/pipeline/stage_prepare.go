package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/imageopt"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
)

// stageLoadProject reads the project file on every pass so entry, template
// and sprite changes are picked up by rebuilds.
func stageLoadProject(_ context.Context, bs *BuildState) error {
	project, err := config.LoadProject(bs.Root, bs.Paths)
	if err != nil {
		return newFatalStageError(StageLoadProject, err)
	}
	bs.Project = project
	bs.optimizer = imageopt.New(imageopt.OptionsFrom(project.Images), bs.Env.Production, bs.logger, bs.recorder)
	bs.logger.Debug("Project loaded",
		slog.Int("entries", len(project.Entries)),
		slog.Int("templates", len(project.Templates)),
		slog.Int("sprite_sets", len(project.Sprites)))
	return nil
}

// stageClean removes the previous output so no stale files survive.
func stageClean(_ context.Context, bs *BuildState) error {
	if err := checkDistPlacement(bs.Root, bs.Paths); err != nil {
		return newFatalStageError(StageClean, err)
	}
	if err := os.RemoveAll(bs.Paths.Dist); err != nil {
		return newFatalStageError(StageClean, errors.FileSystemError("clean output dir").WithCause(err).
			WithContext("path", bs.Paths.Dist).Build())
	}
	if err := os.MkdirAll(bs.Paths.Dist, 0o755); err != nil {
		return newFatalStageError(StageClean, errors.FileSystemError("create output dir").WithCause(err).
			WithContext("path", bs.Paths.Dist).Build())
	}
	bs.logger.Debug("Output dir cleaned", logfields.Path(bs.Paths.Dist))
	return nil
}

// checkDistPlacement refuses output dirs whose removal would delete the
// project or its inputs.
func checkDistPlacement(root string, p config.Paths) error {
	dist := filepath.Clean(p.Dist)
	for _, protected := range []string{root, p.Source, p.Public} {
		if isWithin(filepath.Clean(protected), dist) {
			return errors.ConfigError("output dir must not contain the project or its inputs").
				WithContext("dist", dist).
				WithContext("input", protected).
				Build()
		}
	}
	return nil
}

// isWithin reports whether child equals parent or lies below it.
func isWithin(child, parent string) bool {
	if child == parent {
		return true
	}
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
