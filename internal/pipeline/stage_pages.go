package pipeline

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/render"
)

// stageTemplates renders every page against the frozen manifest and snapshot.
func stageTemplates(ctx context.Context, bs *BuildState) error {
	data := render.Data{
		Manifest:   bs.Manifest,
		Hash:       bs.Hash,
		Production: bs.Env.Production,
		Legacy:     bs.Env.Legacy,
	}
	for _, spec := range bs.Project.Templates {
		rel, out, err := bs.renderer.RenderToFile(ctx, spec, bs.Snapshot, data)
		if err != nil {
			if ctx.Err() != nil {
				return newCanceledStageError(StageTemplates, err)
			}
			return newFatalStageError(StageTemplates, err)
		}
		bs.Pages[rel] = out
		bs.logger.Debug("Page rendered", logfields.Template(spec.Source), logfields.Path(rel))
	}
	bs.Report.Pages = len(bs.Pages)
	return nil
}

// stageRefCheck reports page references to files missing from dist.
func stageRefCheck(_ context.Context, bs *BuildState) error {
	missing := 0
	for _, page := range sortedKeys(bs.Pages) {
		found, err := bs.checker.CheckPage(page, bs.Pages[page])
		if err != nil {
			bs.warn(StageRefCheck, err, logfields.Path(page))
			continue
		}
		for _, m := range found {
			missing++
			bs.warn(StageRefCheck, errors.NotFoundError("page references a missing file").
				WithSeverity(errors.SeverityWarning).
				WithContext("page", m.Page).
				WithContext("ref", m.Ref.URL).
				WithContext("attribute", m.Ref.Tag+"["+m.Ref.Attribute+"]").Build(),
				logfields.Path(m.Page), logfields.URL(m.Ref.URL))
		}
	}
	if missing > 0 {
		return newWarnStageError(StageRefCheck, fmt.Errorf("%d missing reference(s)", missing))
	}
	return nil
}
