package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"

	"git.home.luguber.info/inful/assetpipe/internal/bundle"
	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
)

// copyKind selects the naming rule of a copied file.
type copyKind int

const (
	copyPublic copyKind = iota // unhashed, same relative path
	copyImage                  // assets/images/<name>.<hash><ext>
	copySprite                 // assets/sprites/<name>.<hash><ext>
)

// copyItem is one file picked up by the copy rules.
type copyItem struct {
	Kind   copyKind
	Source string // absolute
	Rel    string // slash path relative to its copy root
	Data   []byte // loaded for hashed kinds only
}

// stageSprites regenerates every sprite set into the intermediate sprite dir.
func stageSprites(ctx context.Context, bs *BuildState) error {
	if bs.Env.Legacy && len(bs.Project.Sprites) > 0 {
		bs.logger.Info("Legacy mode: external sprite references need a polyfill in old browsers")
	}
	for _, set := range bs.Project.Sprites {
		if _, err := bs.sprites.Build(ctx, set, bs.Paths.Source, bs.Paths.SpriteOutputDir()); err != nil {
			if ctx.Err() != nil {
				return newCanceledStageError(StageSprites, err)
			}
			return newFatalStageError(StageSprites, err)
		}
	}
	return nil
}

// stageBundle compiles the project's entries in memory.
func stageBundle(ctx context.Context, bs *BuildState) error {
	res, err := bundle.Bundle(ctx, bundle.Options{
		SourceDir:  bs.Paths.Source,
		Entries:    bs.Project.Entries,
		Production: bs.Env.Production,
		Legacy:     bs.Env.Legacy,
	})
	if err != nil {
		if ctx.Err() != nil {
			return newCanceledStageError(StageBundle, err)
		}
		return newFatalStageError(StageBundle, err)
	}
	bs.Bundle = res
	for _, w := range res.Warnings {
		bs.warn(StageBundle, errors.BundleError("bundler warning").
			WithSeverity(errors.SeverityWarning).
			WithContext("details", w).Build())
	}
	return nil
}

// stageCollect gathers the files matched by the copy rules. Missing source
// dirs contribute nothing.
func stageCollect(_ context.Context, bs *BuildState) error {
	rules := []struct {
		kind copyKind
		dir  string
	}{
		{copyPublic, bs.Paths.Public},
		{copyImage, bs.Paths.ImagesDir()},
		{copySprite, bs.Paths.SpriteOutputDir()},
	}
	bs.Copies = nil
	for _, rule := range rules {
		files, err := listFiles(rule.dir)
		if err != nil {
			return newFatalStageError(StageCollect, err)
		}
		for _, rel := range files {
			item := copyItem{Kind: rule.kind, Source: filepath.Join(rule.dir, filepath.FromSlash(rel)), Rel: rel}
			if rule.kind != copyPublic {
				data, err := os.ReadFile(item.Source)
				if err != nil {
					return newFatalStageError(StageCollect, errors.FileSystemError("read asset").WithCause(err).
						WithContext("path", item.Source).Build())
				}
				item.Data = data
			}
			bs.Copies = append(bs.Copies, item)
		}
	}
	bs.logger.Debug("Copy sources collected", logfields.Count(len(bs.Copies)))
	return nil
}

// listFiles returns every file below dir as sorted slash paths.
func listFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, nil
	}
	matches, err := doublestar.Glob(os.DirFS(dir), "**", doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.FileSystemError("list files").WithCause(err).WithContext("path", dir).Build()
	}
	sort.Strings(matches)
	return matches, nil
}

// stageHash derives the build hash from compiled outputs and hashed copy
// sources. Identical inputs give the same hash.
func stageHash(_ context.Context, bs *BuildState) error {
	bs.Hash = computeHash(bs.Bundle, bs.Copies)
	bs.Report.Hash = bs.Hash
	bs.logger.Debug("Build hash computed", logfields.BuildHash(bs.Hash))
	return nil
}

func computeHash(res *bundle.Result, copies []copyItem) string {
	h := xxhash.New()
	write := func(name string, data []byte) {
		_, _ = h.WriteString(name)
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(data)
		_, _ = h.Write([]byte{0})
	}
	if res != nil {
		for _, o := range res.Outputs {
			write(o.Name, o.Contents)
		}
	}
	for _, c := range copies {
		if c.Kind == copyPublic {
			continue
		}
		write(fmt.Sprintf("%d:%s", c.Kind, c.Rel), c.Data)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
