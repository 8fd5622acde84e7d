package pipeline

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"

	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/hashref"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/manifest"
)

// Output directories of hashed files, relative to dist.
const (
	ScriptsDir     = "assets/scripts"
	StylesheetsDir = "assets/stylesheets"
	ImagesDir      = "assets/images"
	SpritesDir     = "assets/sprites"
)

// stageEmit writes compiled and copied files under dist and records one
// FileDescriptor per output.
func stageEmit(ctx context.Context, bs *BuildState) error {
	bs.Files = nil
	bs.Emitted = nil
	written := make(map[string]string)
	emit := func(desc manifest.FileDescriptor, source string) {
		if prev, ok := written[desc.Path]; ok {
			bs.warn(StageEmit, errors.BuildError("output written twice; last write wins").
				WithSeverity(errors.SeverityWarning).
				WithContext("path", desc.Path).
				WithContext("previous", prev).
				WithContext("next", source).Build(), logfields.Asset(desc.Path))
		} else {
			bs.Emitted = append(bs.Emitted, desc.Path)
		}
		written[desc.Path] = source
		bs.Files = append(bs.Files, desc)
	}

	if bs.Bundle != nil {
		for _, o := range bs.Bundle.Outputs {
			desc := manifest.FileDescriptor{Name: o.Name, IsEntry: o.Entry != "", Path: o.Name}
			if desc.IsEntry {
				desc.Path = entryOutputPath(o.Name, bs.Hash)
			}
			if err := writeOutput(bs.Paths.Dist, desc.Path, o.Contents); err != nil {
				return newFatalStageError(StageEmit, err)
			}
			emit(desc, o.Name)
		}
	}

	for _, c := range bs.Copies {
		if err := ctx.Err(); err != nil {
			return newCanceledStageError(StageEmit, err)
		}
		var desc manifest.FileDescriptor
		var err error
		switch c.Kind {
		case copyPublic:
			desc = manifest.FileDescriptor{Name: c.Rel, Path: c.Rel}
			err = copyOutput(bs.Paths.Dist, c.Rel, c.Source)
		case copyImage:
			name := path.Join(ImagesDir, path.Base(c.Rel))
			desc = manifest.FileDescriptor{Name: name, Path: hashref.Candidate(name, bs.Hash)}
			err = writeOutput(bs.Paths.Dist, desc.Path, bs.optimizer.Transform(ctx, c.Data, c.Source))
		case copySprite:
			name := path.Join(SpritesDir, path.Base(c.Rel))
			desc = manifest.FileDescriptor{Name: name, Path: hashref.Candidate(name, bs.Hash)}
			err = writeOutput(bs.Paths.Dist, desc.Path, c.Data)
		}
		if err != nil {
			return newFatalStageError(StageEmit, err)
		}
		emit(desc, c.Source)
	}

	bs.Report.Emitted = len(bs.Emitted)
	bs.logger.Debug("Outputs emitted", logfields.Count(len(bs.Emitted)))
	return nil
}

// entryOutputPath names a compiled entry file: index.js becomes
// assets/scripts/index.<hash>.js, index.css assets/stylesheets/index.<hash>.css.
func entryOutputPath(name, hash string) string {
	dir := ScriptsDir
	if path.Ext(name) == ".css" {
		dir = StylesheetsDir
	}
	return hashref.Candidate(path.Join(dir, name), hash)
}

func writeOutput(dist, rel string, data []byte) error {
	target := filepath.Join(dist, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.FileSystemError("create output dir").WithCause(err).WithContext("path", target).Build()
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return errors.FileSystemError("write output").WithCause(err).WithContext("path", target).Build()
	}
	return nil
}

func copyOutput(dist, rel, source string) (err error) {
	target := filepath.Join(dist, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.FileSystemError("create output dir").WithCause(err).WithContext("path", target).Build()
	}
	in, err := os.Open(source) // #nosec G304 -- walked from the public dir
	if err != nil {
		return errors.FileSystemError("open public file").WithCause(err).WithContext("path", source).Build()
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(target) // #nosec G304 -- below the output dir
	if err != nil {
		return errors.FileSystemError("create output").WithCause(err).WithContext("path", target).Build()
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = errors.FileSystemError("close output").WithCause(cerr).WithContext("path", target).Build()
		}
	}()
	if _, err := io.Copy(out, in); err != nil {
		return errors.FileSystemError("copy public file").WithCause(err).WithContext("path", target).Build()
	}
	return nil
}

// stageManifest rewrites output names into manifest keys, persists the
// manifest and freezes the snapshot used by page rendering.
func stageManifest(_ context.Context, bs *BuildState) error {
	onCollision := func(key, previous, next string) {
		bs.warn(StageManifest, errors.BuildError("manifest key collision; last write wins").
			WithSeverity(errors.SeverityWarning).
			WithContext("key", key).
			WithContext("previous", previous).
			WithContext("next", next).Build(), logfields.Key(key))
	}
	bs.Manifest = manifest.Rewrite(bs.Project.EntryNames(), bs.Files, onCollision)
	if err := bs.Manifest.Write(bs.Paths.ManifestPath()); err != nil {
		return newFatalStageError(StageManifest, err)
	}
	bs.Snapshot = hashref.NewSnapshot(bs.Hash, bs.Emitted)
	bs.logger.Debug("Manifest written", logfields.Path(bs.Paths.ManifestPath()), logfields.Count(len(bs.Manifest)))
	return nil
}
