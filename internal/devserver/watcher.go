package devserver

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	ignore "github.com/sabhiram/go-gitignore"

	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
)

// defaultIgnores never trigger a rebuild. Patterns are relative to the
// project root.
var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/*.swp",
	"**/*.swx",
	"**/*~",
	"**/.DS_Store",
	"**/Thumbs.db",
}

// IgnoreRules decides which paths below a project root are not watched.
type IgnoreRules struct {
	root      string
	skipDirs  []string // absolute; the output dir and the sprite intermediate dir
	gitignore *ignore.GitIgnore
}

// NewIgnoreRules loads <root>/.gitignore when present. skipDirs are absolute
// directories whose contents are written by the build itself.
func NewIgnoreRules(root string, skipDirs ...string) *IgnoreRules {
	r := &IgnoreRules{root: root, skipDirs: skipDirs}
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		r.gitignore = gi
	}
	return r
}

// Ignored reports whether a change at path (absolute) must not trigger a build.
func (r *IgnoreRules) Ignored(path string) bool {
	for _, dir := range r.skipDirs {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	if isEditorArtifact(filepath.Base(path)) {
		return true
	}
	rel, err := filepath.Rel(r.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range defaultIgnores {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return r.gitignore != nil && r.gitignore.MatchesPath(rel)
}

// isEditorArtifact matches hidden, swap, backup and lock files.
func isEditorArtifact(base string) bool {
	switch {
	case strings.HasPrefix(base, "."):
		return true
	case strings.HasSuffix(base, "~"), strings.HasSuffix(base, ".swp"), strings.HasSuffix(base, ".swx"):
		return true
	case strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#"):
		return true
	}
	return false
}

// Watcher reports relevant filesystem changes below a set of directories.
type Watcher struct {
	fsw    *fsnotify.Watcher
	rules  *IgnoreRules
	logger *slog.Logger
}

// NewWatcher watches dirs recursively. Missing dirs are skipped.
func NewWatcher(rules *IgnoreRules, logger *slog.Logger, dirs ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.ServerError("create file watcher").WithCause(err).Build()
	}
	w := &Watcher{fsw: fsw, rules: rules, logger: logger}
	for _, dir := range dirs {
		if st, err := os.Stat(dir); err != nil || !st.IsDir() {
			logger.Debug("Watch dir missing; skipped", logfields.Path(dir))
			continue
		}
		w.addDirsRecursive(dir)
	}
	return w, nil
}

func (w *Watcher) addDirsRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && w.rules.Ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("watch add failed", logfields.Path(path), logfields.Error(err))
		}
		return nil
	})
}

// Run calls onChange for every relevant event until ctx is done or the
// watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev, onChange)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event, onChange func(string)) {
	if ev.Op == fsnotify.Chmod || w.rules.Ignored(ev.Name) {
		return
	}
	if ev.Op.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			w.addDirsRecursive(ev.Name)
		}
	}
	w.logger.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	onChange(ev.Name)
}

// Close stops watching.
func (w *Watcher) Close() error { return w.fsw.Close() }
