// Package render executes server-side page templates against one build's
// manifest and hashed-asset snapshot.
package render

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/yuin/goldmark"

	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/hashref"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/manifest"
)

// PartialsGlob selects shared templates parsed alongside every page.
const PartialsGlob = "partials/**/*.html"

// Data is the dot value of every page template.
type Data struct {
	Manifest   manifest.Manifest
	Hash       string
	Production bool
	Legacy     bool
	Params     map[string]any
}

// Renderer renders pages from a templates directory into an output directory.
type Renderer struct {
	templatesDir string
	distDir      string
	logger       *slog.Logger
	md           goldmark.Markdown
}

// New returns a Renderer. A nil logger uses slog.Default().
func New(templatesDir, distDir string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		templatesDir: templatesDir,
		distDir:      distDir,
		logger:       logger,
		md:           goldmark.New(),
	}
}

// Render executes one page template and returns the output.
func (r *Renderer) Render(spec config.TemplateSpec, snapshot hashref.Snapshot, data Data) ([]byte, error) {
	logger := r.logger.With(logfields.Template(spec.Source))
	resolver := hashref.NewResolver(snapshot, logger)

	funcs := template.FuncMap{
		"asset": func(key string) string {
			p, ok := data.Manifest.Lookup(key)
			if !ok {
				logger.Warn("Asset not found in manifest", logfields.Key(key))
			}
			return p
		},
		"h":        resolver.Resolve,
		"markdown": r.markdown,
		"inline":   r.inline,
	}

	src, err := r.readWithin(r.templatesDir, spec.Source)
	if err != nil {
		return nil, errors.TemplateError("read template").WithCause(err).
			WithContext("template", spec.Source).Build()
	}
	tpl, err := template.New(filepath.ToSlash(spec.Source)).Funcs(funcs).Option("missingkey=zero").Parse(string(src))
	if err != nil {
		return nil, errors.TemplateError("parse template").WithCause(err).
			WithContext("template", spec.Source).Build()
	}
	partials, err := r.partials()
	if err != nil {
		return nil, err
	}
	// Partials are named by their path below the templates dir so a partial
	// never shadows a page with the same base name.
	for _, rel := range partials {
		body, err := r.readWithin(r.templatesDir, rel)
		if err == nil {
			_, err = tpl.New(rel).Parse(string(body))
		}
		if err != nil {
			return nil, errors.TemplateError("parse partial").WithCause(err).
				WithContext("template", spec.Source).
				WithContext("partial", rel).Build()
		}
	}

	if data.Params == nil {
		data.Params = spec.Params
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return nil, errors.TemplateError("render template").WithCause(err).
			WithContext("template", spec.Source).Build()
	}
	return buf.Bytes(), nil
}

// RenderToFile renders spec and writes it to <dist>/<spec.Output>, returning
// the output path relative to dist.
func (r *Renderer) RenderToFile(ctx context.Context, spec config.TemplateSpec, snapshot hashref.Snapshot, data Data) (string, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	out, err := r.Render(spec, snapshot, data)
	if err != nil {
		return "", nil, err
	}
	rel := filepath.ToSlash(filepath.Clean(spec.Output))
	target := filepath.Join(r.distDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", nil, errors.FileSystemError("create page dir").WithCause(err).
			WithContext("path", target).Build()
	}
	if err := os.WriteFile(target, out, 0o644); err != nil {
		return "", nil, errors.FileSystemError("write page").WithCause(err).
			WithContext("path", target).Build()
	}
	return rel, out, nil
}

func (r *Renderer) partials() ([]string, error) {
	if _, err := os.Stat(r.templatesDir); err != nil {
		return nil, nil
	}
	matches, err := doublestar.Glob(os.DirFS(r.templatesDir), PartialsGlob, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.TemplateError("glob partials").WithCause(err).Build()
	}
	sort.Strings(matches)
	return matches, nil
}

// markdown renders a Markdown file relative to the templates dir.
func (r *Renderer) markdown(rel string) (template.HTML, error) {
	src, err := r.readWithin(r.templatesDir, rel)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return "", err
	}
	// #nosec G203 -- content comes from project-owned Markdown files
	return template.HTML(buf.String()), nil
}

// inline returns the raw content of a file under the output dir, typically a
// sprite sheet referenced through the manifest.
func (r *Renderer) inline(rel string) (template.HTML, error) {
	src, err := r.readWithin(r.distDir, strings.TrimPrefix(rel, "/"))
	if err != nil {
		return "", err
	}
	// #nosec G203 -- content is a build output
	return template.HTML(src), nil
}

// readWithin reads rel below root, refusing paths that leave root.
func (r *Renderer) readWithin(root, rel string) ([]byte, error) {
	full := filepath.Join(root, filepath.FromSlash(rel))
	back, err := filepath.Rel(root, full)
	if err != nil || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return nil, errors.ValidationError("path escapes its directory").WithContext("path", rel).Build()
	}
	return os.ReadFile(full) // #nosec G304 -- confined to root above
}
