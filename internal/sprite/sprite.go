// Package sprite combines icon SVGs into one spritemap of <symbol> elements,
// each referenced by fragment identifier (#sprite-<icon>).
package sprite

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/svg"

	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
)

// SymbolPrefix is prepended to every icon's file stem to form its symbol id.
const SymbolPrefix = "sprite-"

const svgMediaType = "image/svg+xml"

type icon struct {
	XMLName xml.Name `xml:"svg"`
	ViewBox string   `xml:"viewBox,attr"`
	Width   string   `xml:"width,attr"`
	Height  string   `xml:"height,attr"`
	Inner   []byte   `xml:",innerxml"`
}

// Generator writes spritemaps for configured sprite sets.
type Generator struct {
	logger   *slog.Logger
	minifier *minify.M
}

// NewGenerator returns a Generator. A nil logger uses slog.Default.
func NewGenerator(logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	m := minify.New()
	m.AddFunc(svgMediaType, svg.Minify)
	return &Generator{logger: logger, minifier: m}
}

// Result describes one generated spritemap.
type Result struct {
	Set     string
	Path    string // written file; empty when the set had no icons
	Symbols []string
}

// Build renders set, whose glob is relative to sourceDir, into
// <outDir>/<set>.svg. A set without matching icons produces nothing and
// removes a stale spritemap from an earlier build.
func (g *Generator) Build(ctx context.Context, set config.SpriteSet, sourceDir, outDir string) (Result, error) {
	res := Result{Set: set.Name}
	out := filepath.Join(outDir, set.Name+".svg")

	matches, err := doublestar.Glob(os.DirFS(sourceDir), set.Glob, doublestar.WithFilesOnly())
	if err != nil {
		return res, errors.ConfigError("invalid sprite glob").WithCause(err).
			WithContext("sprite_set", set.Name).
			WithContext("glob", set.Glob).
			Build()
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		g.logger.Debug("No icons for sprite set", logfields.SpriteSet(set.Name))
		if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
			return res, errors.FileSystemError("remove stale spritemap").WithCause(err).
				WithContext("path", out).Build()
		}
		return res, nil
	}

	var buf bytes.Buffer
	buf.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink">`)
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		id := SymbolPrefix + strings.TrimSuffix(path.Base(m), path.Ext(m))
		if err := g.writeSymbol(&buf, filepath.Join(sourceDir, filepath.FromSlash(m)), id); err != nil {
			return res, err
		}
		res.Symbols = append(res.Symbols, id)
	}
	buf.WriteString(`</svg>`)

	minified, err := g.minifier.Bytes(svgMediaType, buf.Bytes())
	if err != nil {
		return res, errors.BuildError("minify spritemap").WithCause(err).
			WithContext("sprite_set", set.Name).Build()
	}
	if err := writeIfChanged(out, minified); err != nil {
		return res, err
	}
	res.Path = out
	g.logger.Debug("Spritemap generated",
		logfields.SpriteSet(set.Name), logfields.Path(out), logfields.Count(len(res.Symbols)))
	return res, nil
}

func (g *Generator) writeSymbol(buf *bytes.Buffer, file, id string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return errors.FileSystemError("read icon").WithCause(err).WithContext("path", file).Build()
	}
	var ic icon
	if err := xml.Unmarshal(data, &ic); err != nil {
		return errors.BuildError("parse icon").WithCause(err).WithContext("path", file).Build()
	}
	viewBox := ic.ViewBox
	if viewBox == "" && ic.Width != "" && ic.Height != "" {
		viewBox = fmt.Sprintf("0 0 %s %s", strings.TrimSuffix(ic.Width, "px"), strings.TrimSuffix(ic.Height, "px"))
	}

	buf.WriteString(`<symbol id="`)
	_ = xml.EscapeText(buf, []byte(id))
	buf.WriteString(`"`)
	if viewBox != "" {
		buf.WriteString(` viewBox="`)
		_ = xml.EscapeText(buf, []byte(viewBox))
		buf.WriteString(`"`)
	}
	buf.WriteString(`>`)
	buf.Write(bytes.TrimSpace(ic.Inner))
	buf.WriteString(`</symbol>`)
	return nil
}

// writeIfChanged leaves an identical file untouched so watchers see no event.
func writeIfChanged(path string, data []byte) error {
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, data) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.FileSystemError("create sprite directory").WithCause(err).
			WithContext("path", path).Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.FileSystemError("write spritemap").WithCause(err).
			WithContext("path", path).Build()
	}
	return nil
}
