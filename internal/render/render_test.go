package render

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/hashref"
	"git.home.luguber.info/inful/assetpipe/internal/manifest"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func fixture(t *testing.T) (templates, dist string) {
	t.Helper()
	root := t.TempDir()
	templates = filepath.Join(root, "templates")
	dist = filepath.Join(root, "dist")
	require.NoError(t, os.MkdirAll(templates, 0o755))
	require.NoError(t, os.MkdirAll(dist, 0o755))
	return templates, dist
}

func TestRender_Helpers(t *testing.T) {
	templates, dist := fixture(t)
	writeFile(t, filepath.Join(templates, "index.html"),
		`<link href="/{{ asset "assets/stylesheets/index.css" }}">`+
			`<img src="{{ h "/assets/images/logo.png" }}">`+
			`{{ markdown "intro.md" }}`+
			`{{ inline "assets/sprites/icons.abc.svg" }}`+
			`{{ template "footer" . }}`)
	writeFile(t, filepath.Join(templates, "intro.md"), "# Hello\n")
	writeFile(t, filepath.Join(templates, "partials", "footer.html"), `{{ define "footer" }}<footer>{{ .Hash }} {{ .Params.title }}</footer>{{ end }}`)
	writeFile(t, filepath.Join(dist, "assets", "sprites", "icons.abc.svg"), `<svg><symbol id="sprite-flask"></symbol></svg>`)

	r := New(templates, dist, nil)
	snapshot := hashref.NewSnapshot("abc", []string{"assets/images/logo.abc.png"})
	out, err := r.Render(config.TemplateSpec{Source: "index.html", Output: "index.html", Params: map[string]any{"title": "Demo"}}, snapshot, Data{
		Manifest: manifest.Manifest{"assets/stylesheets/index.css": "assets/stylesheets/index.abc.css"},
		Hash:     "abc",
	})
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, `href="/assets/stylesheets/index.abc.css"`)
	assert.Contains(t, s, `src="/assets/images/logo.abc.png"`)
	assert.Contains(t, s, "<h1>Hello</h1>")
	assert.Contains(t, s, `<symbol id="sprite-flask">`)
	assert.Contains(t, s, "<footer>abc Demo</footer>")
}

func TestRender_UnknownAssetKeyIsEmptyWithWarning(t *testing.T) {
	templates, dist := fixture(t)
	writeFile(t, filepath.Join(templates, "index.html"), `[{{ asset "assets/scripts/missing.js" }}]`)

	var logs bytes.Buffer
	r := New(templates, dist, slog.New(slog.NewTextHandler(&logs, nil)))
	out, err := r.Render(config.TemplateSpec{Source: "index.html", Output: "index.html"}, hashref.NewSnapshot("x", nil), Data{Manifest: manifest.Manifest{}})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(out))
	assert.Contains(t, logs.String(), "Asset not found in manifest")
	assert.Contains(t, logs.String(), "assets/scripts/missing.js")
}

func TestRender_ParseErrorIsTemplateError(t *testing.T) {
	templates, dist := fixture(t)
	writeFile(t, filepath.Join(templates, "broken.html"), `{{ if }}`)

	_, err := New(templates, dist, nil).Render(config.TemplateSpec{Source: "broken.html"}, hashref.NewSnapshot("x", nil), Data{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryTemplate))
}

func TestRender_InlineRefusesEscape(t *testing.T) {
	templates, dist := fixture(t)
	writeFile(t, filepath.Join(templates, "index.html"), `{{ inline "../templates/index.html" }}`)

	_, err := New(templates, dist, nil).Render(config.TemplateSpec{Source: "index.html"}, hashref.NewSnapshot("x", nil), Data{})
	require.Error(t, err)
}

func TestRenderToFile(t *testing.T) {
	templates, dist := fixture(t)
	writeFile(t, filepath.Join(templates, "about.html"), `<p>{{ if .Production }}prod{{ else }}dev{{ end }}</p>`)

	rel, out, err := New(templates, dist, nil).RenderToFile(context.Background(),
		config.TemplateSpec{Source: "about.html", Output: "about/index.html"},
		hashref.NewSnapshot("x", nil), Data{Production: true})
	require.NoError(t, err)
	assert.Equal(t, "about/index.html", rel)
	assert.Equal(t, "<p>prod</p>", string(out))

	written, err := os.ReadFile(filepath.Join(dist, "about", "index.html"))
	require.NoError(t, err)
	assert.Equal(t, out, written)
}

func TestRender_PartialWithPageBaseNameDoesNotReplacePage(t *testing.T) {
	templates, dist := fixture(t)
	writeFile(t, filepath.Join(templates, "index.html"), `<main>page {{ template "nav" . }}</main>`)
	writeFile(t, filepath.Join(templates, "partials", "index.html"), `{{ define "nav" }}<nav>nav</nav>{{ end }}partial body`)

	r := New(templates, dist, nil)
	out, err := r.Render(config.TemplateSpec{Source: "index.html", Output: "index.html"}, hashref.NewSnapshot("abc", nil), Data{})
	require.NoError(t, err)
	assert.Equal(t, "<main>page <nav>nav</nav></main>", string(out))
}
