package sprite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpipe/internal/config"
)

func writeIcon(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestBuild_CombinesIcons(t *testing.T) {
	src := t.TempDir()
	icons := filepath.Join(src, "assets/sprites/index")
	writeIcon(t, icons, "github.svg", `<?xml version="1.0"?>
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16"><path d="M8 0L16 16H0z"/></svg>`)
	writeIcon(t, icons, "flask.svg", `<svg xmlns="http://www.w3.org/2000/svg" width="24px" height="24px"><circle cx="12" cy="12" r="10"/></svg>`)
	writeIcon(t, icons, "notes.txt", "ignored")
	out := filepath.Join(src, "assets/sprites/_")

	g := NewGenerator(nil)
	res, err := g.Build(context.Background(), config.SpriteSet{Name: "index", Glob: "assets/sprites/index/*.svg"}, src, out)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, "index.svg"), res.Path)
	assert.Equal(t, []string{"sprite-flask", "sprite-github"}, res.Symbols)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	body := string(data)
	assert.Equal(t, 2, strings.Count(body, "<symbol"))
	assert.Contains(t, body, "sprite-flask")
	assert.Contains(t, body, "sprite-github")
	assert.Contains(t, body, "0 0 24 24")
	assert.NotContains(t, body, "<?xml")
}

func TestBuild_MissingDirectoryProducesNothing(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(src, "assets/sprites/_")
	stale := filepath.Join(out, "foobar.svg")
	writeIcon(t, out, "foobar.svg", "<svg/>")

	res, err := NewGenerator(nil).Build(context.Background(),
		config.SpriteSet{Name: "foobar", Glob: "assets/sprites/foobar/*.svg"}, src, out)
	require.NoError(t, err)
	assert.Empty(t, res.Path)
	assert.Empty(t, res.Symbols)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale spritemap must be removed")
}

func TestBuild_InvalidIcon(t *testing.T) {
	src := t.TempDir()
	writeIcon(t, filepath.Join(src, "icons"), "broken.svg", "<svg><path></svg>")

	_, err := NewGenerator(nil).Build(context.Background(),
		config.SpriteSet{Name: "icons", Glob: "icons/*.svg"}, src, filepath.Join(src, "_"))
	require.Error(t, err)
}

func TestBuild_UnchangedOutputNotRewritten(t *testing.T) {
	src := t.TempDir()
	writeIcon(t, filepath.Join(src, "icons"), "a.svg", `<svg viewBox="0 0 1 1"><rect width="1" height="1"/></svg>`)
	set := config.SpriteSet{Name: "icons", Glob: "icons/*.svg"}
	out := filepath.Join(src, "_")
	g := NewGenerator(nil)

	res, err := g.Build(context.Background(), set, src, out)
	require.NoError(t, err)
	first, err := os.Stat(res.Path)
	require.NoError(t, err)

	_, err = g.Build(context.Background(), set, src, out)
	require.NoError(t, err)
	second, err := os.Stat(res.Path)
	require.NoError(t, err)
	assert.Equal(t, first.ModTime(), second.ModTime())
}
