package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

func TestManifest_WriteLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dist", "asset-manifest.json")
	m := Manifest{
		"assets/scripts/index.js": "assets/scripts/index.a1b2c3.js",
		"assets/images/logo.png":  "assets/images/logo.a1b2c3.png",
		"favicon.ico":             "favicon.ico",
	}

	require.NoError(t, m.Write(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temporary file must not survive")
}

func TestManifest_WriteReplacesPreviousBuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset-manifest.json")
	require.NoError(t, Manifest{"stale.js": "stale.1.js", "keep.css": "keep.1.css"}.Write(path))
	require.NoError(t, Manifest{"keep.css": "keep.2.css"}.Write(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Manifest{"keep.css": "keep.2.css"}, got)
}

func TestManifest_FlatJSON(t *testing.T) {
	data, err := Manifest{"b": "2", "a": "1"}.ToJSON()
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": \"1\",\n  \"b\": \"2\"\n}\n", string(data))

	empty, err := Manifest(nil).ToJSON()
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(empty))
}

func TestManifest_Lookup(t *testing.T) {
	m := Manifest{"assets/stylesheets/index.css": "assets/stylesheets/index.f00.css"}

	p, ok := m.Lookup("assets/stylesheets/index.css")
	assert.True(t, ok)
	assert.Equal(t, "assets/stylesheets/index.f00.css", p)

	p, ok = m.Lookup("assets/stylesheets/missing.css")
	assert.False(t, ok)
	assert.Empty(t, p)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("[1,2]"), 0o600))
	_, err = Load(bad)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}
