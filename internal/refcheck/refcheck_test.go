package refcheck

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!doctype html>
<html><head>
<link rel="stylesheet" href="/assets/stylesheets/index.abc.css">
<script src="assets/scripts/index.abc.js"></script>
</head><body>
<a href="#top">top</a>
<a href="https://example.com/">ext</a>
<a href="mailto:me@example.com">mail</a>
<img src="/assets/images/logo.abc.png" srcset="/assets/images/logo.abc.png 1x, /assets/images/logo@2x.png 2x">
<svg><use xlink:href="#sprite-flask"></use><use href="/assets/sprites/icons.abc.svg#sprite-flask"></use></svg>
<a href="/docs/">docs</a>
</body></html>`

func TestExtractRefs(t *testing.T) {
	refs, err := ExtractRefs(strings.NewReader(page))
	require.NoError(t, err)

	var urls []string
	for _, r := range refs {
		urls = append(urls, r.URL)
	}
	assert.Contains(t, urls, "/assets/stylesheets/index.abc.css")
	assert.Contains(t, urls, "assets/scripts/index.abc.js")
	assert.Contains(t, urls, "/assets/images/logo@2x.png")
	assert.Contains(t, urls, "#sprite-flask")
	assert.Contains(t, urls, "/assets/sprites/icons.abc.svg#sprite-flask")

	for _, r := range refs {
		if r.URL == "#sprite-flask" {
			assert.Equal(t, "xlink:href", r.Attribute)
			assert.Equal(t, "use", r.Tag)
		}
	}
}

func TestIsLocal(t *testing.T) {
	assert.True(t, IsLocal("/a.css"))
	assert.True(t, IsLocal("a.css?v=1"))
	assert.False(t, IsLocal(""))
	assert.False(t, IsLocal("#frag"))
	assert.False(t, IsLocal("//cdn.example.com/a.js"))
	assert.False(t, IsLocal("https://example.com/a.js"))
	assert.False(t, IsLocal("data:image/png;base64,AAAA"))
	assert.False(t, IsLocal("mailto:me@example.com"))
}

func TestCheckPage(t *testing.T) {
	dist := t.TempDir()
	for _, rel := range []string{
		"assets/stylesheets/index.abc.css",
		"assets/scripts/index.abc.js",
		"assets/images/logo.abc.png",
		"assets/sprites/icons.abc.svg",
		"docs/index.html",
	} {
		p := filepath.Join(dist, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}

	missing, err := NewChecker(dist).CheckPage("index.html", []byte(page))
	require.NoError(t, err)
	require.Len(t, missing, 1)
	assert.Equal(t, "/assets/images/logo@2x.png", missing[0].Ref.URL)
	assert.Equal(t, "index.html", missing[0].Page)
}

func TestCheckPage_EscapingReference(t *testing.T) {
	missing, err := NewChecker(t.TempDir()).CheckPage("index.html", []byte(`<img src="../../etc/passwd">`))
	require.NoError(t, err)
	require.Len(t, missing, 1)
}
