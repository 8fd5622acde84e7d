package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/manifest"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvSourcePath, config.EnvPublicPath, config.EnvDistPath, config.EnvMode, config.EnvLogLevel} {
		t.Setenv(k, "")
	}
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("assetpipe"), kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	return kctx.Run(&Global{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}, &cli)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel(true, "error"))
	assert.Equal(t, slog.LevelDebug, parseLogLevel(false, "DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel(false, "warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel(false, "error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel(false, "loud"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel(false, ""))
}

func TestInferHash(t *testing.T) {
	h, ok := inferHash(manifest.Manifest{
		"favicon.ico":             "favicon.ico",
		"assets/scripts/index.js": "assets/scripts/index.0a1b.js",
	})
	require.True(t, ok)
	assert.Equal(t, "0a1b", h)

	_, ok = inferHash(manifest.Manifest{"favicon.ico": "favicon.ico"})
	assert.False(t, ok)
}

func TestLookupAndResolve(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	m := manifest.Manifest{
		"assets/scripts/index.js": "assets/scripts/index.0a1b.js",
		"assets/images/logo.png":  "assets/images/logo.0a1b.png",
	}
	require.NoError(t, m.Write(filepath.Join(root, "dist", config.ManifestFileName)))
	writeFile(t, filepath.Join(root, "dist/assets/images/logo.0a1b.png"), "png")

	require.NoError(t, run(t, "--root", root, "lookup", "assets/scripts/index.js"))
	require.NoError(t, run(t, "--root", root, "resolve", "/assets/images/logo.png"))

	err := run(t, "--root", root, "lookup", "assets/scripts/missing.js")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
	assert.Equal(t, 3, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestLookup_NoManifest(t *testing.T) {
	clearEnv(t)
	err := run(t, "--root", t.TempDir(), "lookup", "assets/scripts/index.js")
	require.Error(t, err)
}

func TestBuildCommand(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src/assets/index.ts"), "console.log('hi')\n")
	writeFile(t, filepath.Join(root, "public/robots.txt"), "User-agent: *\n")
	writeFile(t, filepath.Join(root, ".env"), config.EnvDistPath+"=build/\n")
	// unset so .env can supply it; t.Setenv restores the original afterwards
	require.NoError(t, os.Unsetenv(config.EnvDistPath))

	require.NoError(t, run(t, "--root", root, "build", "--production"))

	loaded, err := manifest.Load(filepath.Join(root, "build", config.ManifestFileName))
	require.NoError(t, err)
	assert.Equal(t, "robots.txt", loaded["robots.txt"])
	assert.Contains(t, loaded, "assets/scripts/index.js")
}
