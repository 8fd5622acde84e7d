package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names read by assetpipe.
const (
	EnvSourcePath = "ASSETPIPE_SRC_RELATIVE_PATH"
	EnvPublicPath = "ASSETPIPE_PUBLIC_RELATIVE_PATH"
	EnvDistPath   = "ASSETPIPE_DIST_RELATIVE_PATH"
	EnvLegacy     = "ASSETPIPE_LEGACY"
	EnvMode       = "ASSETPIPE_ENV"
	EnvLogLevel   = "ASSETPIPE_LOG_LEVEL"

	EnvServerHost      = "ASSETPIPE_SERVER_HOST"
	EnvServerPort      = "ASSETPIPE_SERVER_PORT"
	EnvServerProxy     = "ASSETPIPE_SERVER_PROXY"
	EnvServerHTTPSCert = "ASSETPIPE_SERVER_HTTPS_CERT"
	EnvServerHTTPSKey  = "ASSETPIPE_SERVER_HTTPS_KEY"
)

// ProductionMode is the EnvMode value that enables production builds.
const ProductionMode = "production"

// Default directory names used when the corresponding variable is unset.
const (
	DefaultSourceDir = "src"
	DefaultPublicDir = "public"
	DefaultDistDir   = "dist"
)

// LookupFunc reads one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Env is the build environment derived once per invocation.
type Env struct {
	Paths      Paths
	Legacy     bool
	Production bool
	LogLevel   string
}

// ResolveEnv derives the build environment. Absent settings are defaulted
// silently; there are no error conditions.
func ResolveEnv(lookup LookupFunc) Env {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	_, legacy := lookup(EnvLegacy)
	return Env{
		Paths: Paths{
			Source: normalizeDir(get(EnvSourcePath), DefaultSourceDir),
			Public: normalizeDir(get(EnvPublicPath), DefaultPublicDir),
			Dist:   normalizeDir(get(EnvDistPath), DefaultDistDir),
		},
		Legacy:     legacy,
		Production: get(EnvMode) == ProductionMode,
		LogLevel:   strings.ToLower(strings.TrimSpace(get(EnvLogLevel))),
	}
}

// normalizeDir strips trailing slashes and falls back to def when nothing is left.
func normalizeDir(raw, def string) string {
	trimmed := strings.TrimRight(raw, "/")
	if trimmed == "" {
		return def
	}
	return trimmed
}

// LoadDotEnv loads .env.local then .env from root into the process
// environment. Variables already set are never overridden, so .env.local wins
// over .env and the real environment wins over both. It returns the files that
// were loaded.
func LoadDotEnv(root string) ([]string, error) {
	var loaded []string
	for _, name := range []string{".env.local", ".env"} {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, err
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}
