package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

func TestResolveServer_Defaults(t *testing.T) {
	cfg, err := ResolveServer(lookupFrom(nil), ServerConfig{})
	require.NoError(t, err)

	assert.Equal(t, "localhost:3000", cfg.Addr())
	assert.Empty(t, cfg.Proxy)
	assert.False(t, cfg.HTTPS())
	assert.Equal(t, "http://localhost:3000", cfg.URL())
}

func TestResolveServer_EnvOverridesFile(t *testing.T) {
	cfg, err := ResolveServer(lookupFrom(map[string]string{
		EnvServerHost:      "0.0.0.0",
		EnvServerPort:      "8443",
		EnvServerHTTPSCert: "cert.pem",
		EnvServerHTTPSKey:  "key.pem",
	}), ServerConfig{Host: "example.test", Port: 4000, Proxy: "http://localhost:8080"})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8443", cfg.Addr())
	assert.Equal(t, "http://localhost:8080", cfg.Proxy)
	assert.True(t, cfg.HTTPS())
	assert.Equal(t, "https://0.0.0.0:8443", cfg.URL())
}

func TestResolveServer_HTTPSNeedsBoth(t *testing.T) {
	cfg, err := ResolveServer(lookupFrom(map[string]string{EnvServerHTTPSCert: "cert.pem"}), ServerConfig{})
	require.NoError(t, err)
	assert.False(t, cfg.HTTPS())
}

func TestResolveServer_InvalidPort(t *testing.T) {
	_, err := ResolveServer(lookupFrom(map[string]string{EnvServerPort: "http"}), ServerConfig{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}
