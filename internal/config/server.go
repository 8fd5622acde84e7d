package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
)

// Development server defaults.
const (
	DefaultServerHost = "localhost"
	DefaultServerPort = 3000
)

// ServerConfig is the startup configuration of the live-reload server.
type ServerConfig struct {
	Host    string
	Port    int
	Proxy   string // upstream URL; when set dist is not served directly
	TLSCert string
	TLSKey  string
}

// HTTPS reports whether both TLS materials are configured.
func (s ServerConfig) HTTPS() bool { return s.TLSCert != "" && s.TLSKey != "" }

// Addr is the listen address.
func (s ServerConfig) Addr() string { return net.JoinHostPort(s.Host, strconv.Itoa(s.Port)) }

// URL is the address browsers should open.
func (s ServerConfig) URL() string {
	scheme := "http"
	if s.HTTPS() {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, s.Addr())
}

// ResolveServer reads server settings from the environment, layered over the
// project file defaults in base.
func ResolveServer(lookup LookupFunc, base ServerConfig) (ServerConfig, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg := base
	if cfg.Host == "" {
		cfg.Host = DefaultServerHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultServerPort
	}
	if v, ok := lookup(EnvServerHost); ok && v != "" {
		cfg.Host = v
	}
	if v, ok := lookup(EnvServerPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return cfg, errors.ConfigError("invalid server port").
				WithContext("variable", EnvServerPort).
				WithContext("value", v).
				Build()
		}
		cfg.Port = port
	}
	if v, ok := lookup(EnvServerProxy); ok {
		cfg.Proxy = v
	}
	if v, ok := lookup(EnvServerHTTPSCert); ok {
		cfg.TLSCert = v
	}
	if v, ok := lookup(EnvServerHTTPSKey); ok {
		cfg.TLSKey = v
	}
	return cfg, nil
}
