package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/metrics"
	"git.home.luguber.info/inful/assetpipe/internal/pipeline"
)

type fakeBuilder struct {
	report *pipeline.BuildReport
	err    error
	calls  int
}

func (f *fakeBuilder) Build(context.Context) (*pipeline.BuildReport, error) {
	f.calls++
	return f.report, f.err
}

func newTestServer(t *testing.T, proxy string, b Builder) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	dist := filepath.Join(root, "dist")
	require.NoError(t, os.MkdirAll(filepath.Join(dist, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "index.html"), []byte("<html><body>home</body></html>"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "assets", "app.js"), []byte("console.log(1)"), 0o600))

	reg := prom.NewRegistry()
	s := New(Config{
		Server: config.ServerConfig{Host: "localhost", Port: 0, Proxy: proxy},
		Root:   root,
		Paths:  config.Paths{Source: filepath.Join(root, "src"), Public: filepath.Join(root, "public"), Dist: dist},
	}, b, WithLogger(quietLogger()), WithMetrics(metrics.NewPrometheusRecorder(reg), reg))
	return s, dist
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_ServesDistWithInjection(t *testing.T) {
	s, _ := newTestServer(t, "", &fakeBuilder{})
	h, err := s.Handler()
	require.NoError(t, err)

	rec := get(t, h, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<script async src="/__livereload.js"></script></body>`)

	rec = get(t, h, "/assets/app.js")
	assert.Equal(t, "console.log(1)", rec.Body.String())

	rec = get(t, h, "/missing.css")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, h, MetricsPath)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RebuildUpdatesStatus(t *testing.T) {
	b := &fakeBuilder{report: &pipeline.BuildReport{ID: "0123456789", Hash: "abc", Outcome: pipeline.OutcomeSuccess}}
	s, _ := newTestServer(t, "", b)
	h, err := s.Handler()
	require.NoError(t, err)

	s.Rebuild(context.Background())
	assert.Equal(t, 1, b.calls)

	var status statusPayload
	require.NoError(t, json.Unmarshal(get(t, h, StatusPath).Body.Bytes(), &status))
	assert.Equal(t, "abc", status.Hash)
	assert.Equal(t, "success", status.Outcome)
	assert.True(t, status.HasGoodBuild)
	assert.Empty(t, status.Error)

	b.err = errors.New("bundle failed")
	b.report = &pipeline.BuildReport{ID: "fedcba", Outcome: pipeline.OutcomeFailed}
	s.Rebuild(context.Background())
	require.NoError(t, json.Unmarshal(get(t, h, StatusPath).Body.Bytes(), &status))
	assert.Equal(t, "bundle failed", status.Error)
	assert.True(t, status.HasGoodBuild)
}

func TestServer_ProxyFallsBackForNonOutputs(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Accept-Encoding"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html><body>from upstream "+r.URL.Path+"</body></html>")
	}))
	defer upstream.Close()

	s, _ := newTestServer(t, upstream.URL, &fakeBuilder{})
	h, err := s.Handler()
	require.NoError(t, err)

	rec := get(t, h, "/index.php")
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Contains(t, rec.Body.String(), "from upstream /index.php")
	assert.Contains(t, rec.Body.String(), LiveReloadScriptPath)

	rec = get(t, h, "/assets/app.js")
	assert.Equal(t, "console.log(1)", rec.Body.String())
}

func TestServer_InvalidProxy(t *testing.T) {
	s, _ := newTestServer(t, "not a url", &fakeBuilder{})
	_, err := s.Handler()
	require.Error(t, err)
}

func TestReloadToken(t *testing.T) {
	assert.Equal(t, "abc-01234567", reloadToken(&pipeline.BuildReport{ID: "0123456789", Hash: "abc"}))
	assert.Equal(t, "abc-x", reloadToken(&pipeline.BuildReport{ID: "x", Hash: "abc"}))
}
