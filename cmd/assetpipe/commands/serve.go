package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/devserver"
	"git.home.luguber.info/inful/assetpipe/internal/metrics"
	"git.home.luguber.info/inful/assetpipe/internal/pipeline"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Host       string `help:"Listen host (overrides ASSETPIPE_SERVER_HOST)"`
	Port       int    `help:"Listen port (overrides ASSETPIPE_SERVER_PORT)"`
	Proxy      string `help:"Upstream URL for requests that are not build outputs (overrides ASSETPIPE_SERVER_PROXY)"`
	Production bool   `help:"Serve production builds"`
	Legacy     bool   `help:"Target older browsers"`
}

func (s *ServeCmd) Run(g *Global, cli *CLI) error {
	root, env, err := cli.environment(s.Production, s.Legacy)
	if err != nil {
		return err
	}
	paths := env.Paths.Abs(root)
	project, err := config.LoadProject(root, paths)
	if err != nil {
		return err
	}
	srvCfg, err := config.ResolveServer(os.LookupEnv, project.ServerDefaults())
	if err != nil {
		return err
	}
	s.applyOverrides(&srvCfg)

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	recorder := metrics.NewPrometheusRecorder(reg)

	builder := pipeline.NewBuilder(root, env, pipeline.WithLogger(g.Logger), pipeline.WithRecorder(recorder))
	server := devserver.New(devserver.Config{Server: srvCfg, Root: root, Paths: builder.Paths()}, builder,
		devserver.WithLogger(g.Logger),
		devserver.WithMetrics(recorder, reg))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return server.Run(ctx)
}

func (s *ServeCmd) applyOverrides(cfg *config.ServerConfig) {
	if s.Host != "" {
		cfg.Host = s.Host
	}
	if s.Port != 0 {
		cfg.Port = s.Port
	}
	if s.Proxy != "" {
		cfg.Proxy = s.Proxy
	}
}
