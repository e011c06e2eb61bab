package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/carlosGalisteo/catastro-mcp-server/internal/callejero"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/config"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/executor"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/httpclient"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/observability"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/core/server"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/export"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/inspire"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/logger"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/mcp"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/parcel"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/reproject"
	"github.com/carlosGalisteo/catastro-mcp-server/internal/tools"
)

var Version = "dev"

const instructions = "Spanish Cadastre (Catastro) lookups. Use the obtener_* and dcnp_* tools to find a " +
	"cadastral reference, then parcela_* tools for its geometry. srs=AUTO picks the UTM zone the WFS serves correctly."

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	// flags override the environment
	flag.StringVar(&cfg.Transport, "transport", cfg.Transport, "stdio or http")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address for the http transport")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "metrics listen address for the stdio transport")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flag.StringVar(&cfg.Export.Sink, "export-sink", cfg.Export.Sink, "file or redis")
	flag.StringVar(&cfg.Export.Root, "export-root", cfg.Export.Root, "directory exports are confined to")
	flag.StringVar(&cfg.Reprojection, "reprojection", cfg.Reprojection, "builtin or off")
	flag.DurationVar(&cfg.ToolTimeout, "tool-timeout", cfg.ToolTimeout, "per tool call timeout")
	flag.Parse()
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Transport: cfg.Transport,
		Component: "catastro-mcp",
	}, os.Stderr)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting catastro-mcp",
		"version", Version,
		"transport", cfg.Transport,
		"wfs", cfg.Catastro.WFSURL,
		"reprojection", cfg.Reprojection,
		"export_sink", cfg.Export.Sink)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	exec := executor.New(appLog, httpclient.NewOutbound(cfg.Catastro.Timeout), cfg.Catastro.UserAgent)
	wfs := inspire.New(exec, cfg.Catastro.WFSURL)
	parcels := parcel.NewResolver(parcel.Config{
		Fetcher:      wfs,
		Transformer:  reproject.FromConfig(cfg.Reprojection),
		H3Resolution: cfg.H3Res,
		Logger:       appLog,
	})

	sink, closeSink, err := buildSink(ctx, cfg.Export)
	if err != nil {
		appLog.Error("export sink setup failed", "sink", cfg.Export.Sink, "err", err)
		return 1
	}
	defer closeSink()

	notifier := export.NopNotifier()
	if len(cfg.Export.KafkaBroker) > 0 {
		kn, err := export.NewKafkaNotifier(cfg.Export.KafkaBroker, cfg.Export.KafkaTopic, 256, appLog)
		if err != nil {
			appLog.Error("kafka notifier setup failed", "brokers", cfg.Export.KafkaBroker, "err", err)
			return 1
		}
		notifier = kn
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			appLog.Warn("notifier close", "err", err)
		}
	}()

	reg := tools.NewRegistry()
	if err := tools.RegisterAll(reg, tools.Deps{
		Callejero: callejero.New(exec, cfg.Catastro.CallejeroURL, cfg.Catastro.CoordenadasURL),
		WFS:       wfs,
		Parcels:   parcels,
		Exporter:  export.NewExporter(parcels, sink, notifier, appLog),
	}); err != nil {
		appLog.Error("tool registration failed", "err", err)
		return 1
	}
	appLog.Info("tools registered", "count", len(reg.Names()))

	handler := mcp.NewHandler(reg, mcp.Options{
		Name:         "catastro-mcp",
		Version:      Version,
		Instructions: instructions,
		ToolTimeout:  cfg.ToolTimeout,
		Logger:       appLog,
	})

	switch cfg.Transport {
	case "http":
		if err := server.Run(ctx, cfg, appLog, handler); err != nil {
			appLog.Error("server exited with error", "err", err)
			return 1
		}
	case "stdio":
		if cfg.MetricsAddr != "" {
			go func() {
				if err := server.RunMetrics(ctx, cfg.MetricsAddr, appLog); err != nil {
					appLog.Warn("metrics server exited", "err", err)
				}
			}()
		}
		if err := mcp.ServeStdio(ctx, handler, os.Stdin, os.Stdout, appLog); err != nil {
			appLog.Error("stdio transport exited with error", "err", err)
			return 1
		}
	default:
		appLog.Error("unknown transport", "transport", cfg.Transport)
		return 2
	}
	appLog.Info("server stopped")
	return 0
}

func buildSink(ctx context.Context, c config.ExportCfg) (export.Sink, func(), error) {
	switch strings.ToLower(c.Sink) {
	case "", "file":
		s, err := export.NewFileSink(c.Root)
		return s, func() {}, err
	case "redis":
		s, err := export.NewRedisSink(ctx, c.RedisAddr, c.RedisPrefix, c.RedisTTL,
			export.WithPoolSize(4),
			export.WithDialTimeout(3*time.Second),
			export.WithWriteTimeout(2*time.Second),
		)
		if err != nil {
			return nil, func() {}, err
		}
		return s, closer(s), nil
	default:
		return nil, func() {}, fmt.Errorf("unknown export sink %q", c.Sink)
	}
}

func closer(c io.Closer) func() {
	return func() { _ = c.Close() }
}
