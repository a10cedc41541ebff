package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/yndnr/gridsession-go/internal/grid/badgergrid"
	"github.com/yndnr/gridsession-go/internal/grid/memgrid"
	"github.com/yndnr/gridsession-go/internal/grid/sqlgrid"
	"github.com/yndnr/gridsession-go/internal/infra/buildinfo"
	"github.com/yndnr/gridsession-go/internal/infra/confloader"
	"github.com/yndnr/gridsession-go/internal/infra/shutdown"
	"github.com/yndnr/gridsession-go/internal/server/config"
	"github.com/yndnr/gridsession-go/internal/server/gridserver"
	"github.com/yndnr/gridsession-go/internal/telemetry/logger"
	"github.com/yndnr/gridsession-go/internal/telemetry/metric"
	"github.com/yndnr/gridsession-go/internal/telemetry/tracer"
	"github.com/yndnr/gridsession-go/pkg/grid"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("gridnode " + buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
		Output:    os.Stdout,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)
	slogLogger := log.Slog()

	nodeID := config.ResolveNodeID(cfg, slogLogger)
	log.Info("starting gridnode",
		"version", buildinfo.Get().Version,
		"node_id", nodeID,
		"engine", cfg.Engine.Kind,
		"config", config.SanitizeNode(cfg))

	hooks := shutdown.NewHandler(shutdown.DefaultTimeout, shutdown.WithLogger(slogLogger))
	reg := metric.NewRegistry()

	if cfg.Trace.Enabled {
		tp := tracer.New(cfg.Trace, slogLogger)
		tp.Install()
		hooks.OnShutdown("tracer", tp.Shutdown)
	}

	engine, err := openEngine(cfg, slogLogger, reg)
	if err != nil {
		return fmt.Errorf("open engine: %w", err)
	}
	hooks.OnShutdown("engine", func(context.Context) error { return engine.Close() })

	discovery, err := gridserver.NewDiscovery(gridserver.DiscoveryConfig{
		NodeID:   nodeID,
		BindAddr: cfg.Gossip.BindAddr,
		BindPort: cfg.Gossip.BindPort,
		RPCAddr:  cfg.Node.AdvertiseAddr,
		Seeds:    cfg.Gossip.Seeds,
		Logger:   slogLogger,
	})
	if err != nil {
		_ = engine.Close()
		return fmt.Errorf("start discovery: %w", err)
	}
	hooks.OnShutdown("discovery", func(context.Context) error { return discovery.Leave() })

	server, err := gridserver.New(gridserver.Config{
		NodeID:        nodeID,
		AdvertiseAddr: cfg.Node.AdvertiseAddr,
		Client:        engine,
		Discovery:     discovery,
		RPS:           cfg.Limits.RPS,
		Burst:         cfg.Limits.Burst,
		Metrics:       reg,
		Logger:        slogLogger,
	})
	if err != nil {
		return err
	}
	hooks.OnShutdown("grid server", server.Shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := server.ListenAndServe(cfg.Node.RPCAddr); err != nil {
			log.Error("grid server failed", "error", err)
			cancel()
		}
	}()

	if cfg.Metrics.Addr != "" {
		metricsSrv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           reg.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		hooks.OnShutdown("metrics server", metricsSrv.Shutdown)
		go func() {
			log.Info("metrics server listening", "addr", cfg.Metrics.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", "error", err)
			}
		}()
	}

	if *configFile != "" {
		stop, err := watchLogLevel(*configFile, slogLogger)
		if err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			hooks.OnShutdown("config watcher", func(context.Context) error { return stop() })
		}
	}

	log.Info("gridnode started, press Ctrl+C to stop")
	if err := hooks.Run(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("gridnode stopped")
	return nil
}

// loadConfig reads defaults, the optional file and the environment.
func loadConfig(configFile string) (*config.NodeConfig, error) {
	cfg := config.DefaultNode()

	var opts []confloader.Option
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}
	if err := config.VerifyNode(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// engine is a grid.Client owning resources.
type engine interface {
	grid.Client
	Close() error
}

func openEngine(cfg *config.NodeConfig, log *slog.Logger, reg *metric.Registry) (engine, error) {
	switch cfg.Engine.Kind {
	case config.EngineBadger:
		c, err := badgergrid.Open(badgergrid.DefaultConfig(cfg.Engine.DataDir), log)
		if err != nil {
			return nil, err
		}
		return c.RegisterMetrics(reg.Registerer()), nil
	case config.EngineSQL:
		return sqlgrid.Open(sqlgrid.Config{
			Driver:        cfg.Engine.SQLDriver,
			DSN:           cfg.Engine.SQLDSN,
			SweepInterval: cfg.Engine.SweepInterval,
		}, log)
	default:
		return memgrid.New(memgrid.WithSweepInterval(cfg.Engine.SweepInterval)), nil
	}
}

// watchLogLevel applies log.level from configFile whenever it changes.
func watchLogLevel(configFile string, log *slog.Logger) (func() error, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(configFile); err != nil {
		_ = w.Stop()
		return nil, err
	}
	w.OnChange(func(path string) {
		cfg, err := loadConfig(path)
		if err != nil {
			log.Warn("config reload failed", "path", path, "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	w.StartAsync()
	return w.Stop, nil
}
