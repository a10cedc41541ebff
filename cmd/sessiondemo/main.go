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

	"github.com/yndnr/gridsession-go/internal/demo"
	"github.com/yndnr/gridsession-go/internal/grid/memgrid"
	"github.com/yndnr/gridsession-go/internal/grid/remote"
	"github.com/yndnr/gridsession-go/internal/infra/buildinfo"
	"github.com/yndnr/gridsession-go/internal/infra/confloader"
	"github.com/yndnr/gridsession-go/internal/infra/shutdown"
	"github.com/yndnr/gridsession-go/internal/server/config"
	"github.com/yndnr/gridsession-go/internal/telemetry/logger"
	"github.com/yndnr/gridsession-go/internal/telemetry/metric"
	"github.com/yndnr/gridsession-go/internal/telemetry/tracer"
	"github.com/yndnr/gridsession-go/pkg/sessionstore"
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
		fmt.Println("sessiondemo " + buildinfo.String())
		return nil
	}

	cfg := config.DefaultDemo()
	var opts []confloader.Option
	if *configFile != "" {
		opts = append(opts, confloader.WithConfigFile(*configFile))
	}
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.VerifyDemo(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
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
	log.Info("starting sessiondemo",
		"version", buildinfo.Get().Version,
		"grid", cfg.Grid.Kind,
		"config", config.SanitizeDemo(cfg))

	hooks := shutdown.NewHandler(shutdown.DefaultTimeout, shutdown.WithLogger(slogLogger))
	reg := metric.NewRegistry()

	observers := sessionstore.Observers{reg.StoreObserver()}
	if cfg.Trace.Enabled {
		tp := tracer.New(cfg.Trace, slogLogger)
		tp.Install()
		hooks.OnShutdown("tracer", tp.Shutdown)
		observers = append(observers, tracer.StoreObserver(tp.Tracer()))
	}

	storeCfg, err := config.ToStoreConfig(cfg.Store)
	if err != nil {
		return err
	}
	store, err := sessionstore.New(storeCfg,
		sessionstore.WithLogger(slogLogger),
		sessionstore.WithObserver(observers))
	if err != nil {
		return err
	}

	client, closeGrid, err := openGrid(cfg.Grid, slogLogger)
	if err != nil {
		return err
	}
	hooks.OnShutdown("grid client", func(context.Context) error { return closeGrid() })

	attachCtx, cancelAttach := context.WithTimeout(context.Background(), cfg.Grid.DialTimeout)
	err = store.Attach(attachCtx, client)
	cancelAttach()
	if err != nil {
		_ = closeGrid()
		return fmt.Errorf("attach store: %w", err)
	}

	router := demo.NewRouter(demo.Config{
		Store:   store,
		Cookie:  demo.CookieConfig{Name: cfg.Cookie.Name, MaxAge: cfg.Cookie.MaxAge, Secure: cfg.Cookie.Secure},
		Metrics: reg,
		Logger:  log,
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	hooks.OnShutdown("http server", srv.Shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		log.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			cancel()
		}
	}()

	if err := hooks.Run(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("sessiondemo stopped")
	return nil
}

// openGrid returns the grid client selected by cfg and its close func.
func openGrid(cfg config.GridSection, log *slog.Logger) (any, func() error, error) {
	switch cfg.Kind {
	case config.GridRemote:
		c := remote.New(cfg.Seeds, remote.WithLogger(log))
		return c, c.Close, nil
	case config.GridMemory:
		c := memgrid.New()
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown grid kind %q", cfg.Kind)
	}
}
