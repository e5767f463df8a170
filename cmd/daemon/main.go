package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/genricoloni/reverie/assets"
	"github.com/genricoloni/reverie/internal/api"
	"github.com/genricoloni/reverie/internal/config"
	"github.com/genricoloni/reverie/internal/domain"
	"github.com/genricoloni/reverie/internal/engine"
	"github.com/genricoloni/reverie/internal/executor"
	"github.com/genricoloni/reverie/internal/fetcher"
	"github.com/genricoloni/reverie/internal/metrics"
	"github.com/genricoloni/reverie/internal/monitor"
	"github.com/genricoloni/reverie/internal/preload"
	"github.com/genricoloni/reverie/internal/processor"
	"github.com/genricoloni/reverie/internal/provider"
	"github.com/genricoloni/reverie/internal/random"
	"github.com/genricoloni/reverie/internal/rotation"
	"github.com/genricoloni/reverie/internal/settings"
	"github.com/genricoloni/reverie/internal/weather"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// configFile is set by the --config flag
var configFile string

// CoreOptions is the part of the graph shared by the daemon and the one-shot commands
var CoreOptions = fx.Options(
	fx.Provide(
		newViper,
		newLogger,
		config.NewAppConfig,
		func(c *config.AppConfig) domain.Config { return c },
		newRegistry,
		newMetrics,
		newHTTPClient,
		newFetcher,
		monitor.NewScreenResolution,
		random.New,
		newRepository,
		func(r *provider.Repository) domain.ImageSource { return r },
		newPreloader,
	),
)

// AppOptions is the full daemon graph
var AppOptions = fx.Options(
	CoreOptions,
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log}
	}),
	fx.Provide(
		newSettingsStore,
		newWeatherClient,
		newRefresher,
		func(r *weather.Refresher) domain.WeatherSource { return r },
		newRenderer,
		newExecutor,
		newMonitor,
		newRotator,
		func(r *rotation.Rotator) engine.Rotator { return r },
		func(r *rotation.Rotator) api.Controller { return r },
		newEngine,
		newServer,
	),
	fx.Invoke(registerHooks),
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "reverie",
		Short:        "Rotating desktop background daemon",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon()
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file")

	root.AddCommand(newProbeCmd(), newInfoCmd(), newValidateCmd(), newSettingsCmd(), newSecretCmd())
	return root
}

func runDaemon() error {
	app := fx.New(AppOptions)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer stopCancel()
	return app.Stop(stopCtx)
}

func newViper() (*viper.Viper, error) {
	return config.NewViper(configFile)
}

// newLogger creates a production zap logger, teed into a rotating file when log.file is set
func newLogger(v *viper.Viper) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(v.GetString(config.KeyLogLevel))
	if err != nil {
		level = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	path := v.GetString(config.KeyLogFile)
	if path == "" {
		return logger, nil
	}

	file := zapcore.AddSync(&lumberjack.Logger{
		Filename:   os.ExpandEnv(path),
		MaxSize:    10, // megabytes
		MaxBackups: 2,
		MaxAge:     28, // days
		Compress:   true,
	})
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(cfg.EncoderConfig), file, cfg.Level)

	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	})), nil
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func newMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New(reg)
}

func newHTTPClient(cfg *config.AppConfig) *http.Client {
	opts := fetcher.DefaultClientOptions()
	if t := cfg.HTTPTimeout(); t > 0 {
		opts.Timeout = t
	}
	opts.RatePerSecond = cfg.HTTPRate()
	return fetcher.NewClient(opts)
}

func newFetcher(logger *zap.Logger, client *http.Client) domain.Fetcher {
	return fetcher.NewHTTPFetcher(logger, client, assets.Backgrounds())
}

// newRepository registers every provider; picsum doubles as the fallback
func newRepository(
	logger *zap.Logger,
	cfg *config.AppConfig,
	m *metrics.Metrics,
	client *http.Client,
	fetch domain.Fetcher,
	res *domain.ScreenResolution,
	rng random.Rand,
) *provider.Repository {
	picsum := provider.NewPicsum(logger, rng, res)
	gh := provider.NewGitHubClient(client, cfg.GitHubToken())

	return provider.NewRepository(logger, m, picsum,
		provider.NewUnsplash(logger, rng, res),
		provider.NewGitHub(logger, gh, rng),
		provider.NewLocal(logger, assets.Backgrounds(), picsum, rng).WithDefaultDir(cfg.LocalDir()),
		provider.NewCustom(logger, fetch),
	)
}

func newPreloader(logger *zap.Logger, cfg *config.AppConfig, fetch domain.Fetcher, m *metrics.Metrics) domain.Preloader {
	return preload.NewPreloader(logger, fetch, m, preload.Options{
		Concurrency: cfg.ProbeConcurrency(),
		Timeout:     cfg.ProbeTimeout(),
	})
}

func newSettingsStore(logger *zap.Logger, cfg *config.AppConfig) domain.SettingsStore {
	return settings.NewFileStore(logger, cfg.SettingsFile())
}

func newWeatherClient(logger *zap.Logger, cfg *config.AppConfig, fetch domain.Fetcher) *weather.Client {
	return weather.NewClient(logger, fetch, cfg.WeatherAPIKey())
}

func newRefresher(logger *zap.Logger, cfg *config.AppConfig, client *weather.Client, store domain.SettingsStore) *weather.Refresher {
	return weather.NewRefresher(logger, client, store, cfg.WeatherRefresh())
}

func newRenderer(
	logger *zap.Logger,
	res *domain.ScreenResolution,
	cfg domain.Config,
	ws domain.WeatherSource,
) domain.Processor {
	return processor.NewRenderer(logger, res, cfg, ws)
}

func newExecutor(logger *zap.Logger) (domain.Executor, error) {
	exec, err := executor.NewExecutor(logger)
	if err != nil {
		return nil, fmt.Errorf("create executor: %w", err)
	}
	return exec, nil
}

func newMonitor(logger *zap.Logger) domain.Monitor {
	return monitor.NewScreenSaverMonitor(logger)
}

func newRotator(
	logger *zap.Logger,
	cfg *config.AppConfig,
	src domain.ImageSource,
	pre domain.Preloader,
	m *metrics.Metrics,
	rng random.Rand,
) *rotation.Rotator {
	return rotation.NewRotator(logger, src, pre, m, rng, rotation.Options{Count: cfg.GetImageCount()})
}

func newEngine(
	logger *zap.Logger,
	cfg domain.Config,
	rot engine.Rotator,
	store domain.SettingsStore,
	mon domain.Monitor,
	fetch domain.Fetcher,
	proc domain.Processor,
	exec domain.Executor,
	refresher *weather.Refresher,
) *engine.Engine {
	return engine.NewEngine(logger, cfg, rot, store, mon, fetch, proc, exec).WithWeather(refresher)
}

func newServer(
	logger *zap.Logger,
	cfg *config.AppConfig,
	ctrl api.Controller,
	src *provider.Repository,
	pre domain.Preloader,
	ws domain.WeatherSource,
	reg *prometheus.Registry,
) *api.Server {
	return api.NewServer(logger, cfg.APIAddr(), ctrl, src, pre, ws, reg)
}

// registerHooks sets up application lifecycle hooks
func registerHooks(
	lc fx.Lifecycle,
	logger *zap.Logger,
	eng *engine.Engine,
	refresher *weather.Refresher,
	srv *api.Server,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Reverie daemon starting")
			if err := refresher.Start(ctx); err != nil {
				return err
			}
			if err := eng.Start(ctx); err != nil {
				return err
			}
			return srv.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			err := multierr.Combine(
				srv.Stop(ctx),
				eng.Stop(ctx),
				refresher.Stop(ctx),
			)
			_ = logger.Sync()
			return err
		},
	})
}
