// Command server starts the Netrasarthi media API HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"netrasarthi-media/internal/api"
	"netrasarthi-media/internal/cloudinary"
	"netrasarthi-media/internal/config"
	"netrasarthi-media/internal/events"
	"netrasarthi-media/internal/observability/logging"
	"netrasarthi-media/internal/observability/metrics"
	"netrasarthi-media/internal/server"
)

const serviceName = "netrasarthi-media"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	configFile := flags.String("config", "", "path to a YAML configuration file")
	envFile := flags.String("env-file", config.DefaultEnvFile, "path to a dotenv file; missing files are ignored")
	host := flags.String("host", "", "HTTP listen host")
	port := flags.Int("port", 0, "HTTP listen port")
	environment := flags.String("env", "", "environment label reported by the root endpoint")
	origins := flags.String("cors-origins", "", "comma separated origins allowed to call the API")
	logLevel := flags.String("log-level", "", "log level (debug, info, warn, error)")
	logFormat := flags.String("log-format", "", "log format (json or text)")
	eventsDriver := flags.String("events-driver", "", "asset events driver (memory or redis)")
	redisAddr := flags.String("events-redis-addr", "", "Redis address for the asset events stream")
	tlsCert := flags.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flags.String("tls-key", "", "path to TLS private key file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: *configFile,
		EnvFile:    *envFile,
		Overrides: config.Overrides{
			Host:           *host,
			Port:           *port,
			Environment:    *environment,
			AllowedOrigins: *origins,
			LogLevel:       *logLevel,
			LogFormat:      *logFormat,
			EventsDriver:   *eventsDriver,
			RedisAddr:      *redisAddr,
			TLSCertFile:    *tlsCert,
			TLSKeyFile:     *tlsKey,
		},
	})
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}).With("service", serviceName)
	logger.Info("configuring cloudinary", "cloud_name", cfg.Cloudinary.CloudName, "environment", cfg.Server.Environment)

	client, err := cloudinary.New(cfg.Cloudinary, cloudinary.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("configure cloudinary: %w", err)
	}

	queue, err := configureEvents(cfg.Events, logger)
	if err != nil {
		return fmt.Errorf("configure events: %w", err)
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("failed to close events queue", "error", err)
		}
	}()

	recorder := metrics.New()
	metrics.SetDefault(recorder)

	handler := api.NewHandler(client, api.ServiceInfo{
		Name:        serviceName,
		Version:     version,
		Environment: cfg.Server.Environment,
	})
	handler.Events = queue
	handler.Metrics = recorder
	handler.Logger = logging.WithComponent(logger, "api")

	srv, err := server.New(handler, server.Config{
		Addr:     cfg.Addr(),
		TLS:      server.TLSConfig{CertFile: cfg.Server.TLSCertFile, KeyFile: cfg.Server.TLSKeyFile},
		CORS:     server.CORSConfig{AllowedOrigins: cfg.CORS.AllowedOrigins},
		Security: securityConfig(cfg),
		Logger:   logger,
		Metrics:  recorder,
	})
	if err != nil {
		return fmt.Errorf("initialise server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	if memory, ok := queue.(*events.MemoryQueue); ok {
		sub := memory.Subscribe()
		group.Go(func() error {
			events.Drain(ctx, sub, logging.WithComponent(logger, "events"))
			return nil
		})
	}
	ready := make(chan struct{})
	group.Go(func() error {
		return srv.Run(ctx, ready)
	})
	group.Go(func() error {
		select {
		case <-ready:
			logger.Info("endpoints available",
				"test", "/api/test",
				"videos", "/api/cloudinary/videos",
				"metrics", "/metrics")
			checkUpstream(ctx, client, logger)
		case <-ctx.Done():
		}
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// configureEvents builds the asset events queue for the configured driver.
func configureEvents(cfg config.EventsConfig, logger *slog.Logger) (events.Queue, error) {
	switch cfg.Driver {
	case "", config.EventsDriverMemory:
		return events.NewMemoryQueue(0), nil
	case config.EventsDriverRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("redis addr is required for the events queue")
		}
		queue, err := events.NewRedisQueue(events.RedisQueueConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Stream:   cfg.RedisStream,
			Logger:   logging.WithComponent(logger, "events"),
		})
		if err != nil {
			return nil, err
		}
		return queue, nil
	default:
		return nil, fmt.Errorf("unsupported events driver %q", cfg.Driver)
	}
}

func securityConfig(cfg config.Config) server.SecurityConfig {
	security := server.SecurityConfig{}
	if cfg.IsProduction() && cfg.Server.TLSCertFile != "" {
		security.HSTSMaxAge = int((180 * 24 * time.Hour).Seconds())
	}
	return security
}

// checkUpstream pings the media host once at startup. Failures are logged
// only; the API still starts so /healthz can report the problem.
func checkUpstream(ctx context.Context, client *cloudinary.Client, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		logger.Warn("cloudinary ping failed", "error", err)
		return
	}
	logger.Info("connected to cloudinary", "cloud_name", client.CloudName())
}
