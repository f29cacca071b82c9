package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	dbconnector "datawatch"
	"datawatch/services/watch-service/internal/api"
	"datawatch/services/watch-service/internal/bus"
	"datawatch/services/watch-service/internal/config"
	"datawatch/services/watch-service/internal/ledger"
	"datawatch/services/watch-service/internal/presentation"
	"datawatch/services/watch-service/internal/refresh"
	"datawatch/services/watch-service/internal/secrets"
	"datawatch/services/watch-service/internal/security"
	"datawatch/services/watch-service/internal/validation"
)

func main() {
	configPath := flag.String("config", getenv("DATAWATCH_CONFIG", ""), "path to the YAML config file")
	encrypt := flag.String("encrypt", "", "print the encrypted form of a password for secrets.toml and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := config.InitLogger(cfg.Logging.Format, cfg.Logging.Level)

	enc, err := buildEncryptor(getenv("DATAWATCH_ENCRYPTION_KEY", ""))
	if err != nil {
		logger.Error("failed to init encryptor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *encrypt != "" {
		if enc == nil {
			logger.Error("DATAWATCH_ENCRYPTION_KEY is required to encrypt")
			os.Exit(1)
		}
		out, err := enc.Encrypt(*encrypt)
		if err != nil {
			logger.Error("encrypt failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Println(out)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, enc, logger)
	stop()
	if err != nil {
		logger.Error("watcher stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run serves until ctx is done. Connection parameters are only read by the
// refresh loop, so missing or broken credentials surface as cycle errors.
func run(ctx context.Context, cfg config.Config, enc secrets.Encryptor, logger *slog.Logger) error {
	limits := security.DefaultLimits()
	if err := cfg.Validate(limits); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	rules, perr := validation.BuildRules(cfg.Rules)
	if perr != nil {
		return perr
	}

	store := secrets.NewEnvStore(secrets.NewTOMLStore(cfg.Secrets.Path, enc))
	provider := secrets.NewProvider(secrets.NewResolver(store), cfg.Source.ConnectionRef)
	client := dbconnector.NewClient(provider, nil)

	query, err := cfg.SampleQuery()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	logger.Info("watch query ready", slog.String("query", query), slog.String("connection_ref", cfg.Source.ConnectionRef))

	alerts, err := ledger.Open(ctx, cfg.Ledger)
	if err != nil {
		return fmt.Errorf("open alert ledger: %w", err)
	}
	defer alerts.Close()

	var nc *bus.Conn
	if cfg.NATS.URL != "" {
		nc, err = bus.Connect(cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("connect to nats: %w", err)
		}
		defer nc.Close()
	}

	reg := refresh.NewRegistry(refresh.RegistryConfig{
		Fetcher: client,
		Ledger:  alerts,
		Options: refresh.Options{
			Query:        query,
			Interval:     cfg.Interval(),
			Threshold:    cfg.Refresh.Threshold,
			Rules:        rules,
			QueryTimeout: cfg.QueryTimeout(),
		},
		Sinks:  sessionSinks(cfg, nc, logger),
		Logger: logger,
	})
	defer reg.Stop()

	first := reg.Create(cfg.Refresh.AutoStart)
	logger.Info("default session started", slog.String("session", first.ID), slog.Bool("active", first.Active))

	if nc != nil {
		if _, err := nc.SubscribeToggle(cfg.NATS.ToggleSubject, func(evt bus.ToggleEvent) {
			if _, err := reg.Toggle(evt.SessionID); err != nil {
				logger.Warn("toggle event ignored", slog.String("session", evt.SessionID), slog.String("error", err.Error()))
			}
		}); err != nil {
			return fmt.Errorf("subscribe toggle: %w", err)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           api.NewRouter(&api.Handler{Sessions: reg, Alerts: alerts, Timeout: 5 * time.Second}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("watcher listening", slog.String("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func sessionSinks(cfg config.Config, nc *bus.Conn, logger *slog.Logger) refresh.SinkFactory {
	var console *presentation.Console
	if cfg.Console.Enabled {
		console = presentation.NewConsole(os.Stdout)
	}
	return func(sessionID string) []presentation.Sink {
		sinks := []presentation.Sink{presentation.LogSink{Logger: logger}}
		if console != nil {
			sinks = append(sinks, console)
		}
		if nc != nil && cfg.NATS.PublishEvents {
			sinks = append(sinks, presentation.NATSSink{Publisher: nc, Subject: bus.SessionSubject(sessionID), Logger: logger})
		}
		return sinks
	}
}

func buildEncryptor(key string) (secrets.Encryptor, error) {
	if key == "" {
		return nil, nil
	}
	enc, err := secrets.NewAesGcmEncryptor([]byte(key))
	if err != nil {
		return nil, err
	}
	return enc, nil
}

func getenv(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
