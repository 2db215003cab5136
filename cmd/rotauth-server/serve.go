package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/rotauth"
	"github.com/MrEthical07/rotauth/credstore"
	"github.com/MrEthical07/rotauth/envconfig"
	"github.com/MrEthical07/rotauth/httpapi"
	"github.com/MrEthical07/rotauth/metrics/export/prometheus"
	"github.com/MrEthical07/rotauth/middleware"
)

const shutdownTimeout = 10 * time.Second

type serveFlags struct {
	seedUsers []string
}

func newServeCmd(root *rootFlags) *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server.

Credentials are read from the Postgres users table named by DATABASE_URL. Without
DATABASE_URL an in-memory store is used, seeded with --seed-user id:password pairs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := envconfig.Load(envconfig.Options{
				EnvFile:    root.envFile,
				ConfigFile: root.configFile,
			})
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, flags, logger)
		},
	}
	cmd.Flags().StringSliceVar(&flags.seedUsers, "seed-user", nil, "in-memory credential id:password (repeatable, only without DATABASE_URL)")
	return cmd
}

func serve(ctx context.Context, cfg *envconfig.Config, flags *serveFlags, logger *slog.Logger) error {
	rdb := redis.NewClient(cfg.RedisOptions())
	defer rdb.Close()

	engineCfg := cfg.Engine()
	for _, w := range engineCfg.Lint().BySeverity(rotauth.LintWarn) {
		logger.Warn("rotauth: config lint", "code", w.Code, "message", w.Message)
	}

	creds, closeCreds, err := openCredentialStore(ctx, cfg, flags, engineCfg)
	if err != nil {
		return err
	}
	defer closeCreds()

	engine, err := rotauth.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithCredentialStore(creds).
		WithAuditSink(rotauth.NewLogSink(logger.With("component", "audit"))).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	if err := engine.Ping(ctx); err != nil {
		return err
	}

	mux := http.NewServeMux()
	httpapi.New(engine, httpapi.Options{
		SecureCookie:      cfg.CookieSecure,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		Logger:            logger,
	}).Register(mux)
	mux.HandleFunc("GET /healthz", healthHandler(engine))
	mux.Handle("GET /api/me", middleware.Guard(engine)(http.HandlerFunc(meHandler)))

	servers := []*http.Server{{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}}
	if cfg.MetricsAddr != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("GET /metrics", prometheus.NewPrometheusExporter(engine).Handler())
		servers = append(servers, &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		logger.Info("rotauth: listening", "addr", srv.Addr)
		go func(srv *http.Server) {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		logger.Info("rotauth: shutting down")
	case err = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			logger.Error("rotauth: shutdown", "addr", srv.Addr, "error", serr)
		}
	}
	return err
}

func openCredentialStore(ctx context.Context, cfg *envconfig.Config, flags *serveFlags, engineCfg rotauth.Config) (rotauth.CredentialStore, func(), error) {
	if cfg.DatabaseURL != "" {
		if len(flags.seedUsers) > 0 {
			return nil, nil, errors.New("--seed-user cannot be combined with DATABASE_URL")
		}
		db, err := credstore.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return credstore.NewPostgres(db), func() { _ = db.Close() }, nil
	}

	if len(flags.seedUsers) == 0 {
		return nil, nil, errors.New("DATABASE_URL is not set and no --seed-user was given")
	}
	hasher, err := newHasher(engineCfg.Password.Algorithm, engineCfg.Password.BcryptCost)
	if err != nil {
		return nil, nil, err
	}
	mem := credstore.NewMemory()
	for _, pair := range flags.seedUsers {
		id, pw, ok := strings.Cut(pair, ":")
		if !ok || id == "" || pw == "" {
			return nil, nil, fmt.Errorf("--seed-user %q: want id:password", pair)
		}
		hash, err := hasher.Hash(pw)
		if err != nil {
			return nil, nil, err
		}
		mem.Put(id, hash)
	}
	return mem, func() {}, nil
}

func healthHandler(engine *rotauth.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.Ping(r.Context()); err != nil {
			http.Error(w, "registry unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func meHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"userId":    res.UserID,
		"familyId":  res.FamilyID,
		"expiresAt": res.ExpiresAt.UTC(),
	})
}
