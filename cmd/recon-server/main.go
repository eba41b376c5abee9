package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/recon/internal/config"
	"github.com/ehr/recon/internal/domain/matching"
	"github.com/ehr/recon/internal/platform/db"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "recon-server",
		Short:        "Booking and claim reconciliation service",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(matchCmd())
	rootCmd.AddCommand(mappingsCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the reconciliation API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(cfg.Level()).With().Timestamp().Logger()
}

// loadConfig loads and validates configuration for commands that need a
// mapping source.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	return db.NewPool(ctx, db.PoolOptions{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
}

// mappingSource selects the configured test code mapping source. The pool is
// non-nil only for the postgres source and must be closed by the caller.
func mappingSource(ctx context.Context, cfg *config.Config) (matching.MappingSource, *pgxpool.Pool, error) {
	switch cfg.MappingSource {
	case config.MappingSourceFile:
		return matching.NewYAMLSource(cfg.MappingFile), nil, nil
	case config.MappingSourcePostgres:
		pool, err := openPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return matching.NewMappingRepoPG(pool), pool, nil
	case config.MappingSourceBuiltin, "":
		return matching.NewBuiltinSource(), nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownMappingSource, cfg.MappingSource)
	}
}

// loadMatcher builds a Matcher from the configured source.
func loadMatcher(ctx context.Context, cfg *config.Config) (*matching.Matcher, *pgxpool.Pool, error) {
	src, pool, err := mappingSource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	codes, err := matching.LoadTestCodeMap(ctx, src)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, nil, err
	}
	return matching.NewMatcher(codes), pool, nil
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	matcher, pool, err := loadMatcher(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("source", cfg.MappingSource).Msg("failed to load test code mappings")
	}
	if pool != nil {
		defer pool.Close()
		logger.Info().Msg("connected to database")
	}
	logger.Info().
		Str("source", cfg.MappingSource).
		Int("mappings", matcher.TestCodes().Len()).
		Msg("test code mappings loaded")

	deps := serverDeps{matcher: matcher}
	if pool != nil {
		deps.dbHealth = db.HealthHandler(pool, db.PoolStatsFunc(pool))
	}
	e := newServer(cfg, logger, deps)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
