package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aceofaces/aoa-server/internal/config"
	"github.com/aceofaces/aoa-server/internal/game"
	"github.com/aceofaces/aoa-server/internal/lobby"
	"github.com/aceofaces/aoa-server/internal/page"
	"github.com/aceofaces/aoa-server/internal/server"
	"github.com/aceofaces/aoa-server/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gRPC, HTTP and WebSocket servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting aoa server", zap.String("version", version))

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	provider, err := loadPages(ctx, cfg, logger)
	if err != nil {
		return err
	}

	hub := server.NewHub(logger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	lobbyMgr := lobby.NewManager(logger, provider,
		lobby.WithGameOptions(game.Options{
			StartPage:      cfg.Pages.StartPage,
			StartingHealth: cfg.Game.StartingHealth,
			Damage: game.DamageTable{
				Long:   cfg.Game.Damage.Long,
				Medium: cfg.Game.Damage.Medium,
				Close:  cfg.Game.Damage.Close,
			},
		}),
		lobby.WithReplayDir(cfg.Replay.Dir),
		lobby.WithNotifier(hub),
	)
	logger.Info("lobby initialized",
		zap.Int("start_page", cfg.Pages.StartPage),
		zap.String("replay_dir", cfg.Replay.Dir),
	)

	grpcServer := server.NewGRPCServer(lobbyMgr, logger,
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.MaxConcurrentStreams(uint32(cfg.Server.GRPC.MaxConcurrentStreams)),
	)

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.GRPC.Address, err)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTP.Address,
		Handler:           server.NewHTTPHandler(lobbyMgr, hub, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			errCh <- fmt.Errorf("grpc server: %w", serveErr)
		}
	}()
	go func() {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.HTTP.Address))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", serveErr)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err = <-errCh:
		logger.Error("server failed", zap.Error(err))
	}

	logger.Info("shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("http shutdown", zap.Error(shutdownErr))
	}
	grpcServer.GracefulStop()
	stopHub()

	logger.Info("aoa server stopped", zap.Int("active_games", lobbyMgr.GetActiveGameCount()))
	return err
}

// loadPages builds the page provider from the configured source.
func loadPages(ctx context.Context, cfg *config.Config, logger *zap.Logger) (page.Provider, error) {
	catalog := page.DefaultCatalog()

	switch cfg.Pages.Source {
	case "postgres":
		pool, err := openPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		defer pool.Close()

		lib, err := page.LoadPostgres(ctx, pool, catalog)
		if err != nil {
			return nil, fmt.Errorf("load pages from postgres: %w", err)
		}
		logPages(logger, "postgres", lib)
		return lib, nil
	default:
		lib, err := page.LoadCSVDir(cfg.Pages.Dir, catalog)
		if err != nil {
			return nil, fmt.Errorf("load pages from %s: %w", cfg.Pages.Dir, err)
		}
		logPages(logger, cfg.Pages.Dir, lib)
		return lib, nil
	}
}

func logPages(logger *zap.Logger, source string, lib *page.Library) {
	fields := []zap.Field{zap.String("source", source)}
	for _, f := range page.Factions {
		if book, err := lib.Book(f); err == nil {
			fields = append(fields, zap.Int(string(f)+"_pages", book.Len()))
		}
	}
	logger.Info("page tables loaded", fields...)
}

func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
