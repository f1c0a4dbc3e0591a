package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/presencechat/internal/logging"
	"github.com/Tyrowin/presencechat/internal/metrics"
	"github.com/Tyrowin/presencechat/internal/presence"
	"github.com/Tyrowin/presencechat/internal/server"
	"github.com/Tyrowin/presencechat/internal/statusstore"
)

func main() {
	os.Exit(start())
}

// start returns the process exit code so deferred cleanup runs before exit.
func start() int {
	config, err := server.NewConfigFromEnv(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	logger, err := logging.New(config.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, config); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return 1
	}
	return 0
}

// run serves until ctx is cancelled, then shuts down in order: HTTP server,
// hub, and finally the status mirror, so the offline transitions produced by
// closing sockets still reach Redis.
func run(ctx context.Context, logger *zap.Logger, config *server.Config) error {
	collector := metrics.New()
	observers := []presence.Observer{collector}

	// The mirror outlives ctx; it is stopped once the hub is down.
	mirrorCtx, stopMirror := context.WithCancel(context.Background())
	defer stopMirror()

	var mirror *statusstore.Mirror
	if config.RedisAddr != "" {
		client, err := statusstore.Connect(ctx, config.RedisAddr, config.RedisPassword, config.RedisDB)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		mirror = statusstore.NewMirror(client, config.StatusQueueSize, logger.Named("statusstore"))
		observers = append(observers, mirror)
		logger.Info("Mirroring presence to Redis", zap.String("addr", config.RedisAddr))
	}

	core := presence.New(logger.Named("presence"), observers...)
	srv := server.New(config, core, logger, server.WithMetricsHandler(collector.Handler()))
	hub := srv.Hub()

	collector.Gauge("online_users", "Identities with a registered connection.", core.Registry.Len)
	collector.Gauge("active_connections", "Open WebSocket connections.", hub.Count)

	httpServer := server.CreateServer(config.Port, srv.SetupRoutes())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run()
		return nil
	})
	if mirror != nil {
		g.Go(func() error {
			return mirror.Run(mirrorCtx)
		})
	}
	g.Go(func() error {
		return server.StartServer(httpServer, logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		defer stopMirror()

		err := server.ShutdownServer(httpServer, config.ShutdownTimeout, logger)
		if hubErr := hub.Shutdown(config.ShutdownTimeout); hubErr != nil && err == nil {
			err = hubErr
		}
		return err
	})

	logger.Info("Starting presence server", zap.String("addr", config.Port))
	return g.Wait()
}
