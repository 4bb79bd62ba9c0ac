package app

import (
	"context"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/cascade/internal/common"
	"github.com/ternarybob/cascade/internal/handlers"
	"github.com/ternarybob/cascade/internal/interfaces"
	"github.com/ternarybob/cascade/internal/observability"
	"github.com/ternarybob/cascade/internal/restclient"
	"github.com/ternarybob/cascade/internal/server"
	"github.com/ternarybob/cascade/internal/services/cascade"
	"github.com/ternarybob/cascade/internal/services/progress"
)

// App holds the wired components for one CLI invocation
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Client  *restclient.Client
	Service *cascade.Service

	// Progress UI, only set when the WebSocket is enabled
	WSHandler *handlers.WebSocketHandler
	Server    *server.Server

	shutdownTracing observability.ShutdownFunc
}

// initTracing is replaced in tests
var initTracing = observability.InitTracing

// New wires the application from a validated config. On error everything
// started so far is stopped again.
func New(cfg *common.Config, logger arbor.ILogger) (_ *App, err error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}
	defer func() {
		if err != nil {
			if closeErr := app.Close(context.Background()); closeErr != nil {
				logger.Warn().Err(closeErr).Msg("Failed to release partially initialized application")
			}
		}
	}()

	shutdown, err := initTracing(cfg.Tracing.ServiceName, cfg.Tracing.Exporter, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	app.shutdownTracing = shutdown

	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid service timeout: %w", err)
	}

	app.Client = restclient.NewClient(cfg.Service.BaseURL,
		restclient.WithLogger(logger),
		restclient.WithTimeout(timeout),
		restclient.WithRateLimit(cfg.Service.RateLimit),
		restclient.WithUserAgent(cfg.Service.UserAgent),
	)

	sinks := []interfaces.NotificationSink{progress.NewLogSink(logger)}
	if cfg.WebSocket.Enabled {
		app.WSHandler = handlers.NewWebSocketHandler(logger, &cfg.WebSocket)
		srv := server.New(logger, &cfg.WebSocket, app.WSHandler)
		if err := srv.Listen(); err != nil {
			return nil, fmt.Errorf("failed to start progress server: %w", err)
		}
		app.Server = srv
		sinks = append(sinks, app.WSHandler)

		common.SafeGo(logger, "progress-server", func() {
			if err := app.Server.Start(); err != nil {
				logger.Error().Err(err).Msg("Progress server failed")
			}
		})
	}

	app.Service = cascade.NewService(app.Client, logger,
		cascade.WithSink(progress.NewMultiSink(sinks...)),
		cascade.WithChunkSize(cfg.Batch.ChunkSize),
		cascade.WithFanOutWidth(cfg.Batch.FanOutWidth),
		cascade.WithLogProgressEvery(cfg.Batch.LogProgressEvery),
	)

	logger.Debug().
		Str("base_url", cfg.Service.BaseURL).
		Int("chunk_size", cfg.Batch.ChunkSize).
		Int("fan_out_width", cfg.Batch.FanOutWidth).
		Bool("websocket", cfg.WebSocket.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// Close stops the progress server and flushes spans
func (a *App) Close(ctx context.Context) error {
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop progress server")
		}
	}

	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			return fmt.Errorf("failed to flush traces: %w", err)
		}
	}

	return nil
}
