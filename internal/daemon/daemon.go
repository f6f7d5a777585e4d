// Package daemon owns the long-lived runtime: it wires the ledger, upstream
// client, operator registry and HTTP server together and manages their
// lifecycle.
package daemon

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/qwli7/meetbridge/internal/api"
	"github.com/qwli7/meetbridge/internal/bridge"
	"github.com/qwli7/meetbridge/internal/config"
	"github.com/qwli7/meetbridge/internal/ledger"
	"github.com/qwli7/meetbridge/internal/log"
	"github.com/qwli7/meetbridge/internal/operator"
	"github.com/qwli7/meetbridge/internal/tencent"
)

const shutdownTimeout = 10 * time.Second

// Daemon holds the assembled service and its HTTP server.
type Daemon struct {
	cfg    config.AppConfig
	logger zerolog.Logger
	store  *ledger.Store
	server *http.Server
}

// New assembles every subsystem from the loaded configuration.
func New(cfg config.AppConfig) (*Daemon, error) {
	logger := log.WithComponent("daemon")

	store, err := ledger.NewStore(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	client := tencent.New(tencent.Config{
		AppID:     cfg.AppID,
		SecretID:  cfg.SecretID,
		SecretKey: cfg.SecretKey,
		Endpoint:  cfg.APIEndpoint,
		SDKID:     cfg.SDKID,
	})

	registry := operator.NewRegistry(cfg.OperatorSpec)

	processor := bridge.NewProcessor(client, store, registry, bridge.Config{
		UserFieldName:       cfg.UserFieldName,
		DeptFieldName:       cfg.DeptFieldName,
		XARoomID:            cfg.XARoomID,
		CDRoomID:            cfg.CDRoomID,
		SkipMeetingCreation: cfg.SkipMeetingCreation,
		SkipRoomBooking:     cfg.SkipRoomBooking,
	})

	srv := api.NewServer(processor, client, registry, api.Config{
		WebhookAuthToken: cfg.WebhookAuthToken,
		Production:       cfg.Production,
	})

	return &Daemon{
		cfg:    cfg,
		logger: logger,
		store:  store,
		server: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           srv,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled or a fatal
// error occurs. Shutdown is graceful with a bounded timeout.
func (d *Daemon) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.logger.Info().
			Str("listen", d.cfg.ListenAddr).
			Bool("simulation", d.cfg.SkipMeetingCreation).
			Bool("production", d.cfg.Production).
			Msg("HTTP server listening")
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return d.shutdown()
	})

	return g.Wait()
}

func (d *Daemon) shutdown() error {
	d.logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := d.store.Close(); err != nil {
		d.logger.Error().Err(err).Msg("ledger close error")
	}

	d.logger.Info().Msg("daemon stopped")
	return nil
}
