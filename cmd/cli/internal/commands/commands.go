package commands

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/localtls/internal/logger"
	"github.com/wolfeidau/localtls/internal/pki"
	"github.com/wolfeidau/localtls/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const defaultDir = "ssl"

type Globals struct {
	Debug     bool
	Telemetry bool
	Version   string
}

// setup configures the global logger and, when enabled, OTLP export. The
// returned func flushes telemetry and must be called before exit.
func (g *Globals) setup(ctx context.Context) func() {
	log.Logger = logger.Setup(g.Debug)

	if !g.Telemetry {
		return func() {}
	}

	log.Info().Msg("Telemetry is enabled")
	shutdown, err := telemetry.InitTelemetry(ctx, "localtls", g.Version,
		attribute.String("localtls.product", pki.DefaultProduct))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown telemetry")
		}
	}
}
