package worker

// retry_cron.go
// Background goroutine that periodically re-attempts SMTP sends for
// notifications stuck in estado='pendiente' with a next_retry_at in the past.
// Uses the Circuit Breaker to avoid hammering a downed relay.

import (
	"context"
	"time"

	"cvo/internal/infra"

	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10
)

// StartRetryCron launches a background goroutine that ticks every 30s,
// queries pending notifications, and re-attempts sends through the CB.
// It respects the context for graceful shutdown.
func StartRetryCron(ctx context.Context, nw *NotificacionWorker) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, nw)
			}
		}
	}()
}

func processRetries(ctx context.Context, nw *NotificacionWorker) {
	// If CB is open, skip entirely — don't hammer a downed relay
	if nw.cb.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return
	}

	now := time.Now()
	pendientes, err := nw.repo.ListPendingRetries(ctx, now, retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending retries")
		return
	}
	if len(pendientes) == 0 {
		return
	}

	log.Info().Int("count", len(pendientes)).Msg("retry_cron: processing pending notifications")

	for i := range pendientes {
		// Check CB state before each send — it may have tripped mid-batch
		if nw.cb.State() == infra.CBOpen {
			log.Debug().Msg("retry_cron: circuit breaker opened mid-batch, stopping")
			return
		}
		nw.Entregar(ctx, &pendientes[i])
	}
}
