package worker

// notificacion_worker.go
// Consumes notification jobs from Redis, re-reads the persisted row and
// attempts the SMTP send through the circuit breaker. Failures schedule a
// retry with exponential backoff; exhausted budgets land in the DLQ.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cvo/internal/infra"
	"cvo/internal/model"
	"cvo/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const MaxNotificacionRetries = 5

type NotificacionWorker struct {
	repo   repository.NotificacionRepository
	mailer *infra.Mailer
	cb     *infra.CircuitBreaker
	rdb    *redis.Client
}

func NewNotificacionWorker(repo repository.NotificacionRepository, mailer *infra.Mailer, cb *infra.CircuitBreaker, rdb *redis.Client) *NotificacionWorker {
	return &NotificacionWorker{repo: repo, mailer: mailer, cb: cb, rdb: rdb}
}

// Process handles one queued job. The queue only carries the row ID: the
// authoritative state (estado, destinatario, cuerpo) always comes from the DB,
// so a job that raced with the retry cron is simply a no-op.
func (w *NotificacionWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload NotificacionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("notificacion_worker: malformed payload")
		return
	}

	n, err := w.repo.FindByID(ctx, payload.NotificacionID)
	if err != nil {
		log.Error().Err(err).Stringer("notificacion_id", payload.NotificacionID).
			Msg("notificacion_worker: row not found")
		return
	}
	if n.Estado != "pendiente" {
		return
	}

	w.Entregar(ctx, n)
}

// Entregar attempts the SMTP send and updates the row accordingly. Shared
// with the retry cron so both paths apply identical backoff and DLQ rules.
func (w *NotificacionWorker) Entregar(ctx context.Context, n *model.NotificacionIncidencia) {
	sendErr := w.cb.Execute(func() error {
		return w.mailer.SendNotificacion(n.Destinatario, n.Asunto, n.Cuerpo)
	})

	if sendErr == nil {
		n.Estado = "enviada"
		n.NextRetryAt = nil
		n.LastError = nil
		if err := w.repo.Update(ctx, n); err != nil {
			log.Error().Err(err).Stringer("notificacion_id", n.ID).
				Msg("notificacion_worker: sent but state update failed")
		}
		log.Info().Str("destinatario", n.Destinatario).Str("matricula", n.Matricula).
			Msg("notificacion_worker: email sent")
		return
	}

	n.RetryCount++
	errMsg := sendErr.Error()
	n.LastError = &errMsg

	if n.RetryCount >= MaxNotificacionRetries {
		n.Estado = "error"
		n.NextRetryAt = nil
		log.Error().Stringer("notificacion_id", n.ID).Int("retries", n.RetryCount).
			Msg("notificacion_worker: max retries exceeded, moving to error/DLQ")

		payload := fmt.Sprintf(`{"notificacion_id":"%s","matricula":"%s"}`, n.ID, n.Matricula)
		SendToDLQ(ctx, w.rdb, QueueNotificaciones, "notificacion", []byte(payload),
			fmt.Sprintf("max retries (%d) exceeded: %s", MaxNotificacionRetries, errMsg),
			n.RetryCount)
	} else {
		nextRetry := time.Now().Add(computeRetryBackoff(n.RetryCount))
		n.NextRetryAt = &nextRetry
		log.Warn().Stringer("notificacion_id", n.ID).Int("retry_count", n.RetryCount).
			Time("next_retry_at", nextRetry).
			Msg("notificacion_worker: send failed, scheduled next attempt")
	}

	if err := w.repo.Update(ctx, n); err != nil {
		log.Error().Err(err).Stringer("notificacion_id", n.ID).
			Msg("notificacion_worker: failed to persist retry state")
	}
}

// computeRetryBackoff returns the exponential delay before the next attempt:
// 1m, 2m, 4m, 8m... capped at 30m.
func computeRetryBackoff(retryCount int) time.Duration {
	d := time.Minute << uint(retryCount-1)
	if d > 30*time.Minute {
		d = 30 * time.Minute
	}
	return d
}
