package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tienda-api/authserver/internal/mq"
)

// Worker drains queued reset-email jobs and delivers them through a Gateway.
// A delivery error nacks the message for redelivery.
type Worker struct {
	backend mq.Backend
	channel string
	sender  Gateway
	logger  zerolog.Logger
}

func NewWorker(backend mq.Backend, channel string, sender Gateway, logger zerolog.Logger) *Worker {
	return &Worker{
		backend: backend,
		channel: channel,
		sender:  sender,
		logger:  logger,
	}
}

// Run blocks consuming the channel until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Str("channel", w.channel).Msg("notification worker started")
	return w.backend.Subscribe(ctx, w.channel, w.handle)
}

func (w *Worker) handle(ctx context.Context, msg mq.Message) error {
	var job resetEmailJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		// Malformed payloads would loop forever on redelivery; drop them.
		w.logger.Error().Err(err).Str("message_id", msg.ID).Msg("dropping malformed reset email job")
		return nil
	}

	if _, err := w.sender.SendPasswordReset(ctx, job.To, job.Name, job.Token); err != nil {
		return fmt.Errorf("send reset email %s: %w", job.ID, err)
	}

	w.logger.Info().Str("job_id", job.ID).Str("to", job.To).Msg("reset email delivered")
	return nil
}
