package notify

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/tienda-api/authserver/internal/mq"
)

const attrKind = "kind"
const kindPasswordReset = "password-reset"

// resetEmailJob is the wire format of a queued reset email.
type resetEmailJob struct {
	ID    string `json:"id"`
	To    string `json:"to"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

// QueuePublisher enqueues reset-email jobs on a broker channel for the
// delivery worker, decoupling request latency from SMTP latency.
type QueuePublisher struct {
	backend mq.Backend
	channel string
}

func NewQueuePublisher(backend mq.Backend, channel string) *QueuePublisher {
	return &QueuePublisher{backend: backend, channel: channel}
}

func (p *QueuePublisher) SendPasswordReset(ctx context.Context, to, name, token string) (string, error) {
	job := resetEmailJob{
		ID:    uuid.NewString(),
		To:    to,
		Name:  name,
		Token: token,
	}
	data, err := json.Marshal(job)
	if err != nil {
		return "", err
	}
	if _, err := p.backend.Publish(ctx, p.channel, data, map[string]string{attrKind: kindPasswordReset}); err != nil {
		return "", err
	}
	return job.ID, nil
}
