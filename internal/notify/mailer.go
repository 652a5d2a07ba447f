package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tienda-api/authserver/config"
	"gopkg.in/gomail.v2"
)

// Mailer sends password-reset emails directly over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	origin string
	logger zerolog.Logger
}

func NewMailer(cfg config.SMTPConfig, origin string, logger zerolog.Logger) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		origin: origin,
		logger: logger,
	}
}

// SendPasswordReset emails the reset link to the user. The returned id
// identifies the dispatch in logs; SMTP itself assigns no message id.
func (m *Mailer) SendPasswordReset(_ context.Context, to, name, token string) (string, error) {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetAddressHeader("To", to, name)
	msg.SetHeader("Subject", resetEmailSubject)
	msg.SetBody("text/html", resetEmailBody(m.origin, token))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return "", err
	}

	id := uuid.NewString()
	m.logger.Info().Str("to", to).Str("message_id", id).Msg("reset email sent")
	return id, nil
}
