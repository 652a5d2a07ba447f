// Package notify dispatches password-reset emails, either directly over SMTP
// or through a message queue drained by the delivery worker.
package notify

import (
	"context"
	"fmt"
)

// Gateway sends a password-reset notification and returns an opaque message
// id identifying the dispatch.
type Gateway interface {
	SendPasswordReset(ctx context.Context, to, name, token string) (string, error)
}

const resetEmailSubject = "Reset your password"

func resetEmailBody(origin, token string) string {
	return fmt.Sprintf(`
		<h2>Click the link below to reset your password</h2>
		<a href="%s/reset-password/%s">Reset password</a>
	`, origin, token)
}
