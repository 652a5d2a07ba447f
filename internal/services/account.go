// Package services contains the business logic for the account lifecycle:
// sign-up, sign-in, the password-recovery flow, and profile projection.
package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/tienda-api/authserver/internal/auth"
	"github.com/tienda-api/authserver/internal/store"
	"github.com/tienda-api/authserver/types"
)

const (
	resetTokenBytes = 20
	resetTokenTTL   = 15 * time.Minute
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password.
	// The two cases are indistinguishable to callers so that failures do
	// not reveal whether an account exists.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDuplicateAccount is returned when sign-up hits an existing email.
	ErrDuplicateAccount = errors.New("account already exists")

	// ErrInvalidOrExpiredToken is returned by ResetPassword for an unknown,
	// expired, or already-consumed reset token.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")

	// ErrNotificationFailure wraps a failed reset-email dispatch. The reset
	// token has already been persisted when this is returned.
	ErrNotificationFailure = errors.New("failed to dispatch notification")
)

// AccountRepository defines the persistence operations AccountManager needs.
type AccountRepository interface {
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByResetToken(ctx context.Context, token string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	SetResetToken(ctx context.Context, email, token string, expires time.Time) error
	ResetPassword(ctx context.Context, token, passwordHash, salt string) error
}

// NotificationGateway dispatches password-reset emails. It returns an opaque
// message id identifying the dispatched notification.
type NotificationGateway interface {
	SendPasswordReset(ctx context.Context, to, name, token string) (string, error)
}

// SignUpParams carries the validated sign-up input. Address and Phone are
// optional profile attributes.
type SignUpParams struct {
	Name     string
	Email    string
	Address  string
	Phone    string
	Password string
}

// TokenResult is the outcome of a successful authentication.
type TokenResult struct {
	Token     string
	ExpiresAt time.Time
}

// AccountManager orchestrates the account state machine against the
// repository, token issuer, and notification gateway.
type AccountManager struct {
	repo     AccountRepository
	tokens   *auth.TokenIssuer
	notifier NotificationGateway
	logger   zerolog.Logger
}

func NewAccountManager(repo AccountRepository, tokens *auth.TokenIssuer, notifier NotificationGateway, logger zerolog.Logger) *AccountManager {
	return &AccountManager{
		repo:     repo,
		tokens:   tokens,
		notifier: notifier,
		logger:   logger,
	}
}

// SignUp creates a new account with a fresh salt and hashed password.
func (m *AccountManager) SignUp(ctx context.Context, params SignUpParams) (types.User, error) {
	salt, err := auth.GenerateSalt()
	if err != nil {
		return types.User{}, fmt.Errorf("generate salt: %w", err)
	}

	user := types.User{
		Name:         params.Name,
		Email:        params.Email,
		Address:      params.Address,
		Phone:        params.Phone,
		PasswordHash: auth.HashPassword(params.Password, salt),
		Salt:         salt,
	}

	created, err := m.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return types.User{}, ErrDuplicateAccount
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}

	m.logger.Info().Str("email", created.Email).Msg("account created")
	return created, nil
}

// SignIn verifies the credentials and, on success, issues an access token
// expiring one calendar year out.
func (m *AccountManager) SignIn(ctx context.Context, email, password string) (TokenResult, error) {
	user, err := m.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TokenResult{}, ErrInvalidCredentials
		}
		return TokenResult{}, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.VerifyPassword(password, user.Salt, user.PasswordHash) {
		return TokenResult{}, ErrInvalidCredentials
	}

	token, expiresAt, err := m.tokens.Issue(user.Email)
	if err != nil {
		return TokenResult{}, fmt.Errorf("issue token: %w", err)
	}
	return TokenResult{Token: token, ExpiresAt: expiresAt}, nil
}

// ForgotPassword issues a fresh single-use reset token valid for 15 minutes,
// overwriting any outstanding token, and emails it to the user. The token is
// persisted before the notification is dispatched, so a transient send
// failure does not strand the user without a valid token.
func (m *AccountManager) ForgotPassword(ctx context.Context, email string) (string, error) {
	user, err := m.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	token, err := newResetToken()
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	expires := time.Now().Add(resetTokenTTL)

	if err := m.repo.SetResetToken(ctx, user.Email, token, expires); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}

	messageID, err := m.notifier.SendPasswordReset(ctx, user.Email, user.Name, token)
	if err != nil {
		m.logger.Error().Err(err).Str("email", user.Email).Msg("reset notification dispatch failed")
		return "", fmt.Errorf("%w: %v", ErrNotificationFailure, err)
	}

	m.logger.Info().Str("email", user.Email).Str("message_id", messageID).Msg("reset notification dispatched")
	return messageID, nil
}

// ResetPassword consumes a reset token and installs the new password under a
// fresh salt. The expiry comparison is strict: a token is invalid only once
// the current instant is past its expiration.
func (m *AccountManager) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	user, err := m.repo.GetByResetToken(ctx, resetToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	if user.ResetTokenExpires == nil || time.Now().After(*user.ResetTokenExpires) {
		return ErrInvalidOrExpiredToken
	}

	salt, err := auth.GenerateSalt()
	if err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}

	if err := m.repo.ResetPassword(ctx, resetToken, auth.HashPassword(newPassword, salt), salt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Consumed between the lookup and the write.
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("update password: %w", err)
	}

	m.logger.Info().Str("email", user.Email).Msg("password reset")
	return nil
}

// Me returns the user with credential material redacted. Pure projection;
// authentication is enforced upstream by the request authenticator.
func (m *AccountManager) Me(user types.User) types.User {
	user.PasswordHash = ""
	user.Salt = ""
	return user
}

func newResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
