package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/tienda-api/authserver/config"
	"github.com/tienda-api/authserver/internal/auth"
	"github.com/tienda-api/authserver/internal/services"
	"github.com/tienda-api/authserver/internal/store"
	"github.com/tienda-api/authserver/types"
)

const minPasswordLength = 6

// AccountService is the operation contract the HTTP layer calls into.
// Implemented by services.AccountManager.
type AccountService interface {
	SignUp(ctx context.Context, params services.SignUpParams) (types.User, error)
	SignIn(ctx context.Context, email, password string) (services.TokenResult, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	Me(user types.User) types.User
}

// UserLoader resolves an email claim to a user. Implemented by
// store.UserRepository.
type UserLoader interface {
	GetByEmail(ctx context.Context, email string) (types.User, error)
}

// AuthHandler provides the authentication endpoints.
type AuthHandler struct {
	service AccountService
	cookie  config.CookieConfig
}

func NewAuthHandler(service AccountService, cookie config.CookieConfig) *AuthHandler {
	return &AuthHandler{service: service, cookie: cookie}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, service AccountService, authMiddleware func(http.Handler) http.Handler, cookie config.CookieConfig) {
	handler := NewAuthHandler(service, cookie)

	r.Post("/signup", handler.SignUp)
	r.Post("/signin", handler.SignIn)
	r.Put("/forgot-password", handler.ForgotPassword)
	r.Put("/reset-password", handler.ResetPassword)
	r.With(authMiddleware).Get("/me", handler.Me)
}

// RequireAuth returns middleware that verifies the bearer token, resolves it
// to a user, and injects the user into the request context. This is the
// single point where a request transitions from anonymous to authenticated.
func RequireAuth(tokens *auth.TokenIssuer, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			email, err := tokens.Verify(tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			user, err := users.GetByEmail(r.Context(), email)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				writeError(w, http.StatusInternalServerError, "failed to load user")
				return
			}

			ctx := context.WithValue(r.Context(), contextUserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SignUp creates a new account and signs it in, returning a token.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.trim()
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.service.SignUp(r.Context(), services.SignUpParams{
		Name:     req.Name,
		Email:    req.Email,
		Address:  req.Address,
		Phone:    req.Phone,
		Password: req.Password,
	}); err != nil {
		h.writeServiceError(w, err)
		return
	}

	result, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.setTokenCookie(w, result)
	writeJSON(w, http.StatusCreated, TokenResponse{AccessToken: result.Token, ExpiresAt: result.ExpiresAt})
}

// SignIn verifies credentials and returns a token.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.setTokenCookie(w, result)
	writeJSON(w, http.StatusOK, TokenResponse{AccessToken: result.Token, ExpiresAt: result.ExpiresAt})
}

// ForgotPassword issues a reset token and emails it to the account holder.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	messageID, err := h.service.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ForgotPasswordResponse{MessageID: messageID})
}

// ResetPassword consumes a reset token and installs the new password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.ResetToken, req.Password); err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user's profile with credentials redacted.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, h.service.Me(user))
}

func (h *AuthHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrDuplicateAccount):
		writeError(w, http.StatusConflict, "email already in use")
	case errors.Is(err, services.ErrInvalidOrExpiredToken):
		writeError(w, http.StatusConflict, "invalid or expired reset token")
	case errors.Is(err, services.ErrNotificationFailure):
		writeError(w, http.StatusInternalServerError, "failed to send reset email")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// setTokenCookie mirrors the token into a cookie when configured. HttpOnly
// stays false so browser clients can read the token for header delivery.
func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, result services.TokenResult) {
	if !h.cookie.Enabled {
		return
	}
	cookie := &http.Cookie{
		Name:     "access_token",
		Value:    result.Token,
		Path:     "/",
		Domain:   h.cookie.Domain,
		Secure:   h.cookie.Secure,
		HttpOnly: false,
	}
	if !h.cookie.SessionOnly {
		cookie.Expires = result.ExpiresAt
	}
	http.SetCookie(w, cookie)
}

type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (r *SignUpRequest) trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Address = strings.TrimSpace(r.Address)
	r.Phone = strings.TrimSpace(r.Phone)
}

func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(minPasswordLength, 0)),
	)
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type ResetPasswordRequest struct {
	ResetToken string `json:"reset_token"`
	Password   string `json:"password"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ResetToken, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(minPasswordLength, 0)),
	)
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type ForgotPasswordResponse struct {
	MessageID string `json:"message_id"`
}
