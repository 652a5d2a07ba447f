package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tienda-api/authserver/config"
	"github.com/tienda-api/authserver/internal/auth"
	"github.com/tienda-api/authserver/internal/services"
	"github.com/tienda-api/authserver/internal/store"
	"github.com/tienda-api/authserver/types"
)

type fakeAccountService struct {
	signUpErr  error
	signInErr  error
	forgotErr  error
	resetErr   error
	signUpCall *services.SignUpParams
	token      services.TokenResult
}

func (f *fakeAccountService) SignUp(_ context.Context, params services.SignUpParams) (types.User, error) {
	f.signUpCall = &params
	if f.signUpErr != nil {
		return types.User{}, f.signUpErr
	}
	return types.User{ID: 1, Name: params.Name, Email: params.Email}, nil
}

func (f *fakeAccountService) SignIn(_ context.Context, email, password string) (services.TokenResult, error) {
	if f.signInErr != nil {
		return services.TokenResult{}, f.signInErr
	}
	return f.token, nil
}

func (f *fakeAccountService) ForgotPassword(_ context.Context, email string) (string, error) {
	if f.forgotErr != nil {
		return "", f.forgotErr
	}
	return "msg-1", nil
}

func (f *fakeAccountService) ResetPassword(_ context.Context, resetToken, newPassword string) error {
	return f.resetErr
}

func (f *fakeAccountService) Me(user types.User) types.User {
	user.PasswordHash = ""
	user.Salt = ""
	return user
}

type fakeUserLoader struct {
	user types.User
	err  error
}

func (f *fakeUserLoader) GetByEmail(_ context.Context, email string) (types.User, error) {
	if f.err != nil {
		return types.User{}, f.err
	}
	return f.user, nil
}

func newTestRouter(service AccountService, tokens *auth.TokenIssuer, users UserLoader, cookie config.CookieConfig) *chi.Mux {
	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, service, RequireAuth(tokens, users), cookie)
	})
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func defaultRouter(service AccountService) *chi.Mux {
	return newTestRouter(service, auth.NewTokenIssuer("test-secret"), &fakeUserLoader{}, config.CookieConfig{})
}

func TestSignUpReturnsToken(t *testing.T) {
	expiresAt := time.Now().AddDate(1, 0, 0)
	service := &fakeAccountService{token: services.TokenResult{Token: "jwt", ExpiresAt: expiresAt}}
	router := defaultRouter(service)

	rec := doJSON(t, router, http.MethodPost, "/auth/signup",
		`{"name":"A","email":"a@x.com","password":"secret1"}`, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "jwt", resp.AccessToken)
	require.NotNil(t, service.signUpCall)
	assert.Equal(t, "a@x.com", service.signUpCall.Email)
}

func TestSignUpValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"email":"a@x.com","password":"secret1"}`},
		{"bad email", `{"name":"A","email":"not-an-email","password":"secret1"}`},
		{"short password", `{"name":"A","email":"a@x.com","password":"abc"}`},
		{"malformed json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &fakeAccountService{}
			router := defaultRouter(service)

			rec := doJSON(t, router, http.MethodPost, "/auth/signup", tt.body, nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, service.signUpCall)
		})
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	service := &fakeAccountService{signUpErr: services.ErrDuplicateAccount}
	router := defaultRouter(service)

	rec := doJSON(t, router, http.MethodPost, "/auth/signup",
		`{"name":"A","email":"a@x.com","password":"secret1"}`, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignInInvalidCredentials(t *testing.T) {
	service := &fakeAccountService{signInErr: services.ErrInvalidCredentials}
	router := defaultRouter(service)

	rec := doJSON(t, router, http.MethodPost, "/auth/signin",
		`{"email":"a@x.com","password":"wrong"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid credentials", resp.Error)
}

func TestSignInSetsCookieWhenEnabled(t *testing.T) {
	expiresAt := time.Now().AddDate(1, 0, 0)
	service := &fakeAccountService{token: services.TokenResult{Token: "jwt", ExpiresAt: expiresAt}}
	router := newTestRouter(service, auth.NewTokenIssuer("test-secret"), &fakeUserLoader{},
		config.CookieConfig{Enabled: true, Domain: "example.com", Secure: true})

	rec := doJSON(t, router, http.MethodPost, "/auth/signin",
		`{"email":"a@x.com","password":"secret1"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "access_token", cookies[0].Name)
	assert.Equal(t, "jwt", cookies[0].Value)
	assert.Equal(t, "example.com", cookies[0].Domain)
	assert.True(t, cookies[0].Secure)
	assert.False(t, cookies[0].HttpOnly)
	assert.Equal(t, "/", cookies[0].Path)
}

func TestForgotPassword(t *testing.T) {
	service := &fakeAccountService{}
	router := defaultRouter(service)

	rec := doJSON(t, router, http.MethodPut, "/auth/forgot-password",
		`{"email":"a@x.com"}`, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp ForgotPasswordResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "msg-1", resp.MessageID)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	service := &fakeAccountService{forgotErr: services.ErrInvalidCredentials}
	router := defaultRouter(service)

	rec := doJSON(t, router, http.MethodPut, "/auth/forgot-password",
		`{"email":"nobody@x.com"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResetPassword(t *testing.T) {
	service := &fakeAccountService{}
	router := defaultRouter(service)

	rec := doJSON(t, router, http.MethodPut, "/auth/reset-password",
		`{"reset_token":"tok","password":"newsecret"}`, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestResetPasswordInvalidToken(t *testing.T) {
	service := &fakeAccountService{resetErr: services.ErrInvalidOrExpiredToken}
	router := defaultRouter(service)

	rec := doJSON(t, router, http.MethodPut, "/auth/reset-password",
		`{"reset_token":"stale","password":"newsecret"}`, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMeRequiresToken(t *testing.T) {
	router := defaultRouter(&fakeAccountService{})

	rec := doJSON(t, router, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/auth/me", "",
		map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeRejectsTokenForMissingUser(t *testing.T) {
	tokens := auth.NewTokenIssuer("test-secret")
	router := newTestRouter(&fakeAccountService{}, tokens, &fakeUserLoader{err: store.ErrNotFound}, config.CookieConfig{})

	token, _, err := tokens.Issue("ghost@x.com")
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/auth/me", "",
		map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeReturnsRedactedProfile(t *testing.T) {
	tokens := auth.NewTokenIssuer("test-secret")
	loader := &fakeUserLoader{user: types.User{
		ID: 1, Name: "A", Email: "a@x.com", PasswordHash: "hash", Salt: "salt",
	}}
	router := newTestRouter(&fakeAccountService{}, tokens, loader, config.CookieConfig{})

	token, _, err := tokens.Issue("a@x.com")
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodGet, "/auth/me", "",
		map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "a@x.com", body["email"])
	assert.NotContains(t, body, "password_hash")
	assert.NotContains(t, body, "salt")
	assert.NotContains(t, rec.Body.String(), "hash")
}
