package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"buddy-api/common"
	"buddy-api/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAuthService struct{ mock.Mock }

func (m *mockAuthService) Register(ctx context.Context, email, password string) (*model.User, error) {
	args := m.Called(ctx, email, password)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.LoginResult, error) {
	args := m.Called(ctx, email, password)
	result, _ := args.Get(0).(*model.LoginResult)
	return result, args.Error(1)
}

func (m *mockAuthService) Session(ctx context.Context, authorization string) (*model.User, error) {
	args := m.Called(ctx, authorization)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

func (m *mockAuthService) Refresh(ctx context.Context, authorization, refreshToken string) (*model.AccessToken, error) {
	args := m.Called(ctx, authorization, refreshToken)
	token, _ := args.Get(0).(*model.AccessToken)
	return token, args.Error(1)
}

func (m *mockAuthService) Authenticate(ctx context.Context, authorization string) (*model.User, error) {
	args := m.Called(ctx, authorization)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

type errorBody struct {
	Detail []common.ErrorDetail `json:"detail"`
}

func serve(h func(http.ResponseWriter, *http.Request) *common.AppError, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ErrorHandlingMiddleware(h).ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("json body", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("Register", mock.Anything, "asta@bulls.io", "anti-magic").
			Return(&model.User{ID: 1, Email: "asta@bulls.io", Tier: model.TierFree}, nil).Once()

		rr := serve(NewAuthHandler(svc).Register,
			jsonRequest(http.MethodPost, "/auth/register", `{"email":"asta@bulls.io","password":"anti-magic"}`))

		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.JSONEq(t, `{"detail":"Created"}`, rr.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("form body", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("Register", mock.Anything, "asta@bulls.io", "anti-magic").
			Return(&model.User{ID: 1}, nil).Once()

		form := url.Values{"email": {"asta@bulls.io"}, "password": {"anti-magic"}}
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		rr := serve(NewAuthHandler(svc).Register, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		svc.AssertExpectations(t)
	})

	t.Run("already exists", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("Register", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, common.ErrAlreadyExists).Once()

		rr := serve(NewAuthHandler(svc).Register,
			jsonRequest(http.MethodPost, "/auth/register", `{"email":"asta@bulls.io","password":"anti-magic"}`))

		assert.Equal(t, http.StatusConflict, rr.Code)
		body := decodeError(t, rr)
		require.Len(t, body.Detail, 1)
		assert.Equal(t, "user_already_exists", body.Detail[0].Type)
	})

	t.Run("validation", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("Register", mock.Anything, "", "short").
			Return(nil, common.Validate(&model.CredentialsRequest{Password: "short"})).Once()

		rr := serve(NewAuthHandler(svc).Register,
			jsonRequest(http.MethodPost, "/auth/register", `{"password":"short"}`))

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		body := decodeError(t, rr)
		require.Len(t, body.Detail, 2)
		assert.Equal(t, []string{"body", "email"}, body.Detail[0].Loc)
		assert.Equal(t, "missing", body.Detail[0].Type)
		assert.Equal(t, "string_too_short", body.Detail[1].Type)
	})

	t.Run("malformed json", func(t *testing.T) {
		svc := new(mockAuthService)

		rr := serve(NewAuthHandler(svc).Register,
			jsonRequest(http.MethodPost, "/auth/register", `{"email":`))

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
		svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("Login", mock.Anything, "asta@bulls.io", "anti-magic").Return(&model.LoginResult{
			AccessToken:  model.AccessToken{AccessToken: "jwt", TokenType: "bearer", ExpiryTimestamp: 1700000000},
			RefreshToken: "refresh",
		}, nil).Once()

		rr := serve(NewAuthHandler(svc).Login,
			jsonRequest(http.MethodPost, "/auth/login", `{"email":"asta@bulls.io","password":"anti-magic"}`))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{
			"access_token": "jwt",
			"token_type": "bearer",
			"expiry_timestamp": 1700000000,
			"refresh_token": "refresh",
			"detail": "OK"
		}`, rr.Body.String())
	})

	t.Run("invalid credentials", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("Login", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, common.ErrInvalidCredentials).Once()

		rr := serve(NewAuthHandler(svc).Login,
			jsonRequest(http.MethodPost, "/auth/login", `{"email":"asta@bulls.io","password":"wrong-pass"}`))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"detail":[{"type":"invalid_credentials","msg":"Invalid credentials"}]}`, rr.Body.String())
	})

	t.Run("internal errors do not leak", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("Login", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("pq: connection refused")).Once()

		rr := serve(NewAuthHandler(svc).Login,
			jsonRequest(http.MethodPost, "/auth/login", `{"email":"asta@bulls.io","password":"anti-magic"}`))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "connection refused")
	})
}

func TestAuthHandler_Session(t *testing.T) {
	user := &model.User{ID: 3, Email: "asta@bulls.io", Tier: model.TierFree}

	t.Run("from middleware context", func(t *testing.T) {
		svc := new(mockAuthService)
		req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
		req = req.WithContext(context.WithValue(req.Context(), UserKey, user))

		rr := serve(NewAuthHandler(svc).Session, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"user":{"email":"asta@bulls.io","tier":"FREE"},"detail":"OK"}`, rr.Body.String())
		svc.AssertNotCalled(t, "Session", mock.Anything, mock.Anything)
	})

	t.Run("from header", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("Session", mock.Anything, "Bearer abc").Return(user, nil).Once()
		req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
		req.Header.Set("Authorization", "Bearer abc")

		rr := serve(NewAuthHandler(svc).Session, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		svc.AssertExpectations(t)
	})

	t.Run("rejected", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("Session", mock.Anything, "").Return(nil, common.ErrInvalidCredentials).Once()

		rr := serve(NewAuthHandler(svc).Session, httptest.NewRequest(http.MethodGet, "/auth/session", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestAuthHandler_Refresh(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("Refresh", mock.Anything, "Bearer expired", "refresh").
			Return(&model.AccessToken{AccessToken: "new", TokenType: "bearer", ExpiryTimestamp: 1700000600}, nil).Once()

		req := jsonRequest(http.MethodPost, "/auth/refresh", `{"refresh_token":"refresh"}`)
		req.Header.Set("Authorization", "Bearer expired")

		rr := serve(NewAuthHandler(svc).Refresh, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"access_token":"new","token_type":"bearer","expiry_timestamp":1700000600,"detail":"OK"}`, rr.Body.String())
	})

	t.Run("unknown refresh token", func(t *testing.T) {
		svc := new(mockAuthService)
		svc.On("Refresh", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, common.ErrInvalidCredentials).Once()

		rr := serve(NewAuthHandler(svc).Refresh,
			jsonRequest(http.MethodPost, "/auth/refresh", `{"refresh_token":"nope"}`))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
