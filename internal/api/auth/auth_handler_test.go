package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/analyticalinvestments/omega-api/config"
	"github.com/analyticalinvestments/omega-api/internal/api"
)

// MockAuthService is a mock implementation of the AuthService interface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req RegisterRequest) (*User, *Session, error) {
	args := m.Called(ctx, req)
	var user *User
	var session *Session
	if args.Get(0) != nil {
		user = args.Get(0).(*User)
	}
	if args.Get(1) != nil {
		session = args.Get(1).(*Session)
	}
	return user, session, args.Error(2)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*User, *Session, error) {
	args := m.Called(ctx, email, password)
	var user *User
	var session *Session
	if args.Get(0) != nil {
		user = args.Get(0).(*User)
	}
	if args.Get(1) != nil {
		session = args.Get(1).(*Session)
	}
	return user, session, args.Error(2)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockAuthService) GetOrCreateUserFromProvider(ctx context.Context, profile OAuthProfile) (*User, *Session, error) {
	args := m.Called(ctx, profile)
	var user *User
	var session *Session
	if args.Get(0) != nil {
		user = args.Get(0).(*User)
	}
	if args.Get(1) != nil {
		session = args.Get(1).(*Session)
	}
	return user, session, args.Error(2)
}

func newHandlerTest(service AuthService) *AuthHandler {
	cfg := config.AuthConfig{
		SessionTTL: 24 * time.Hour,
		CookieName: testCookieName,
	}
	return NewAuthHandler(service, cfg, slog.Default())
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == testCookieName {
			return c
		}
	}
	return nil
}

func TestRegisterHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := newHandlerTest(mockService)

		userID := uuid.New()
		user := &User{ID: userID, Username: "testuser", Email: "new@example.com", Plan: PlanFree}
		session := &Session{Token: "issued-token", UserID: userID, ExpiresAt: time.Now().Add(24 * time.Hour)}

		mockService.On("Register", mock.Anything, mock.AnythingOfType("RegisterRequest")).
			Return(user, session, nil).Once()

		body := `{"username":"testuser","email":"new@example.com","password":"Str0ngPass"}`
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))

		handler.Register(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		cookie := sessionCookie(t, rr)
		assert.NotNil(t, cookie)
		assert.Equal(t, "issued-token", cookie.Value)
		assert.True(t, cookie.HttpOnly)

		// the response body must not leak the password hash or the token
		assert.NotContains(t, rr.Body.String(), "issued-token")
		assert.NotContains(t, rr.Body.String(), "password")
		mockService.AssertExpectations(t)
	})

	t.Run("WeakPassword", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := newHandlerTest(mockService)

		mockService.On("Register", mock.Anything, mock.Anything).
			Return(nil, nil, api.ErrWeakPassword).Once()

		body := `{"username":"testuser","email":"new@example.com","password":"weak"}`
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))

		handler.Register(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Nil(t, sessionCookie(t, rr))
	})

	t.Run("DuplicateIdentity", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := newHandlerTest(mockService)

		mockService.On("Register", mock.Anything, mock.Anything).
			Return(nil, nil, api.ErrDuplicateIdentity).Once()

		body := `{"username":"testuser","email":"taken@example.com","password":"Str0ngPass"}`
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))

		handler.Register(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("MissingFields", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := newHandlerTest(mockService)

		body := `{"username":"testuser"}`
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))

		handler.Register(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "Register")
	})
}

func TestLoginHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := newHandlerTest(mockService)

		userID := uuid.New()
		user := &User{ID: userID, Email: "test@example.com", Plan: PlanOmega}
		session := &Session{Token: "issued-token", UserID: userID, ExpiresAt: time.Now().Add(24 * time.Hour)}

		mockService.On("Login", mock.Anything, "test@example.com", "Str0ngPass").
			Return(user, session, nil).Once()

		body := `{"email":"test@example.com","password":"Str0ngPass"}`
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))

		handler.Login(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		cookie := sessionCookie(t, rr)
		assert.NotNil(t, cookie)
		assert.Equal(t, "issued-token", cookie.Value)

		var got User
		assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, PlanOmega, got.Plan)
	})

	t.Run("InvalidCredentials", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := newHandlerTest(mockService)

		mockService.On("Login", mock.Anything, "test@example.com", "wrong").
			Return(nil, nil, api.ErrInvalidCredentials).Once()

		body := `{"email":"test@example.com","password":"wrong"}`
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))

		handler.Login(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Nil(t, sessionCookie(t, rr))
		assert.Contains(t, rr.Body.String(), "invalid credentials")
	})
}

func TestLogoutHandler(t *testing.T) {
	t.Run("RevokesSessionAndClearsCookie", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := newHandlerTest(mockService)

		mockService.On("Logout", mock.Anything, "current-token").Return(nil).Once()

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		req.AddCookie(&http.Cookie{Name: testCookieName, Value: "current-token"})

		handler.Logout(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		cookie := sessionCookie(t, rr)
		assert.NotNil(t, cookie)
		assert.Empty(t, cookie.Value)
		assert.Negative(t, cookie.MaxAge)
		mockService.AssertExpectations(t)
	})

	t.Run("NoCookieStillSucceeds", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := newHandlerTest(mockService)

		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)

		handler.Logout(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		mockService.AssertNotCalled(t, "Logout")
	})
}

func TestMeHandler(t *testing.T) {
	mockService := new(MockAuthService)
	handler := newHandlerTest(mockService)

	user := &User{ID: uuid.New(), Username: "testuser", Email: "test@example.com", Plan: PlanFree}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	ctx := context.WithValue(req.Context(), userContextKey, user)

	handler.Me(rr, req.WithContext(ctx))

	assert.Equal(t, http.StatusOK, rr.Code)

	var got User
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, user.Username, got.Username)
}
