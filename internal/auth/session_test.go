// ABOUTME: Tests for the auth session manager against an httptest server.
// ABOUTME: Covers token persistence on login, unconditional clearing on logout, and admin claims.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/connect/internal/api"
	"github.com/2389-research/connect/internal/logging"
	"github.com/2389-research/connect/internal/models"
	"github.com/2389-research/connect/internal/storage"
)

func newSession(t *testing.T, handler http.HandlerFunc) (*Session, *storage.Cache) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cache := storage.NewCache(storage.NewMemoryKV()).WithLogger(logging.Discard())
	client := api.NewClient(server.URL, cache, api.WithLogger(logging.Discard()))
	return NewSession(client, cache).WithLogger(logging.Discard()), cache
}

func loginHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login/":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["username_or_email"] != "alice" || body["password"] != "correct-horse" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"non_field_errors": ["Invalid credentials."]}`))
				return
			}
			_, _ = w.Write([]byte(`{
				"message": "Login successful.",
				"user": {"id": 1, "username": "alice"},
				"tokens": {"access": "access-token-1234", "refresh": "refresh-token-5678"}
			}`))
		case "/auth/logout/":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}
}

func TestLoginStoresBothTokens(t *testing.T) {
	s, cache := newSession(t, loginHandler(t))

	res, err := s.Login(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)

	assert.Equal(t, "alice", res.User.Username)
	assert.Equal(t, "access-token-1234", cache.AccessToken())
	assert.Equal(t, "refresh-token-5678", cache.RefreshToken())
	assert.True(t, s.HasValidTokens())
	assert.True(t, s.IsAuthenticated())
}

func TestLoginInvalidCredentials(t *testing.T) {
	s, cache := newSession(t, loginHandler(t))

	_, err := s.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)
	assert.Equal(t, "Invalid credentials.", authErr.Message)
	assert.Contains(t, string(authErr.Payload), "non_field_errors")
	assert.Empty(t, cache.AccessToken())
}

func TestLogoutClearsTokensEvenWhenServerFails(t *testing.T) {
	s, cache := newSession(t, loginHandler(t))

	_, err := s.Login(context.Background(), "alice", "correct-horse")
	require.NoError(t, err)

	err = s.Logout(context.Background())
	assert.Error(t, err, "server failure is reported")
	assert.Empty(t, cache.AccessToken())
	assert.Empty(t, cache.RefreshToken())
	assert.False(t, s.HasValidTokens())
}

func TestLogoutWithUnreachableServer(t *testing.T) {
	cache := storage.NewCache(storage.NewMemoryKV()).WithLogger(logging.Discard())
	cache.SetTokens("a", "r")
	client := api.NewClient("http://127.0.0.1:1", cache, api.WithLogger(logging.Discard()))
	s := NewSession(client, cache).WithLogger(logging.Discard())

	_ = s.Logout(context.Background())

	assert.Empty(t, cache.AccessToken())
	assert.Empty(t, cache.RefreshToken())
}

func TestHasValidTokensNeedsBoth(t *testing.T) {
	s, cache := newSession(t, loginHandler(t))

	cache.SetAccessToken("only-access")
	assert.False(t, s.HasValidTokens())
	assert.True(t, s.IsAuthenticated())

	s.ClearAuth()
	assert.False(t, s.IsAuthenticated())
}

func TestRegisterValidatesBeforeCalling(t *testing.T) {
	called := false
	s, _ := newSession(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := s.Register(context.Background(), models.RegisterData{
		Username: "bob", Email: "bob@example.com", FirstName: "Bob", LastName: "B",
		Password: "short", PasswordConfirm: "different",
	})
	require.Error(t, err)

	verrs, ok := err.(ValidationErrors)
	require.True(t, ok, "expected ValidationErrors, got %T", err)
	assert.Contains(t, verrs, "password")
	assert.Contains(t, verrs, "password_confirm")
	assert.False(t, called)
}

func TestRegisterLogsIn(t *testing.T) {
	s, cache := newSession(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/register/", r.URL.Path)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message": "User registered successfully.", "user": {"id": 9, "username": "bob"}, "tokens": {"access": "a9", "refresh": "r9"}}`))
	})

	res, err := s.Register(context.Background(), models.RegisterData{
		Username: "bob", Email: "bob@example.com", FirstName: "Bob", LastName: "B",
		Password: "long-enough", PasswordConfirm: "long-enough",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), res.User.ID)
	assert.Equal(t, "a9", cache.AccessToken())
}

func TestCurrentUserPropagatesHTTPError(t *testing.T) {
	s, cache := newSession(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	cache.SetTokens("a", "r")

	_, err := s.CurrentUser(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestIsAdmin(t *testing.T) {
	tests := []struct {
		name  string
		user  *models.User
		token string
		want  bool
	}{
		{"role on profile", &models.User{Role: "admin"}, "", true},
		{"staff on profile", &models.User{IsStaff: true}, "", true},
		{"admin-looking username is not admin", &models.User{Username: "admin", Email: "admin@socialconnect.com"}, "", false},
		{"role in token", &models.User{}, signedToken(t, jwt.MapClaims{"user_id": 1, "role": "admin"}), true},
		{"staff in token", nil, signedToken(t, jwt.MapClaims{"is_staff": true}), true},
		{"plain token", &models.User{}, signedToken(t, jwt.MapClaims{"user_id": 2}), false},
		{"garbage token", nil, "not-a-jwt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAdmin(tt.user, tt.token))
		})
	}
}

func TestParseClaimsUserID(t *testing.T) {
	c, err := ParseClaims(signedToken(t, jwt.MapClaims{"user_id": 42, "role": "member"}))
	require.NoError(t, err)
	assert.Equal(t, int64(42), c.UserID)
	assert.Equal(t, "member", c.Role)
}

func TestValidateRegistration(t *testing.T) {
	valid := models.RegisterData{
		Username: "carol", Email: "carol@example.com", FirstName: "Carol", LastName: "C",
		Password: "12345678", PasswordConfirm: "12345678",
	}
	assert.Nil(t, ValidateRegistration(valid))

	missing := ValidateRegistration(models.RegisterData{})
	for _, field := range []string{"username", "email", "first_name", "last_name", "password"} {
		assert.Contains(t, missing, field)
	}

	badEmail := valid
	badEmail.Email = "carol"
	assert.Equal(t, "email is invalid", ValidateRegistration(badEmail)["email"])
}
