// ABOUTME: Tests for the API client using an httptest server.
// ABOUTME: Covers bearer auth, the refresh-and-retry path, token clearing, and error classification.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/connect/internal/logging"
	"github.com/2389-research/connect/internal/models"
)

type fakeTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
	cleared int
}

func (f *fakeTokens) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.access
}

func (f *fakeTokens) RefreshToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refresh
}

func (f *fakeTokens) SetAccessToken(a string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = a
}

func (f *fakeTokens) SetRefreshToken(r string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refresh = r
}

func (f *fakeTokens) ClearTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access, f.refresh = "", ""
	f.cleared++
}

func newTestClient(url string, tokens TokenStore) *Client {
	return NewClient(url, tokens, WithLogger(logging.Discard()))
}

func TestClientAttachesBearerAndRequestID(t *testing.T) {
	var gotAuth, gotRequestID, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		gotContentType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"id": 7, "username": "alice"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL+"/", &fakeTokens{access: "access-1"})
	u, err := client.Me(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer access-1", gotAuth)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, int64(7), u.ID)
}

func TestClientOmitsAuthWithoutToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, &fakeTokens{}).Feed(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClientRefreshesAndRetriesOnce(t *testing.T) {
	var meCalls, refreshCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token/refresh/":
			atomic.AddInt32(&refreshCalls, 1)
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			assert.Equal(t, "refresh-1", body["refresh"])
			_, _ = w.Write([]byte(`{"access": "access-2"}`))
		case "/users/me/":
			atomic.AddInt32(&meCalls, 1)
			if r.Header.Get("Authorization") != "Bearer access-2" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"detail": "Token expired"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id": 1, "username": "me"}`))
		}
	}))
	defer server.Close()

	tokens := &fakeTokens{access: "access-1", refresh: "refresh-1"}
	u, err := newTestClient(server.URL, tokens).Me(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "me", u.Username)
	assert.Equal(t, int32(2), atomic.LoadInt32(&meCalls), "original request retried exactly once")
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
	assert.Equal(t, "access-2", tokens.AccessToken())
	assert.Equal(t, "refresh-1", tokens.RefreshToken())
}

func TestClientStoresRotatedRefreshToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/token/refresh/" {
			_, _ = w.Write([]byte(`{"access": "access-2", "refresh": "refresh-2"}`))
			return
		}
		if r.Header.Get("Authorization") != "Bearer access-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	tokens := &fakeTokens{access: "access-1", refresh: "refresh-1"}
	_, err := newTestClient(server.URL, tokens).Notifications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", tokens.RefreshToken())
}

func TestClientRetryStillUnauthorizedDoesNotLoop(t *testing.T) {
	var meCalls, refreshCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/token/refresh/" {
			atomic.AddInt32(&refreshCalls, 1)
			_, _ = w.Write([]byte(`{"access": "access-2"}`))
			return
		}
		atomic.AddInt32(&meCalls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, &fakeTokens{access: "a", refresh: "r"}).Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&meCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
}

func TestClientRefreshRejectedClearsTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail": "Token is invalid or expired"}`))
	}))
	defer server.Close()

	tokens := &fakeTokens{access: "access-1", refresh: "refresh-1"}
	_, err := newTestClient(server.URL, tokens).Me(context.Background())

	require.Error(t, err)
	assert.True(t, IsUnauthorized(err), "original 401 is propagated")
	assert.Empty(t, tokens.AccessToken())
	assert.Empty(t, tokens.RefreshToken())
}

func TestClientRefreshServerErrorKeepsTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/token/refresh/" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	tokens := &fakeTokens{access: "access-1", refresh: "refresh-1"}
	_, err := newTestClient(server.URL, tokens).Me(context.Background())

	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "access-1", tokens.AccessToken())
	assert.Equal(t, "refresh-1", tokens.RefreshToken())
	assert.Zero(t, tokens.cleared)
}

func TestClientNoRefreshTokenClearsSession(t *testing.T) {
	var refreshCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/token/refresh/" {
			atomic.AddInt32(&refreshCalls, 1)
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	tokens := &fakeTokens{access: "stale"}
	_, err := newTestClient(server.URL, tokens).Me(context.Background())

	require.Error(t, err)
	assert.Zero(t, atomic.LoadInt32(&refreshCalls))
	assert.Empty(t, tokens.AccessToken())
}

func TestClientLoginDoesNotRefresh(t *testing.T) {
	var refreshCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/token/refresh/" {
			atomic.AddInt32(&refreshCalls, 1)
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"non_field_errors": ["Invalid credentials."]}`))
	}))
	defer server.Close()

	tokens := &fakeTokens{access: "a", refresh: "r"}
	_, err := newTestClient(server.URL, tokens).Login(context.Background(), "alice", "wrong")

	require.Error(t, err)
	assert.Equal(t, "Invalid credentials.", ErrorMessage(err))
	assert.Zero(t, atomic.LoadInt32(&refreshCalls))
	assert.Equal(t, "a", tokens.AccessToken(), "failed login must not clear an existing session")
}

func TestClientNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	tokens := &fakeTokens{access: "a", refresh: "r"}
	_, err := newTestClient(url, tokens).Feed(context.Background())

	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
	assert.True(t, IsUnavailable(err))
	assert.False(t, IsUnauthorized(err))
	assert.Equal(t, "a", tokens.AccessToken())
}

func TestClientServerErrorPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, nil).Feed(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.True(t, IsServerError(err))
	assert.False(t, IsNetworkError(err))
}

func TestAPIErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail", `{"detail": "Not found."}`, "Not found."},
		{"content list", `{"content": ["This field may not be blank."]}`, "This field may not be blank."},
		{"non field errors", `{"non_field_errors": ["Passwords do not match."]}`, "Passwords do not match."},
		{"error key", `{"error": "You cannot follow yourself."}`, "You cannot follow yourself."},
		{"plain json string", `"Something broke"`, "Something broke"},
		{"field errors", `{"username": ["taken"], "email": ["invalid"]}`, "email: invalid, username: taken"},
		{"not json", `<html>oops</html>`, "<html>oops</html>"},
		{"empty", ``, "Bad Request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &APIError{StatusCode: http.StatusBadRequest, Body: []byte(tt.body)}
			assert.Equal(t, tt.want, e.Message())
		})
	}
}

func TestDecodeListShapes(t *testing.T) {
	bare, err := decodeList[int]([]byte(`[1, 2, 3]`))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, bare)

	paged, err := decodeList[int]([]byte(`{"count": 2, "next": null, "results": [4, 5]}`))
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, paged)

	empty, err := decodeList[int]([]byte(`{"count": 0}`))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestUploadAvatarFileMultipart(t *testing.T) {
	var gotField, gotFilename string
	var gotData []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		file, header, err := r.FormFile("avatar")
		if err != nil {
			t.Errorf("FormFile error: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()
		gotField = "avatar"
		gotFilename = header.Filename
		gotData, _ = io.ReadAll(file)
		_, _ = w.Write([]byte(`{"message": "Avatar uploaded successfully.", "avatar_url": "https://cdn/avatar.png"}`))
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL, &fakeTokens{access: "a"}).
		UploadAvatarFile(context.Background(), "me.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "avatar", gotField)
	assert.Equal(t, "me.png", gotFilename)
	assert.Equal(t, "png-bytes", string(gotData))
	assert.Equal(t, "https://cdn/avatar.png", resp.AvatarURL)
}

func TestLikeResponseCountOptional(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/like/") {
			_, _ = w.Write([]byte(`{"message": "Post liked successfully.", "like_count": 26}`))
			return
		}
		_, _ = w.Write([]byte(`{"message": "Post unliked successfully."}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)
	liked, err := client.LikePost(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, liked.LikeCount)
	assert.Equal(t, 26, *liked.LikeCount)

	unliked, err := client.UnlikePost(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, unliked.LikeCount)
}

func TestClientBaseURLTrimsSlash(t *testing.T) {
	assert.Equal(t, "http://localhost:8000/api", newTestClient("http://localhost:8000/api/", nil).BaseURL())
}

func TestPostAndConnectionEndpoints(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		switch {
		case strings.HasSuffix(r.URL.Path, "/like-status/"):
			_, _ = w.Write([]byte(`{"is_liked": true, "like_count": 3}`))
		case strings.HasSuffix(r.URL.Path, "/followers/"), strings.HasSuffix(r.URL.Path, "/following/"):
			_, _ = w.Write([]byte(`{"results": [{"id": 2, "username": "bob"}]}`))
		default:
			_, _ = w.Write([]byte(`{"id": 5, "content": "hi"}`))
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)
	ctx := context.Background()

	p, err := client.GetPost(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "hi", p.Content)

	_, err = client.UpdatePost(ctx, 5, models.CreatePostData{Content: "hi"})
	require.NoError(t, err)

	status, err := client.LikeStatus(ctx, 5)
	require.NoError(t, err)
	assert.True(t, status.IsLiked)
	assert.Equal(t, 3, status.LikeCount)

	followers, err := client.Followers(ctx, 1)
	require.NoError(t, err)
	require.Len(t, followers, 1)

	following, err := client.Following(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "bob", following[0].Username)

	assert.Equal(t, []string{
		"GET /posts/5/",
		"PUT /posts/5/update/",
		"GET /posts/5/like-status/",
		"GET /users/1/followers/",
		"GET /users/1/following/",
	}, calls)
}
