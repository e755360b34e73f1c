// ABOUTME: Tests for the interaction layer against an httptest SocialConnect server.
// ABOUTME: The server can be switched to 503 to exercise the local-only paths.
package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/connect/internal/api"
	"github.com/2389-research/connect/internal/auth"
	"github.com/2389-research/connect/internal/logging"
	"github.com/2389-research/connect/internal/models"
	"github.com/2389-research/connect/internal/optimistic"
	"github.com/2389-research/connect/internal/state"
	"github.com/2389-research/connect/internal/storage"
)

var (
	alice = models.User{ID: 1, Username: "alice", FullName: "Alice Example", Email: "alice@example.com"}
	bob   = models.User{ID: 2, Username: "bob", FullName: "Bob Builder", Email: "bob@example.com", Bio: "builds things"}
	carol = models.User{ID: 3, Username: "carol", FullName: "Carol Singer", Email: "carol@example.com"}

	fixedNow = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
)

type fakeServer struct {
	*httptest.Server
	mux  *http.ServeMux
	down atomic.Bool
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{mux: http.NewServeMux()}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fs.down.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fs.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) handle(pattern, body string) {
	fs.handleStatus(pattern, http.StatusOK, body)
}

func (fs *fakeServer) handleStatus(pattern string, status int, body string) {
	fs.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

type harness struct {
	app    *App
	cache  *storage.Cache
	server *fakeServer
}

// newHarness builds an App whose cache was prepared by seed before hydration.
func newHarness(t *testing.T, seed func(*storage.Cache)) *harness {
	t.Helper()
	fs := newFakeServer(t)
	cache := storage.NewCache(storage.NewMemoryKV()).WithLogger(logging.Discard())
	if seed != nil {
		seed(cache)
	}
	client := api.NewClient(fs.URL, cache, api.WithLogger(logging.Discard()))
	session := auth.NewSession(client, cache).WithLogger(logging.Discard())
	a := New(client, session, cache, WithClock(func() time.Time { return fixedNow }), WithLogger(logging.Discard()))
	return &harness{app: a, cache: cache, server: fs}
}

func loggedInAs(u models.User, posts ...models.Post) func(*storage.Cache) {
	return func(c *storage.Cache) {
		c.SetTokens("access-token", "refresh-token")
		c.SaveUser(&u)
		if len(posts) > 0 {
			c.SavePosts(posts)
		}
	}
}

func post(id int64, author models.User, likes int) models.Post {
	return models.Post{ID: id, Content: "post", Author: author, LikeCount: likes, IsActive: true, CreatedAt: fixedNow.Add(-time.Duration(id) * time.Hour)}
}

func TestCreatePostOfflineAppendsLocalPost(t *testing.T) {
	h := newHarness(t, loggedInAs(alice, post(10, bob, 3)))
	h.server.down.Store(true)

	before := len(h.app.Posts())
	res, err := h.app.CreatePost(context.Background(), "Hello", "")
	require.NoError(t, err)

	assert.Equal(t, optimistic.LocalOnly, res.Outcome)
	posts := h.app.Posts()
	require.Len(t, posts, before+1)

	p := posts[0]
	assert.Equal(t, "Hello", p.Content)
	assert.Equal(t, alice.ID, p.Author.ID)
	assert.Equal(t, 0, p.LikeCount)
	assert.Equal(t, 0, p.CommentCount)
	assert.Equal(t, fixedNow.UnixMilli(), p.ID)
	assert.NotEmpty(t, h.app.Notice())
	assert.Equal(t, state.LocalOnly, h.app.Status("createPost").Phase)

	if diff := cmp.Diff(posts, h.cache.LoadPosts()); diff != "" {
		t.Errorf("cached posts differ from memory (-mem +cache):\n%s", diff)
	}
	assert.Len(t, h.cache.LoadUserCreatedPosts(), 1)
}

func TestOfflinePostReplacedByNextFeedLoad(t *testing.T) {
	h := newHarness(t, loggedInAs(alice))
	h.server.handle("GET /posts/list/", `{"results": [{"id": 77, "content": "from server", "author": {"id": 2, "username": "bob"}}]}`)

	h.server.down.Store(true)
	_, err := h.app.CreatePost(context.Background(), "Hello", "")
	require.NoError(t, err)
	require.NotEmpty(t, h.app.Notice())

	h.server.down.Store(false)
	res := h.app.LoadFeed(context.Background())

	assert.Equal(t, optimistic.Synced, res.Outcome)
	posts := h.app.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, int64(77), posts[0].ID)
	assert.Empty(t, h.app.Notice())
}

func TestCreatePostRequiresLogin(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.app.CreatePost(context.Background(), "Hello", "")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestCreatePostValidation(t *testing.T) {
	h := newHarness(t, loggedInAs(alice))

	_, err := h.app.CreatePost(context.Background(), "   ", "")
	assert.ErrorIs(t, err, models.ErrEmptyContent)

	_, err = h.app.CreatePost(context.Background(), strings.Repeat("x", models.MaxPostLength+1), "")
	assert.ErrorIs(t, err, models.ErrContentTooLong)
	assert.Empty(t, h.app.Posts())
}

func TestCreatePostSynced(t *testing.T) {
	h := newHarness(t, loggedInAs(alice))
	h.server.handleStatus("POST /posts/", http.StatusCreated, `{"id": 501, "content": "Hello", "author": {"id": 1, "username": "alice"}}`)

	res, err := h.app.CreatePost(context.Background(), "  Hello  ", "")
	require.NoError(t, err)
	assert.Equal(t, optimistic.Synced, res.Outcome)
	require.Len(t, h.app.Posts(), 1)
	assert.Equal(t, int64(501), h.app.Posts()[0].ID)
	assert.Equal(t, 1, h.app.CurrentUser().PostsCount)
}

func TestCreatePostMissingIDIsRejected(t *testing.T) {
	h := newHarness(t, loggedInAs(alice))
	h.server.handleStatus("POST /posts/", http.StatusCreated, `{"content": "Hello"}`)

	res, err := h.app.CreatePost(context.Background(), "Hello", "")
	require.NoError(t, err)
	assert.Equal(t, optimistic.Rejected, res.Outcome)
	assert.ErrorIs(t, res.Err, ErrMissingPostID)
	assert.Empty(t, h.app.Posts())
}

func TestCreatePostClientErrorIsRejected(t *testing.T) {
	h := newHarness(t, loggedInAs(alice))
	h.server.handleStatus("POST /posts/", http.StatusBadRequest, `{"content": ["This field may not be blank."]}`)

	res, err := h.app.CreatePost(context.Background(), "Hello", "")
	require.NoError(t, err)
	assert.Equal(t, optimistic.Rejected, res.Outcome)
	assert.Equal(t, "This field may not be blank.", res.Message())
	assert.Empty(t, h.app.Posts())
	assert.Empty(t, h.app.Notice())
}

func TestUnlikeNeverGoesNegative(t *testing.T) {
	for _, start := range []int{0, 1, 5} {
		h := newHarness(t, loggedInAs(alice, post(10, bob, start)))
		h.server.down.Store(true)

		res := h.app.UnlikePost(context.Background(), 10)
		assert.Equal(t, optimistic.LocalOnly, res.Outcome)

		p, ok := h.app.Post(10)
		require.True(t, ok)
		assert.Equal(t, max(0, start-1), p.LikeCount, "start=%d", start)
		assert.GreaterOrEqual(t, p.LikeCount, 0)
		assert.False(t, p.IsLikedByUser)
	}
}

func TestLikeUsesServerCount(t *testing.T) {
	h := newHarness(t, loggedInAs(alice, post(10, bob, 3)))
	h.server.handle("POST /posts/10/like/", `{"message": "Post liked", "like_count": 26}`)

	res := h.app.LikePost(context.Background(), 10)
	assert.Equal(t, optimistic.Synced, res.Outcome)

	p, _ := h.app.Post(10)
	assert.Equal(t, 26, p.LikeCount)
	assert.True(t, p.IsLikedByUser)
	assert.Equal(t, 26, h.cache.LoadPosts()[0].LikeCount)
}

func TestLikeWithoutServerCountIncrements(t *testing.T) {
	h := newHarness(t, loggedInAs(alice, post(10, bob, 3)))
	h.server.handle("POST /posts/10/like/", `{"message": "Post liked"}`)

	h.app.LikePost(context.Background(), 10)
	p, _ := h.app.Post(10)
	assert.Equal(t, 4, p.LikeCount)
}

func TestDeletePostOwnership(t *testing.T) {
	h := newHarness(t, loggedInAs(alice, post(10, bob, 0)))

	_, err := h.app.DeletePost(context.Background(), 10)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = h.app.DeletePost(context.Background(), 99)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestDeletePostRemovesCommentsAndClampsCount(t *testing.T) {
	h := newHarness(t, func(c *storage.Cache) {
		loggedInAs(alice, post(10, alice, 0), post(11, bob, 0))(c)
		c.SaveComments(map[int64][]models.Comment{10: {{ID: 1, Post: 10, Content: "hi"}}})
	})
	h.server.handle("DELETE /posts/10/delete/", `{}`)

	res, err := h.app.DeletePost(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, optimistic.Synced, res.Outcome)

	_, ok := h.app.Post(10)
	assert.False(t, ok)
	assert.Empty(t, h.app.Comments(10))
	assert.NotContains(t, h.cache.LoadComments(), int64(10))
	assert.Equal(t, 0, h.app.CurrentUser().PostsCount)
}

func TestAddCommentOffline(t *testing.T) {
	h := newHarness(t, loggedInAs(alice, post(10, bob, 0)))
	h.server.down.Store(true)

	res, err := h.app.AddComment(context.Background(), 10, "nice")
	require.NoError(t, err)
	assert.Equal(t, optimistic.LocalOnly, res.Outcome)

	comments := h.app.Comments(10)
	require.Len(t, comments, 1)
	assert.Equal(t, "nice", comments[0].Content)
	assert.Equal(t, alice.ID, comments[0].Author.ID)

	p, _ := h.app.Post(10)
	assert.Equal(t, 1, p.CommentCount)
	assert.Len(t, h.cache.LoadComments()[10], 1)
}

func TestFollowRoundTripOffline(t *testing.T) {
	h := newHarness(t, func(c *storage.Cache) {
		loggedInAs(alice)(c)
		c.SaveAllUsers([]models.User{alice, bob})
	})
	h.server.down.Store(true)
	ctx := context.Background()

	res, err := h.app.FollowUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, optimistic.LocalOnly, res.Outcome)
	assert.True(t, h.app.IsFollowing(bob.ID))
	assert.Equal(t, []int64{bob.ID}, h.cache.LoadFollowing(alice.ID))
	assert.Equal(t, []int64{alice.ID}, h.cache.LoadFollowers(bob.ID))
	assert.Equal(t, 1, h.app.CurrentUser().FollowingCount)
	assert.Equal(t, 1, h.app.AllUsers()[1].FollowersCount)

	_, err = h.app.FollowUser(ctx, bob.ID)
	assert.ErrorIs(t, err, models.ErrAlreadyFollowing)

	_, err = h.app.UnfollowUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.False(t, h.app.IsFollowing(bob.ID))
	assert.Empty(t, h.cache.LoadFollowing(alice.ID))
	assert.Empty(t, h.cache.LoadFollowers(bob.ID))
	assert.Equal(t, 0, h.app.CurrentUser().FollowingCount)
	assert.Equal(t, 0, h.app.AllUsers()[1].FollowersCount)
}

func TestFollowPrechecks(t *testing.T) {
	h := newHarness(t, loggedInAs(alice))

	_, err := h.app.FollowUser(context.Background(), alice.ID)
	assert.ErrorIs(t, err, models.ErrCannotFollowSelf)

	_, err = h.app.UnfollowUser(context.Background(), bob.ID)
	assert.ErrorIs(t, err, models.ErrNotFollowing)
}

func TestFollowRejectedByServerLeavesGraph(t *testing.T) {
	h := newHarness(t, loggedInAs(alice))
	h.server.handleStatus("POST /users/2/follow/", http.StatusBadRequest, `{"detail": "You cannot follow this user."}`)

	res, err := h.app.FollowUser(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Equal(t, optimistic.Rejected, res.Outcome)
	assert.Empty(t, h.cache.LoadFollowing(alice.ID))
}

func TestSyncFollowGraphPatchesCounts(t *testing.T) {
	h := newHarness(t, func(c *storage.Cache) {
		u := alice
		u.FollowingCount = 9
		loggedInAs(u)(c)
		c.FollowUser(alice.ID, bob.ID)
		c.FollowUser(carol.ID, alice.ID)
	})

	h.app.SyncFollowGraph()
	u := h.app.CurrentUser()
	assert.Equal(t, 1, u.FollowingCount)
	assert.Equal(t, 1, u.FollowersCount)
	assert.Equal(t, 1, h.cache.LoadUser().FollowingCount)
}

func TestSearchUsersLocalFallback(t *testing.T) {
	h := newHarness(t, func(c *storage.Cache) {
		loggedInAs(alice)(c)
		c.SaveAllUsers([]models.User{alice, bob, carol})
		c.FollowUser(alice.ID, bob.ID)
	})
	h.server.down.Store(true)

	users, res := h.app.SearchUsers(context.Background(), "BUILD")
	assert.Equal(t, optimistic.LocalOnly, res.Outcome)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)
	assert.Equal(t, 1, users[0].FollowersCount)
	assert.Contains(t, h.app.Notice(), "local data")
}

func TestRestoreUnauthorizedClearsSession(t *testing.T) {
	h := newHarness(t, loggedInAs(alice))
	h.server.handleStatus("GET /users/me/", http.StatusUnauthorized, `{"detail": "Token is invalid"}`)
	h.server.handleStatus("POST /auth/token/refresh/", http.StatusUnauthorized, `{"detail": "Token is invalid"}`)

	err := h.app.Restore(context.Background())
	require.Error(t, err)
	assert.Nil(t, h.app.CurrentUser())
	assert.Empty(t, h.cache.AccessToken())
	assert.Empty(t, h.cache.RefreshToken())
}

func TestRestoreOfflineKeepsCachedUser(t *testing.T) {
	h := newHarness(t, loggedInAs(alice))
	h.server.Close()

	require.NoError(t, h.app.Restore(context.Background()))
	require.NotNil(t, h.app.CurrentUser())
	assert.Equal(t, "alice", h.app.CurrentUser().Username)
	assert.Equal(t, OfflineNotice, h.app.Notice())
	assert.Equal(t, "access-token", h.cache.AccessToken())
}

func TestRestoreRefreshesUser(t *testing.T) {
	h := newHarness(t, loggedInAs(alice))
	h.server.handle("GET /users/me/", `{"id": 1, "username": "alice", "bio": "updated"}`)

	require.NoError(t, h.app.Restore(context.Background()))
	assert.Equal(t, "updated", h.app.CurrentUser().Bio)
	assert.Equal(t, "updated", h.cache.LoadUser().Bio)
}

func TestLogoutClearsEverythingEvenOnServerError(t *testing.T) {
	h := newHarness(t, loggedInAs(alice, post(10, alice, 0)))
	h.server.handleStatus("POST /auth/logout/", http.StatusInternalServerError, ``)

	h.app.Logout(context.Background())

	assert.Nil(t, h.app.CurrentUser())
	assert.Empty(t, h.app.Posts())
	assert.Empty(t, h.cache.AccessToken())
	assert.Empty(t, h.cache.RefreshToken())
	assert.False(t, h.cache.HasStoredData())
}

func TestLoginAdoptsUser(t *testing.T) {
	h := newHarness(t, nil)
	h.server.handle("POST /auth/login/", `{"user": {"id": 1, "username": "alice"}, "tokens": {"access": "a", "refresh": "r"}}`)

	u, err := h.app.Login(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "alice", h.cache.LoadUser().Username)
	assert.Equal(t, state.Synced, h.app.Status("login").Phase)
}

func TestLoadInitialDataFallsBackToSeed(t *testing.T) {
	h := newHarness(t, nil)
	h.server.down.Store(true)

	err := h.app.LoadInitialData(context.Background())
	require.Error(t, err)

	assert.Len(t, h.app.Posts(), len(models.DefaultPosts()))
	assert.Len(t, h.app.AllUsers(), len(models.DefaultUsers()))
	assert.Len(t, h.app.Notifications(), len(models.DefaultNotifications()))
	assert.NotEmpty(t, h.app.Notice())
}

func TestLoadInitialDataPrefersCache(t *testing.T) {
	h := newHarness(t, loggedInAs(alice, post(10, bob, 0), models.Post{Content: "no id"}))
	h.server.down.Store(true)

	_ = h.app.LoadInitialData(context.Background())
	posts := h.app.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, int64(10), posts[0].ID)
}

func TestMarkAllReadNoopWhenNothingUnread(t *testing.T) {
	h := newHarness(t, func(c *storage.Cache) {
		loggedInAs(alice)(c)
		c.SaveNotifications([]models.Notification{{ID: 1, IsRead: true}})
	})

	res := h.app.MarkAllNotificationsRead(context.Background())
	assert.Equal(t, optimistic.Synced, res.Outcome)
	assert.Equal(t, state.Idle, h.app.Status("markAllRead").Phase)
}

func TestMarkNotificationReadOffline(t *testing.T) {
	h := newHarness(t, func(c *storage.Cache) {
		loggedInAs(alice)(c)
		c.SaveNotifications([]models.Notification{{ID: 1}, {ID: 2}})
	})
	h.server.down.Store(true)

	res := h.app.MarkNotificationRead(context.Background(), 2)
	assert.Equal(t, optimistic.LocalOnly, res.Outcome)
	n := h.app.Notifications()
	assert.False(t, n[0].IsRead)
	assert.True(t, n[1].IsRead)

	count, fromServer := h.app.UnreadCount(context.Background())
	assert.False(t, fromServer)
	assert.Equal(t, 1, count)
}

func TestUpdateProfileMergesServerUser(t *testing.T) {
	h := newHarness(t, loggedInAs(alice, post(10, alice, 0)))
	h.server.handle("PUT /users/me/update/", `{"id": 1, "username": "alice", "bio": "server bio", "location": "Berlin"}`)

	res, err := h.app.UpdateProfile(context.Background(), models.ProfileUpdate{Bio: "server bio"})
	require.NoError(t, err)
	assert.Equal(t, optimistic.Synced, res.Outcome)

	u := h.app.CurrentUser()
	assert.Equal(t, "server bio", u.Bio)
	assert.Equal(t, "Berlin", u.Location)
	assert.Equal(t, "alice@example.com", u.Email, "empty server fields keep local values")

	p, _ := h.app.Post(10)
	assert.Equal(t, "Berlin", p.Author.Location)
}

func TestUploadAvatarValidation(t *testing.T) {
	h := newHarness(t, loggedInAs(alice))

	_, err := h.app.UploadAvatar(context.Background(), "notes.txt", []byte("plain text"))
	assert.ErrorIs(t, err, ErrInvalidImage)

	big := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, MaxAvatarBytes)...)
	_, err = h.app.UploadAvatar(context.Background(), "big.png", big)
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestUploadAvatarKeptLocallyWhenServerFails(t *testing.T) {
	h := newHarness(t, loggedInAs(alice))
	h.server.handleStatus("POST /users/me/avatar/", http.StatusBadRequest, `{"avatar": ["Upload a valid image."]}`)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	res, err := h.app.UploadAvatar(context.Background(), "me.png", png)
	require.NoError(t, err)
	assert.Equal(t, optimistic.LocalOnly, res.Outcome)

	u := h.app.CurrentUser()
	assert.True(t, strings.HasPrefix(u.AvatarURL, "data:image/png;base64,"))
	assert.Equal(t, u.AvatarURL, h.cache.LoadUser().AvatarURL)
}

func TestViewProfileOffline(t *testing.T) {
	h := newHarness(t, func(c *storage.Cache) {
		loggedInAs(alice, post(10, bob, 0), post(11, alice, 0))(c)
		c.SaveAllUsers([]models.User{alice, bob})
	})
	h.server.down.Store(true)

	p, res, err := h.app.ViewProfile(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Equal(t, optimistic.LocalOnly, res.Outcome)
	assert.Equal(t, "bob", p.User.Username)
	require.Len(t, p.Posts, 1)
	assert.Equal(t, int64(10), p.Posts[0].ID)

	_, _, err = h.app.ViewProfile(context.Background(), 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRestoreKeepsSessionWhenRefreshFails(t *testing.T) {
	h := newHarness(t, loggedInAs(alice))
	h.server.handleStatus("GET /users/me/", http.StatusUnauthorized, `{"detail": "Token is expired"}`)
	h.server.handleStatus("POST /auth/token/refresh/", http.StatusBadGateway, ``)

	require.NoError(t, h.app.Restore(context.Background()))
	require.NotNil(t, h.app.CurrentUser())
	assert.Equal(t, "alice", h.app.CurrentUser().Username)
	assert.Equal(t, "access-token", h.cache.AccessToken())
	assert.Equal(t, "refresh-token", h.cache.RefreshToken())
	assert.Equal(t, OfflineNotice, h.app.Notice())
}

func TestMarkAllReadUsesServerUnreadCount(t *testing.T) {
	h := newHarness(t, func(c *storage.Cache) {
		loggedInAs(alice)(c)
		c.SaveNotifications([]models.Notification{{ID: 1, IsRead: true}})
	})
	var hits atomic.Int32
	h.server.handle("GET /notifications/unread-count/", `{"unread_count": 2}`)
	h.server.mux.HandleFunc("POST /notifications/mark-all-read/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	res := h.app.MarkAllNotificationsRead(context.Background())
	assert.Equal(t, optimistic.Synced, res.Outcome)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, state.Synced, h.app.Status("markAllRead").Phase)
}

func TestOfflinePostsInSameMillisecondGetDistinctIDs(t *testing.T) {
	h := newHarness(t, loggedInAs(alice))
	h.server.down.Store(true)
	ctx := context.Background()

	_, err := h.app.CreatePost(ctx, "first", "")
	require.NoError(t, err)
	_, err = h.app.CreatePost(ctx, "second", "")
	require.NoError(t, err)

	posts := h.app.Posts()
	require.Len(t, posts, 2)
	assert.NotEqual(t, posts[0].ID, posts[1].ID)
	assert.Equal(t, "second", posts[0].Content)
	assert.Len(t, h.cache.LoadUserCreatedPosts(), 2)

	require.NoError(t, func() error { _, err := h.app.DeletePost(ctx, posts[0].ID); return err }())
	remaining := h.app.Posts()
	require.Len(t, remaining, 1)
	assert.Equal(t, "first", remaining[0].Content)
}

func TestOfflineCommentsInSameMillisecondGetDistinctIDs(t *testing.T) {
	h := newHarness(t, loggedInAs(alice, post(10, bob, 0), post(11, bob, 0)))
	h.server.down.Store(true)
	ctx := context.Background()

	for _, id := range []int64{10, 10, 11} {
		_, err := h.app.AddComment(ctx, id, "nice")
		require.NoError(t, err)
	}

	seen := map[int64]bool{}
	for _, id := range []int64{10, 11} {
		for _, c := range h.app.Comments(id) {
			assert.False(t, seen[c.ID], "duplicate comment id %d", c.ID)
			seen[c.ID] = true
		}
	}
	assert.Len(t, seen, 3)
}

func TestUniqueLocalID(t *testing.T) {
	assert.Equal(t, int64(5), uniqueLocalID(5, nil))
	assert.Equal(t, int64(5), uniqueLocalID(5, []int64{1, 2}))
	assert.Equal(t, int64(10), uniqueLocalID(5, []int64{5, 9, 3}))
}

func TestLocalFallbackAfterLogoutDropsWrite(t *testing.T) {
	h := newHarness(t, loggedInAs(alice, post(10, bob, 0)))
	h.server.mux.HandleFunc("POST /posts/10/comments/", func(w http.ResponseWriter, r *http.Request) {
		h.app.mu.Lock()
		h.app.user = nil
		h.app.mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	assert.NotPanics(t, func() {
		_, _ = h.app.AddComment(context.Background(), 10, "nice")
	})
	assert.Empty(t, h.app.Comments(10))
}

func TestNullCommentsEntryStillAcceptsComments(t *testing.T) {
	h := newHarness(t, func(c *storage.Cache) {
		loggedInAs(alice, post(10, bob, 0))(c)
		c.SaveComments(nil)
	})
	h.server.down.Store(true)

	assert.NotPanics(t, func() {
		_, err := h.app.AddComment(context.Background(), 10, "nice")
		require.NoError(t, err)
	})
	assert.Len(t, h.app.Comments(10), 1)
}

func TestLoadFollowingReplacesCachedEdges(t *testing.T) {
	h := newHarness(t, func(c *storage.Cache) {
		loggedInAs(alice)(c)
		c.FollowUser(alice.ID, carol.ID)
	})
	h.server.handle("GET /users/1/following/", `{"results": [{"id": 2, "username": "bob"}]}`)

	users, res := h.app.LoadFollowing(context.Background(), alice.ID)
	assert.Equal(t, optimistic.Synced, res.Outcome)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)
	assert.Equal(t, []int64{bob.ID}, h.app.Following())
	assert.Empty(t, h.cache.LoadFollowers(carol.ID))
	assert.Equal(t, []int64{alice.ID}, h.cache.LoadFollowers(bob.ID))
	assert.Equal(t, 1, h.app.CurrentUser().FollowingCount)
}

func TestLoadFollowersOffline(t *testing.T) {
	h := newHarness(t, func(c *storage.Cache) {
		loggedInAs(alice)(c)
		c.SaveAllUsers([]models.User{alice, bob})
		c.FollowUser(bob.ID, alice.ID)
		c.FollowUser(carol.ID, alice.ID)
	})
	h.server.down.Store(true)

	users, res := h.app.LoadFollowers(context.Background(), alice.ID)
	assert.Equal(t, optimistic.LocalOnly, res.Outcome)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[0].Username)
	assert.Equal(t, carol.ID, users[1].ID)
	assert.Empty(t, users[1].Username)
	assert.Contains(t, h.app.Notice(), "cached connections")
}

func TestLoadFollowersSynced(t *testing.T) {
	h := newHarness(t, loggedInAs(alice))
	h.server.handle("GET /users/1/followers/", `{"results": [{"id": 3, "username": "carol"}]}`)

	_, res := h.app.LoadFollowers(context.Background(), alice.ID)
	assert.Equal(t, optimistic.Synced, res.Outcome)
	assert.Equal(t, []int64{carol.ID}, h.app.Followers())
	assert.Equal(t, []int64{alice.ID}, h.cache.LoadFollowing(carol.ID))
}

func TestLoadPostMergesLikeStatus(t *testing.T) {
	h := newHarness(t, loggedInAs(alice, post(10, bob, 0)))
	h.server.handle("GET /posts/10/", `{"id": 10, "content": "fresh", "author": {"id": 2, "username": "bob"}, "like_count": 1}`)
	h.server.handle("GET /posts/10/like-status/", `{"is_liked": true, "like_count": 4}`)

	p, res, err := h.app.LoadPost(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, optimistic.Synced, res.Outcome)
	assert.Equal(t, "fresh", p.Content)
	assert.True(t, p.IsLikedByUser)
	assert.Equal(t, 4, p.LikeCount)

	held, _ := h.app.Post(10)
	assert.Equal(t, "fresh", held.Content)
}

func TestLoadPostOffline(t *testing.T) {
	h := newHarness(t, loggedInAs(alice, post(10, bob, 2)))
	h.server.down.Store(true)

	p, res, err := h.app.LoadPost(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, optimistic.LocalOnly, res.Outcome)
	assert.Equal(t, 2, p.LikeCount)

	_, _, err = h.app.LoadPost(context.Background(), 99)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestEditPostOwnershipAndValidation(t *testing.T) {
	h := newHarness(t, loggedInAs(alice, post(10, bob, 0), post(11, alice, 0)))

	_, err := h.app.EditPost(context.Background(), 10, "mine now")
	assert.ErrorIs(t, err, ErrEditDenied)

	_, err = h.app.EditPost(context.Background(), 99, "gone")
	assert.ErrorIs(t, err, ErrPostNotFound)

	_, err = h.app.EditPost(context.Background(), 11, "  ")
	assert.ErrorIs(t, err, models.ErrEmptyContent)
}

func TestEditPostSynced(t *testing.T) {
	h := newHarness(t, loggedInAs(alice, post(11, alice, 0)))
	h.server.handle("PUT /posts/11/update/", `{"id": 11, "content": "edited", "author": {"id": 1, "username": "alice"}}`)

	res, err := h.app.EditPost(context.Background(), 11, " edited ")
	require.NoError(t, err)
	assert.Equal(t, optimistic.Synced, res.Outcome)
	p, _ := h.app.Post(11)
	assert.Equal(t, "edited", p.Content)
	assert.Equal(t, "edited", h.cache.LoadPosts()[0].Content)
}

func TestEditPostOffline(t *testing.T) {
	h := newHarness(t, loggedInAs(alice))
	h.server.down.Store(true)
	ctx := context.Background()

	_, err := h.app.CreatePost(ctx, "draft", "")
	require.NoError(t, err)
	id := h.app.Posts()[0].ID

	res, err := h.app.EditPost(ctx, id, "final")
	require.NoError(t, err)
	assert.Equal(t, optimistic.LocalOnly, res.Outcome)
	p, _ := h.app.Post(id)
	assert.Equal(t, "final", p.Content)
	assert.Equal(t, fixedNow, p.UpdatedAt)
	assert.Equal(t, "final", h.cache.LoadUserCreatedPosts()[0].Content)
}
