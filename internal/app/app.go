// ABOUTME: Interaction layer holding the client's in-memory SocialConnect state.
// ABOUTME: Every mutation goes through the optimistic helper and is written through to the cache.
package app

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/2389-research/connect/internal/api"
	"github.com/2389-research/connect/internal/auth"
	"github.com/2389-research/connect/internal/logging"
	"github.com/2389-research/connect/internal/models"
	"github.com/2389-research/connect/internal/state"
	"github.com/2389-research/connect/internal/storage"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated, please log in")
	ErrPermissionDenied = errors.New("you can only delete your own posts")
	ErrEditDenied       = errors.New("you can only edit your own posts")
	ErrPostNotFound     = errors.New("post not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidImage     = errors.New("please select an image file")
	ErrImageTooLarge    = errors.New("file size should be less than 5MB")
	ErrMissingPostID    = errors.New("post created but missing ID in response, refresh to see your post")
)

// MaxAvatarBytes is the largest avatar accepted for upload.
const MaxAvatarBytes = 5 * 1024 * 1024

// App is the state holder CLI commands and MCP tools call into.
type App struct {
	client  *api.Client
	session *auth.Session
	cache   *storage.Cache
	store   *state.Store
	now     func() time.Time
	log     *logrus.Entry

	mu            sync.Mutex
	user          *models.User
	posts         []models.Post
	comments      map[int64][]models.Comment
	notifications []models.Notification
	following     []int64
	followers     []int64
	allUsers      []models.User
	searchResults []models.User
}

// Option configures an App.
type Option func(*App)

// WithClock replaces time.Now, for deterministic local ids in tests.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithLogger replaces the app's logger.
func WithLogger(l *logrus.Entry) Option {
	return func(a *App) { a.log = l }
}

// WithStore shares an existing status store.
func WithStore(s *state.Store) Option {
	return func(a *App) { a.store = s }
}

// New builds an App and hydrates it from the cache.
func New(client *api.Client, session *auth.Session, cache *storage.Cache, opts ...Option) *App {
	a := &App{
		client:   client,
		session:  session,
		cache:    cache,
		store:    state.NewStore(),
		now:      time.Now,
		log:      logging.Log.WithField("component", "app"),
		comments: make(map[int64][]models.Comment),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.hydrate()
	return a
}

// hydrate loads the last known state from the cache.
func (a *App) hydrate() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.user = a.cache.LoadUser()
	a.posts = a.cache.LoadPosts()
	a.comments = a.cache.LoadComments()
	if a.comments == nil {
		a.comments = make(map[int64][]models.Comment)
	}
	a.notifications = a.cache.LoadNotifications()
	a.allUsers = a.cache.LoadAllUsers()
	if a.user != nil {
		a.following = a.cache.LoadFollowing(a.user.ID)
		a.followers = a.cache.LoadFollowers(a.user.ID)
	}
}

// Store exposes the operation status container.
func (a *App) Store() *state.Store { return a.store }

// Client exposes the API client, for the admin dashboard.
func (a *App) Client() *api.Client { return a.client }

// Session exposes the auth session.
func (a *App) Session() *auth.Session { return a.session }

// Notice returns the global offline banner, or "".
func (a *App) Notice() string { return a.store.Notice() }

// Status returns the status of an operation key.
func (a *App) Status(key string) state.Status { return a.store.Status(key) }

// CurrentUser returns a copy of the logged-in user, or nil.
func (a *App) CurrentUser() *models.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return nil
	}
	u := *a.user
	return &u
}

// IsAdmin reports whether the session carries an admin claim.
func (a *App) IsAdmin() bool {
	return auth.IsAdmin(a.CurrentUser(), a.session.AccessToken())
}

// Posts returns a copy of the feed.
func (a *App) Posts() []models.Post {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.posts)
}

// Post returns one post from the feed.
func (a *App) Post(id int64) (models.Post, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := a.postIndex(id)
	if i < 0 {
		return models.Post{}, false
	}
	return a.posts[i], true
}

// ListPosts filters and paginates the feed.
func (a *App) ListPosts(opts storage.ListPostsOptions) []models.Post {
	return storage.FilterPosts(a.Posts(), opts)
}

// Comments returns a copy of a post's comments.
func (a *App) Comments(postID int64) []models.Comment {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.comments[postID])
}

// Notifications returns a copy of the notification list.
func (a *App) Notifications() []models.Notification {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.notifications)
}

// Following returns the ids the current user follows.
func (a *App) Following() []int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.following)
}

// Followers returns the ids following the current user.
func (a *App) Followers() []int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.followers)
}

// IsFollowing reports whether the current user follows id.
func (a *App) IsFollowing(id int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Contains(a.following, id)
}

// AllUsers returns a copy of the user directory.
func (a *App) AllUsers() []models.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.allUsers)
}

// SearchResults returns the last search results.
func (a *App) SearchResults() []models.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.searchResults)
}

// setUserLocked replaces the current user and writes it through. Caller holds a.mu.
func (a *App) setUserLocked(u *models.User) {
	a.user = u
	a.cache.SaveUser(u)
}

func (a *App) setPostsLocked(posts []models.Post) {
	a.posts = posts
	a.cache.SavePosts(posts)
}

func (a *App) setNotificationsLocked(n []models.Notification) {
	a.notifications = n
	a.cache.SaveNotifications(n)
}

func (a *App) setAllUsersLocked(users []models.User) {
	a.allUsers = users
	a.cache.SaveAllUsers(users)
}

func (a *App) postIndex(id int64) int {
	return slices.IndexFunc(a.posts, func(p models.Post) bool { return p.ID == id })
}

// syncPostAuthorsLocked refreshes the embedded author on the current user's posts.
func (a *App) syncPostAuthorsLocked() {
	if a.user == nil {
		return
	}
	changed := false
	for i := range a.posts {
		if a.posts[i].Author.ID == a.user.ID {
			a.posts[i].Author = *a.user
			changed = true
		}
	}
	if changed {
		a.cache.SavePosts(a.posts)
	}
}

// uniqueLocalID returns base unless it is already taken, in which case it
// returns one past the largest taken id.
func uniqueLocalID(base int64, taken []int64) int64 {
	if !slices.Contains(taken, base) {
		return base
	}
	return slices.Max(taken) + 1
}

// requireUser returns the current user or ErrNotAuthenticated.
func (a *App) requireUser() (models.User, error) {
	u := a.CurrentUser()
	if u == nil || !a.session.IsAuthenticated() {
		return models.User{}, ErrNotAuthenticated
	}
	return *u, nil
}

// hasUser is a fallback guard: local entities need an author.
func (a *App) hasUser(err error) bool {
	return api.IsUnavailable(err) && a.CurrentUser() != nil
}
