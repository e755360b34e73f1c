// ABOUTME: Persistent cache of SocialConnect entities and auth tokens over a KV store.
// ABOUTME: Loads never fail (missing or corrupt data yields defaults); a missing store turns every op into a no-op.
package storage

import (
	"bytes"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/2389-research/connect/internal/logging"
	"github.com/2389-research/connect/internal/models"
)

// Namespaced cache keys.
const (
	KeyPosts         = "socialconnect_posts"
	KeyComments      = "socialconnect_comments"
	KeyNotifications = "socialconnect_notifications"
	KeyUserPosts     = "socialconnect_user_posts"
	KeyUserData      = "socialconnect_user_data"
	KeyFollowing     = "socialconnect_following"
	KeyFollowers     = "socialconnect_followers"
	KeyAllUsers      = "socialconnect_all_users"

	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// namespacedKeys are the keys removed by ClearAll.
var namespacedKeys = []string{
	KeyPosts,
	KeyComments,
	KeyNotifications,
	KeyUserPosts,
	KeyUserData,
	KeyFollowing,
	KeyFollowers,
	KeyAllUsers,
}

// FollowGraph maps a user id to an ordered list of user ids.
type FollowGraph map[int64][]int64

// Cache is the write-through store for client state.
type Cache struct {
	kv  KV
	log *logrus.Entry
}

// NewCache wraps kv. A nil kv yields a cache whose operations are logged no-ops.
func NewCache(kv KV) *Cache {
	return &Cache{kv: kv, log: logging.Log.WithField("component", "cache")}
}

// WithLogger replaces the cache's logger.
func (c *Cache) WithLogger(l *logrus.Entry) *Cache {
	c.log = l
	return c
}

// Available reports whether a backing store is configured.
func (c *Cache) Available() bool {
	return c != nil && c.kv != nil
}

// Close releases the backing store.
func (c *Cache) Close() error {
	if !c.Available() {
		return nil
	}
	return c.kv.Close()
}

// load decodes key into a value of type T, returning def on any failure.
func load[T any](c *Cache, key string, def T) T {
	if !c.Available() {
		c.log.WithField("key", key).Debug("cache unavailable, returning default")
		return def
	}
	data, ok, err := c.kv.Get(key)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache read failed")
		return def
	}
	if !ok || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return def
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache entry corrupt, ignoring")
		return def
	}
	return v
}

func (c *Cache) save(key string, v any) {
	if !c.Available() {
		c.log.WithField("key", key).Debug("cache unavailable, dropping write")
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache encode failed")
		return
	}
	if err := c.kv.Set(key, data); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

func (c *Cache) SavePosts(posts []models.Post) { c.save(KeyPosts, posts) }

func (c *Cache) LoadPosts() []models.Post {
	return load(c, KeyPosts, []models.Post{})
}

func (c *Cache) SaveComments(comments map[int64][]models.Comment) { c.save(KeyComments, comments) }

func (c *Cache) LoadComments() map[int64][]models.Comment {
	return load(c, KeyComments, map[int64][]models.Comment{})
}

func (c *Cache) SaveNotifications(n []models.Notification) { c.save(KeyNotifications, n) }

func (c *Cache) LoadNotifications() []models.Notification {
	return load(c, KeyNotifications, []models.Notification{})
}

// SaveUser stores the current user. A nil user removes the entry.
func (c *Cache) SaveUser(u *models.User) {
	if u == nil {
		c.delete(KeyUserData)
		return
	}
	c.save(KeyUserData, u)
}

// LoadUser returns the cached current user, or nil.
func (c *Cache) LoadUser() *models.User {
	return load[*models.User](c, KeyUserData, nil)
}

func (c *Cache) SaveUserCreatedPosts(posts []models.Post) { c.save(KeyUserPosts, posts) }

func (c *Cache) LoadUserCreatedPosts() []models.Post {
	return load(c, KeyUserPosts, []models.Post{})
}

func (c *Cache) SaveAllUsers(users []models.User) { c.save(KeyAllUsers, users) }

func (c *Cache) LoadAllUsers() []models.User {
	return load(c, KeyAllUsers, []models.User{})
}

func (c *Cache) SaveFollowing(g FollowGraph) { c.save(KeyFollowing, g) }
func (c *Cache) SaveFollowers(g FollowGraph) { c.save(KeyFollowers, g) }

func (c *Cache) LoadAllFollowing() FollowGraph {
	return load(c, KeyFollowing, FollowGraph{})
}

func (c *Cache) LoadAllFollowers() FollowGraph {
	return load(c, KeyFollowers, FollowGraph{})
}

// LoadFollowing returns the ids userID follows; empty for unknown users.
func (c *Cache) LoadFollowing(userID int64) []int64 {
	return nonNil(c.LoadAllFollowing()[userID])
}

// LoadFollowers returns the ids following userID; empty for unknown users.
func (c *Cache) LoadFollowers(userID int64) []int64 {
	return nonNil(c.LoadAllFollowers()[userID])
}

// IsFollowing reports whether follower follows followee per the cached graph.
func (c *Cache) IsFollowing(followerID, followeeID int64) bool {
	return contains(c.LoadFollowing(followerID), followeeID)
}

// FollowUser records follower → followee on both sides of the graph in one
// atomic update. Already-present edges are left alone. Returns false only when
// the store is unavailable or the write failed.
func (c *Cache) FollowUser(followerID, followeeID int64) bool {
	return c.updateGraph("follow", func(following, followers FollowGraph) {
		if !contains(following[followerID], followeeID) {
			following[followerID] = append(following[followerID], followeeID)
		}
		if !contains(followers[followeeID], followerID) {
			followers[followeeID] = append(followers[followeeID], followerID)
		}
	})
}

// UnfollowUser removes follower → followee from both sides of the graph.
// Missing edges are a no-op.
func (c *Cache) UnfollowUser(followerID, followeeID int64) bool {
	return c.updateGraph("unfollow", func(following, followers FollowGraph) {
		following.remove(followerID, followeeID)
		followers.remove(followeeID, followerID)
	})
}

// ReplaceFollowing sets the full list of ids userID follows. The followers
// side is updated in the same write so both maps stay consistent.
func (c *Cache) ReplaceFollowing(userID int64, ids []int64) bool {
	return c.updateGraph("replace_following", func(following, followers FollowGraph) {
		replaceEdges(following, followers, userID, ids)
	})
}

// ReplaceFollowers sets the full list of ids following userID.
func (c *Cache) ReplaceFollowers(userID int64, ids []int64) bool {
	return c.updateGraph("replace_followers", func(following, followers FollowGraph) {
		replaceEdges(followers, following, userID, ids)
	})
}

// replaceEdges makes side[owner] exactly ids and mirrors the change in inverse.
func replaceEdges(side, inverse FollowGraph, owner int64, ids []int64) {
	for _, old := range side[owner] {
		inverse.remove(old, owner)
	}
	delete(side, owner)
	for _, id := range ids {
		if !contains(side[owner], id) {
			side[owner] = append(side[owner], id)
		}
		if !contains(inverse[id], owner) {
			inverse[id] = append(inverse[id], owner)
		}
	}
}

func (c *Cache) updateGraph(op string, mutate func(following, followers FollowGraph)) bool {
	if !c.Available() {
		c.log.WithField("op", op).Debug("cache unavailable, follow graph not updated")
		return false
	}

	err := c.kv.Update([]string{KeyFollowing, KeyFollowers}, func(cur map[string][]byte) (map[string][]byte, error) {
		following := decodeGraph(cur[KeyFollowing])
		followers := decodeGraph(cur[KeyFollowers])

		mutate(following, followers)

		fData, err := json.Marshal(following)
		if err != nil {
			return nil, err
		}
		rData, err := json.Marshal(followers)
		if err != nil {
			return nil, err
		}
		return map[string][]byte{KeyFollowing: fData, KeyFollowers: rData}, nil
	})
	if err != nil {
		c.log.WithError(err).WithField("op", op).Warn("follow graph update failed")
		return false
	}
	return true
}

// ClearAll removes every namespaced key. Tokens are managed separately.
func (c *Cache) ClearAll() {
	c.delete(namespacedKeys...)
}

// HasStoredData reports whether a posts snapshot exists.
func (c *Cache) HasStoredData() bool {
	if !c.Available() {
		return false
	}
	_, ok, err := c.kv.Get(KeyPosts)
	return err == nil && ok
}

// AccessToken returns the stored access token, or "".
func (c *Cache) AccessToken() string { return c.getString(KeyAccessToken) }

// RefreshToken returns the stored refresh token, or "".
func (c *Cache) RefreshToken() string { return c.getString(KeyRefreshToken) }

// SetTokens stores both tokens.
func (c *Cache) SetTokens(access, refresh string) {
	c.setString(KeyAccessToken, access)
	c.setString(KeyRefreshToken, refresh)
}

// SetAccessToken replaces only the access token.
func (c *Cache) SetAccessToken(access string) {
	c.setString(KeyAccessToken, access)
}

// SetRefreshToken replaces only the refresh token.
func (c *Cache) SetRefreshToken(refresh string) {
	c.setString(KeyRefreshToken, refresh)
}

// ClearTokens removes both tokens.
func (c *Cache) ClearTokens() {
	c.delete(KeyAccessToken, KeyRefreshToken)
}

func (c *Cache) getString(key string) string {
	if !c.Available() {
		return ""
	}
	v, ok, err := c.kv.Get(key)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache read failed")
		return ""
	}
	if !ok {
		return ""
	}
	return string(v)
}

func (c *Cache) setString(key, value string) {
	if !c.Available() {
		c.log.WithField("key", key).Debug("cache unavailable, dropping write")
		return
	}
	if err := c.kv.Set(key, []byte(value)); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

func (c *Cache) delete(keys ...string) {
	if !c.Available() {
		return
	}
	if err := c.kv.Delete(keys...); err != nil {
		c.log.WithError(err).WithField("keys", keys).Warn("cache delete failed")
	}
}

func decodeGraph(data []byte) FollowGraph {
	g := FollowGraph{}
	if len(data) == 0 {
		return g
	}
	if err := json.Unmarshal(data, &g); err != nil || g == nil {
		return FollowGraph{}
	}
	return g
}

// remove drops id from g[owner], deleting the entry when it empties.
func (g FollowGraph) remove(owner, id int64) {
	ids, ok := g[owner]
	if !ok {
		return
	}
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		delete(g, owner)
		return
	}
	g[owner] = out
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
