// ABOUTME: Demo seed data used when neither the server nor the cache has content.
// ABOUTME: Returns fresh copies on every call so callers may mutate them freely.
package models

import "time"

func seedTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func avatar(name, bg string) string {
	return "https://ui-avatars.com/api/?name=" + name + "&background=" + bg + "&color=fff"
}

// DefaultUsers returns the demo user directory.
func DefaultUsers() []User {
	return []User{
		{ID: 2, Username: "socialconnect", Email: "hello@socialconnect.com", FirstName: "Social", LastName: "Connect", FullName: "Social Connect", Bio: "Official SocialConnect account", AvatarURL: avatar("Social+Connect", "3b82f6"), PrivacySetting: PrivacyPublic, PostsCount: 50, CreatedAt: seedTime("2025-08-28T10:00:00Z"), IsVerified: true},
		{ID: 3, Username: "coffeelov3r", Email: "coffee@example.com", FirstName: "Jane", LastName: "Smith", FullName: "Jane Smith", Bio: "Coffee enthusiast & morning person", AvatarURL: avatar("Jane+Smith", "10b981"), PrivacySetting: PrivacyPublic, PostsCount: 75, CreatedAt: seedTime("2025-08-20T12:00:00Z")},
		{ID: 4, Username: "bookworm92", Email: "books@example.com", FirstName: "Alex", LastName: "Johnson", FullName: "Alex Johnson", Bio: "Avid reader & book reviewer", AvatarURL: avatar("Alex+Johnson", "f59e0b"), PrivacySetting: PrivacyPublic, PostsCount: 120, CreatedAt: seedTime("2025-08-15T09:00:00Z")},
		{ID: 5, Username: "techie_dev", Email: "dev@example.com", FirstName: "Sam", LastName: "Wilson", FullName: "Sam Wilson", Bio: "Full-stack developer & tech enthusiast", AvatarURL: avatar("Sam+Wilson", "8b5cf6"), PrivacySetting: PrivacyPublic, PostsCount: 200, CreatedAt: seedTime("2025-08-10T14:00:00Z"), IsVerified: true},
		{ID: 6, Username: "artist_soul", Email: "art@example.com", FirstName: "Maya", LastName: "Patel", FullName: "Maya Patel", Bio: "Digital artist & creative designer", AvatarURL: avatar("Maya+Patel", "ec4899"), PrivacySetting: PrivacyPublic, PostsCount: 180, CreatedAt: seedTime("2025-08-05T16:00:00Z")},
		{ID: 7, Username: "fitness_guru", Email: "fitness@example.com", FirstName: "Mike", LastName: "Rodriguez", FullName: "Mike Rodriguez", Bio: "Personal trainer & fitness enthusiast", AvatarURL: avatar("Mike+Rodriguez", "059669"), PrivacySetting: PrivacyPublic, PostsCount: 95, CreatedAt: seedTime("2025-07-28T11:00:00Z")},
	}
}

// seedUser returns the demo user with the given id and overridden counters.
func seedUser(id int64, followers, following int) *User {
	for _, u := range DefaultUsers() {
		if u.ID == id {
			u.FollowersCount = followers
			u.FollowingCount = following
			return &u
		}
	}
	return nil
}

// DefaultPosts returns the demo welcome feed.
func DefaultPosts() []Post {
	return []Post{
		{
			ID:           1,
			Content:      "Welcome to SocialConnect! This is your first post in the feed. Connect with friends and share your thoughts!",
			Author:       *seedUser(2, 1000, 100),
			CreatedAt:    seedTime("2025-08-29T08:00:00Z"),
			UpdatedAt:    seedTime("2025-08-29T08:00:00Z"),
			LikeCount:    25,
			CommentCount: 5,
			IsActive:     true,
			Category:     CategoryAnnouncement,
		},
	}
}

// DefaultNotifications returns the demo notification list.
func DefaultNotifications() []Notification {
	post1, post2 := int64(1), int64(2)
	return []Notification{
		{ID: 1, Sender: seedUser(3, 150, 200), NotificationType: NotificationLike, Post: &post2, Message: "Jane Smith liked your post", CreatedAt: seedTime("2025-08-29T08:15:00Z")},
		{ID: 2, Sender: seedUser(4, 300, 250), NotificationType: NotificationFollow, Message: "Alex Johnson started following you", CreatedAt: seedTime("2025-08-29T07:45:00Z")},
		{ID: 3, Sender: seedUser(5, 450, 320), NotificationType: NotificationComment, Post: &post1, Message: "Sam Wilson commented on your post", IsRead: true, CreatedAt: seedTime("2025-08-29T06:30:00Z")},
	}
}
