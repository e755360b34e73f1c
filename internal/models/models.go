// ABOUTME: Core data models for users, posts, comments, notifications, and tokens.
// ABOUTME: Client-side projections of SocialConnect API resources with JSON mappings.
package models

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxPostLength is the maximum number of characters allowed in a post.
const MaxPostLength = 500

// Privacy is a user's profile visibility setting.
type Privacy string

const (
	PrivacyPublic        Privacy = "public"
	PrivacyPrivate       Privacy = "private"
	PrivacyFollowersOnly Privacy = "followers_only"
)

// Category classifies a post.
type Category string

const (
	CategoryGeneral      Category = "general"
	CategoryAnnouncement Category = "announcement"
	CategoryQuestion     Category = "question"
)

// NotificationType identifies what triggered a notification.
type NotificationType string

const (
	NotificationFollow  NotificationType = "follow"
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationMention NotificationType = "mention"

	// Broadcast types used by admin global notifications.
	NotificationAnnouncement NotificationType = "announcement"
	NotificationSystem       NotificationType = "system"
	NotificationUpdate       NotificationType = "update"
	NotificationWarning      NotificationType = "warning"
	NotificationInfo         NotificationType = "info"
)

// BroadcastTypes lists the notification types accepted for global broadcasts.
var BroadcastTypes = []NotificationType{
	NotificationAnnouncement,
	NotificationSystem,
	NotificationUpdate,
	NotificationWarning,
	NotificationInfo,
}

// IsBroadcastType returns true if t is a valid global broadcast type.
func IsBroadcastType(t NotificationType) bool {
	for _, b := range BroadcastTypes {
		if b == t {
			return true
		}
	}
	return false
}

var (
	ErrEmptyContent     = errors.New("content cannot be empty")
	ErrContentTooLong   = errors.New("content exceeds 500 characters")
	ErrAlreadyFollowing = errors.New("already following this user")
	ErrNotFollowing     = errors.New("not following this user")
	ErrCannotFollowSelf = errors.New("cannot follow yourself")
)

// User is a SocialConnect account.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	FullName       string    `json:"full_name"`
	Bio            string    `json:"bio"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	Website        string    `json:"website,omitempty"`
	Location       string    `json:"location,omitempty"`
	PrivacySetting Privacy   `json:"privacy_setting"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	PostsCount     int       `json:"posts_count"`
	CreatedAt      time.Time `json:"created_at"`
	IsVerified     bool      `json:"is_verified"`
	Role           string    `json:"role,omitempty"`
	IsStaff        bool      `json:"is_staff,omitempty"`
}

// DisplayName returns the full name, falling back to the username.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.FullName) != "" {
		return u.FullName
	}
	return u.Username
}

// Post is a feed entry.
type Post struct {
	ID            int64     `json:"id"`
	Content       string    `json:"content"`
	Author        User      `json:"author"`
	ImageURL      string    `json:"image_url,omitempty"`
	Category      Category  `json:"category"`
	LikeCount     int       `json:"like_count"`
	CommentCount  int       `json:"comment_count"`
	IsActive      bool      `json:"is_active"`
	IsLikedByUser bool      `json:"is_liked_by_user"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewLocalPost synthesizes a post that exists only on this client.
// The id is derived from the creation timestamp and is never reconciled with the server.
func NewLocalPost(author User, content, imageURL string, now time.Time) Post {
	return Post{
		ID:        now.UnixMilli(),
		Content:   content,
		Author:    author,
		ImageURL:  imageURL,
		Category:  CategoryGeneral,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidatePostContent checks the client-side post constraints.
func ValidatePostContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxPostLength {
		return ErrContentTooLong
	}
	return nil
}

// Comment belongs to a post.
type Comment struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Author    User      `json:"author"`
	Post      int64     `json:"post"`
	CreatedAt time.Time `json:"created_at"`
	IsActive  bool      `json:"is_active"`
}

// NewLocalComment synthesizes a comment that exists only on this client.
func NewLocalComment(author User, postID int64, content string, now time.Time) Comment {
	return Comment{
		ID:        now.UnixMilli(),
		Content:   content,
		Author:    author,
		Post:      postID,
		CreatedAt: now,
		IsActive:  true,
	}
}

// Notification informs a user about activity.
type Notification struct {
	ID               int64            `json:"id"`
	Actor            *User            `json:"actor,omitempty"`
	Sender           *User            `json:"sender,omitempty"` // older servers send sender instead of actor
	NotificationType NotificationType `json:"notification_type"`
	Post             *int64           `json:"post,omitempty"`
	TargetObjectID   *int64           `json:"target_object_id,omitempty"`
	ContentType      string           `json:"content_type,omitempty"`
	Message          string           `json:"message"`
	IsRead           bool             `json:"is_read"`
	CreatedAt        time.Time        `json:"created_at"`
}

// From returns the user who triggered the notification, if any.
func (n Notification) From() *User {
	if n.Actor != nil {
		return n.Actor
	}
	return n.Sender
}

// Tokens is a JWT access/refresh pair.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// LoginResponse is the body returned by the login endpoint.
type LoginResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
	Tokens  Tokens `json:"tokens"`
}

// RegisterData is the registration request body.
type RegisterData struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

// ProfileUpdate carries editable profile fields. Empty fields are left unchanged.
type ProfileUpdate struct {
	FullName       string  `json:"full_name,omitempty"`
	Bio            string  `json:"bio,omitempty"`
	Location       string  `json:"location,omitempty"`
	Website        string  `json:"website,omitempty"`
	PrivacySetting Privacy `json:"privacy_setting,omitempty"`
}

// Apply copies the non-empty fields of p onto u.
func (p ProfileUpdate) Apply(u *User) {
	if p.FullName != "" {
		u.FullName = p.FullName
	}
	if p.Bio != "" {
		u.Bio = p.Bio
	}
	if p.Location != "" {
		u.Location = p.Location
	}
	if p.Website != "" {
		u.Website = p.Website
	}
	if p.PrivacySetting != "" {
		u.PrivacySetting = p.PrivacySetting
	}
}

// CreatePostData is the post creation request body.
type CreatePostData struct {
	Content   string   `json:"content"`
	Category  Category `json:"category,omitempty"`
	ImageData string   `json:"image_data,omitempty"`
}

// LikeResponse is returned by like/unlike endpoints. LikeCount is nil when the server omits it.
type LikeResponse struct {
	Message   string `json:"message"`
	LikeCount *int   `json:"like_count,omitempty"`
}

// LikeStatus reports whether the current user liked a post.
type LikeStatus struct {
	IsLiked   bool `json:"is_liked"`
	LikeCount int  `json:"like_count"`
}

// AvatarResponse is returned by the avatar upload endpoint.
type AvatarResponse struct {
	Message   string `json:"message"`
	User      *User  `json:"user,omitempty"`
	AvatarURL string `json:"avatar_url"`
}

// GlobalNotificationResult is returned by the admin broadcast endpoint.
type GlobalNotificationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Details struct {
		RecipientsCount  int              `json:"recipients_count"`
		NotificationType NotificationType `json:"notification_type"`
		SentBy           string           `json:"sent_by"`
		MessagePreview   string           `json:"message_preview"`
	} `json:"details"`
}
