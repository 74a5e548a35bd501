package models

import "time"

// Kind distinguishes the two published content variants. They share one
// document shape; the kind tag only selects the collection routing and
// the URL space.
type Kind string

const (
	KindPoem  Kind = "poem"
	KindProse Kind = "prose"
)

// Valid reports whether k is a known content kind.
func (k Kind) Valid() bool {
	return k == KindPoem || k == KindProse
}

// AuthorSnapshot is a frozen copy of the identifying author fields,
// embedded into content items and reviews at creation time. Profile
// edits never rewrite these copies; historical bylines stay as they
// were when the record was written.
type AuthorSnapshot struct {
	ID        string `bson:"id" json:"id"`
	Email     string `bson:"email" json:"email"`
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
}

// User represents a registered account. Username doubles as the email
// address. Followers and Notifications hold ids only; the owning
// services resolve them on demand.
type User struct {
	ID                   string    `bson:"_id,omitempty" json:"id"`
	Username             string    `bson:"username" json:"username"`
	Email                string    `bson:"email" json:"email"`
	PasswordHash         string    `bson:"passwordHash" json:"-"`
	Avatar               string    `bson:"avatar,omitempty" json:"avatar,omitempty"`
	FirstName            string    `bson:"firstName" json:"firstName"`
	LastName             string    `bson:"lastName" json:"lastName"`
	About                string    `bson:"about,omitempty" json:"about,omitempty"`
	ResetPasswordToken   string    `bson:"resetPasswordToken,omitempty" json:"-"`
	ResetPasswordExpires time.Time `bson:"resetPasswordExpires,omitempty" json:"-"`
	Notifications        []string  `bson:"notifications" json:"-"`
	Followers            []string  `bson:"followers" json:"-"`
	IsAdmin              bool      `bson:"isAdmin" json:"isAdmin"`
	CreatedAt            time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time `bson:"updatedAt" json:"updatedAt"`
}

// ContentItem is a published poem or prose piece. Rating is derived:
// it is always recomputed in full from the current review set, never
// adjusted incrementally.
type ContentItem struct {
	ID        string         `bson:"_id,omitempty" json:"id"`
	Kind      Kind           `bson:"kind" json:"kind"`
	Name      string         `bson:"name" json:"name"`
	Image     string         `bson:"image,omitempty" json:"image,omitempty"`
	Body      string         `bson:"body" json:"body"`
	Author    AuthorSnapshot `bson:"author" json:"author"`
	Reviews   []string       `bson:"reviews" json:"-"`
	Rating    float64        `bson:"rating" json:"rating"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// Review is a rated critique of exactly one content item by exactly one
// user. At most one review per (author, content item) pair exists; the
// review repository enforces the pair uniqueness at the storage level.
type Review struct {
	ID          string         `bson:"_id,omitempty" json:"id"`
	Rating      float64        `bson:"rating" json:"rating"`
	Body        string         `bson:"body" json:"body"`
	Author      AuthorSnapshot `bson:"author" json:"author"`
	ContentID   string         `bson:"contentId" json:"contentId"`
	ContentKind Kind           `bson:"contentKind" json:"contentKind"`
	CreatedAt   time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// Notification is created once per follower when an author publishes a
// content item. Email and ContentName are denormalized for display;
// opening the notification routes by ContentKind.
type Notification struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Email       string    `bson:"email" json:"email"`
	ContentID   string    `bson:"contentId" json:"contentId"`
	ContentKind Kind      `bson:"contentKind" json:"contentKind"`
	ContentName string    `bson:"contentName" json:"contentName"`
	IsRead      bool      `bson:"isRead" json:"isRead"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}
