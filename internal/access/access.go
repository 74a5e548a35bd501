// Package access holds the ownership predicates gating every mutation
// of content items and reviews.
package access

import (
	"errors"

	"github.com/versecraft/versecraft/internal/models"
)

var (
	// ErrLoginRequired means the caller is not authenticated; handlers
	// turn it into a login redirect.
	ErrLoginRequired = errors.New("login required")
	// ErrPermission means the caller is authenticated but neither the
	// resource owner nor an admin.
	ErrPermission = errors.New("permission denied")
)

// IsOwnerOrAdmin reports whether actor owns the resource identified by
// ownerID, or carries the admin flag. A nil actor is never an owner.
func IsOwnerOrAdmin(actor *models.User, ownerID string) bool {
	if actor == nil {
		return false
	}
	return actor.ID == ownerID || actor.IsAdmin
}

// Check applies the uniform gating rule: unauthenticated first, then
// ownership. Returns nil when the mutation may proceed.
func Check(actor *models.User, ownerID string) error {
	if actor == nil {
		return ErrLoginRequired
	}
	if !IsOwnerOrAdmin(actor, ownerID) {
		return ErrPermission
	}
	return nil
}
