package domain

import (
	"context"
	"errors"
)

var (
	// ErrResponseNotFound means no document matched the id/user pair.
	ErrResponseNotFound = errors.New("response not found")
	// ErrInvalidResponseID means the caller-supplied id is not a valid
	// document identifier.
	ErrInvalidResponseID = errors.New("invalid response ID")
)

// ResponseRepository provides access to stored canned responses. Every
// operation is scoped to the owning user.
type ResponseRepository interface {
	// List returns the user's responses, newest first. A non-empty search
	// term restricts the result to matching title, content or tags.
	List(ctx context.Context, userID, search string) ([]*CannedResponse, error)
	// GetByID returns ErrResponseNotFound when no document matches the
	// id/user pair.
	GetByID(ctx context.Context, id, userID string) (*CannedResponse, error)
	Create(ctx context.Context, response *CannedResponse) error
	// Update applies a partial update and returns the updated document.
	Update(ctx context.Context, id, userID string, update ResponseUpdate) (*CannedResponse, error)
	Delete(ctx context.Context, id, userID string) error
}
