// Package authcode holds the one-time authorization codes issued to the
// browser extension and the stores that guard their single-use contract.
package authcode

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// DefaultTTL is how long a freshly issued code stays exchangeable.
const DefaultTTL = 10 * time.Minute

var (
	// ErrCodeNotFound signals that this process never issued the code; the
	// exchange falls through to the remote authority.
	ErrCodeNotFound = errors.New("authorization code not found")
	ErrCodeUsed     = errors.New("authorization code already used")
	ErrCodeExpired  = errors.New("authorization code has expired")
)

// Store maps opaque code strings to their pending exchange state.
type Store interface {
	// Put inserts a new code. Last write wins on the (practically
	// impossible) collision.
	Put(ctx context.Context, code, userID string, ttl time.Duration) error
	// TryConsume atomically resolves a code to its user ID. A code resolves
	// successfully at most once; later attempts return ErrCodeUsed until
	// the entry is swept.
	TryConsume(ctx context.Context, code string) (string, error)
	// SweepExpired removes entries whose expiry has passed.
	SweepExpired(ctx context.Context) error
}

const codeByteLen = 32

// GenerateCode returns a cryptographically random URL-safe code.
func GenerateCode() (string, error) {
	buf := make([]byte, codeByteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate authorization code: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
