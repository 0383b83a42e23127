package domain

import "time"

// AuthCode represents a one-time extension authorization code.
type AuthCode struct {
	Code      string    `json:"code"`       // Opaque URL-safe code value
	UserID    string    `json:"user_id"`    // User the code was issued for
	ExpiresAt time.Time `json:"expires_at"` // Expiration timestamp
	Used      bool      `json:"used"`       // Whether code has been exchanged
	CreatedAt time.Time `json:"created_at"` // Creation timestamp
}

// IsExpired reports whether the code has passed its expiry.
func (c *AuthCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
