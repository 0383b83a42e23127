package api

import (
	"time"

	"github.com/cannerai/cannerd/domain"
)

type generateCodeRequest struct {
	UserID string `json:"user_id"`
}

type generateCodeResponse struct {
	Code string `json:"code"`
}

type exchangeCodeRequest struct {
	AuthCode string `json:"auth_code"`
}

type exchangeCodeResponse struct {
	JWTToken  string `json:"jwt_token"`
	UserID    string `json:"user_id"`
	ExpiresIn int    `json:"expires_in"`
}

type testCodeResponse struct {
	Code        string `json:"code"`
	UserID      string `json:"user_id"`
	RedirectURL string `json:"redirect_url"`
	Message     string `json:"message"`
}

type createResponseRequest struct {
	Title   *string  `json:"title"`
	Content *string  `json:"content"`
	Tags    []string `json:"tags"`
}

type updateResponseRequest struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

type healthResponse struct {
	Status            string `json:"status"`
	Timestamp         string `json:"timestamp"`
	Database          string `json:"database"`
	DatabaseConnected bool   `json:"database_connected"`
	Error             string `json:"error,omitempty"`
}

// responseJSON is the wire shape of a canned response. Timestamps are
// ISO 8601 strings, null when unset.
type responseJSON struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	UserID    string   `json:"user_id"`
	CreatedAt *string  `json:"created_at"`
	UpdatedAt *string  `json:"updated_at"`
}

func toResponseJSON(r *domain.CannedResponse) responseJSON {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return responseJSON{
		ID:        r.ID.Hex(),
		Title:     r.Title,
		Content:   r.Content,
		Tags:      tags,
		UserID:    r.UserID,
		CreatedAt: isoTime(r.CreatedAt),
		UpdatedAt: isoTime(r.UpdatedAt),
	}
}

func toResponseListJSON(responses []*domain.CannedResponse) []responseJSON {
	out := make([]responseJSON, 0, len(responses))
	for _, r := range responses {
		out = append(out, toResponseJSON(r))
	}
	return out
}

func isoTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
