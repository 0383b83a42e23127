package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// CannedResponse is a user-owned reusable text snippet.
type CannedResponse struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"-"`
	Title     string        `bson:"title" json:"title"`
	Content   string        `bson:"content" json:"content"`
	Tags      []string      `bson:"tags" json:"tags"`
	UserID    string        `bson:"user_id" json:"user_id"`
	CreatedAt time.Time     `bson:"created_at" json:"-"`
	UpdatedAt time.Time     `bson:"updated_at" json:"-"`
}

// ResponseUpdate carries the fields of a partial update. Nil fields are
// left untouched.
type ResponseUpdate struct {
	Title   *string
	Content *string
	Tags    *[]string
}
