package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/cannerai/cannerd/domain"
)

// ResponseRepository is the MongoDB implementation of
// domain.ResponseRepository.
type ResponseRepository struct {
	responses *mongo.Collection
}

// NewResponseRepository creates the repository and ensures the collection
// indexes exist.
func NewResponseRepository(ctx context.Context, db *mongo.Database) (*ResponseRepository, error) {
	repo := &ResponseRepository{
		responses: db.Collection(ResponsesCollection),
	}
	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure canned_responses indexes: %w", err)
	}
	return repo, nil
}

func (r *ResponseRepository) ensureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "title", Value: "text"}, {Key: "content", Value: "text"}},
			Options: options.Index().
				SetName("idx_canned_responses_text_search").
				SetWeights(bson.D{{Key: "title", Value: 2}, {Key: "content", Value: 1}}).
				SetDefaultLanguage("english"),
		},
		{
			Keys:    bson.D{{Key: "tags", Value: 1}},
			Options: options.Index().SetName("idx_canned_responses_tags"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_canned_responses_user_id"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_canned_responses_created_at"),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_canned_responses_updated_at"),
		},
	}
	_, err := r.responses.Indexes().CreateMany(ctx, models)
	return err
}

// List implements domain.ResponseRepository.List. A search term first goes
// through the weighted text index; when that fails (index still building, or
// absent on an old deployment) it falls back to case-insensitive regex over
// title, content and tags.
func (r *ResponseRepository) List(ctx context.Context, userID, search string) ([]*domain.CannedResponse, error) {
	baseFilter := bson.M{"user_id": userID}
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	if search == "" {
		return r.find(ctx, baseFilter, findOpts)
	}

	textFilter := bson.M{"user_id": userID, "$text": bson.M{"$search": search}}
	results, err := r.find(ctx, textFilter, findOpts)
	if err == nil {
		return results, nil
	}
	log.Debug().Err(err).Msg("Text search failed, falling back to regex")

	regex := bson.M{"$regex": search, "$options": "i"}
	regexFilter := bson.M{
		"user_id": userID,
		"$or": bson.A{
			bson.M{"title": regex},
			bson.M{"content": regex},
			bson.M{"tags": regex},
		},
	}
	return r.find(ctx, regexFilter, findOpts)
}

func (r *ResponseRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]*domain.CannedResponse, error) {
	cursor, err := r.responses.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query canned responses: %w", err)
	}
	defer cursor.Close(ctx)

	results := make([]*domain.CannedResponse, 0)
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode canned responses: %w", err)
	}
	return results, nil
}

// GetByID implements domain.ResponseRepository.GetByID.
func (r *ResponseRepository) GetByID(ctx context.Context, id, userID string) (*domain.CannedResponse, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrInvalidResponseID
	}

	var response domain.CannedResponse
	err = r.responses.FindOne(ctx, bson.M{"_id": objectID, "user_id": userID}).Decode(&response)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrResponseNotFound
		}
		log.Error().Err(err).Str("id", id).Msg("Error retrieving canned response")
		return nil, fmt.Errorf("failed to retrieve canned response: %w", err)
	}
	return &response, nil
}

// Create implements domain.ResponseRepository.Create.
func (r *ResponseRepository) Create(ctx context.Context, response *domain.CannedResponse) error {
	now := time.Now().UTC()
	response.CreatedAt = now
	response.UpdatedAt = now
	if response.Tags == nil {
		response.Tags = []string{}
	}

	result, err := r.responses.InsertOne(ctx, response)
	if err != nil {
		log.Error().Err(err).Str("user_id", response.UserID).Msg("Error saving canned response")
		return fmt.Errorf("failed to save canned response: %w", err)
	}
	if oid, ok := result.InsertedID.(bson.ObjectID); ok {
		response.ID = oid
	}

	log.Debug().Str("id", response.ID.Hex()).Str("user_id", response.UserID).
		Msg("Canned response saved")
	return nil
}

// Update implements domain.ResponseRepository.Update.
func (r *ResponseRepository) Update(ctx context.Context, id, userID string, update domain.ResponseUpdate) (*domain.CannedResponse, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrInvalidResponseID
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Content != nil {
		set["content"] = *update.Content
	}
	if update.Tags != nil {
		set["tags"] = *update.Tags
	}

	var updated domain.CannedResponse
	err = r.responses.FindOneAndUpdate(ctx,
		bson.M{"_id": objectID, "user_id": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrResponseNotFound
		}
		log.Error().Err(err).Str("id", id).Msg("Error updating canned response")
		return nil, fmt.Errorf("failed to update canned response: %w", err)
	}
	return &updated, nil
}

// Delete implements domain.ResponseRepository.Delete.
func (r *ResponseRepository) Delete(ctx context.Context, id, userID string) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInvalidResponseID
	}

	result, err := r.responses.DeleteOne(ctx, bson.M{"_id": objectID, "user_id": userID})
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Error deleting canned response")
		return fmt.Errorf("failed to delete canned response: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrResponseNotFound
	}
	return nil
}

var _ domain.ResponseRepository = (*ResponseRepository)(nil)
