package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Groupize/aime-planner-demo/internal/db"
	"github.com/Groupize/aime-planner-demo/internal/models"
)

const conversationCollection = "conversations"

// IConversationService persists conversation aggregates.
type IConversationService interface {
	SaveConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error)
	UpdateConversation(ctx context.Context, conv *models.Conversation) error
	RecentConversations(ctx context.Context, limit int64) ([]models.Conversation, error)
	DeleteConversation(ctx context.Context, conversationID string) error
}

type conversationService struct {
	collection *mongo.Collection
}

func NewConversationService(database *mongo.Database) IConversationService {
	return &conversationService{
		collection: database.Collection(conversationCollection),
	}
}

func (s *conversationService) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	return db.Try(func() error {
		_, err := s.collection.InsertOne(ctx, conv)
		return err
	})
}

func (s *conversationService) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.collection.FindOne(ctx, bson.M{"conversation_id": conversationID}).Decode(&conv)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *conversationService) UpdateConversation(ctx context.Context, conv *models.Conversation) error {
	conv.UpdatedAt = time.Now()
	result, err := s.collection.ReplaceOne(ctx,
		bson.M{"conversation_id": conv.ConversationID}, conv)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *conversationService) RecentConversations(ctx context.Context, limit int64) ([]models.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(limit)
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	conversations := []models.Conversation{}
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

func (s *conversationService) DeleteConversation(ctx context.Context, conversationID string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"conversation_id": conversationID})
	return err
}
