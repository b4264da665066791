package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Groupize/aime-planner-demo/internal/email"
	"github.com/Groupize/aime-planner-demo/internal/models"
	"github.com/Groupize/aime-planner-demo/internal/services"
)

// --- Mocks ---

// MockBidService implements services.IBidService
type MockBidService struct {
	mock.Mock
}

func (m *MockBidService) InitiateBid(ctx context.Context, req services.InitiateBidRequest) (*services.InitiateBidResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.InitiateBidResult), args.Error(1)
}

func (m *MockBidService) ProcessInboundRecord(ctx context.Context, record email.SNSRecord) *services.ProcessResult {
	args := m.Called(ctx, record)
	return args.Get(0).(*services.ProcessResult)
}

// MockConversationService implements services.IConversationService
type MockConversationService struct {
	mock.Mock
}

func (m *MockConversationService) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *MockConversationService) GetConversation(ctx context.Context, conversationID string) (*models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockConversationService) UpdateConversation(ctx context.Context, conv *models.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *MockConversationService) RecentConversations(ctx context.Context, limit int64) ([]models.Conversation, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Conversation), args.Error(1)
}

func (m *MockConversationService) DeleteConversation(ctx context.Context, conversationID string) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}
