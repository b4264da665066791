package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Groupize/aime-planner-demo/internal/models"
)

// --- Mocks ---

// MockConversationService implements IConversationService
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

// MockLLMService implements ILLMService
type MockLLMService struct {
	mock.Mock
}

func (m *MockLLMService) GenerateInitialBidEmail(ctx context.Context, conv *models.Conversation) (string, string) {
	args := m.Called(ctx, conv)
	return args.String(0), args.String(1)
}

func (m *MockLLMService) GenerateFollowUpEmail(ctx context.Context, conv *models.Conversation, unanswered []models.Question) (string, string) {
	args := m.Called(ctx, conv, unanswered)
	return args.String(0), args.String(1)
}

func (m *MockLLMService) ParseVendorResponse(ctx context.Context, emailBody string, questions []models.Question) ([]QuestionAnswer, error) {
	args := m.Called(ctx, emailBody, questions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]QuestionAnswer), args.Error(1)
}

// MockVendorMailer implements email.IVendorMailer
type MockVendorMailer struct {
	mock.Mock
}

func (m *MockVendorMailer) SendVendorEmail(ctx context.Context, toEmail, subject, body, conversationID, plannerName string) error {
	args := m.Called(ctx, toEmail, subject, body, conversationID, plannerName)
	return args.Error(0)
}

// MockRailsAPIService implements IRailsAPIService
type MockRailsAPIService struct {
	mock.Mock
}

func (m *MockRailsAPIService) SendConversationUpdate(ctx context.Context, conv *models.Conversation, isFinal bool, rawEmailContent string) error {
	args := m.Called(ctx, conv, isFinal, rawEmailContent)
	return args.Error(0)
}

func (m *MockRailsAPIService) NotifyConversationStarted(ctx context.Context, conv *models.Conversation, initialEmailSent bool) error {
	args := m.Called(ctx, conv, initialEmailSent)
	return args.Error(0)
}

func (m *MockRailsAPIService) NotifyConversationCompleted(ctx context.Context, conv *models.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *MockRailsAPIService) ReportError(ctx context.Context, conversationID, errorType, errorMessage string, errContext map[string]any) error {
	args := m.Called(ctx, conversationID, errorType, errorMessage, errContext)
	return args.Error(0)
}

func (m *MockRailsAPIService) ValidateConnection(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRailsAPIService) Deliver(ctx context.Context, path string, payload map[string]any) error {
	args := m.Called(ctx, path, payload)
	return args.Error(0)
}

// MockMessageDedup implements cache.IMessageDedup
type MockMessageDedup struct {
	mock.Mock
}

func (m *MockMessageDedup) MarkSeen(ctx context.Context, messageID string) (bool, error) {
	args := m.Called(ctx, messageID)
	return args.Bool(0), args.Error(1)
}
