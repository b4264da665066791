package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Groupize/aime-planner-demo/internal/models"
)

func llmTestConversation(t *testing.T) *models.Conversation {
	conv, err := models.NewConversation(
		models.EventMetadata{
			Name:         "Annual Company Retreat",
			Dates:        []string{"2026-06-15", "2026-06-16"},
			EventType:    "corporate retreat",
			PlannerName:  "Jane Smith",
			PlannerEmail: "jane.smith@company.com",
		},
		models.VendorInfo{
			Name:        "Mountain View Resort",
			Email:       "sales@mountainviewresort.com",
			ServiceType: "hotel",
		},
		[]models.Question{
			{ID: 1, Text: "Do you have availability for our dates?", Required: true},
			{ID: 2, Text: "What is your rate per room per night?", Required: true,
				Options: []string{"Standard Room", "Deluxe Room", "Suite"}},
		},
		4, nil)
	require.NoError(t, err)
	return conv
}

func stubLLM(complete completeFunc) *llmService {
	return &llmService{model: "test-model", complete: complete}
}

func TestGenerateInitialBidEmail_UsesModelOutput(t *testing.T) {
	svc := stubLLM(func(ctx context.Context, system, user string, temp float64, max int64) (string, error) {
		assert.Contains(t, user, "Annual Company Retreat")
		assert.Contains(t, user, "Mountain View Resort")
		assert.Contains(t, user, "1. Do you have availability for our dates? (Required)")
		return `{"subject": "Retreat Inquiry", "body": "Hello there"}`, nil
	})

	subject, body := svc.GenerateInitialBidEmail(context.Background(), llmTestConversation(t))
	assert.Equal(t, "Retreat Inquiry", subject)
	assert.Equal(t, "Hello there", body)
}

func TestGenerateInitialBidEmail_FallbackOnError(t *testing.T) {
	svc := stubLLM(func(ctx context.Context, system, user string, temp float64, max int64) (string, error) {
		return "", errors.New("rate limited")
	})

	conv := llmTestConversation(t)
	subject, body := svc.GenerateInitialBidEmail(context.Background(), conv)

	assert.Contains(t, subject, "Pricing Inquiry for Annual Company Retreat")
	assert.Contains(t, body, "Mountain View Resort")
	assert.Contains(t, body, "Do you have availability for our dates?")
	assert.Contains(t, body, "Jane Smith")
}

func TestGenerateInitialBidEmail_FallbackOnUnparseableOutput(t *testing.T) {
	svc := stubLLM(func(ctx context.Context, system, user string, temp float64, max int64) (string, error) {
		return "Sure! Here's a nice email for you.", nil
	})

	subject, body := svc.GenerateInitialBidEmail(context.Background(), llmTestConversation(t))
	assert.NotEmpty(t, subject)
	assert.NotEmpty(t, body)
	assert.Contains(t, subject, "Pricing Inquiry")
}

func TestGenerateFollowUpEmail_UsesModelOutput(t *testing.T) {
	svc := stubLLM(func(ctx context.Context, system, user string, temp float64, max int64) (string, error) {
		assert.Contains(t, user, "Unanswered Questions")
		assert.Contains(t, user, "What is your rate per room per night?")
		assert.NotContains(t, user, "Do you have availability")
		return `{"subject": "Quick follow-up", "body": "Still need rates"}`, nil
	})

	conv := llmTestConversation(t)
	conv.RecordAnswer(1, "Yes")
	unanswered := conv.GetUnansweredRequiredQuestions()

	subject, body := svc.GenerateFollowUpEmail(context.Background(), conv, unanswered)
	assert.Equal(t, "Quick follow-up", subject)
	assert.Equal(t, "Still need rates", body)
}

func TestGenerateFollowUpEmail_FallbackOnError(t *testing.T) {
	svc := stubLLM(func(ctx context.Context, system, user string, temp float64, max int64) (string, error) {
		return "", errors.New("timeout")
	})

	conv := llmTestConversation(t)
	unanswered := conv.GetUnansweredRequiredQuestions()

	subject, body := svc.GenerateFollowUpEmail(context.Background(), conv, unanswered)
	assert.Contains(t, subject, "Follow-up: Annual Company Retreat")
	assert.Contains(t, body, "What is your rate per room per night?")
}

func TestParseVendorResponse_Success(t *testing.T) {
	svc := stubLLM(func(ctx context.Context, system, user string, temp float64, max int64) (string, error) {
		assert.Contains(t, user, "ID 1: Do you have availability for our dates?")
		return `[{"question_id": 1, "answer": "Yes, those dates are open"}, {"question_id": 2, "answer": "$180/night"}]`, nil
	})

	answers, err := svc.ParseVendorResponse(context.Background(), "We are open, rooms from $180.", llmTestConversation(t).Questions)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, 1, answers[0].QuestionID)
	assert.Equal(t, "Yes, those dates are open", answers[0].Answer)
}

func TestParseVendorResponse_EmptyIsNotAnError(t *testing.T) {
	svc := stubLLM(func(ctx context.Context, system, user string, temp float64, max int64) (string, error) {
		return `[]`, nil
	})

	answers, err := svc.ParseVendorResponse(context.Background(), "Thanks, we'll get back to you.", llmTestConversation(t).Questions)
	require.NoError(t, err)
	assert.Empty(t, answers)
}

func TestParseVendorResponse_StripsCodeFences(t *testing.T) {
	svc := stubLLM(func(ctx context.Context, system, user string, temp float64, max int64) (string, error) {
		return "```json\n[{\"question_id\": 1, \"answer\": \"Yes\"}]\n```", nil
	})

	answers, err := svc.ParseVendorResponse(context.Background(), "Yes.", llmTestConversation(t).Questions)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "Yes", answers[0].Answer)
}

func TestParseVendorResponse_InfrastructureFailure(t *testing.T) {
	svc := stubLLM(func(ctx context.Context, system, user string, temp float64, max int64) (string, error) {
		return "", errors.New("connection refused")
	})

	_, err := svc.ParseVendorResponse(context.Background(), "body", llmTestConversation(t).Questions)
	assert.Error(t, err)
}

func TestFormatQuestionsForEmail(t *testing.T) {
	out := formatQuestionsForEmail([]models.Question{
		{ID: 1, Text: "Availability?", Required: true},
		{ID: 2, Text: "Room type?", Options: []string{"Standard", "Suite"}},
	})
	assert.Contains(t, out, "1. Availability? (Required)")
	assert.Contains(t, out, "2. Room type?")
	assert.Contains(t, out, "Options: Standard, Suite")
}
