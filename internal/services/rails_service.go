package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/Groupize/aime-planner-demo/internal/config"
	"github.com/Groupize/aime-planner-demo/internal/models"
)

// IReportQueue schedules a failed callback for background redelivery.
// Implemented by the tasks package; nil disables redelivery.
type IReportQueue interface {
	EnqueueRedelivery(path string, payload map[string]any) error
}

// IRailsAPIService reports conversation progress back to the planning backend.
type IRailsAPIService interface {
	SendConversationUpdate(ctx context.Context, conv *models.Conversation, isFinal bool, rawEmailContent string) error
	NotifyConversationStarted(ctx context.Context, conv *models.Conversation, initialEmailSent bool) error
	NotifyConversationCompleted(ctx context.Context, conv *models.Conversation) error
	ReportError(ctx context.Context, conversationID, errorType, errorMessage string, errContext map[string]any) error
	ValidateConnection(ctx context.Context) error

	// Deliver posts a payload to a callback path without queueing a retry.
	// Used by the redelivery worker, which has its own retry schedule.
	Deliver(ctx context.Context, path string, payload map[string]any) error
}

// RailsQuestion is the question shape the backend expects in callbacks.
type RailsQuestion struct {
	ID       int     `json:"id"`
	Text     string  `json:"text"`
	Answer   *string `json:"answer"`
	Answered bool    `json:"answered"`
	Required bool    `json:"required"`
}

type railsAPIService struct {
	baseURL string
	apiKey  string
	client  *http.Client
	queue   IReportQueue
}

func NewRailsAPIService(cfg *config.Config, queue IReportQueue) IRailsAPIService {
	return &railsAPIService{
		baseURL: cfg.RailsAPIBaseURL,
		apiKey:  cfg.RailsAPIKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		queue:   queue,
	}
}

func (s *railsAPIService) SendConversationUpdate(ctx context.Context, conv *models.Conversation, isFinal bool, rawEmailContent string) error {
	payload := map[string]any{
		"conversation_id":    conv.ConversationID,
		"status":             string(conv.Status),
		"questions_answered": FormatQuestionsForRails(conv.GetAnsweredQuestions()),
		"is_final":           isFinal,
		"timestamp":          isoNow(),
		"raw_email_content":  rawEmailContent,
	}
	return s.post(ctx, "/api/v1/chatbot/conversation_updates", payload)
}

func (s *railsAPIService) NotifyConversationStarted(ctx context.Context, conv *models.Conversation, initialEmailSent bool) error {
	payload := map[string]any{
		"conversation_id":    conv.ConversationID,
		"vendor_email":       conv.VendorInfo.Email,
		"initial_email_sent": initialEmailSent,
		"timestamp":          isoNow(),
	}
	path := fmt.Sprintf("/api/v1/chatbot/conversations/%s/started", conv.ConversationID)
	return s.post(ctx, path, payload)
}

func (s *railsAPIService) NotifyConversationCompleted(ctx context.Context, conv *models.Conversation) error {
	payload := map[string]any{
		"conversation_id": conv.ConversationID,
		"final_status":    string(conv.Status),
		"all_answers":     FormatQuestionsForRails(conv.GetAnsweredQuestions()),
		"attempt_count":   conv.AttemptCount,
		"completed_at":    isoNow(),
	}
	path := fmt.Sprintf("/api/v1/chatbot/conversations/%s/completed", conv.ConversationID)
	return s.post(ctx, path, payload)
}

func (s *railsAPIService) ReportError(ctx context.Context, conversationID, errorType, errorMessage string, errContext map[string]any) error {
	if errContext == nil {
		errContext = map[string]any{}
	}
	payload := map[string]any{
		"conversation_id": conversationID,
		"error_type":      errorType,
		"error_message":   errorMessage,
		"context":         errContext,
		"timestamp":       isoNow(),
	}
	return s.post(ctx, "/api/v1/chatbot/errors", payload)
}

func (s *railsAPIService) ValidateConnection(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/v1/health", nil)
	if err != nil {
		return err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *railsAPIService) Deliver(ctx context.Context, path string, payload map[string]any) error {
	return s.doPost(ctx, path, payload)
}

// post delivers a callback; on failure it queues a redelivery before
// returning the error, so a flaky backend never loses progress reports.
func (s *railsAPIService) post(ctx context.Context, path string, payload map[string]any) error {
	err := s.doPost(ctx, path, payload)
	if err != nil && s.queue != nil {
		if qErr := s.queue.EnqueueRedelivery(path, payload); qErr != nil {
			log.Printf("Failed to queue redelivery for %s: %v", path, qErr)
		}
	}
	return err
}

func (s *railsAPIService) doPost(ctx context.Context, path string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode callback payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("callback request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return nil
	default:
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("callback to %s returned status %d: %s", path, resp.StatusCode, respBody)
	}
}

func (s *railsAPIService) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("User-Agent", "AIME-Planner-Chatbot/1.0")
}

// FormatQuestionsForRails converts questions to the backend callback shape.
func FormatQuestionsForRails(questions []models.Question) []RailsQuestion {
	formatted := make([]RailsQuestion, 0, len(questions))
	for _, q := range questions {
		formatted = append(formatted, RailsQuestion{
			ID:       q.ID,
			Text:     q.Text,
			Answer:   q.Answer,
			Answered: q.Answered,
			Required: q.Required,
		})
	}
	return formatted
}

func isoNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}
