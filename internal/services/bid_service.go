package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Groupize/aime-planner-demo/internal/cache"
	"github.com/Groupize/aime-planner-demo/internal/config"
	"github.com/Groupize/aime-planner-demo/internal/email"
	"github.com/Groupize/aime-planner-demo/internal/models"
)

var (
	// ErrValidation marks a rejected initiation payload. No conversation
	// state exists when this is returned.
	ErrValidation = errors.New("invalid bid request")

	// ErrEmailSendFailed marks an initiation whose outbound email could not
	// be delivered. The conversation exists and is already marked failed.
	ErrEmailSendFailed = errors.New("failed to send email to vendor")
)

// InitiateBidRequest is the payload starting a vendor conversation.
type InitiateBidRequest struct {
	EventMetadata models.EventMetadata `json:"event_metadata"`
	VendorInfo    models.VendorInfo    `json:"vendor_info"`
	Questions     []models.Question    `json:"questions"`
	CallbackData  map[string]any       `json:"callback_data,omitempty"`
}

// InitiateBidResult reports the outcome of a bid initiation.
type InitiateBidResult struct {
	ConversationID string
	EmailSent      bool
	VendorEmail    string
	QuestionsCount int
}

// ProcessResult reports the outcome of one inbound email record.
type ProcessResult struct {
	Status             string `json:"status"`
	ConversationID     string `json:"conversation_id,omitempty"`
	Reason             string `json:"reason,omitempty"`
	Error              string `json:"error,omitempty"`
	QuestionsAnswered  int    `json:"questions_answered,omitempty"`
	UnansweredRequired int    `json:"unanswered_required,omitempty"`
	FollowUpSent       bool   `json:"follow_up_sent,omitempty"`
	ConversationStatus string `json:"conversation_status,omitempty"`
	AttemptCount       int    `json:"attempt_count,omitempty"`
}

const (
	ProcessStatusSuccess   = "success"
	ProcessStatusIgnored   = "ignored"
	ProcessStatusDuplicate = "duplicate"
	ProcessStatusError     = "error"
)

// IBidService drives the vendor-bid conversation lifecycle.
type IBidService interface {
	InitiateBid(ctx context.Context, req InitiateBidRequest) (*InitiateBidResult, error)
	ProcessInboundRecord(ctx context.Context, record email.SNSRecord) *ProcessResult
}

type bidService struct {
	conversations IConversationService
	llm           ILLMService
	mailer        email.IVendorMailer
	rails         IRailsAPIService
	dedup         cache.IMessageDedup
	maxAttempts   int
}

func NewBidService(cfg *config.Config, conversations IConversationService, llm ILLMService,
	mailer email.IVendorMailer, rails IRailsAPIService, dedup cache.IMessageDedup) IBidService {
	return &bidService{
		conversations: conversations,
		llm:           llm,
		mailer:        mailer,
		rails:         rails,
		dedup:         dedup,
		maxAttempts:   cfg.MaxAttempts,
	}
}

// InitiateBid validates the payload, persists a new conversation, sends the
// opening email and reports the start to the backend. A send failure leaves
// the conversation stored in the failed state.
func (s *bidService) InitiateBid(ctx context.Context, req InitiateBidRequest) (*InitiateBidResult, error) {
	conv, err := models.NewConversation(req.EventMetadata, req.VendorInfo, req.Questions,
		s.maxAttempts, req.CallbackData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.conversations.SaveConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}

	subject, body := s.llm.GenerateInitialBidEmail(ctx, conv)

	if err := s.mailer.SendVendorEmail(ctx, conv.VendorInfo.Email, subject, body,
		conv.ConversationID, conv.EventMetadata.PlannerName); err != nil {
		log.Printf("Failed to send initial email for conversation %s: %v", conv.ConversationID, err)

		conv.Status = models.StatusFailed
		if updateErr := s.conversations.UpdateConversation(ctx, conv); updateErr != nil {
			log.Printf("Failed to mark conversation %s as failed: %v", conv.ConversationID, updateErr)
		}
		s.reportError(ctx, conv.ConversationID, "email_sending_failed",
			"Failed to send initial bid request email",
			map[string]any{"vendor_email": conv.VendorInfo.Email})

		return &InitiateBidResult{ConversationID: conv.ConversationID, VendorEmail: conv.VendorInfo.Email},
			fmt.Errorf("%w: %v", ErrEmailSendFailed, err)
	}

	conv.AddEmailExchange(models.DirectionOutbound, subject, body, models.QuestionIDs(conv.Questions))
	conv.AttemptCount = 1
	conv.Status = models.StatusInProgress

	if err := s.conversations.UpdateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to update conversation %s: %w", conv.ConversationID, err)
	}

	if err := s.rails.NotifyConversationStarted(ctx, conv, true); err != nil {
		// Redelivery is queued by the reporter; initiation already succeeded.
		log.Printf("Failed to notify backend of conversation start %s: %v", conv.ConversationID, err)
	}

	return &InitiateBidResult{
		ConversationID: conv.ConversationID,
		EmailSent:      true,
		VendorEmail:    conv.VendorInfo.Email,
		QuestionsCount: len(conv.Questions),
	}, nil
}

// ProcessInboundRecord handles one SNS record end to end. It never returns an
// error: every failure mode is folded into the per-record result so one bad
// record cannot poison a batch.
func (s *bidService) ProcessInboundRecord(ctx context.Context, record email.SNSRecord) (result *ProcessResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic processing inbound email record: %v", r)
			result = &ProcessResult{Status: ProcessStatusError, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	inbound, err := email.ParseInboundRecord(record)
	if err != nil {
		log.Printf("Failed to decode inbound email record: %v", err)
		return &ProcessResult{Status: ProcessStatusError, Error: err.Error()}
	}

	if inbound.MessageID != "" && s.dedup != nil {
		seen, dedupErr := s.dedup.MarkSeen(ctx, inbound.MessageID)
		if dedupErr != nil {
			// Dedup is best effort; processing the message twice is safer
			// than dropping it.
			log.Printf("Message dedup check failed for %s: %v", inbound.MessageID, dedupErr)
		} else if seen {
			log.Printf("Skipping already-processed message %s for conversation %s",
				inbound.MessageID, inbound.ConversationID)
			return &ProcessResult{
				Status:         ProcessStatusDuplicate,
				ConversationID: inbound.ConversationID,
				Reason:         "message already processed",
			}
		}
	}

	conv, err := s.conversations.GetConversation(ctx, inbound.ConversationID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Printf("Inbound email for unknown conversation %s from %s",
				inbound.ConversationID, inbound.FromEmail)
			return &ProcessResult{
				Status:         ProcessStatusError,
				ConversationID: inbound.ConversationID,
				Error:          fmt.Sprintf("conversation %s not found", inbound.ConversationID),
			}
		}
		return &ProcessResult{
			Status:         ProcessStatusError,
			ConversationID: inbound.ConversationID,
			Error:          err.Error(),
		}
	}

	if conv.Status.IsTerminal() {
		log.Printf("Conversation %s already %s, ignoring email", conv.ConversationID, conv.Status)
		return &ProcessResult{
			Status:         ProcessStatusIgnored,
			ConversationID: conv.ConversationID,
			Reason:         fmt.Sprintf("conversation already %s", conv.Status),
		}
	}

	return s.processReply(ctx, conv, inbound)
}

// processReply applies a decoded vendor reply to a live conversation.
func (s *bidService) processReply(ctx context.Context, conv *models.Conversation, inbound *email.InboundEmail) *ProcessResult {
	answers, err := s.llm.ParseVendorResponse(ctx, inbound.Body, conv.Questions)
	if err != nil {
		return s.failAndReport(ctx, conv, "email_processing_error", err,
			map[string]any{"from_email": inbound.FromEmail, "subject": inbound.Subject})
	}

	var questionsAnswered []int
	for _, answer := range answers {
		if conv.RecordAnswer(answer.QuestionID, answer.Answer) {
			questionsAnswered = append(questionsAnswered, answer.QuestionID)
		}
	}

	conv.AddEmailExchange(models.DirectionInbound, inbound.Subject, inbound.Body, questionsAnswered)

	unansweredRequired := conv.GetUnansweredRequiredQuestions()
	shouldFollowUp := len(unansweredRequired) > 0 && conv.AttemptCount < conv.MaxAttempts

	followUpSent := false
	if shouldFollowUp {
		if err := s.sendFollowUp(ctx, conv, unansweredRequired); err != nil {
			log.Printf("Failed to send follow-up for conversation %s: %v", conv.ConversationID, err)
			conv.Status = models.StatusFailed
		} else {
			conv.AttemptCount++
			followUpSent = true
		}
	} else {
		// All required questions answered, or the attempt ceiling was hit.
		// Either way the conversation resolves as completed with whatever
		// answers were collected.
		conv.Status = models.StatusCompleted
	}

	if err := s.conversations.UpdateConversation(ctx, conv); err != nil {
		return s.failAndReport(ctx, conv, "database_error", err, nil)
	}

	isFinal := conv.Status.IsTerminal()
	if err := s.rails.SendConversationUpdate(ctx, conv, isFinal, inbound.Body); err != nil {
		log.Printf("Failed to send conversation update for %s: %v", conv.ConversationID, err)
	}
	if isFinal {
		if err := s.rails.NotifyConversationCompleted(ctx, conv); err != nil {
			log.Printf("Failed to send completion notification for %s: %v", conv.ConversationID, err)
		}
	}

	return &ProcessResult{
		Status:             ProcessStatusSuccess,
		ConversationID:     conv.ConversationID,
		QuestionsAnswered:  len(questionsAnswered),
		UnansweredRequired: len(unansweredRequired),
		FollowUpSent:       followUpSent,
		ConversationStatus: string(conv.Status),
		AttemptCount:       conv.AttemptCount,
	}
}

func (s *bidService) sendFollowUp(ctx context.Context, conv *models.Conversation, unanswered []models.Question) error {
	subject, body := s.llm.GenerateFollowUpEmail(ctx, conv, unanswered)

	if err := s.mailer.SendVendorEmail(ctx, conv.VendorInfo.Email, subject, body,
		conv.ConversationID, conv.EventMetadata.PlannerName); err != nil {
		return err
	}

	conv.AddEmailExchange(models.DirectionOutbound, subject, body, models.QuestionIDs(unanswered))
	return nil
}

// failAndReport marks the conversation failed, persists it best-effort and
// reports the error upstream, then folds everything into an error result.
func (s *bidService) failAndReport(ctx context.Context, conv *models.Conversation, errorType string, cause error, errContext map[string]any) *ProcessResult {
	log.Printf("Error processing email for conversation %s: %v", conv.ConversationID, cause)

	conv.Status = models.StatusFailed
	if err := s.conversations.UpdateConversation(ctx, conv); err != nil {
		log.Printf("Failed to mark conversation %s as failed: %v", conv.ConversationID, err)
	}
	s.reportError(ctx, conv.ConversationID, errorType, cause.Error(), errContext)

	return &ProcessResult{
		Status:         ProcessStatusError,
		ConversationID: conv.ConversationID,
		Error:          cause.Error(),
	}
}

func (s *bidService) reportError(ctx context.Context, conversationID, errorType, message string, errContext map[string]any) {
	if err := s.rails.ReportError(ctx, conversationID, errorType, message, errContext); err != nil {
		log.Printf("Failed to report error for conversation %s: %v", conversationID, err)
	}
}
