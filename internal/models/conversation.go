package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConversationStatus is the lifecycle state of a vendor conversation.
type ConversationStatus string

const (
	StatusInitiated  ConversationStatus = "initiated"
	StatusInProgress ConversationStatus = "in_progress"
	StatusCompleted  ConversationStatus = "completed"
	StatusFailed     ConversationStatus = "failed"
)

// IsTerminal reports whether no further transitions are accepted from this status.
func (s ConversationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Email exchange directions.
const (
	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"
)

// Question is an individual question in a bid request.
// Options are advisory display metadata; recorded answers are free text and
// never validated against them. Sub-questions nest but do not participate in
// answer tracking, only top-level ids do.
type Question struct {
	ID           int        `bson:"id" json:"id"`
	Text         string     `bson:"text" json:"text"`
	Required     bool       `bson:"required" json:"required"`
	Options      []string   `bson:"options,omitempty" json:"options,omitempty"`
	SubQuestions []Question `bson:"sub_questions,omitempty" json:"sub_questions,omitempty"`
	Answer       *string    `bson:"answer,omitempty" json:"answer,omitempty"`
	Answered     bool       `bson:"answered" json:"answered"`
}

// EventMetadata describes the event being planned. Fixed at creation.
type EventMetadata struct {
	Name         string   `bson:"name" json:"name"`
	Dates        []string `bson:"dates" json:"dates"`
	EventType    string   `bson:"event_type" json:"event_type"`
	PlannerName  string   `bson:"planner_name" json:"planner_name"`
	PlannerEmail string   `bson:"planner_email" json:"planner_email"`
	PlannerPhone string   `bson:"planner_phone,omitempty" json:"planner_phone,omitempty"`
}

// VendorInfo identifies the vendor being contacted. The email address is the
// routing key correlating outbound mail with inbound replies.
type VendorInfo struct {
	Name        string `bson:"name" json:"name"`
	Email       string `bson:"email" json:"email"`
	Phone       string `bson:"phone,omitempty" json:"phone,omitempty"`
	ServiceType string `bson:"service_type" json:"service_type"`
}

// EmailExchange is one logged email event. Never mutated after creation.
type EmailExchange struct {
	Timestamp          time.Time `bson:"timestamp" json:"timestamp"`
	Direction          string    `bson:"direction" json:"direction"`
	Subject            string    `bson:"subject" json:"subject"`
	Body               string    `bson:"body" json:"body"`
	QuestionsAddressed []int     `bson:"questions_addressed" json:"questions_addressed"`
}

// Conversation is the aggregate tracking one vendor-bid negotiation from
// initiation to terminal resolution. It exclusively owns its questions and
// exchange log; all mutation goes through its methods.
type Conversation struct {
	ConversationID       string             `bson:"conversation_id" json:"conversation_id"`
	Status               ConversationStatus `bson:"status" json:"status"`
	EventMetadata        EventMetadata      `bson:"event_metadata" json:"event_metadata"`
	VendorInfo           VendorInfo         `bson:"vendor_info" json:"vendor_info"`
	Questions            []Question         `bson:"questions" json:"questions"`
	EmailExchanges       []EmailExchange    `bson:"email_exchanges" json:"email_exchanges"`
	AttemptCount         int                `bson:"attempt_count" json:"attempt_count"`
	MaxAttempts          int                `bson:"max_attempts" json:"max_attempts"`
	CreatedAt            time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `bson:"updated_at" json:"updated_at"`
	RailsAPICallbackData map[string]any     `bson:"rails_api_callback_data,omitempty" json:"rails_api_callback_data,omitempty"`
}

// NewConversation validates its inputs and builds a Conversation in the
// initiated state. Invalid payloads are rejected here, before any state
// exists anywhere.
func NewConversation(meta EventMetadata, vendor VendorInfo, questions []Question, maxAttempts int, callbackData map[string]any) (*Conversation, error) {
	if err := ValidateEventMetadata(meta); err != nil {
		return nil, err
	}
	if err := ValidateVendorInfo(vendor); err != nil {
		return nil, err
	}
	if err := ValidateQuestions(questions); err != nil {
		return nil, err
	}
	if maxAttempts < 1 {
		return nil, fmt.Errorf("max_attempts must be at least 1, got %d", maxAttempts)
	}

	now := time.Now().UTC()
	return &Conversation{
		ConversationID:       uuid.NewString(),
		Status:               StatusInitiated,
		EventMetadata:        meta,
		VendorInfo:           vendor,
		Questions:            questions,
		EmailExchanges:       []EmailExchange{},
		AttemptCount:         0,
		MaxAttempts:          maxAttempts,
		CreatedAt:            now,
		UpdatedAt:            now,
		RailsAPICallbackData: callbackData,
	}, nil
}

// ValidateEventMetadata checks the fields required of an initiation payload.
func ValidateEventMetadata(meta EventMetadata) error {
	if meta.Name == "" {
		return fmt.Errorf("event_metadata: missing required field: name")
	}
	if len(meta.Dates) == 0 {
		return fmt.Errorf("event_metadata: missing required field: dates")
	}
	if meta.EventType == "" {
		return fmt.Errorf("event_metadata: missing required field: event_type")
	}
	if meta.PlannerName == "" {
		return fmt.Errorf("event_metadata: missing required field: planner_name")
	}
	if meta.PlannerEmail == "" {
		return fmt.Errorf("event_metadata: missing required field: planner_email")
	}
	return nil
}

// ValidateVendorInfo checks the fields required of an initiation payload.
func ValidateVendorInfo(vendor VendorInfo) error {
	if vendor.Name == "" {
		return fmt.Errorf("vendor_info: missing required field: name")
	}
	if vendor.Email == "" {
		return fmt.Errorf("vendor_info: missing required field: email")
	}
	if vendor.ServiceType == "" {
		return fmt.Errorf("vendor_info: missing required field: service_type")
	}
	return nil
}

// ValidateQuestions checks that the question list is non-empty, each question
// carries an id and text, and top-level ids are unique.
func ValidateQuestions(questions []Question) error {
	if len(questions) == 0 {
		return fmt.Errorf("at least one question is required")
	}
	seen := make(map[int]bool, len(questions))
	for i, q := range questions {
		if q.ID == 0 {
			return fmt.Errorf("question %d missing required 'id' field", i)
		}
		if q.Text == "" {
			return fmt.Errorf("question %d missing required 'text' field", i)
		}
		if seen[q.ID] {
			return fmt.Errorf("duplicate question id %d", q.ID)
		}
		seen[q.ID] = true
	}
	return nil
}

// GetUnansweredRequiredQuestions returns the required questions not yet
// answered, preserving original order. Pure, no side effects.
func (c *Conversation) GetUnansweredRequiredQuestions() []Question {
	var out []Question
	for _, q := range c.Questions {
		if q.Required && !q.Answered {
			out = append(out, q)
		}
	}
	return out
}

// GetAnsweredQuestions returns the answered questions in original order.
func (c *Conversation) GetAnsweredQuestions() []Question {
	var out []Question
	for _, q := range c.Questions {
		if q.Answered {
			out = append(out, q)
		}
	}
	return out
}

// IsComplete reports whether all required questions are answered or the
// attempt ceiling has been reached. Informational only; it does not change
// status - transitions belong to the bid service.
func (c *Conversation) IsComplete() bool {
	return len(c.GetUnansweredRequiredQuestions()) == 0 || c.AttemptCount >= c.MaxAttempts
}

// RecordAnswer sets the answer for the question with the given id and marks
// it answered, bumping updated_at. Returns false without mutating anything if
// no top-level question has that id. Re-answering overwrites the previous
// answer and never reverts the answered flag.
func (c *Conversation) RecordAnswer(questionID int, answer string) bool {
	for i := range c.Questions {
		if c.Questions[i].ID == questionID {
			c.Questions[i].Answer = &answer
			c.Questions[i].Answered = true
			c.UpdatedAt = time.Now().UTC()
			return true
		}
	}
	return false
}

// AddEmailExchange appends an exchange with a fresh timestamp and bumps
// updated_at. Status and attempt_count are untouched.
func (c *Conversation) AddEmailExchange(direction, subject, body string, questionsAddressed []int) {
	if questionsAddressed == nil {
		questionsAddressed = []int{}
	}
	now := time.Now().UTC()
	c.EmailExchanges = append(c.EmailExchanges, EmailExchange{
		Timestamp:          now,
		Direction:          direction,
		Subject:            subject,
		Body:               body,
		QuestionsAddressed: questionsAddressed,
	})
	c.UpdatedAt = now
}

// QuestionIDs returns the ids of all top-level questions in order.
func QuestionIDs(questions []Question) []int {
	ids := make([]int, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	return ids
}
