package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/Groupize/aime-planner-demo/internal/config"
	"github.com/Groupize/aime-planner-demo/internal/models"
)

// QuestionAnswer is one extracted (question id, answer) pair from a vendor reply.
type QuestionAnswer struct {
	QuestionID int    `json:"question_id"`
	Answer     string `json:"answer"`
}

// ILLMService composes vendor emails and extracts answers from replies.
// The Generate methods never fail: if the model call does not produce usable
// output they fall back to deterministic templates, so callers always get a
// non-empty subject and body.
type ILLMService interface {
	GenerateInitialBidEmail(ctx context.Context, conv *models.Conversation) (subject, body string)
	GenerateFollowUpEmail(ctx context.Context, conv *models.Conversation, unanswered []models.Question) (subject, body string)
	ParseVendorResponse(ctx context.Context, emailBody string, questions []models.Question) ([]QuestionAnswer, error)
}

// completeFunc runs one chat completion and returns the raw assistant text.
// Swappable in tests.
type completeFunc func(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int64) (string, error)

// llmService implements ILLMService using the OpenAI chat completions API.
type llmService struct {
	model    string
	complete completeFunc
}

// NewLLMService creates the OpenAI-backed LLM service.
func NewLLMService(cfg *config.Config) (ILLMService, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OpenAI API key must be set")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAIAPIKey)}
	if cfg.OpenAIBaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	client := openai.NewClient(opts...)

	model := cfg.OpenAIModel
	if model == "" {
		model = "gpt-4-turbo-preview"
	}

	s := &llmService{model: model}
	s.complete = func(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int64) (string, error) {
		resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: s.model,
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(userPrompt),
			},
			Temperature: openai.Float(temperature),
			MaxTokens:   openai.Int(maxTokens),
		})
		if err != nil {
			return "", fmt.Errorf("openai chat: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no choices in response")
		}
		return resp.Choices[0].Message.Content, nil
	}
	return s, nil
}

// emailContent is the JSON shape the model is asked to produce for emails.
type emailContent struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// GenerateInitialBidEmail writes the opening inquiry covering every question.
func (s *llmService) GenerateInitialBidEmail(ctx context.Context, conv *models.Conversation) (string, string) {
	questionsText := formatQuestionsForEmail(conv.Questions)

	prompt := fmt.Sprintf(`You are a professional event planner writing an email to a vendor to request pricing and availability information.
Write a conversational, professional but semi-casual email that clearly indicates you are representing a client in negotiations.

Event Details:
- Event Name: %s
- Event Type: %s
- Dates: %s
- Your Name: %s

Vendor Details:
- Vendor Name: %s
- Service Type: %s

Questions to ask:
%s

Requirements:
1. Use a conversational, professional tone
2. Make it clear you're representing a client
3. Ask all the questions in a natural way
4. Include a clear call to action for response
5. Be friendly but business-focused
6. Subject line should be compelling and clear

Format your response as JSON with 'subject' and 'body' fields.`,
		conv.EventMetadata.Name,
		conv.EventMetadata.EventType,
		strings.Join(conv.EventMetadata.Dates, ", "),
		conv.EventMetadata.PlannerName,
		conv.VendorInfo.Name,
		conv.VendorInfo.ServiceType,
		questionsText,
	)

	content, err := s.complete(ctx,
		"You are a professional event planner who writes effective vendor outreach emails.",
		prompt, 0.7, 1500)
	if err == nil {
		var parsed emailContent
		if jsonErr := json.Unmarshal([]byte(stripCodeFences(content)), &parsed); jsonErr == nil && parsed.Subject != "" && parsed.Body != "" {
			return parsed.Subject, parsed.Body
		}
		err = fmt.Errorf("unusable model output")
	}

	log.Printf("Error generating initial email for conversation %s, using fallback: %v", conv.ConversationID, err)
	return fallbackInitialEmail(conv)
}

// GenerateFollowUpEmail writes a follow-up covering only unanswered questions.
func (s *llmService) GenerateFollowUpEmail(ctx context.Context, conv *models.Conversation, unanswered []models.Question) (string, string) {
	// Summarize the last couple of exchanges for context
	previousContext := ""
	if n := len(conv.EmailExchanges); n >= 2 {
		var sb strings.Builder
		sb.WriteString("\nPrevious email exchange summary:\n")
		for _, exchange := range conv.EmailExchanges[n-2:] {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", capitalize(exchange.Direction), exchange.Subject))
		}
		previousContext = sb.String()
	}

	prompt := fmt.Sprintf(`You are following up with a vendor who responded to your initial inquiry but didn't answer all questions.
Write a polite, professional follow-up email.

Event: %s
Vendor: %s
Service Type: %s
%s
Unanswered Questions that still need responses:
%s

Requirements:
1. Thank them for their previous response
2. Politely mention the specific information still needed
3. Maintain a collaborative tone
4. Be brief but complete
5. Include a clear deadline if this is attempt 2 or 3

Attempt number: %d

Format your response as JSON with 'subject' and 'body' fields.`,
		conv.EventMetadata.Name,
		conv.VendorInfo.Name,
		conv.VendorInfo.ServiceType,
		previousContext,
		formatQuestionsForEmail(unanswered),
		conv.AttemptCount+1,
	)

	content, err := s.complete(ctx,
		"You are a professional event planner writing follow-up emails.",
		prompt, 0.7, 1000)
	if err == nil {
		var parsed emailContent
		if jsonErr := json.Unmarshal([]byte(stripCodeFences(content)), &parsed); jsonErr == nil && parsed.Subject != "" && parsed.Body != "" {
			return parsed.Subject, parsed.Body
		}
		err = fmt.Errorf("unusable model output")
	}

	log.Printf("Error generating follow-up email for conversation %s, using fallback: %v", conv.ConversationID, err)
	return fallbackFollowUpEmail(conv, unanswered)
}

// ParseVendorResponse extracts answers from a vendor's reply. An empty result
// is normal; an error means the extraction call itself failed.
func (s *llmService) ParseVendorResponse(ctx context.Context, emailBody string, questions []models.Question) ([]QuestionAnswer, error) {
	prompt := fmt.Sprintf(`You are analyzing a vendor's email response to extract answers to specific questions.

Original Questions:
%s

Vendor's Email Response:
%s

Task: Extract any answers provided in the email for the questions above.

Instructions:
1. Look for explicit and implicit answers
2. Match answers to question IDs
3. Extract the vendor's actual response text as the answer
4. Only include answers that are clearly provided
5. If a question is not answered, don't include it

Return your response as a JSON array of objects with 'question_id' and 'answer' fields.
Example: [{"question_id": 1, "answer": "We have availability for those dates"},
          {"question_id": 3, "answer": "$150 per person"}]`,
		formatQuestionsForParsing(questions),
		emailBody,
	)

	content, err := s.complete(ctx,
		"You are an expert at parsing vendor responses and extracting structured information.",
		prompt, 0.3, 1000)
	if err != nil {
		return nil, fmt.Errorf("vendor response extraction failed: %w", err)
	}

	var answers []QuestionAnswer
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &answers); err != nil {
		return nil, fmt.Errorf("failed to parse extraction output: %w", err)
	}
	return answers, nil
}

// formatQuestionsForEmail renders questions for inclusion in outbound emails.
func formatQuestionsForEmail(questions []models.Question) string {
	var formatted []string
	for _, q := range questions {
		questionText := fmt.Sprintf("%d. %s", q.ID, q.Text)
		if q.Required {
			questionText += " (Required)"
		}
		if len(q.Options) > 0 {
			questionText += fmt.Sprintf("\n   Options: %s", strings.Join(q.Options, ", "))
		}
		formatted = append(formatted, questionText)
	}
	return strings.Join(formatted, "\n\n")
}

// formatQuestionsForParsing renders questions as extraction context.
func formatQuestionsForParsing(questions []models.Question) string {
	var formatted []string
	for _, q := range questions {
		formatted = append(formatted, fmt.Sprintf("ID %d: %s", q.ID, q.Text))
		if len(q.Options) > 0 {
			formatted = append(formatted, fmt.Sprintf("   (Options: %s)", strings.Join(q.Options, ", ")))
		}
	}
	return strings.Join(formatted, "\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// stripCodeFences removes a surrounding markdown code block if the model
// wrapped its JSON in one.
func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}

// fallbackInitialEmail is the deterministic template used when generation fails.
func fallbackInitialEmail(conv *models.Conversation) (string, string) {
	subject := fmt.Sprintf("Pricing Inquiry for %s - %s",
		conv.EventMetadata.Name, conv.EventMetadata.EventType)

	eventDates := strings.Join(conv.EventMetadata.Dates, ", ")
	body := fmt.Sprintf(`Hi %s,

I hope this email finds you well. I'm %s, and I'm working with a client to plan their upcoming %s called "%s" scheduled for %s.

We're exploring %s options and would love to discuss how you might be able to support this event. Could you please provide information on the following:

%s

Thank you for your time, and I look forward to hearing from you soon!

Best regards,
%s
%s`,
		conv.VendorInfo.Name,
		conv.EventMetadata.PlannerName,
		conv.EventMetadata.EventType,
		conv.EventMetadata.Name,
		eventDates,
		conv.VendorInfo.ServiceType,
		formatQuestionsForEmail(conv.Questions),
		conv.EventMetadata.PlannerName,
		conv.EventMetadata.PlannerEmail,
	)

	return subject, body
}

// fallbackFollowUpEmail is the deterministic follow-up template.
func fallbackFollowUpEmail(conv *models.Conversation, unanswered []models.Question) (string, string) {
	subject := fmt.Sprintf("Follow-up: %s - Additional Information Needed", conv.EventMetadata.Name)

	body := fmt.Sprintf(`Hi %s,

Thank you for your response regarding %s.

To complete our evaluation, I still need a few additional details:

%s

I'd appreciate your response when you have a chance.

Best regards,
%s`,
		conv.VendorInfo.Name,
		conv.EventMetadata.Name,
		formatQuestionsForEmail(unanswered),
		conv.EventMetadata.PlannerName,
	)

	return subject, body
}
