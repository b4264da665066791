package email

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// SNSEnvelope is the batch wrapper delivered by SNS for inbound SES mail.
type SNSEnvelope struct {
	Records []SNSRecord `json:"Records"`
}

// SNSRecord is a single SNS notification record.
type SNSRecord struct {
	Sns SNSMessage `json:"Sns"`
}

// SNSMessage carries the serialized SES notification.
type SNSMessage struct {
	MessageID string `json:"MessageId"`
	Message   string `json:"Message"`
}

// sesNotification is the SES mail notification inside an SNS message.
type sesNotification struct {
	Mail    *sesMail `json:"mail"`
	Content string   `json:"content"`
}

type sesMail struct {
	Timestamp     string         `json:"timestamp"`
	MessageID     string         `json:"messageId"`
	CommonHeaders sesMailHeaders `json:"commonHeaders"`
}

type sesMailHeaders struct {
	From    []string `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
}

// InboundEmail is a decoded vendor reply correlated to a conversation.
type InboundEmail struct {
	ConversationID string
	FromEmail      string
	Subject        string
	Body           string
	MessageID      string
	Timestamp      string
}

// ErrNotCorrelated is returned when an inbound notification cannot be matched
// to a conversation. There is no conversation to fail in this case; the
// record is surfaced as a decode error.
var ErrNotCorrelated = errors.New("could not extract conversation id from recipient address")

// conversationIDPattern matches the plus-addressed conversation id in the
// recipient, e.g. "aime-production+<id>@groupize.com".
var conversationIDPattern = regexp.MustCompile(`aime-[^+]+\+([^@]+)@`)

// ParseInboundRecord decodes one SNS record into an InboundEmail.
func ParseInboundRecord(record SNSRecord) (*InboundEmail, error) {
	raw := record.Sns.Message
	if raw == "" {
		return nil, fmt.Errorf("empty SNS message")
	}

	var notification sesNotification
	if err := json.Unmarshal([]byte(raw), &notification); err != nil {
		return nil, fmt.Errorf("failed to parse SES notification: %w", err)
	}
	if notification.Mail == nil {
		return nil, fmt.Errorf("no mail object in SNS message")
	}

	conversationID := ""
	for _, recipient := range notification.Mail.CommonHeaders.To {
		if match := conversationIDPattern.FindStringSubmatch(recipient); match != nil {
			conversationID = match[1]
			break
		}
	}
	if conversationID == "" {
		return nil, ErrNotCorrelated
	}

	from := ""
	if len(notification.Mail.CommonHeaders.From) > 0 {
		from = notification.Mail.CommonHeaders.From[0]
	}

	return &InboundEmail{
		ConversationID: conversationID,
		FromEmail:      from,
		Subject:        notification.Mail.CommonHeaders.Subject,
		Body:           ExtractEmailBody(notification.Content),
		MessageID:      notification.Mail.MessageID,
		Timestamp:      notification.Mail.Timestamp,
	}, nil
}

// ExtractEmailBody strips quoted reply text and trailing reply attribution
// lines ("On <date> <someone@...> wrote:") from a plain text email body.
func ExtractEmailBody(content string) string {
	if content == "" {
		return ""
	}

	lines := strings.Split(content, "\n")
	var cleanLines []string

	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, ">") {
			continue
		}
		// Attribution line marks the start of the quoted original message
		if strings.HasPrefix(stripped, "On ") && strings.Contains(stripped, "@") {
			break
		}
		cleanLines = append(cleanLines, line)
	}

	return strings.TrimSpace(strings.Join(cleanLines, "\n"))
}
