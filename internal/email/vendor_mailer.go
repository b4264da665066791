package email

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Groupize/aime-planner-demo/internal/config"
)

// IVendorMailer sends conversation emails to vendors. The reply-to address
// embeds the conversation id so inbound replies can be correlated.
type IVendorMailer interface {
	SendVendorEmail(ctx context.Context, toEmail, subject, body, conversationID, plannerName string) error
}

// vendorMailer implements IVendorMailer on top of a Sender.
type vendorMailer struct {
	cfg    *config.Config
	sender Sender
}

// NewVendorMailer creates a new vendor mailer.
func NewVendorMailer(cfg *config.Config, sender Sender) IVendorMailer {
	return &vendorMailer{cfg: cfg, sender: sender}
}

// SendVendorEmail assembles the full message and sends it. The From header
// carries the planner's display name so the vendor sees who is writing;
// replies land on the plus-addressed conversation mailbox.
func (m *vendorMailer) SendVendorEmail(ctx context.Context, toEmail, subject, body, conversationID, plannerName string) error {
	from := m.cfg.FromAddress()
	replyTo := m.cfg.ReplyToAddress(conversationID)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", toEmail))
	sb.WriteString(fmt.Sprintf("From: %s <%s>\r\n", sanitizeHeader(plannerName), from))
	sb.WriteString(fmt.Sprintf("Reply-To: %s\r\n", replyTo))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", sanitizeHeader(subject)))
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString(fmt.Sprintf("X-Conversation-ID: %s\r\n", conversationID))
	sb.WriteString(fmt.Sprintf("X-Environment: %s\r\n", m.cfg.Environment))
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n") // End of headers
	sb.WriteString(body)
	sb.WriteString("\r\n")

	if err := m.sender.Send(ctx, []string{toEmail}, subject, []byte(sb.String())); err != nil {
		log.Printf("Error sending vendor email for conversation %s: %v", conversationID, err)
		return fmt.Errorf("vendor email send failed: %w", err)
	}

	log.Printf("Vendor email sent to %s for conversation %s", toEmail, conversationID)
	return nil
}

// sanitizeHeader strips CR/LF so user-provided values cannot inject headers.
func sanitizeHeader(v string) string {
	v = strings.ReplaceAll(v, "\r", " ")
	v = strings.ReplaceAll(v, "\n", " ")
	return strings.TrimSpace(v)
}
