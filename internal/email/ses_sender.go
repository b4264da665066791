package email

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/Groupize/aime-planner-demo/internal/config"
)

// SESSender implements the Sender interface using Amazon SES.
type SESSender struct {
	client *ses.Client
	cfg    *config.Config
}

// NewSESSender creates a new SESSender from a configured SES client.
func NewSESSender(client *ses.Client, cfg *config.Config) Sender {
	return &SESSender{client: client, cfg: cfg}
}

// Send sends the raw message through SES.
func (s *SESSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	_, err := s.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(s.cfg.FromAddress()),
		Destinations: to,
		RawMessage:   &types.RawMessage{Data: rawMessage},
	})
	if err != nil {
		log.Printf("Failed to send email via SES to %v: %v", to, err)
		return fmt.Errorf("ses error: %w", err)
	}
	log.Printf("Email sent successfully via SES to %v (Subject: %s)", to, subject)
	return nil
}

// VerifyDomain initiates SES domain verification for email receiving.
func (s *SESSender) VerifyDomain(ctx context.Context, domain string) error {
	_, err := s.client.VerifyDomainIdentity(ctx, &ses.VerifyDomainIdentityInput{
		Domain: aws.String(domain),
	})
	if err != nil {
		return fmt.Errorf("failed to verify domain %s: %w", domain, err)
	}
	log.Printf("Domain verification initiated for %s", domain)
	return nil
}

// SetupReceiptRule creates the SES receipt rule that forwards inbound vendor
// replies to the SNS topic feeding the inbound endpoint.
func (s *SESSender) SetupReceiptRule(ctx context.Context, ruleSetName, ruleName string, recipients []string, snsTopicArn string) error {
	rule := types.ReceiptRule{
		Name:       aws.String(ruleName),
		Enabled:    true,
		Recipients: recipients,
		Actions: []types.ReceiptAction{
			{
				SNSAction: &types.SNSAction{
					TopicArn: aws.String(snsTopicArn),
					Encoding: types.SNSActionEncodingUtf8,
				},
			},
		},
	}

	_, err := s.client.CreateReceiptRule(ctx, &ses.CreateReceiptRuleInput{
		RuleSetName: aws.String(ruleSetName),
		Rule:        &rule,
	})
	if err != nil {
		return fmt.Errorf("failed to create SES receipt rule %s: %w", ruleName, err)
	}

	log.Printf("SES receipt rule created: %s", ruleName)
	return nil
}
