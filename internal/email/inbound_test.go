package email

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSNSRecord(t *testing.T, to []string, from []string, subject, content, messageID string) SNSRecord {
	notification := map[string]any{
		"mail": map[string]any{
			"timestamp": "2026-03-01T12:00:00.000Z",
			"messageId": messageID,
			"commonHeaders": map[string]any{
				"from":    from,
				"to":      to,
				"subject": subject,
			},
		},
		"content": content,
	}
	raw, err := json.Marshal(notification)
	require.NoError(t, err)
	return SNSRecord{Sns: SNSMessage{MessageID: messageID, Message: string(raw)}}
}

func TestParseInboundRecord_Success(t *testing.T) {
	record := makeSNSRecord(t,
		[]string{"aime-production+conv-123@groupize.com"},
		[]string{"sales@mountainviewresort.com"},
		"Re: Pricing Inquiry",
		"Yes, we have availability.\n",
		"msg-001",
	)

	inbound, err := ParseInboundRecord(record)
	require.NoError(t, err)
	assert.Equal(t, "conv-123", inbound.ConversationID)
	assert.Equal(t, "sales@mountainviewresort.com", inbound.FromEmail)
	assert.Equal(t, "Re: Pricing Inquiry", inbound.Subject)
	assert.Equal(t, "Yes, we have availability.", inbound.Body)
	assert.Equal(t, "msg-001", inbound.MessageID)
}

func TestParseInboundRecord_MultipleRecipients(t *testing.T) {
	record := makeSNSRecord(t,
		[]string{"someone@elsewhere.com", "aime-staging+abc@groupize.com"},
		[]string{"v@vendor.com"},
		"Re: Inquiry", "body", "msg-002",
	)

	inbound, err := ParseInboundRecord(record)
	require.NoError(t, err)
	assert.Equal(t, "abc", inbound.ConversationID)
}

func TestParseInboundRecord_NoConversationID(t *testing.T) {
	record := makeSNSRecord(t,
		[]string{"info@groupize.com"},
		[]string{"v@vendor.com"},
		"Hello", "body", "msg-003",
	)

	_, err := ParseInboundRecord(record)
	assert.ErrorIs(t, err, ErrNotCorrelated)
}

func TestParseInboundRecord_MalformedMessage(t *testing.T) {
	record := SNSRecord{Sns: SNSMessage{Message: "{not json"}}
	_, err := ParseInboundRecord(record)
	assert.Error(t, err)
}

func TestParseInboundRecord_EmptyMessage(t *testing.T) {
	_, err := ParseInboundRecord(SNSRecord{})
	assert.Error(t, err)
}

func TestParseInboundRecord_NoMailObject(t *testing.T) {
	record := SNSRecord{Sns: SNSMessage{Message: `{"notificationType":"Bounce"}`}}
	_, err := ParseInboundRecord(record)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no mail object")
}

func TestExtractEmailBody_StripsQuotedText(t *testing.T) {
	content := "Hi Jane,\n" +
		"\n" +
		"We have availability for those dates.\n" +
		"> Do you have availability for our dates?\n" +
		"> What is your rate?\n" +
		"Rates start at $150 per night.\n"

	body := ExtractEmailBody(content)
	assert.Contains(t, body, "We have availability for those dates.")
	assert.Contains(t, body, "Rates start at $150 per night.")
	assert.NotContains(t, body, "Do you have availability")
}

func TestExtractEmailBody_BreaksOnAttributionLine(t *testing.T) {
	content := "Thanks, that works for us.\n" +
		"\n" +
		"On Mon, Mar 2, 2026 at 9:14 AM Jane Smith <jane.smith@company.com> wrote:\n" +
		"Hello! I'm reaching out about your venue.\n"

	body := ExtractEmailBody(content)
	assert.Equal(t, "Thanks, that works for us.", body)
}

func TestExtractEmailBody_Empty(t *testing.T) {
	assert.Equal(t, "", ExtractEmailBody(""))
}
