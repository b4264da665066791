package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Groupize/aime-planner-demo/internal/email"
	"github.com/Groupize/aime-planner-demo/internal/services"
)

// InboundEmailHandler receives SNS notifications for inbound vendor mail.
type InboundEmailHandler struct {
	bidService services.IBidService
}

// NewInboundEmailHandler creates a new InboundEmailHandler.
func NewInboundEmailHandler(bidService services.IBidService) *InboundEmailHandler {
	return &InboundEmailHandler{bidService: bidService}
}

// ProcessInbound handles POST /v1/email/inbound.
//
// Every record is processed independently; the response always carries one
// result per record so SNS never retries a partially processed batch.
func (h *InboundEmailHandler) ProcessInbound(c *gin.Context) {
	var envelope email.SNSEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"message": "Failed to parse SNS envelope: " + err.Error(),
		})
		return
	}

	if len(envelope.Records) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No records to process"})
		return
	}

	results := make([]*services.ProcessResult, 0, len(envelope.Records))
	for _, record := range envelope.Records {
		results = append(results, h.bidService.ProcessInboundRecord(c.Request.Context(), record))
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Email processing completed",
		"results": results,
	})
}
