package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Groupize/aime-planner-demo/internal/services"
)

// BidHandler handles bid initiation requests from the planning backend.
type BidHandler struct {
	bidService services.IBidService
}

// NewBidHandler creates a new BidHandler.
func NewBidHandler(bidService services.IBidService) *BidHandler {
	return &BidHandler{bidService: bidService}
}

// InitiateBid handles POST /v1/bid/initiate
func (h *BidHandler) InitiateBid(c *gin.Context) {
	var req services.InitiateBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	result, err := h.bidService.InitiateBid(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrEmailSendFailed):
			// The conversation exists in the failed state; return its id so
			// the caller can correlate the failure.
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":           "Failed to send email to vendor",
				"conversation_id": result.ConversationID,
			})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":         "Bid request initiated successfully",
		"conversation_id": result.ConversationID,
		"email_sent":      result.EmailSent,
		"vendor_email":    result.VendorEmail,
		"questions_count": result.QuestionsCount,
	})
}
