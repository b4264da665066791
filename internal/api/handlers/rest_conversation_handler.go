package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Groupize/aime-planner-demo/internal/services"
)

// RestConversationHandler serves read access to stored conversations.
type RestConversationHandler struct {
	conversationService services.IConversationService
}

// NewRestConversationHandler creates a new RestConversationHandler.
func NewRestConversationHandler(conversationService services.IConversationService) *RestConversationHandler {
	return &RestConversationHandler{conversationService: conversationService}
}

// GetConversation handles GET /v1/conversation/:id
func (h *RestConversationHandler) GetConversation(c *gin.Context) {
	conversationID := c.Param("id")

	conv, err := h.conversationService.GetConversation(c.Request.Context(), conversationID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversation"})
		return
	}

	c.JSON(http.StatusOK, conv)
}

// RecentConversations handles GET /v1/conversation/recent
func (h *RestConversationHandler) RecentConversations(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "20")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}

	conversations, err := h.conversationService.RecentConversations(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": conversations,
		"count":         len(conversations),
	})
}
