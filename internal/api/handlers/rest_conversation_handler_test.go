package handlers_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Groupize/aime-planner-demo/internal/api/handlers"
	"github.com/Groupize/aime-planner-demo/internal/models"
	"github.com/Groupize/aime-planner-demo/internal/services"
)

func setupConversationRouter(conversationService services.IConversationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := handlers.NewRestConversationHandler(conversationService)
	r.GET("/v1/conversation/recent", handler.RecentConversations)
	r.GET("/v1/conversation/:id", handler.GetConversation)
	return r
}

func handlerTestConversation(t *testing.T) *models.Conversation {
	conv, err := models.NewConversation(
		models.EventMetadata{
			Name: "Team Offsite", Dates: []string{"2026-10-01"},
			EventType: "offsite", PlannerName: "Jo West", PlannerEmail: "jo@company.com",
		},
		models.VendorInfo{Name: "Lakeside Lodge", Email: "book@lakeside.com", ServiceType: "venue"},
		[]models.Question{{ID: 1, Text: "Capacity?", Required: true}},
		4, nil)
	require.NoError(t, err)
	return conv
}

func TestGetConversation_Found(t *testing.T) {
	mockStore := new(MockConversationService)
	conv := handlerTestConversation(t)
	mockStore.On("GetConversation", mock.Anything, conv.ConversationID).Return(conv, nil)
	router := setupConversationRouter(mockStore)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/conversation/"+conv.ConversationID, nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.Conversation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, conv.ConversationID, resp.ConversationID)
	assert.Equal(t, "Lakeside Lodge", resp.VendorInfo.Name)
}

func TestGetConversation_NotFound(t *testing.T) {
	mockStore := new(MockConversationService)
	mockStore.On("GetConversation", mock.Anything, "missing-id").Return(nil, mongo.ErrNoDocuments)
	router := setupConversationRouter(mockStore)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/conversation/missing-id", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Conversation not found")
}

func TestGetConversation_StoreError(t *testing.T) {
	mockStore := new(MockConversationService)
	mockStore.On("GetConversation", mock.Anything, "some-id").Return(nil, errors.New("connection reset"))
	router := setupConversationRouter(mockStore)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/conversation/some-id", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRecentConversations(t *testing.T) {
	mockStore := new(MockConversationService)
	conv := handlerTestConversation(t)
	mockStore.On("RecentConversations", mock.Anything, int64(5)).
		Return([]models.Conversation{*conv}, nil)
	router := setupConversationRouter(mockStore)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/conversation/recent?limit=5", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["count"])
	mockStore.AssertExpectations(t)
}

func TestRecentConversations_BadLimitFallsBack(t *testing.T) {
	mockStore := new(MockConversationService)
	mockStore.On("RecentConversations", mock.Anything, int64(20)).
		Return([]models.Conversation{}, nil)
	router := setupConversationRouter(mockStore)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/conversation/recent?limit=banana", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockStore.AssertExpectations(t)
}
