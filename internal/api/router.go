package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Groupize/aime-planner-demo/internal/api/handlers"
	"github.com/Groupize/aime-planner-demo/internal/api/middleware"
	"github.com/Groupize/aime-planner-demo/internal/cache"
	"github.com/Groupize/aime-planner-demo/internal/config"
	"github.com/Groupize/aime-planner-demo/internal/email"
	"github.com/Groupize/aime-planner-demo/internal/services"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client,
	sender email.Sender, reportQueue services.IReportQueue) *gin.Engine {

	// Initialize services needed by API handlers
	conversationService := services.NewConversationService(db)
	llmService, err := services.NewLLMService(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize LLM service for API: %v", err)
	}
	railsService := services.NewRailsAPIService(cfg, reportQueue)
	vendorMailer := email.NewVendorMailer(cfg, sender)
	messageDedup := cache.NewMessageDedup(rdb, cfg.InboundDedupTTL)
	bidService := services.NewBidService(cfg, conversationService, llmService,
		vendorMailer, railsService, messageDedup)

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(rateLimiter.Limit())

	// Initialize handlers
	bidHandler := handlers.NewBidHandler(bidService)
	inboundHandler := handlers.NewInboundEmailHandler(bidService)
	conversationHandler := handlers.NewRestConversationHandler(conversationService)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// All operational routes require the shared service API key.
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.ServiceAPIKey))
		{
			authRequired.POST("/bid/initiate", bidHandler.InitiateBid)
			authRequired.POST("/email/inbound", inboundHandler.ProcessInbound)
			authRequired.GET("/conversation/recent", conversationHandler.RecentConversations)
			authRequired.GET("/conversation/:id", conversationHandler.GetConversation)
		}
	}

	return r
}
