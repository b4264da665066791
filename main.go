package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/hibiken/asynq"

	"github.com/Groupize/aime-planner-demo/internal/api"
	"github.com/Groupize/aime-planner-demo/internal/cache"
	"github.com/Groupize/aime-planner-demo/internal/config"
	"github.com/Groupize/aime-planner-demo/internal/db"
	"github.com/Groupize/aime-planner-demo/internal/email"
	"github.com/Groupize/aime-planner-demo/internal/services"
	"github.com/Groupize/aime-planner-demo/internal/tasks"
)

var (
	runMode  = flag.String("m", "all", "Run mode: 'api', 'bg' (background tasks), 'all' (default)")
	setupSES = flag.Bool("setup-ses", false, "Verify the email domain and create the SES receipt rule, then exit")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	// Initialize Cache (Redis)
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	// Initialize SES client when AWS credentials are configured
	var sesClient *ses.Client
	if cfg.AwsAccessKeyID != "" {
		awsOpts := []func(*aws_config.LoadOptions) error{
			aws_config.WithRegion(cfg.AwsRegion),
			aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AwsAccessKeyID,
				cfg.AwsSecretAccessKey,
				"",
			)),
		}
		if cfg.AwsEndpointURL != "" {
			awsOpts = append(awsOpts, aws_config.WithBaseEndpoint(cfg.AwsEndpointURL))
		}
		awsCfg, err := aws_config.LoadDefaultConfig(context.TODO(), awsOpts...)
		if err != nil {
			log.Fatalf("Failed to load AWS config for SES client: %v", err)
		}
		sesClient = ses.NewFromConfig(awsCfg)
	}

	// One-off admin mode: provision SES email receiving and exit.
	if *setupSES {
		runSESSetup(cfg, sesClient)
		return
	}

	// Initialize Email Sender. SES when configured, SMTP/logging otherwise.
	var primaryEmailSender email.Sender
	if sesClient != nil {
		log.Println("AWS credentials configured: Using SES email sender.")
		primaryEmailSender = email.NewSESSender(sesClient, cfg)
	} else {
		log.Println("AWS credentials not set: Using SMTP/Logging email sender.")
		primaryEmailSender = email.NewSMTPSender(cfg)
	}

	// Setup Composite Email Sender
	compositeSender := email.NewCompositeEmailSender(primaryEmailSender)

	// Optionally add FileEmailSender if LOG_EMAILS is set
	logEmailsPath := os.Getenv("LOG_EMAILS")
	if logEmailsPath != "" {
		log.Printf("LOG_EMAILS set to '%s', enabling file email logger.", logEmailsPath)
		fileSender, err := email.NewFileEmailSender(logEmailsPath)
		if err != nil {
			log.Printf("WARNING: Failed to initialize file email sender (LOG_EMAILS='%s'): %v. Proceeding without file logging.", logEmailsPath, err)
		} else {
			compositeSender.AddSender(fileSender)
			log.Println("File email logger added to composite sender.")
		}
	}

	finalEmailSender := email.Sender(compositeSender)

	// Initialize Task Client and the redelivery queue built on it
	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()
	reportQueue := tasks.NewReportQueue(taskClient)

	// The task processor delivers queued callbacks without re-queueing;
	// asynq's retry schedule owns the backoff.
	railsService := services.NewRailsAPIService(cfg, nil)
	taskProcessor := tasks.NewTaskProcessor(cfg, railsService)

	// WaitGroup for managing goroutines
	var wg sync.WaitGroup

	var mainApiSrv *http.Server
	var backgroundTaskSrv *asynq.Server

	fmt.Printf("Starting application in '%s' mode...\n", cfg.RunMode)

	apiMode := func() {
		fmt.Println("Starting main API server...")
		mainApiRouter := api.SetupRouter(cfg, mongoDb, redisClient, finalEmailSender, reportQueue)
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: mainApiRouter,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Printf("Main API listening on :%s\n", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
			fmt.Println("Main API server stopped.")
		}()
	}

	bgMode := func() {
		fmt.Println("Starting background worker...")
		srv, mux := tasks.SetupServer(redisClient, taskProcessor)
		backgroundTaskSrv = srv
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Println("Background task server starting...")
			if err := srv.Run(mux); err != nil {
				log.Fatalf("Background task server error: %v", err)
			}
			fmt.Println("Background task server stopped.")
		}()
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		log.Fatalf("Invalid run mode specified: %s.", cfg.RunMode)
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	fmt.Printf("\nReceived signal: %s. Shutting down gracefully...\n", sig)

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if mainApiSrv != nil {
		fmt.Println("Shutting down Main API server...")
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("Main API server shutdown error: %v", err)
		}
	}

	if backgroundTaskSrv != nil {
		fmt.Println("Shutting down Background Task server...")
		backgroundTaskSrv.Shutdown()
	}

	fmt.Println("Waiting for servers to stop...")
	wg.Wait()

	fmt.Println("Server gracefully stopped")
}

// runSESSetup provisions domain verification and the SNS receipt rule used
// for inbound vendor replies.
func runSESSetup(cfg *config.Config, sesClient *ses.Client) {
	if sesClient == nil {
		log.Fatal("SES setup requires AWS credentials (AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY)")
	}
	snsTopicArn := os.Getenv("SNS_INBOUND_TOPIC_ARN")
	if snsTopicArn == "" {
		log.Fatal("SES setup requires SNS_INBOUND_TOPIC_ARN")
	}

	sender := email.NewSESSender(sesClient, cfg).(*email.SESSender)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sender.VerifyDomain(ctx, cfg.EmailDomain); err != nil {
		log.Fatalf("SES domain verification failed: %v", err)
	}
	if err := sender.SetupReceiptRule(ctx,
		"aime-planner", "inbound-vendor-replies",
		[]string{cfg.FromAddress()}, snsTopicArn); err != nil {
		log.Fatalf("SES receipt rule setup failed: %v", err)
	}
	fmt.Println("SES email receiving configured.")
}
