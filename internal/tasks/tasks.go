package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/Groupize/aime-planner-demo/internal/config"
	"github.com/Groupize/aime-planner-demo/internal/services"
)

// Task types.
const (
	TypeRailsRedeliver = "rails:redeliver"
)

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return asynq.NewClient(clientOpt)
}

// RailsRedeliverPayload is the queued form of a failed backend callback.
type RailsRedeliverPayload struct {
	Path    string         `json:"path"`
	Payload map[string]any `json:"payload"`
}

// ReportQueue implements services.IReportQueue on top of asynq.
type ReportQueue struct {
	client *asynq.Client
}

func NewReportQueue(client *asynq.Client) *ReportQueue {
	return &ReportQueue{client: client}
}

func (q *ReportQueue) EnqueueRedelivery(path string, payload map[string]any) error {
	data, err := json.Marshal(RailsRedeliverPayload{Path: path, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal redelivery payload: %w", err)
	}

	task := asynq.NewTask(TypeRailsRedeliver, data)
	info, err := q.client.Enqueue(task, asynq.Queue("default"), asynq.MaxRetry(10))
	if err != nil {
		return fmt.Errorf("failed to enqueue redelivery task: %w", err)
	}
	log.Printf("Queued callback redelivery task %s for %s", info.ID, path)
	return nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of background tasks.
type TaskProcessor struct {
	cfg   *config.Config
	rails services.IRailsAPIService
}

func NewTaskProcessor(cfg *config.Config, rails services.IRailsAPIService) *TaskProcessor {
	return &TaskProcessor{
		cfg:   cfg,
		rails: rails,
	}
}

// SetupServer configures an Asynq server and its handler mux. The server's
// own retry schedule drives callback redelivery.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRailsRedeliver, processor.HandleRailsRedeliverTask)
	log.Println("Registered background task handlers.")

	return srv, mux
}

// --- Task Handlers ---

// HandleRailsRedeliverTask retries a backend callback that failed inline.
// A delivery error is returned so asynq schedules the next attempt.
func (p *TaskProcessor) HandleRailsRedeliverTask(ctx context.Context, t *asynq.Task) error {
	var payload RailsRedeliverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal redelivery payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Path == "" {
		return fmt.Errorf("redelivery payload has no path: %w", asynq.SkipRetry)
	}

	if err := p.rails.Deliver(ctx, payload.Path, payload.Payload); err != nil {
		log.Printf("Callback redelivery to %s failed (will retry): %v", payload.Path, err)
		return err
	}

	log.Printf("Callback redelivered successfully to %s", payload.Path)
	return nil
}
