package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"chatwave-backend/internal/chat"
	"chatwave-backend/internal/models"
	"chatwave-backend/internal/services"
)

type messageStore interface {
	Insert(ctx context.Context, msg *models.Message) error
}

type jobStore interface {
	UpdateStatus(ctx context.Context, jobID uuid.UUID, status string) error
	MarkCompleted(ctx context.Context, jobID uuid.UUID) error
	MarkFailed(ctx context.Context, jobID uuid.UUID, errMsg string) error
}

type replier interface {
	Reply(ctx context.Context, chatID string) (string, error)
	PublishEvent(ctx context.Context, userID string, event models.WSEvent)
}

// Pool consumes queued assistant-reply jobs: each job is one user message
// addressed to the assistant, answered by the LLM and relayed back over the
// user's socket channel.
type Pool struct {
	redis       *redis.Client
	assistant   replier
	messageRepo messageStore
	jobRepo     jobStore
	workerCount int
	stopChan    chan struct{}
}

func NewPool(
	redisClient *redis.Client,
	assistant replier,
	messageRepo messageStore,
	jobRepo jobStore,
	workerCount int,
) *Pool {
	return &Pool{
		redis:       redisClient,
		assistant:   assistant,
		messageRepo: messageRepo,
		jobRepo:     jobRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d assistant workers", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, services.QueueAssistantReplies).Result()
		if err != nil {
			continue // Timeout or error, retry
		}
		if len(result) < 2 {
			continue
		}

		var job models.AssistantJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: answering chat %s (job %s)", id, job.ChatID, job.ID)

		p.jobRepo.UpdateStatus(ctx, job.ID, "processing")

		if err := p.processReply(ctx, &job); err != nil {
			p.handleFailure(ctx, &job, err)
		} else {
			p.jobRepo.MarkCompleted(ctx, job.ID)
		}
	}
}

func (p *Pool) processReply(ctx context.Context, job *models.AssistantJob) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	reply, err := p.assistant.Reply(ctx, job.ChatID)
	if err != nil {
		return err
	}

	msg := &models.Message{
		ChatID:      job.ChatID,
		SenderID:    chat.AssistantID,
		RecipientID: job.UserID,
		Body:        reply,
	}
	if err := p.messageRepo.Insert(ctx, msg); err != nil {
		return fmt.Errorf("failed to persist assistant reply: %w", err)
	}

	p.assistant.PublishEvent(ctx, job.UserID, models.WSEvent{
		Type:    models.WSTypeMessage,
		Payload: msg,
	})
	return nil
}

func (p *Pool) handleFailure(ctx context.Context, job *models.AssistantJob, processErr error) {
	log.Printf("Assistant job %s failed: %v", job.ID, processErr)
	p.jobRepo.MarkFailed(ctx, job.ID, processErr.Error())

	p.assistant.PublishEvent(ctx, job.UserID, models.WSEvent{
		Type: models.WSTypeError,
		Payload: models.WSError{
			Code:    "ASSISTANT_FAILED",
			Message: "The assistant could not answer your message",
		},
	})
}
