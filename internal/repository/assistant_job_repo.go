package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatwave-backend/internal/models"
)

type AssistantJobRepo struct {
	pool *pgxpool.Pool
}

func NewAssistantJobRepo(pool *pgxpool.Pool) *AssistantJobRepo {
	return &AssistantJobRepo{pool: pool}
}

func (r *AssistantJobRepo) Create(ctx context.Context, job *models.AssistantJob) error {
	query := `
		INSERT INTO assistant_jobs (id, chat_id, user_id, message_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	job.ID = uuid.New()
	job.Status = "pending"

	return r.pool.QueryRow(ctx, query,
		job.ID, job.ChatID, job.UserID, job.MessageID, job.Status,
	).Scan(&job.CreatedAt)
}

func (r *AssistantJobRepo) UpdateStatus(ctx context.Context, jobID uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, "UPDATE assistant_jobs SET status = $1 WHERE id = $2", status, jobID)
	return err
}

func (r *AssistantJobRepo) MarkCompleted(ctx context.Context, jobID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE assistant_jobs SET status = 'completed', completed_at = $1 WHERE id = $2",
		time.Now(), jobID)
	return err
}

func (r *AssistantJobRepo) MarkFailed(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE assistant_jobs
		 SET status = 'failed', error_message = $1, retry_count = retry_count + 1, completed_at = $2
		 WHERE id = $3`,
		errMsg, time.Now(), jobID)
	return err
}
