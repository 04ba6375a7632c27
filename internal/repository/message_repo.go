package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatwave-backend/internal/models"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Insert(ctx context.Context, msg *models.Message) error {
	query := `
		INSERT INTO messages (id, chat_id, sender_id, recipient_id, body)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING sent_at`

	msg.ID = uuid.New()

	return r.pool.QueryRow(ctx, query,
		msg.ID, msg.ChatID, msg.SenderID, msg.RecipientID, msg.Body,
	).Scan(&msg.SentAt)
}

// History returns the newest `limit` messages of a chat, oldest first.
func (r *MessageRepo) History(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, chat_id, sender_id, recipient_id, body, sent_at FROM (
			SELECT id, chat_id, sender_id, recipient_id, body, sent_at
			FROM messages
			WHERE chat_id = $1
			ORDER BY sent_at DESC
			LIMIT $2
		) recent ORDER BY sent_at ASC`, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.RecipientID, &m.Body, &m.SentAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// PruneBefore deletes messages sent before the cutoff and reports how many
// rows went away. Used by the retention sweeper.
func (r *MessageRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM messages WHERE sent_at < $1", cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
