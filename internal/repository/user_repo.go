package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatwave-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, phone_number, avatar_url)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	user.ID = uuid.New()

	return r.pool.QueryRow(ctx, query,
		user.ID, user.Username, user.PhoneNumber, user.AvatarURL,
	).Scan(&user.CreatedAt)
}

func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, username, phone_number, avatar_url, created_at, last_seen_at
		FROM users WHERE phone_number = $1`

	err := r.pool.QueryRow(ctx, query, phone).Scan(
		&user.ID, &user.Username, &user.PhoneNumber, &user.AvatarURL,
		&user.CreatedAt, &user.LastSeenAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, username, phone_number, avatar_url, created_at, last_seen_at
		FROM users WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.PhoneNumber, &user.AvatarURL,
		&user.CreatedAt, &user.LastSeenAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, username, phone_number, avatar_url, created_at, last_seen_at
		FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PhoneNumber, &u.AvatarURL, &u.CreatedAt, &u.LastSeenAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (r *UserRepo) TouchLastSeen(ctx context.Context, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET last_seen_at = $1 WHERE id = $2", time.Now(), userID)
	return err
}
