package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/bakery-api/internal/model"
)

type LoginLogRepository interface {
	Create(ctx context.Context, entry *model.LoginLog) error
}

type pgLoginLogRepo struct{ pool *pgxpool.Pool }

func NewLoginLogRepository(pool *pgxpool.Pool) LoginLogRepository {
	return &pgLoginLogRepo{pool: pool}
}

func (r *pgLoginLogRepo) Create(ctx context.Context, entry *model.LoginLog) error {
	entry.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO login_logs (id, kind, account_id, email, success, ip, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW()) RETURNING created_at`,
		entry.ID, entry.Kind, entry.AccountID, entry.Email, entry.Success, entry.IP, entry.UserAgent,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert login log: %w", err)
	}
	return nil
}
