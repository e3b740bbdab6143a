package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"assessment-activation/internal/domain"
	"assessment-activation/internal/domain/model"
	"assessment-activation/internal/domain/ports/repository"
)

var _ repository.AdminSessionRepository = (*adminSessionRepo)(nil)

type adminSessionRepo struct {
	pool *pgxpool.Pool
}

func NewAdminSessionRepo(pool *pgxpool.Pool) repository.AdminSessionRepository {
	return &adminSessionRepo{pool: pool}
}

func (r *adminSessionRepo) Insert(ctx context.Context, tx repository.Tx, s *model.AdminSession) error {
	const q = `
INSERT INTO admin_sessions (id, admin_id, token, ip_address, user_agent, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.AdminID, s.Token, s.IPAddress, s.UserAgent, s.ExpiresAt, s.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert admin session: %w", err)
	}
	return nil
}

func (r *adminSessionRepo) FindByToken(ctx context.Context, tx repository.Tx, token string) (*model.AdminSession, error) {
	const q = `
SELECT id, admin_id, token, ip_address, user_agent, expires_at, created_at
  FROM admin_sessions WHERE token = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, token)
	if err != nil {
		return nil, err
	}
	var s model.AdminSession
	err = row.Scan(&s.ID, &s.AdminID, &s.Token, &s.IPAddress, &s.UserAgent, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &s, nil
}

func (r *adminSessionRepo) DeleteByToken(ctx context.Context, tx repository.Tx, token string) error {
	_, err := execSQL(ctx, r.pool, tx, `DELETE FROM admin_sessions WHERE token = $1;`, token)
	if err != nil {
		return fmt.Errorf("delete admin session: %w", err)
	}
	return nil
}

func (r *adminSessionRepo) DeleteByAdmin(ctx context.Context, tx repository.Tx, adminID string) error {
	_, err := execSQL(ctx, r.pool, tx, `DELETE FROM admin_sessions WHERE admin_id = $1;`, adminID)
	if err != nil {
		return fmt.Errorf("delete admin sessions: %w", err)
	}
	return nil
}

func (r *adminSessionRepo) DeleteExpired(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM admin_sessions WHERE expires_at < $1;`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
