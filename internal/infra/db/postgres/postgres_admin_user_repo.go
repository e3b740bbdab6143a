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

var _ repository.AdminUserRepository = (*adminUserRepo)(nil)

type adminUserRepo struct {
	pool *pgxpool.Pool
}

func NewAdminUserRepo(pool *pgxpool.Pool) repository.AdminUserRepository {
	return &adminUserRepo{pool: pool}
}

const adminColumns = `id, username, password_hash, nickname, email, status, last_login_at, last_login_ip, created_at`

func scanAdmin(row pgx.Row) (*model.AdminUser, error) {
	var u model.AdminUser
	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Nickname, &u.Email,
		&u.Status, &u.LastLoginAt, &u.LastLoginIP, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &u, nil
}

func (r *adminUserRepo) Create(ctx context.Context, tx repository.Tx, u *model.AdminUser) error {
	const q = `
INSERT INTO admin_users (id, username, password_hash, nickname, email, status, last_login_at, last_login_ip, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		u.ID, u.Username, u.PasswordHash, u.Nickname, u.Email,
		u.Status, u.LastLoginAt, u.LastLoginIP, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	return nil
}

func (r *adminUserRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.AdminUser, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+adminColumns+` FROM admin_users WHERE username = $1;`, username)
	if err != nil {
		return nil, err
	}
	return scanAdmin(row)
}

func (r *adminUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.AdminUser, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+adminColumns+` FROM admin_users WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	return scanAdmin(row)
}

func (r *adminUserRepo) UpdatePassword(ctx context.Context, tx repository.Tx, id, passwordHash string) error {
	tag, err := execSQL(ctx, r.pool, tx, `UPDATE admin_users SET password_hash = $1 WHERE id = $2;`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *adminUserRepo) TouchLogin(ctx context.Context, tx repository.Tx, id, ip string, at time.Time) error {
	_, err := execSQL(ctx, r.pool, tx,
		`UPDATE admin_users SET last_login_at = $1, last_login_ip = $2 WHERE id = $3;`, at, ip, id)
	if err != nil {
		return fmt.Errorf("touch admin login: %w", err)
	}
	return nil
}
