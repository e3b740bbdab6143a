package repository

import (
	"context"
	"time"

	"assessment-activation/internal/domain/model"
)

// AdminUserRepository is the port for back-office accounts.
type AdminUserRepository interface {
	Create(ctx context.Context, tx Tx, u *model.AdminUser) error
	FindByUsername(ctx context.Context, tx Tx, username string) (*model.AdminUser, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.AdminUser, error)
	UpdatePassword(ctx context.Context, tx Tx, id, passwordHash string) error
	TouchLogin(ctx context.Context, tx Tx, id, ip string, at time.Time) error
}

// AdminSessionRepository is the port for opaque admin session tokens.
type AdminSessionRepository interface {
	Insert(ctx context.Context, tx Tx, s *model.AdminSession) error
	FindByToken(ctx context.Context, tx Tx, token string) (*model.AdminSession, error)
	DeleteByToken(ctx context.Context, tx Tx, token string) error
	DeleteByAdmin(ctx context.Context, tx Tx, adminID string) error
	// DeleteExpired reaps sessions whose expiry is before cutoff and
	// returns how many rows went away.
	DeleteExpired(ctx context.Context, tx Tx, cutoff time.Time) (int64, error)
}
