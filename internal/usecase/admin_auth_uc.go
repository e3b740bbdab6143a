// File: internal/usecase/admin_auth_uc.go
package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"assessment-activation/internal/domain"
	"assessment-activation/internal/domain/model"
	"assessment-activation/internal/domain/ports/repository"
)

const sessionTTL = 7 * 24 * time.Hour

// AdminAuthUseCase implements login/logout over bcrypt passwords and opaque
// session tokens stored in the database, so a deleted row is an immediately
// revoked session.
type AdminAuthUseCase struct {
	users    repository.AdminUserRepository
	sessions repository.AdminSessionRepository
	log      *zerolog.Logger
	now      func() time.Time
}

func NewAdminAuthUseCase(
	users repository.AdminUserRepository,
	sessions repository.AdminSessionRepository,
	logger *zerolog.Logger,
) *AdminAuthUseCase {
	return &AdminAuthUseCase{users: users, sessions: sessions, log: logger, now: time.Now}
}

// WithClock overrides the use case's clock. Test hook.
func (uc *AdminAuthUseCase) WithClock(now func() time.Time) *AdminAuthUseCase {
	uc.now = now
	return uc
}

func generateSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Login verifies the password and mints a new session. The same error comes
// back for a wrong username and a wrong password.
func (uc *AdminAuthUseCase) Login(ctx context.Context, username, password, ip, userAgent string) (string, *model.AdminUser, error) {
	admin, err := uc.users.FindByUsername(ctx, repository.NoTX, username)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if admin.Status != model.AdminStatusActive {
		return "", nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := generateSessionToken()
	if err != nil {
		return "", nil, err
	}
	now := uc.now()
	session := &model.AdminSession{
		ID:        uuid.NewString(),
		AdminID:   admin.ID,
		Token:     token,
		IPAddress: ip,
		UserAgent: userAgent,
		ExpiresAt: now.Add(sessionTTL),
		CreatedAt: now,
	}
	if err := uc.sessions.Insert(ctx, repository.NoTX, session); err != nil {
		return "", nil, err
	}
	if err := uc.users.TouchLogin(ctx, repository.NoTX, admin.ID, ip, now); err != nil {
		uc.log.Warn().Err(err).Str("admin", admin.Username).Msg("failed to record last login")
	}

	uc.log.Info().Str("admin", admin.Username).Str("ip", ip).Msg("admin logged in")
	return token, admin, nil
}

// Verify resolves a bearer token to its admin. Expired sessions are deleted
// lazily on first sight.
func (uc *AdminAuthUseCase) Verify(ctx context.Context, token string) (*model.AdminUser, error) {
	if token == "" {
		return nil, domain.ErrInvalidCredentials
	}
	session, err := uc.sessions.FindByToken(ctx, repository.NoTX, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if session.ExpiresAt.Before(uc.now()) {
		_ = uc.sessions.DeleteByToken(ctx, repository.NoTX, token)
		return nil, domain.ErrSessionExpired
	}

	admin, err := uc.users.FindByID(ctx, repository.NoTX, session.AdminID)
	if err != nil {
		return nil, err
	}
	if admin.Status != model.AdminStatusActive {
		return nil, domain.ErrInvalidCredentials
	}
	return admin, nil
}

func (uc *AdminAuthUseCase) Logout(ctx context.Context, token string) error {
	return uc.sessions.DeleteByToken(ctx, repository.NoTX, token)
}

// ChangePassword re-verifies the old password, stores the new hash and clears
// every session of the admin so all devices must log in again.
func (uc *AdminAuthUseCase) ChangePassword(ctx context.Context, adminID, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return domain.ErrInvalidArgument
	}
	admin, err := uc.users.FindByID(ctx, repository.NoTX, adminID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(oldPassword)) != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := uc.users.UpdatePassword(ctx, repository.NoTX, adminID, string(hash)); err != nil {
		return err
	}
	return uc.sessions.DeleteByAdmin(ctx, repository.NoTX, adminID)
}

// CreateAdmin provisions a back-office account.
func (uc *AdminAuthUseCase) CreateAdmin(ctx context.Context, username, password, nickname, email string) (*model.AdminUser, error) {
	if username == "" || len(password) < 8 {
		return nil, domain.ErrInvalidArgument
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	admin := &model.AdminUser{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		Nickname:     nickname,
		Email:        email,
		Status:       model.AdminStatusActive,
		CreatedAt:    uc.now(),
	}
	if err := uc.users.Create(ctx, repository.NoTX, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// ReapExpiredSessions deletes sessions past their expiry. Called periodically
// by the scheduler.
func (uc *AdminAuthUseCase) ReapExpiredSessions(ctx context.Context) (int64, error) {
	n, err := uc.sessions.DeleteExpired(ctx, repository.NoTX, uc.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		uc.log.Info().Int64("sessions", n).Msg("reaped expired admin sessions")
	}
	return n, nil
}
