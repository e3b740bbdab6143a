package repository

import (
	"context"

	"assessment-activation/internal/domain/model"
)

// CodeFilter narrows and pages the admin code listing.
type CodeFilter struct {
	Status   string // "" or "all" means any status
	Query    string // substring match on code or notes
	Page     int    // 1-based
	PageSize int
}

// CodePatch is a partial update; nil fields are left untouched.
type CodePatch struct {
	Code         *string
	MaxUses      *int
	DailyLimit   *int
	ValidityDays *int
	Notes        *string
}

// ActivationCodeRepository is the port for the code store.
type ActivationCodeRepository interface {
	// Create inserts a new code; domain.ErrAlreadyExists when the code
	// string is already taken.
	Create(ctx context.Context, tx Tx, code *model.ActivationCode) error
	FindByCode(ctx context.Context, tx Tx, code string) (*model.ActivationCode, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.ActivationCode, error)
	Update(ctx context.Context, tx Tx, id string, patch CodePatch) error
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.CodeStatus) error
	// Delete hard-deletes the code; ledger rows go with it via FK cascade.
	Delete(ctx context.Context, tx Tx, id string) error
	List(ctx context.Context, tx Tx, filter CodeFilter) ([]*model.ActivationCode, int, error)
	// IncrementUses bumps CurrentUses by one only while it is still below
	// MaxUses, reporting whether a row was updated. This conditional
	// update is the single correctness-critical write in the system.
	IncrementUses(ctx context.Context, tx Tx, id string) (bool, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.CodeStatus]int, error)
}
