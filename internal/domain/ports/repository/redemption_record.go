package repository

import (
	"context"

	"assessment-activation/internal/domain/model"
)

// RedemptionRecordRepository is the port for the redemption ledger.
type RedemptionRecordRepository interface {
	Insert(ctx context.Context, tx Tx, rec *model.RedemptionRecord) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.RedemptionRecord, error)
	FindByCodeAndDevice(ctx context.Context, tx Tx, codeID, deviceID string) (*model.RedemptionRecord, error)
	// FindAllByCode returns every ledger row of a code; quota decisions
	// aggregate over the full set.
	FindAllByCode(ctx context.Context, tx Tx, codeID string) ([]*model.RedemptionRecord, error)
	// IncrementUsage adds one to the record's counter for day, atomically
	// inside the storage engine.
	IncrementUsage(ctx context.Context, tx Tx, id, day string) error
	FindAll(ctx context.Context, tx Tx) ([]*model.RedemptionRecord, error)
	ListRecent(ctx context.Context, tx Tx, code string, limit int) ([]*model.RedemptionRecord, error)
	Count(ctx context.Context, tx Tx) (int, error)
}
