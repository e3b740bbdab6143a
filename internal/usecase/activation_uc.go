// File: internal/usecase/activation_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"assessment-activation/internal/domain"
	"assessment-activation/internal/domain/model"
	"assessment-activation/internal/domain/ports/repository"
	"assessment-activation/internal/infra/metrics"
)

// RedeemResult is the outcome of a redemption attempt. Quota-policy
// rejections are routine outcomes carried in-band (Valid=false + Reason),
// never Go errors; only infrastructure failures surface as errors.
type RedeemResult struct {
	Valid          bool
	Reason         domain.Reason
	IsActivated    bool // device already held a record before this call
	RecordID       string
	ExpiresAt      time.Time
	DailyLimit     int
	DailyRemaining int
	DaysLeft       int
	TodayUsage     int
}

// UsageResult is the outcome of consuming one unit of quota.
type UsageResult struct {
	Success        bool
	Reason         domain.Reason
	Expired        bool
	DaysLeft       int
	DailyRemaining int
	DailyLimit     int
	ExpiresAt      time.Time
}

// StatusResult is the device-scoped readback of an activation.
type StatusResult struct {
	Success        bool
	Reason         domain.Reason
	Expired        bool
	DaysLeft       int
	DailyRemaining int
	DailyLimit     int
	ExpiresAt      time.Time
	TotalUsage     int
}

// ActivationUseCase orchestrates redemption and usage recording on top of the
// pure quota computation in the model package.
//
// Redeem and RecordUsage are independent, individually idempotent-safe
// operations: redeeming twice for the same device returns the same record and
// never double-charges, and each RecordUsage call consumes exactly one unit.
// Callers must not invoke both for a single user-visible action.
type ActivationUseCase struct {
	codes   repository.ActivationCodeRepository
	records repository.RedemptionRecordRepository
	tm      repository.TransactionManager
	log     *zerolog.Logger
	now     func() time.Time
}

func NewActivationUseCase(
	codes repository.ActivationCodeRepository,
	records repository.RedemptionRecordRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *ActivationUseCase {
	return &ActivationUseCase{
		codes:   codes,
		records: records,
		tm:      tm,
		log:     logger,
		now:     time.Now,
	}
}

// WithClock overrides the use case's clock. Test hook.
func (uc *ActivationUseCase) WithClock(now func() time.Time) *ActivationUseCase {
	uc.now = now
	return uc
}

func rejectRedeem(reason domain.Reason) *RedeemResult {
	return &RedeemResult{Valid: false, Reason: reason}
}

// statusReason maps a non-active code status to its rejection reason.
func statusReason(s model.CodeStatus) domain.Reason {
	switch s {
	case model.CodeStatusRevoked:
		return domain.ReasonCodeRevoked
	case model.CodeStatusExpired:
		return domain.ReasonCodeExpired
	case model.CodeStatusUsed:
		return domain.ReasonMaxUsesReached
	default:
		return domain.ReasonInvalidStatus
	}
}

// Redeem associates deviceID with the given code, or returns the device's
// existing record. The decision order is deliberate: lifetime-cap and
// revocation checks precede the daily-limit check, and the daily-limit
// rejection still carries DaysLeft so the client can tell "come back
// tomorrow" apart from "this code is dead".
func (uc *ActivationUseCase) Redeem(ctx context.Context, rawCode, deviceID string) (*RedeemResult, error) {
	norm, ok := model.NormalizeCode(rawCode)
	if !ok {
		metrics.IncVerify(string(domain.ReasonInvalidFormat))
		return rejectRedeem(domain.ReasonInvalidFormat), nil
	}
	if deviceID == "" {
		metrics.IncVerify(string(domain.ReasonInvalidFormat))
		return rejectRedeem(domain.ReasonInvalidFormat), nil
	}

	var res *RedeemResult
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		code, err := uc.codes.FindByCode(ctx, tx, norm)
		if errors.Is(err, domain.ErrNotFound) {
			res = rejectRedeem(domain.ReasonCodeNotFound)
			return nil
		}
		if err != nil {
			return err
		}
		if code.Status != model.CodeStatusActive {
			res = rejectRedeem(statusReason(code.Status))
			return nil
		}

		records, err := uc.records.FindAllByCode(ctx, tx, code.ID)
		if err != nil {
			return err
		}

		now := uc.now()
		today := model.Today(now)
		agg := model.ComputeAggregate(code, records, today, now)

		var mine *model.RedemptionRecord
		for _, rec := range records {
			if rec.DeviceID == deviceID {
				mine = rec
				break
			}
		}

		// Lifetime cap only blocks devices that do not hold a seat yet.
		if mine == nil && !code.HasFreeSeat() {
			res = rejectRedeem(domain.ReasonMaxUsesReached)
			return nil
		}

		if agg.TotalUsedToday >= code.DailyLimit {
			res = &RedeemResult{
				Valid:       false,
				Reason:      domain.ReasonDailyLimitReached,
				IsActivated: len(records) > 0,
				DailyLimit:  code.DailyLimit,
				DaysLeft:    agg.DaysLeft,
			}
			return nil
		}

		if mine != nil {
			if agg.Expired(now) {
				res = rejectRedeem(domain.ReasonCodeExpired)
				return nil
			}
			res = &RedeemResult{
				Valid:          true,
				IsActivated:    true,
				RecordID:       mine.ID,
				ExpiresAt:      agg.EffectiveExpiry,
				DailyLimit:     code.DailyLimit,
				DailyRemaining: agg.DailyRemaining,
				DaysLeft:       agg.DaysLeft,
				TodayUsage:     agg.TotalUsedToday,
			}
			return nil
		}

		// New device: insert the ledger row, then take a seat with the
		// conditional increment. Zero affected rows means a concurrent
		// redemption won the last seat; roll the insert back.
		rec := &model.RedemptionRecord{
			ID:          ulid.Make().String(),
			CodeID:      code.ID,
			Code:        code.Code,
			DeviceID:    deviceID,
			ExpiresAt:   now.AddDate(0, 0, code.ValidityDays),
			Usage:       model.UsageByDate{},
			ActivatedAt: now,
		}
		if err := uc.records.Insert(ctx, tx, rec); err != nil {
			return err
		}
		seated, err := uc.codes.IncrementUses(ctx, tx, code.ID)
		if err != nil {
			return err
		}
		if !seated {
			return domain.ErrMaxUsesReached
		}

		// The reported expiry stays the pre-existing minimum across other
		// devices; only the very first device starts the clock.
		effective := agg.EffectiveExpiry
		if effective.IsZero() {
			effective = rec.ExpiresAt
		}
		res = &RedeemResult{
			Valid:          true,
			IsActivated:    false,
			RecordID:       rec.ID,
			ExpiresAt:      effective,
			DailyLimit:     code.DailyLimit,
			DailyRemaining: agg.DailyRemaining,
			DaysLeft:       model.DaysUntil(effective, now),
			TodayUsage:     agg.TotalUsedToday,
		}
		return nil
	})
	if errors.Is(err, domain.ErrMaxUsesReached) {
		metrics.IncVerify(string(domain.ReasonMaxUsesReached))
		return rejectRedeem(domain.ReasonMaxUsesReached), nil
	}
	if err != nil {
		uc.log.Error().Err(err).Str("code", norm).Msg("redeem failed")
		return nil, err
	}
	if res.Valid {
		metrics.IncVerify("ok")
	} else {
		metrics.IncVerify(string(res.Reason))
	}
	return res, nil
}

// RecordUsage consumes one unit of quota on an existing ledger row. Expiry
// and the daily limit are re-validated against all sibling records of the
// code before any write: another device's earlier activation still governs
// expiry, and the daily pool is shared code-wide.
func (uc *ActivationUseCase) RecordUsage(ctx context.Context, recordID string) (*UsageResult, error) {
	rec, err := uc.records.FindByID(ctx, repository.NoTX, recordID)
	if errors.Is(err, domain.ErrNotFound) {
		return &UsageResult{Success: false, Reason: domain.ReasonCodeNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	code, err := uc.codes.FindByID(ctx, repository.NoTX, rec.CodeID)
	if errors.Is(err, domain.ErrNotFound) {
		return &UsageResult{Success: false, Reason: domain.ReasonCodeNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	siblings, err := uc.records.FindAllByCode(ctx, repository.NoTX, rec.CodeID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	today := model.Today(now)
	agg := model.ComputeAggregate(code, siblings, today, now)

	if agg.Expired(now) {
		return &UsageResult{
			Success:   false,
			Reason:    domain.ReasonCodeExpired,
			Expired:   true,
			ExpiresAt: agg.EffectiveExpiry,
		}, nil
	}
	if agg.TotalUsedToday >= code.DailyLimit {
		return &UsageResult{
			Success:    false,
			Reason:     domain.ReasonDailyLimitReached,
			DailyLimit: code.DailyLimit,
			DaysLeft:   agg.DaysLeft,
		}, nil
	}

	if err := uc.records.IncrementUsage(ctx, repository.NoTX, rec.ID, today); err != nil {
		return nil, err
	}
	metrics.IncUsageRecorded()

	remaining := code.DailyLimit - (agg.TotalUsedToday + 1)
	if remaining < 0 {
		remaining = 0
	}
	return &UsageResult{
		Success:        true,
		DaysLeft:       agg.DaysLeft,
		DailyRemaining: remaining,
		DailyLimit:     code.DailyLimit,
		ExpiresAt:      agg.EffectiveExpiry,
	}, nil
}

// StatusByCode reports the activation state of a code on one device without
// mutating anything.
func (uc *ActivationUseCase) StatusByCode(ctx context.Context, rawCode, deviceID string) (*StatusResult, error) {
	norm, ok := model.NormalizeCode(rawCode)
	if !ok {
		return &StatusResult{Success: false, Reason: domain.ReasonInvalidFormat}, nil
	}

	code, err := uc.codes.FindByCode(ctx, repository.NoTX, norm)
	if errors.Is(err, domain.ErrNotFound) {
		return &StatusResult{Success: false, Reason: domain.ReasonCodeNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	mine, err := uc.records.FindByCodeAndDevice(ctx, repository.NoTX, code.ID, deviceID)
	if errors.Is(err, domain.ErrNotFound) {
		return &StatusResult{Success: false, Reason: domain.ReasonCodeNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	siblings, err := uc.records.FindAllByCode(ctx, repository.NoTX, code.ID)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	agg := model.ComputeAggregate(code, siblings, model.Today(now), now)
	return &StatusResult{
		Success:        true,
		Expired:        agg.Expired(now),
		DaysLeft:       agg.DaysLeft,
		DailyRemaining: agg.DailyRemaining,
		DailyLimit:     code.DailyLimit,
		ExpiresAt:      agg.EffectiveExpiry,
		TotalUsage:     mine.Usage.Total(),
	}, nil
}
