// File: internal/usecase/admin_code_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"assessment-activation/internal/domain"
	"assessment-activation/internal/domain/model"
	"assessment-activation/internal/domain/ports/repository"
)

// CreateCodeInput carries the creation policy; zero values fall back to the
// model defaults (21 uses, 3/day, 7 days).
type CreateCodeInput struct {
	Code         string
	MaxUses      int
	DailyLimit   int
	ValidityDays int
	Notes        string
}

// BulkFailure records one failed item of a bulk creation.
type BulkFailure struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type BulkResult struct {
	Created int           `json:"created"`
	Failed  []BulkFailure `json:"failed"`
}

// CodeSummary is a code enriched with the quota engine's derived read-side
// fields for the admin listing.
type CodeSummary struct {
	*model.ActivationCode
	TodayUsed        int                  `json:"todayUsed"`
	TodayRemaining   int                  `json:"todayRemaining"`
	ActivatedDevices int                  `json:"activatedDevices"`
	TimeRemaining    *model.TimeRemaining `json:"timeRemaining"`
}

// CodeStatsEntry is the per-code breakdown on the stats view.
type CodeStatsEntry struct {
	Code             string               `json:"code"`
	Status           model.CodeStatus     `json:"status"`
	MaxUses          int                  `json:"maxUses"`
	DailyLimit       int                  `json:"dailyLimit"`
	ValidityDays     int                  `json:"validityDays"`
	ActivatedDevices int                  `json:"activatedDevices"`
	TotalUsages      int                  `json:"totalUsages"`
	TodayUsed        int                  `json:"todayUsed"`
	TimeRemaining    *model.TimeRemaining `json:"timeRemaining"`
	Notes            string               `json:"notes"`
}

type ActivationStats struct {
	TotalCodes      int              `json:"totalCodes"`
	CodesByStatus   map[string]int   `json:"codesByStatus"`
	TotalRecords    int              `json:"totalRecords"`
	TotalUsageCount int              `json:"totalUsageCount"`
	TodayUsageCount int              `json:"todayUsageCount"`
	ByCode          []CodeStatsEntry `json:"byCode"`
}

// AdminCodeUseCase implements back-office code administration. The derived
// usage fields on listings and stats come from the same aggregate computation
// the redemption path uses.
type AdminCodeUseCase struct {
	codes   repository.ActivationCodeRepository
	records repository.RedemptionRecordRepository
	log     *zerolog.Logger
	now     func() time.Time
}

func NewAdminCodeUseCase(
	codes repository.ActivationCodeRepository,
	records repository.RedemptionRecordRepository,
	logger *zerolog.Logger,
) *AdminCodeUseCase {
	return &AdminCodeUseCase{codes: codes, records: records, log: logger, now: time.Now}
}

// WithClock overrides the use case's clock. Test hook.
func (uc *AdminCodeUseCase) WithClock(now func() time.Time) *AdminCodeUseCase {
	uc.now = now
	return uc
}

// Create inserts a single code, generating one when none was given.
func (uc *AdminCodeUseCase) Create(ctx context.Context, in CreateCodeInput) (*model.ActivationCode, error) {
	codeStr := in.Code
	if codeStr == "" {
		var err error
		codeStr, err = generateActivationCode()
		if err != nil {
			return nil, err
		}
	} else if !model.ValidCodeFormat(codeStr) {
		return nil, domain.ErrInvalidArgument
	}

	code := &model.ActivationCode{
		ID:           uuid.NewString(),
		Code:         codeStr,
		MaxUses:      in.MaxUses,
		DailyLimit:   in.DailyLimit,
		ValidityDays: in.ValidityDays,
		Status:       model.CodeStatusActive,
		Notes:        in.Notes,
		CreatedAt:    uc.now(),
	}
	if code.MaxUses <= 0 {
		code.MaxUses = model.DefaultMaxUses
	}
	if code.DailyLimit <= 0 {
		code.DailyLimit = model.DefaultDailyLimit
	}
	if code.ValidityDays <= 0 {
		code.ValidityDays = model.DefaultValidityDays
	}

	if err := uc.codes.Create(ctx, repository.NoTX, code); err != nil {
		return nil, err
	}
	uc.log.Info().Str("code", code.Code).Msg("activation code created")
	return code, nil
}

// CreateBulk applies Create per item and never aborts the batch on a single
// failure.
func (uc *AdminCodeUseCase) CreateBulk(ctx context.Context, items []CreateCodeInput) (*BulkResult, error) {
	out := &BulkResult{Failed: []BulkFailure{}}
	for _, item := range items {
		if _, err := uc.Create(ctx, item); err != nil {
			out.Failed = append(out.Failed, BulkFailure{Code: item.Code, Error: bulkErrorText(err)})
			continue
		}
		out.Created++
	}
	return out, nil
}

func bulkErrorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyExists):
		return "code already exists"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid code format"
	default:
		return "creation failed"
	}
}

func (uc *AdminCodeUseCase) Update(ctx context.Context, id string, patch repository.CodePatch) error {
	if patch.Code != nil && !model.ValidCodeFormat(*patch.Code) {
		return domain.ErrInvalidArgument
	}
	return uc.codes.Update(ctx, repository.NoTX, id, patch)
}

// Revoke is terminal: there is deliberately no way back to active through
// this interface.
func (uc *AdminCodeUseCase) Revoke(ctx context.Context, id string) error {
	if err := uc.codes.UpdateStatus(ctx, repository.NoTX, id, model.CodeStatusRevoked); err != nil {
		return err
	}
	uc.log.Info().Str("code_id", id).Msg("activation code revoked")
	return nil
}

func (uc *AdminCodeUseCase) Delete(ctx context.Context, id string) error {
	if err := uc.codes.Delete(ctx, repository.NoTX, id); err != nil {
		return err
	}
	uc.log.Info().Str("code_id", id).Msg("activation code deleted")
	return nil
}

// List pages codes and joins in the derived usage summary per code.
func (uc *AdminCodeUseCase) List(ctx context.Context, filter repository.CodeFilter) ([]*CodeSummary, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	codes, total, err := uc.codes.List(ctx, repository.NoTX, filter)
	if err != nil {
		return nil, 0, err
	}

	now := uc.now()
	today := model.Today(now)
	out := make([]*CodeSummary, 0, len(codes))
	for _, code := range codes {
		records, err := uc.records.FindAllByCode(ctx, repository.NoTX, code.ID)
		if err != nil {
			return nil, 0, err
		}
		agg := model.ComputeAggregate(code, records, today, now)

		summary := &CodeSummary{
			ActivationCode:   code,
			TodayUsed:        agg.TotalUsedToday,
			TodayRemaining:   agg.DailyRemaining,
			ActivatedDevices: len(records),
		}
		if !agg.EffectiveExpiry.IsZero() {
			tr := model.RemainingUntil(agg.EffectiveExpiry, now)
			summary.TimeRemaining = &tr
		}
		out = append(out, summary)
	}
	return out, total, nil
}

// ListRecords returns the most recent ledger rows for a code.
func (uc *AdminCodeUseCase) ListRecords(ctx context.Context, code string, limit int) ([]*model.RedemptionRecord, error) {
	if limit <= 0 {
		limit = 30
	}
	return uc.records.ListRecent(ctx, repository.NoTX, code, limit)
}

// Stats aggregates counts by status plus a per-code usage breakdown over the
// most recent codes.
func (uc *AdminCodeUseCase) Stats(ctx context.Context) (*ActivationStats, error) {
	byStatus, err := uc.codes.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}

	totalRecords, err := uc.records.Count(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}

	all, err := uc.records.FindAll(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	today := model.Today(now)
	stats := &ActivationStats{
		CodesByStatus: map[string]int{},
		TotalRecords:  totalRecords,
		ByCode:        []CodeStatsEntry{},
	}
	for status, n := range byStatus {
		stats.CodesByStatus[string(status)] = n
		stats.TotalCodes += n
	}
	for _, rec := range all {
		stats.TotalUsageCount += rec.Usage.Total()
		stats.TodayUsageCount += rec.Usage.On(today)
	}

	recent, _, err := uc.codes.List(ctx, repository.NoTX, repository.CodeFilter{Page: 1, PageSize: 20})
	if err != nil {
		return nil, err
	}
	for _, code := range recent {
		records, err := uc.records.FindAllByCode(ctx, repository.NoTX, code.ID)
		if err != nil {
			return nil, err
		}
		agg := model.ComputeAggregate(code, records, today, now)

		entry := CodeStatsEntry{
			Code:             code.Code,
			Status:           code.Status,
			MaxUses:          code.MaxUses,
			DailyLimit:       code.DailyLimit,
			ValidityDays:     code.ValidityDays,
			ActivatedDevices: len(records),
			TodayUsed:        agg.TotalUsedToday,
			Notes:            code.Notes,
		}
		for _, rec := range records {
			entry.TotalUsages += rec.Usage.Total()
		}
		if !agg.EffectiveExpiry.IsZero() {
			tr := model.RemainingUntil(agg.EffectiveExpiry, now)
			entry.TimeRemaining = &tr
		}
		stats.ByCode = append(stats.ByCode, entry)
	}
	return stats, nil
}
