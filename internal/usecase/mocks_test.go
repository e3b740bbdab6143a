//go:build !integration

package usecase_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"assessment-activation/internal/domain"
	"assessment-activation/internal/domain/model"
	"assessment-activation/internal/domain/ports/repository"
)

var (
	_ repository.ActivationCodeRepository   = (*memCodeRepo)(nil)
	_ repository.RedemptionRecordRepository = (*memRecordRepo)(nil)
	_ repository.TransactionManager         = (*memTxManager)(nil)
	_ repository.AdminUserRepository        = (*memAdminRepo)(nil)
	_ repository.AdminSessionRepository     = (*memSessionRepo)(nil)
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// ---- in-memory activation code repository ----

type memCodeRepo struct {
	mu   sync.Mutex
	byID map[string]*model.ActivationCode
}

func newMemCodeRepo() *memCodeRepo {
	return &memCodeRepo{byID: map[string]*model.ActivationCode{}}
}

func copyCode(c *model.ActivationCode) *model.ActivationCode {
	cp := *c
	return &cp
}

func (r *memCodeRepo) Create(_ context.Context, _ repository.Tx, code *model.ActivationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byID {
		if c.Code == code.Code {
			return domain.ErrAlreadyExists
		}
	}
	r.byID[code.ID] = copyCode(code)
	return nil
}

func (r *memCodeRepo) FindByCode(_ context.Context, _ repository.Tx, code string) (*model.ActivationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byID {
		if c.Code == code {
			return copyCode(c), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memCodeRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.ActivationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.byID[id]; ok {
		return copyCode(c), nil
	}
	return nil, domain.ErrNotFound
}

func (r *memCodeRepo) Update(_ context.Context, _ repository.Tx, id string, patch repository.CodePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if patch.Code != nil {
		c.Code = *patch.Code
	}
	if patch.MaxUses != nil {
		c.MaxUses = *patch.MaxUses
	}
	if patch.DailyLimit != nil {
		c.DailyLimit = *patch.DailyLimit
	}
	if patch.ValidityDays != nil {
		c.ValidityDays = *patch.ValidityDays
	}
	if patch.Notes != nil {
		c.Notes = *patch.Notes
	}
	return nil
}

func (r *memCodeRepo) UpdateStatus(_ context.Context, _ repository.Tx, id string, status model.CodeStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Status = status
	return nil
}

func (r *memCodeRepo) Delete(_ context.Context, _ repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memCodeRepo) List(_ context.Context, _ repository.Tx, filter repository.CodeFilter) ([]*model.ActivationCode, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*model.ActivationCode
	for _, c := range r.byID {
		if filter.Status != "" && filter.Status != "all" && string(c.Status) != filter.Status {
			continue
		}
		if filter.Query != "" && !strings.Contains(c.Code, filter.Query) && !strings.Contains(c.Notes, filter.Query) {
			continue
		}
		all = append(all, copyCode(c))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	start := (filter.Page - 1) * filter.PageSize
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *memCodeRepo) IncrementUses(_ context.Context, _ repository.Tx, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if c.CurrentUses >= c.MaxUses {
		return false, nil
	}
	c.CurrentUses++
	return true, nil
}

func (r *memCodeRepo) CountByStatus(_ context.Context, _ repository.Tx) (map[model.CodeStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.CodeStatus]int{}
	for _, c := range r.byID {
		out[c.Status]++
	}
	return out, nil
}

func (r *memCodeRepo) snapshot() map[string]*model.ActivationCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*model.ActivationCode, len(r.byID))
	for id, c := range r.byID {
		out[id] = copyCode(c)
	}
	return out
}

func (r *memCodeRepo) restore(snap map[string]*model.ActivationCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = snap
}

// ---- in-memory redemption record repository ----

type memRecordRepo struct {
	mu   sync.Mutex
	byID map[string]*model.RedemptionRecord
}

func newMemRecordRepo() *memRecordRepo {
	return &memRecordRepo{byID: map[string]*model.RedemptionRecord{}}
}

func copyRecord(rec *model.RedemptionRecord) *model.RedemptionRecord {
	cp := *rec
	cp.Usage = model.UsageByDate{}
	for k, v := range rec.Usage {
		cp.Usage[k] = v
	}
	return &cp
}

func (r *memRecordRepo) Insert(_ context.Context, _ repository.Tx, rec *model.RedemptionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.CodeID == rec.CodeID && existing.DeviceID == rec.DeviceID {
			return domain.ErrAlreadyExists
		}
	}
	r.byID[rec.ID] = copyRecord(rec)
	return nil
}

func (r *memRecordRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.RedemptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.byID[id]; ok {
		return copyRecord(rec), nil
	}
	return nil, domain.ErrNotFound
}

func (r *memRecordRepo) FindByCodeAndDevice(_ context.Context, _ repository.Tx, codeID, deviceID string) (*model.RedemptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.byID {
		if rec.CodeID == codeID && rec.DeviceID == deviceID {
			return copyRecord(rec), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memRecordRepo) FindAllByCode(_ context.Context, _ repository.Tx, codeID string) ([]*model.RedemptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.RedemptionRecord
	for _, rec := range r.byID {
		if rec.CodeID == codeID {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActivatedAt.Before(out[j].ActivatedAt) })
	return out, nil
}

func (r *memRecordRepo) IncrementUsage(_ context.Context, _ repository.Tx, id, day string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if rec.Usage == nil {
		rec.Usage = model.UsageByDate{}
	}
	rec.Usage[day]++
	return nil
}

func (r *memRecordRepo) FindAll(_ context.Context, _ repository.Tx) ([]*model.RedemptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.RedemptionRecord
	for _, rec := range r.byID {
		out = append(out, copyRecord(rec))
	}
	return out, nil
}

func (r *memRecordRepo) ListRecent(_ context.Context, _ repository.Tx, code string, limit int) ([]*model.RedemptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.RedemptionRecord
	for _, rec := range r.byID {
		if rec.Code == code {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActivatedAt.After(out[j].ActivatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRecordRepo) Count(_ context.Context, _ repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID), nil
}

func (r *memRecordRepo) snapshot() map[string]*model.RedemptionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*model.RedemptionRecord, len(r.byID))
	for id, rec := range r.byID {
		out[id] = copyRecord(rec)
	}
	return out
}

func (r *memRecordRepo) restore(snap map[string]*model.RedemptionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = snap
}

// ---- in-memory transaction manager ----

// memTxManager serializes transactions and rolls repository state back when
// the callback errors, mirroring what the database does.
type memTxManager struct {
	mu      sync.Mutex
	codes   *memCodeRepo
	records *memRecordRepo
}

func newMemTxManager(codes *memCodeRepo, records *memRecordRepo) *memTxManager {
	return &memTxManager{codes: codes, records: records}
}

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	codeSnap := m.codes.snapshot()
	recordSnap := m.records.snapshot()
	if err := fn(ctx, repository.NoTX); err != nil {
		m.codes.restore(codeSnap)
		m.records.restore(recordSnap)
		return err
	}
	return nil
}

// ---- in-memory admin repositories ----

type memAdminRepo struct {
	mu   sync.Mutex
	byID map[string]*model.AdminUser
}

func newMemAdminRepo() *memAdminRepo {
	return &memAdminRepo{byID: map[string]*model.AdminUser{}}
}

func (r *memAdminRepo) Create(_ context.Context, _ repository.Tx, u *model.AdminUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Username == u.Username {
			return domain.ErrAlreadyExists
		}
	}
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *memAdminRepo) FindByUsername(_ context.Context, _ repository.Tx, username string) (*model.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memAdminRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memAdminRepo) UpdatePassword(_ context.Context, _ repository.Tx, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *memAdminRepo) TouchLogin(_ context.Context, _ repository.Tx, id, ip string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.LastLoginAt = &at
	u.LastLoginIP = ip
	return nil
}

type memSessionRepo struct {
	mu      sync.Mutex
	byToken map[string]*model.AdminSession
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{byToken: map[string]*model.AdminSession{}}
}

func (r *memSessionRepo) Insert(_ context.Context, _ repository.Tx, s *model.AdminSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.byToken[s.Token] = &cp
	return nil
}

func (r *memSessionRepo) FindByToken(_ context.Context, _ repository.Tx, token string) (*model.AdminSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byToken[token]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *memSessionRepo) DeleteByToken(_ context.Context, _ repository.Tx, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byToken, token)
	return nil
}

func (r *memSessionRepo) DeleteByAdmin(_ context.Context, _ repository.Tx, adminID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, s := range r.byToken {
		if s.AdminID == adminID {
			delete(r.byToken, token)
		}
	}
	return nil
}

func (r *memSessionRepo) DeleteExpired(_ context.Context, _ repository.Tx, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for token, s := range r.byToken {
		if s.ExpiresAt.Before(cutoff) {
			delete(r.byToken, token)
			n++
		}
	}
	return n, nil
}
