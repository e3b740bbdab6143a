//go:build !integration

package web_test

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

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// Minimal in-memory repositories backing real use cases in handler tests.

type fakeCodeRepo struct {
	mu   sync.Mutex
	byID map[string]*model.ActivationCode
}

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{byID: map[string]*model.ActivationCode{}}
}

func (r *fakeCodeRepo) Create(_ context.Context, _ repository.Tx, code *model.ActivationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byID {
		if c.Code == code.Code {
			return domain.ErrAlreadyExists
		}
	}
	cp := *code
	r.byID[code.ID] = &cp
	return nil
}

func (r *fakeCodeRepo) FindByCode(_ context.Context, _ repository.Tx, code string) (*model.ActivationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.byID {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeCodeRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.ActivationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.byID[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *fakeCodeRepo) Update(_ context.Context, _ repository.Tx, id string, patch repository.CodePatch) error {
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

func (r *fakeCodeRepo) UpdateStatus(_ context.Context, _ repository.Tx, id string, status model.CodeStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.Status = status
	return nil
}

func (r *fakeCodeRepo) Delete(_ context.Context, _ repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeCodeRepo) List(_ context.Context, _ repository.Tx, filter repository.CodeFilter) ([]*model.ActivationCode, int, error) {
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
		cp := *c
		all = append(all, &cp)
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

func (r *fakeCodeRepo) IncrementUses(_ context.Context, _ repository.Tx, id string) (bool, error) {
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

func (r *fakeCodeRepo) CountByStatus(_ context.Context, _ repository.Tx) (map[model.CodeStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.CodeStatus]int{}
	for _, c := range r.byID {
		out[c.Status]++
	}
	return out, nil
}

type fakeRecordRepo struct {
	mu   sync.Mutex
	byID map[string]*model.RedemptionRecord
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{byID: map[string]*model.RedemptionRecord{}}
}

func copyRec(rec *model.RedemptionRecord) *model.RedemptionRecord {
	cp := *rec
	cp.Usage = model.UsageByDate{}
	for k, v := range rec.Usage {
		cp.Usage[k] = v
	}
	return &cp
}

func (r *fakeRecordRepo) Insert(_ context.Context, _ repository.Tx, rec *model.RedemptionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.CodeID == rec.CodeID && existing.DeviceID == rec.DeviceID {
			return domain.ErrAlreadyExists
		}
	}
	r.byID[rec.ID] = copyRec(rec)
	return nil
}

func (r *fakeRecordRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.RedemptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.byID[id]; ok {
		return copyRec(rec), nil
	}
	return nil, domain.ErrNotFound
}

func (r *fakeRecordRepo) FindByCodeAndDevice(_ context.Context, _ repository.Tx, codeID, deviceID string) (*model.RedemptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.byID {
		if rec.CodeID == codeID && rec.DeviceID == deviceID {
			return copyRec(rec), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeRecordRepo) FindAllByCode(_ context.Context, _ repository.Tx, codeID string) ([]*model.RedemptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.RedemptionRecord
	for _, rec := range r.byID {
		if rec.CodeID == codeID {
			out = append(out, copyRec(rec))
		}
	}
	return out, nil
}

func (r *fakeRecordRepo) IncrementUsage(_ context.Context, _ repository.Tx, id, day string) error {
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

func (r *fakeRecordRepo) FindAll(_ context.Context, _ repository.Tx) ([]*model.RedemptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.RedemptionRecord
	for _, rec := range r.byID {
		out = append(out, copyRec(rec))
	}
	return out, nil
}

func (r *fakeRecordRepo) ListRecent(_ context.Context, _ repository.Tx, code string, limit int) ([]*model.RedemptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.RedemptionRecord
	for _, rec := range r.byID {
		if rec.Code == code {
			out = append(out, copyRec(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActivatedAt.After(out[j].ActivatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRecordRepo) Count(_ context.Context, _ repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID), nil
}

// fakeTxManager runs the callback without transactional rollback; handler
// tests never exercise the lost-seat race.
type fakeTxManager struct{ mu sync.Mutex }

func (m *fakeTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, repository.NoTX)
}

type fakeAdminRepo struct {
	mu   sync.Mutex
	byID map[string]*model.AdminUser
}

func newFakeAdminRepo() *fakeAdminRepo {
	return &fakeAdminRepo{byID: map[string]*model.AdminUser{}}
}

func (r *fakeAdminRepo) Create(_ context.Context, _ repository.Tx, u *model.AdminUser) error {
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

func (r *fakeAdminRepo) FindByUsername(_ context.Context, _ repository.Tx, username string) (*model.AdminUser, error) {
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

func (r *fakeAdminRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.AdminUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *fakeAdminRepo) UpdatePassword(_ context.Context, _ repository.Tx, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *fakeAdminRepo) TouchLogin(_ context.Context, _ repository.Tx, id, ip string, at time.Time) error {
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

type fakeSessionRepo struct {
	mu      sync.Mutex
	byToken map[string]*model.AdminSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{byToken: map[string]*model.AdminSession{}}
}

func (r *fakeSessionRepo) Insert(_ context.Context, _ repository.Tx, s *model.AdminSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.byToken[s.Token] = &cp
	return nil
}

func (r *fakeSessionRepo) FindByToken(_ context.Context, _ repository.Tx, token string) (*model.AdminSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byToken[token]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *fakeSessionRepo) DeleteByToken(_ context.Context, _ repository.Tx, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byToken, token)
	return nil
}

func (r *fakeSessionRepo) DeleteByAdmin(_ context.Context, _ repository.Tx, adminID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, s := range r.byToken {
		if s.AdminID == adminID {
			delete(r.byToken, token)
		}
	}
	return nil
}

func (r *fakeSessionRepo) DeleteExpired(_ context.Context, _ repository.Tx, cutoff time.Time) (int64, error) {
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
