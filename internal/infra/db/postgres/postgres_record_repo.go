package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"assessment-activation/internal/domain"
	"assessment-activation/internal/domain/model"
	"assessment-activation/internal/domain/ports/repository"
)

var _ repository.RedemptionRecordRepository = (*redemptionRecordRepo)(nil)

type redemptionRecordRepo struct {
	pool *pgxpool.Pool
}

func NewRedemptionRecordRepo(pool *pgxpool.Pool) repository.RedemptionRecordRepository {
	return &redemptionRecordRepo{pool: pool}
}

const recordColumns = `id, code_id, code, device_id, expires_at, usage_by_date, activated_at`

func scanRecord(row pgx.Row) (*model.RedemptionRecord, error) {
	var rec model.RedemptionRecord
	var usage []byte
	err := row.Scan(&rec.ID, &rec.CodeID, &rec.Code, &rec.DeviceID, &rec.ExpiresAt, &usage, &rec.ActivatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	rec.Usage = model.UsageByDate{}
	if len(usage) > 0 {
		if err := json.Unmarshal(usage, &rec.Usage); err != nil {
			return nil, fmt.Errorf("decode usage_by_date: %w", err)
		}
	}
	return &rec, nil
}

func scanRecords(rows pgx.Rows) ([]*model.RedemptionRecord, error) {
	defer rows.Close()
	var out []*model.RedemptionRecord
	for rows.Next() {
		var rec model.RedemptionRecord
		var usage []byte
		if err := rows.Scan(&rec.ID, &rec.CodeID, &rec.Code, &rec.DeviceID, &rec.ExpiresAt, &usage, &rec.ActivatedAt); err != nil {
			return nil, err
		}
		rec.Usage = model.UsageByDate{}
		if len(usage) > 0 {
			if err := json.Unmarshal(usage, &rec.Usage); err != nil {
				return nil, fmt.Errorf("decode usage_by_date: %w", err)
			}
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (r *redemptionRecordRepo) Insert(ctx context.Context, tx repository.Tx, rec *model.RedemptionRecord) error {
	usage, err := json.Marshal(rec.Usage)
	if err != nil {
		return fmt.Errorf("encode usage_by_date: %w", err)
	}
	const q = `
INSERT INTO activation_records (id, code_id, code, device_id, expires_at, usage_by_date, activated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err = execSQL(ctx, r.pool, tx, q,
		rec.ID, rec.CodeID, rec.Code, rec.DeviceID, rec.ExpiresAt, usage, rec.ActivatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert redemption record: %w", err)
	}
	return nil
}

func (r *redemptionRecordRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RedemptionRecord, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+recordColumns+` FROM activation_records WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	return scanRecord(row)
}

func (r *redemptionRecordRepo) FindByCodeAndDevice(ctx context.Context, tx repository.Tx, codeID, deviceID string) (*model.RedemptionRecord, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT `+recordColumns+` FROM activation_records WHERE code_id = $1 AND device_id = $2;`, codeID, deviceID)
	if err != nil {
		return nil, err
	}
	return scanRecord(row)
}

func (r *redemptionRecordRepo) FindAllByCode(ctx context.Context, tx repository.Tx, codeID string) ([]*model.RedemptionRecord, error) {
	rows, err := pickRows(ctx, r.pool, tx,
		`SELECT `+recordColumns+` FROM activation_records WHERE code_id = $1 ORDER BY activated_at ASC;`, codeID)
	if err != nil {
		return nil, fmt.Errorf("find records by code: %w", err)
	}
	return scanRecords(rows)
}

// IncrementUsage bumps the counter for one day key inside the JSONB ledger.
// The increment happens in SQL so concurrent writers cannot lose an update.
func (r *redemptionRecordRepo) IncrementUsage(ctx context.Context, tx repository.Tx, id, day string) error {
	const q = `
UPDATE activation_records
   SET usage_by_date = jsonb_set(
         COALESCE(usage_by_date, '{}'::jsonb),
         ARRAY[$2],
         to_jsonb(COALESCE((usage_by_date->>$2)::int, 0) + 1)
       )
 WHERE id = $1;
`
	tag, err := execSQL(ctx, r.pool, tx, q, id, day)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *redemptionRecordRepo) FindAll(ctx context.Context, tx repository.Tx) ([]*model.RedemptionRecord, error) {
	rows, err := pickRows(ctx, r.pool, tx, `SELECT `+recordColumns+` FROM activation_records;`)
	if err != nil {
		return nil, fmt.Errorf("find all records: %w", err)
	}
	return scanRecords(rows)
}

// ListRecent filters on the human-facing code string; the admin views pass
// codes, not ids.
func (r *redemptionRecordRepo) ListRecent(ctx context.Context, tx repository.Tx, code string, limit int) ([]*model.RedemptionRecord, error) {
	rows, err := pickRows(ctx, r.pool, tx,
		`SELECT `+recordColumns+` FROM activation_records WHERE code = $1 ORDER BY activated_at DESC LIMIT $2;`,
		code, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent records: %w", err)
	}
	return scanRecords(rows)
}

func (r *redemptionRecordRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM activation_records;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
