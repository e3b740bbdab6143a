package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"assessment-activation/internal/domain"
	"assessment-activation/internal/domain/model"
	"assessment-activation/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.ActivationCodeRepository = (*activationCodeRepo)(nil)

type activationCodeRepo struct {
	pool *pgxpool.Pool
}

func NewActivationCodeRepo(pool *pgxpool.Pool) repository.ActivationCodeRepository {
	return &activationCodeRepo{pool: pool}
}

const codeColumns = `id, code, max_uses, daily_limit, validity_days, status, current_uses, notes, created_at`

func scanCode(row pgx.Row) (*model.ActivationCode, error) {
	var c model.ActivationCode
	err := row.Scan(
		&c.ID, &c.Code, &c.MaxUses, &c.DailyLimit, &c.ValidityDays,
		&c.Status, &c.CurrentUses, &c.Notes, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &c, nil
}

func (r *activationCodeRepo) Create(ctx context.Context, tx repository.Tx, code *model.ActivationCode) error {
	const q = `
INSERT INTO activation_codes (id, code, max_uses, daily_limit, validity_days, status, current_uses, notes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		code.ID, code.Code, code.MaxUses, code.DailyLimit, code.ValidityDays,
		code.Status, code.CurrentUses, code.Notes, code.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create activation code: %w", err)
	}
	return nil
}

func (r *activationCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.ActivationCode, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+codeColumns+` FROM activation_codes WHERE code = $1;`, code)
	if err != nil {
		return nil, err
	}
	return scanCode(row)
}

func (r *activationCodeRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ActivationCode, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+codeColumns+` FROM activation_codes WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	return scanCode(row)
}

func (r *activationCodeRepo) Update(ctx context.Context, tx repository.Tx, id string, patch repository.CodePatch) error {
	sets := []string{}
	args := []interface{}{}
	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if patch.Code != nil {
		add("code", *patch.Code)
	}
	if patch.MaxUses != nil {
		add("max_uses", *patch.MaxUses)
	}
	if patch.DailyLimit != nil {
		add("daily_limit", *patch.DailyLimit)
	}
	if patch.ValidityDays != nil {
		add("validity_days", *patch.ValidityDays)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	q := fmt.Sprintf("UPDATE activation_codes SET %s WHERE id = $%d;", strings.Join(sets, ", "), len(args))

	tag, err := execSQL(ctx, r.pool, tx, q, args...)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("update activation code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *activationCodeRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.CodeStatus) error {
	tag, err := execSQL(ctx, r.pool, tx, `UPDATE activation_codes SET status = $1 WHERE id = $2;`, status, id)
	if err != nil {
		return fmt.Errorf("update code status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *activationCodeRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM activation_codes WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete activation code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *activationCodeRepo) List(ctx context.Context, tx repository.Tx, filter repository.CodeFilter) ([]*model.ActivationCode, int, error) {
	where := []string{}
	args := []interface{}{}
	if filter.Status != "" && filter.Status != "all" {
		args = append(args, filter.Status)
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := strconv.Itoa(len(args))
		where = append(where, "(code ILIKE $"+n+" OR notes ILIKE $"+n+")")
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM activation_codes`+cond+`;`, args...)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count activation codes: %w", err)
	}

	args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	q := fmt.Sprintf(`SELECT %s FROM activation_codes%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d;`,
		codeColumns, cond, len(args)-1, len(args))
	rows, err := pickRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list activation codes: %w", err)
	}
	defer rows.Close()

	var out []*model.ActivationCode
	for rows.Next() {
		var c model.ActivationCode
		if err := rows.Scan(
			&c.ID, &c.Code, &c.MaxUses, &c.DailyLimit, &c.ValidityDays,
			&c.Status, &c.CurrentUses, &c.Notes, &c.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, &c)
	}
	return out, total, rows.Err()
}

// IncrementUses takes a seat only while one is free; the affected-row count
// tells the caller whether it won the race.
func (r *activationCodeRepo) IncrementUses(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE activation_codes
   SET current_uses = current_uses + 1
 WHERE id = $1 AND current_uses < max_uses;
`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return false, fmt.Errorf("increment current_uses: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *activationCodeRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.CodeStatus]int, error) {
	rows, err := pickRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM activation_codes GROUP BY status;`)
	if err != nil {
		return nil, fmt.Errorf("count codes by status: %w", err)
	}
	defer rows.Close()

	out := map[model.CodeStatus]int{}
	for rows.Next() {
		var status model.CodeStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
