package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// InitSchema creates the tables on startup when they do not exist yet.
// Deleting a code cascades to its ledger rows.
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS activation_codes (
  id            TEXT PRIMARY KEY,
  code          TEXT NOT NULL UNIQUE,
  max_uses      INT  NOT NULL DEFAULT 21,
  daily_limit   INT  NOT NULL DEFAULT 3,
  validity_days INT  NOT NULL DEFAULT 7,
  status        TEXT NOT NULL DEFAULT 'active',
  current_uses  INT  NOT NULL DEFAULT 0,
  notes         TEXT NOT NULL DEFAULT '',
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  CONSTRAINT uses_within_cap CHECK (current_uses <= max_uses)
);

CREATE TABLE IF NOT EXISTS activation_records (
  id            TEXT PRIMARY KEY,
  code_id       TEXT NOT NULL REFERENCES activation_codes(id) ON DELETE CASCADE,
  code          TEXT NOT NULL,
  device_id     TEXT NOT NULL,
  expires_at    TIMESTAMPTZ NOT NULL,
  usage_by_date JSONB NOT NULL DEFAULT '{}'::jsonb,
  activated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (code_id, device_id)
);
CREATE INDEX IF NOT EXISTS idx_activation_records_code_id ON activation_records(code_id);

CREATE TABLE IF NOT EXISTS admin_users (
  id            TEXT PRIMARY KEY,
  username      TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  nickname      TEXT NOT NULL DEFAULT '',
  email         TEXT NOT NULL DEFAULT '',
  status        TEXT NOT NULL DEFAULT 'active',
  last_login_at TIMESTAMPTZ,
  last_login_ip TEXT NOT NULL DEFAULT '',
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS admin_sessions (
  id         TEXT PRIMARY KEY,
  admin_id   TEXT NOT NULL REFERENCES admin_users(id) ON DELETE CASCADE,
  token      TEXT NOT NULL UNIQUE,
  ip_address TEXT NOT NULL DEFAULT '',
  user_agent TEXT NOT NULL DEFAULT '',
  expires_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_expires_at ON admin_sessions(expires_at);
`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}
