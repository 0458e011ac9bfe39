package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema DDL de arranque. El índice único sobre reference es la garantía de
// unicidad a nivel de almacén que respalda la verificación del caso de uso.
const schema = `
CREATE TABLE IF NOT EXISTS invoices (
	id          UUID PRIMARY KEY,
	customer    TEXT        NOT NULL,
	amount      NUMERIC     NOT NULL CHECK (amount >= 0),
	reference   TEXT        NOT NULL,
	date        TIMESTAMPTZ NOT NULL,
	items       JSONB       NOT NULL DEFAULT '[]'::jsonb,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS invoices_reference_key ON invoices (reference);
CREATE INDEX IF NOT EXISTS invoices_date_idx ON invoices (date);
`

// Migrate crea el esquema si no existe.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("crear esquema: %w", err)
	}
	return nil
}
