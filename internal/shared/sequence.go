package shared

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RowQuerier is the subset of pgx.Tx used by NextDocumentNumber, so numbers are
// issued inside the caller's transaction.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NextDocumentNumber increments the per-tenant per-kind counter atomically and
// formats the human-readable number. The upsert makes count-then-format races
// impossible: concurrent callers serialize on the counter row.
func NextDocumentNumber(ctx context.Context, q RowQuerier, tenantID uuid.UUID, kind, prefix string) (string, error) {
	var n int64
	err := q.QueryRow(ctx, `INSERT INTO document_sequences (tenant_id, kind, last_value)
VALUES ($1, $2, 1)
ON CONFLICT (tenant_id, kind)
DO UPDATE SET last_value = document_sequences.last_value + 1
RETURNING last_value`, tenantID, kind).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("shared: next document number: %w", err)
	}
	return fmt.Sprintf("%s-%06d", prefix, n), nil
}
