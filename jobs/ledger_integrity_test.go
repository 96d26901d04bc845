package jobs

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/stockroom-hq/stockroom/internal/ledger"
)

type fakeIntegrityStore struct {
	drift map[uuid.UUID][]ledger.Imbalance
}

func (s *fakeIntegrityStore) ListTenants(context.Context) ([]uuid.UUID, error) {
	tenants := make([]uuid.UUID, 0, len(s.drift))
	for id := range s.drift {
		tenants = append(tenants, id)
	}
	return tenants, nil
}

func (s *fakeIntegrityStore) ListImbalances(_ context.Context, tenantID uuid.UUID) ([]ledger.Imbalance, error) {
	return s.drift[tenantID], nil
}

func TestLedgerIntegrityCheckClean(t *testing.T) {
	store := &fakeIntegrityStore{drift: map[uuid.UUID][]ledger.Imbalance{
		uuid.New(): nil,
		uuid.New(): nil,
	}}
	total, err := RunLedgerIntegrityCheck(context.Background(), store, slog.Default())
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestLedgerIntegrityCheckReportsDrift(t *testing.T) {
	drifted := uuid.New()
	store := &fakeIntegrityStore{drift: map[uuid.UUID][]ledger.Imbalance{
		uuid.New(): nil,
		drifted: {
			{
				ProductID:   uuid.New(),
				LocationID:  uuid.New(),
				Balance:     decimal.RequireFromString("10"),
				MovementSum: decimal.RequireFromString("8"),
			},
		},
	}}
	total, err := RunLedgerIntegrityCheck(context.Background(), store, slog.Default())
	require.NoError(t, err)
	require.Equal(t, 1, total)
}
