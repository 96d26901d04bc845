package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stockroom-hq/stockroom/internal/shared"
)

type memoryLedger struct {
	mu        sync.Mutex
	balances  map[string]Balance
	movements []Movement
	nextID    int64
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{balances: make(map[string]Balance)}
}

func balanceKey(tenantID, productID, locationID uuid.UUID, lot Lot) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", tenantID, productID, locationID, lot.Number, lot.Expiry.Format("2006-01-02"))
}

// Tx serializes the callback the way a row lock would, so concurrent
// decreases observe each other's committed quantity.
func (m *memoryLedger) Tx(fn func(TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m)
}

func (m *memoryLedger) GetBalanceForUpdate(_ context.Context, tenantID, productID, locationID uuid.UUID, lot Lot) (Balance, error) {
	if bal, ok := m.balances[balanceKey(tenantID, productID, locationID, lot)]; ok {
		return bal, nil
	}
	return Balance{}, ErrBalanceNotFound
}

func (m *memoryLedger) UpsertBalance(_ context.Context, balance Balance) error {
	m.balances[balanceKey(balance.TenantID, balance.ProductID, balance.LocationID, balance.Lot)] = balance
	return nil
}

func (m *memoryLedger) InsertMovement(_ context.Context, mv Movement) (int64, error) {
	m.nextID++
	mv.ID = m.nextID
	m.movements = append(m.movements, mv)
	return mv.ID, nil
}

func testIdentity() shared.Identity {
	return shared.Identity{TenantID: uuid.New(), ActorID: uuid.New()}
}

func TestApplyFirstReceiptCreatesBalance(t *testing.T) {
	store := newMemoryLedger()
	ident := testIdentity()
	productID, locationID := uuid.New(), uuid.New()

	mv, err := Apply(context.Background(), store, ident, Entry{
		ProductID:     productID,
		LocationID:    locationID,
		Qty:           dec("100"),
		Type:          MovementReceive,
		ReferenceType: RefPurchaseOrder,
		ReferenceID:   uuid.New(),
		UnitCost:      dec("10"),
		UnitCostSet:   true,
	})
	require.NoError(t, err)
	require.True(t, mv.UnitCost.Equal(dec("10")))
	require.True(t, mv.ExtendedCost.Equal(dec("1000")))

	bal, err := store.GetBalanceForUpdate(context.Background(), ident.TenantID, productID, locationID, Lot{})
	require.NoError(t, err)
	require.True(t, bal.Qty.Equal(dec("100")))
	require.True(t, bal.AvgCost.Equal(dec("10")))
}

func TestApplyIncreaseBlendsAverageCost(t *testing.T) {
	store := newMemoryLedger()
	ident := testIdentity()
	productID, locationID := uuid.New(), uuid.New()

	apply := func(qty, cost string) {
		t.Helper()
		_, err := Apply(context.Background(), store, ident, Entry{
			ProductID: productID, LocationID: locationID,
			Qty: dec(qty), Type: MovementReceive, ReferenceType: RefPurchaseOrder,
			ReferenceID: uuid.New(), UnitCost: dec(cost), UnitCostSet: true,
		})
		require.NoError(t, err)
	}
	apply("100", "10")
	apply("50", "13")

	bal, err := store.GetBalanceForUpdate(context.Background(), ident.TenantID, productID, locationID, Lot{})
	require.NoError(t, err)
	require.True(t, bal.Qty.Equal(dec("150")))
	require.True(t, bal.AvgCost.Equal(dec("11")), "got %s", bal.AvgCost)
}

func TestApplyDecreaseKeepsAverageCost(t *testing.T) {
	store := newMemoryLedger()
	ident := testIdentity()
	productID, locationID := uuid.New(), uuid.New()

	_, err := Apply(context.Background(), store, ident, Entry{
		ProductID: productID, LocationID: locationID,
		Qty: dec("150"), Type: MovementReceive, ReferenceType: RefPurchaseOrder,
		ReferenceID: uuid.New(), UnitCost: dec("11"), UnitCostSet: true,
	})
	require.NoError(t, err)

	mv, err := Apply(context.Background(), store, ident, Entry{
		ProductID: productID, LocationID: locationID,
		Qty: dec("-40"), Type: MovementShip, ReferenceType: RefShipment,
		ReferenceID: uuid.New(),
	})
	require.NoError(t, err)
	require.True(t, mv.UnitCost.Equal(dec("11")), "ship costed at current average")

	bal, err := store.GetBalanceForUpdate(context.Background(), ident.TenantID, productID, locationID, Lot{})
	require.NoError(t, err)
	require.True(t, bal.Qty.Equal(dec("110")))
	require.True(t, bal.AvgCost.Equal(dec("11")))
}

func TestApplyDecreaseBelowZeroFails(t *testing.T) {
	store := newMemoryLedger()
	ident := testIdentity()
	productID, locationID := uuid.New(), uuid.New()

	_, err := Apply(context.Background(), store, ident, Entry{
		ProductID: productID, LocationID: locationID,
		Qty: dec("10"), Type: MovementReceive, ReferenceType: RefPurchaseOrder,
		ReferenceID: uuid.New(), UnitCost: dec("5"), UnitCostSet: true,
	})
	require.NoError(t, err)

	_, err = Apply(context.Background(), store, ident, Entry{
		ProductID: productID, LocationID: locationID,
		Qty: dec("-11"), Type: MovementShip, ReferenceType: RefShipment,
		ReferenceID: uuid.New(),
	})
	var insufficient *shared.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.True(t, insufficient.Requested.Equal(dec("11")))
	require.True(t, insufficient.Available.Equal(dec("10")))

	// The failed entry left no trace.
	bal, err := store.GetBalanceForUpdate(context.Background(), ident.TenantID, productID, locationID, Lot{})
	require.NoError(t, err)
	require.True(t, bal.Qty.Equal(dec("10")))
	require.Len(t, store.movements, 1)
}

func TestApplyDecreaseFromMissingBalanceFails(t *testing.T) {
	store := newMemoryLedger()
	_, err := Apply(context.Background(), store, testIdentity(), Entry{
		ProductID: uuid.New(), LocationID: uuid.New(),
		Qty: dec("-1"), Type: MovementShip, ReferenceType: RefShipment,
		ReferenceID: uuid.New(),
	})
	var insufficient *shared.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.True(t, insufficient.Available.IsZero())
}

func TestApplyLotKeysAreDistinct(t *testing.T) {
	store := newMemoryLedger()
	ident := testIdentity()
	productID, locationID := uuid.New(), uuid.New()

	for _, lot := range []Lot{{}, {Number: "LOT-A"}, {Number: "LOT-B"}} {
		_, err := Apply(context.Background(), store, ident, Entry{
			ProductID: productID, LocationID: locationID, Lot: lot,
			Qty: dec("5"), Type: MovementReceive, ReferenceType: RefPurchaseOrder,
			ReferenceID: uuid.New(), UnitCost: dec("1"), UnitCostSet: true,
		})
		require.NoError(t, err)
	}
	require.Len(t, store.balances, 3)

	// Whitespace-padded lot numbers fold into the same key.
	_, err := Apply(context.Background(), store, ident, Entry{
		ProductID: productID, LocationID: locationID, Lot: Lot{Number: " LOT-A "},
		Qty: dec("5"), Type: MovementReceive, ReferenceType: RefPurchaseOrder,
		ReferenceID: uuid.New(), UnitCost: dec("1"), UnitCostSet: true,
	})
	require.NoError(t, err)
	require.Len(t, store.balances, 3)
	bal, err := store.GetBalanceForUpdate(context.Background(), ident.TenantID, productID, locationID, Lot{Number: "LOT-A"})
	require.NoError(t, err)
	require.True(t, bal.Qty.Equal(dec("10")))
}

func TestApplyValidation(t *testing.T) {
	store := newMemoryLedger()
	ident := testIdentity()

	cases := []struct {
		name  string
		entry Entry
	}{
		{"missing product", Entry{LocationID: uuid.New(), Qty: dec("1")}},
		{"missing location", Entry{ProductID: uuid.New(), Qty: dec("1")}},
		{"zero qty", Entry{ProductID: uuid.New(), LocationID: uuid.New()}},
		{"negative cost", Entry{ProductID: uuid.New(), LocationID: uuid.New(), Qty: dec("1"), UnitCost: dec("-2"), UnitCostSet: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Apply(context.Background(), store, ident, tc.entry)
			var verr *shared.ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestApplyConcurrentDecreasesSerialize(t *testing.T) {
	store := newMemoryLedger()
	ident := testIdentity()
	productID, locationID := uuid.New(), uuid.New()

	_, err := Apply(context.Background(), store, ident, Entry{
		ProductID: productID, LocationID: locationID,
		Qty: dec("100"), Type: MovementReceive, ReferenceType: RefPurchaseOrder,
		ReferenceID: uuid.New(), UnitCost: dec("2"), UnitCostSet: true,
	})
	require.NoError(t, err)

	// Two shipments of 80 against 100 on hand: exactly one succeeds.
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.Tx(func(tx TxRepository) error {
				_, err := Apply(context.Background(), tx, ident, Entry{
					ProductID: productID, LocationID: locationID,
					Qty: dec("-80"), Type: MovementShip, ReferenceType: RefShipment,
					ReferenceID: uuid.New(),
				})
				return err
			})
		}()
	}
	wg.Wait()
	close(results)

	var ok, failed int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		var insufficient *shared.InsufficientStockError
		require.True(t, errors.As(err, &insufficient))
		failed++
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, failed)

	bal, err := store.GetBalanceForUpdate(context.Background(), ident.TenantID, productID, locationID, Lot{})
	require.NoError(t, err)
	require.True(t, bal.Qty.Equal(dec("20")))
}
