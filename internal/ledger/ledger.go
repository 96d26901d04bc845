package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockroom-hq/stockroom/internal/shared"
)

// TxRepository exposes the balance and movement operations that must share one
// database transaction with the caller. Document transitions obtain an
// implementation bound to their own transaction so every balance read, balance
// write and movement insert for the transition commits or rolls back as a unit.
type TxRepository interface {
	GetBalanceForUpdate(ctx context.Context, tenantID, productID, locationID uuid.UUID, lot Lot) (Balance, error)
	UpsertBalance(ctx context.Context, balance Balance) error
	InsertMovement(ctx context.Context, mv Movement) (int64, error)
}

// Entry describes one requested balance change. Qty is signed: positive
// increases stock, negative decreases it.
type Entry struct {
	ProductID     uuid.UUID
	LocationID    uuid.UUID
	Lot           Lot
	Qty           decimal.Decimal
	Type          MovementType
	ReferenceType ReferenceType
	ReferenceID   uuid.UUID
	UnitCost      decimal.Decimal
	// UnitCostSet marks a caller-supplied unit cost. Without it the entry is
	// cost-neutral: the balance's current average cost is applied, zero when
	// no prior balance exists. Decreases never move the average either way; a
	// supplied cost only changes what the movement records.
	UnitCostSet bool
	Reason      string
}

// Apply posts one entry: resolves the balance row for the normalized lot
// identity, computes the cost to apply, updates the balance and records the
// movement. The balance row is locked for the duration of the caller's
// transaction, so concurrent decreases against the same key serialize and the
// sufficiency check cannot race.
func Apply(ctx context.Context, tx TxRepository, id shared.Identity, e Entry) (Movement, error) {
	if e.ProductID == uuid.Nil {
		return Movement{}, shared.NewValidationError("product_id", "required")
	}
	if e.LocationID == uuid.Nil {
		return Movement{}, shared.NewValidationError("location_id", "required")
	}
	if e.Qty.IsZero() {
		return Movement{}, shared.NewValidationError("qty", "must be non-zero")
	}
	if e.UnitCost.IsNegative() {
		return Movement{}, shared.NewValidationError("unit_cost", "must be non-negative")
	}
	lot := e.Lot.Normalize()

	bal, err := tx.GetBalanceForUpdate(ctx, id.TenantID, e.ProductID, e.LocationID, lot)
	missing := errors.Is(err, ErrBalanceNotFound)
	if err != nil && !missing {
		return Movement{}, err
	}
	if missing {
		bal = Balance{
			TenantID:   id.TenantID,
			ProductID:  e.ProductID,
			LocationID: e.LocationID,
			Lot:        lot,
			Qty:        decimal.Zero,
			AvgCost:    decimal.Zero,
		}
	}

	var unitCost decimal.Decimal
	if e.Qty.IsPositive() {
		unitCost = bal.AvgCost
		if e.UnitCostSet {
			unitCost = e.UnitCost
		}
		bal.AvgCost = NewAverageCost(bal.Qty, bal.AvgCost, e.Qty, unitCost)
		bal.Qty = bal.Qty.Add(e.Qty)
	} else {
		newQty := bal.Qty.Add(e.Qty)
		if newQty.IsNegative() {
			return Movement{}, &shared.InsufficientStockError{
				ProductID:  e.ProductID,
				LocationID: e.LocationID,
				Lot:        lot.Number,
				Requested:  e.Qty.Neg(),
				Available:  bal.Qty,
			}
		}
		unitCost = bal.AvgCost
		if e.UnitCostSet {
			unitCost = e.UnitCost
		}
		bal.Qty = newQty
	}
	bal.UpdatedAt = time.Now().UTC()
	if err := tx.UpsertBalance(ctx, bal); err != nil {
		return Movement{}, err
	}

	mv := Movement{
		TenantID:      id.TenantID,
		ProductID:     e.ProductID,
		LocationID:    e.LocationID,
		Qty:           e.Qty,
		Type:          e.Type,
		ReferenceType: e.ReferenceType,
		ReferenceID:   e.ReferenceID,
		Lot:           lot,
		UnitCost:      unitCost,
		ExtendedCost:  e.Qty.Mul(unitCost).Round(costScale),
		Reason:        e.Reason,
		CreatedBy:     id.ActorID,
		CreatedAt:     bal.UpdatedAt,
	}
	mvID, err := tx.InsertMovement(ctx, mv)
	if err != nil {
		return Movement{}, err
	}
	mv.ID = mvID
	return mv, nil
}
