package ledger

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType enumerates the cause of a quantity change.
type MovementType string

const (
	MovementReceive       MovementType = "receive"
	MovementShip          MovementType = "ship"
	MovementTransferOut   MovementType = "transfer_out"
	MovementTransferIn    MovementType = "transfer_in"
	MovementAdjustment    MovementType = "adjustment"
	MovementCountVariance MovementType = "count_variance"
	MovementReturnIn      MovementType = "return_in"
	MovementReturnOut     MovementType = "return_out"
	MovementVoid          MovementType = "void"
)

// ReferenceType identifies the originating document kind of a movement, used
// verbatim for reverse lookup from the movement log.
type ReferenceType string

const (
	RefPurchaseOrder ReferenceType = "po"
	RefShipment      ReferenceType = "shipment"
	RefTransfer      ReferenceType = "transfer"
	RefAdjustment    ReferenceType = "adjustment"
	RefCycleCount    ReferenceType = "cycle_count"
	RefReturn        ReferenceType = "return"
)

// Lot is the lot/expiry sub-key distinguishing otherwise identical stock.
// The zero value means "no lot, no expiry". Empty string and null are the same
// identity; Normalize folds them together so the store never sees the
// ambiguity.
type Lot struct {
	Number string
	Expiry time.Time
}

// Normalize trims the lot number and truncates the expiry to a date. Callers
// must normalize before any lookup or write.
func (l Lot) Normalize() Lot {
	l.Number = strings.TrimSpace(l.Number)
	if !l.Expiry.IsZero() {
		l.Expiry = l.Expiry.UTC().Truncate(24 * time.Hour)
	}
	return l
}

// HasExpiry reports whether the lot carries an expiry date.
func (l Lot) HasExpiry() bool {
	return !l.Expiry.IsZero()
}

// IsZero reports whether the lot carries no identity at all.
func (l Lot) IsZero() bool {
	return l.Number == "" && l.Expiry.IsZero()
}

// Balance is the current on-hand quantity and weighted-average cost for one
// (tenant, product, location, lot, expiry) key. Rows are created on the first
// stock-increasing movement and only ever zeroed, never deleted.
type Balance struct {
	TenantID   uuid.UUID
	ProductID  uuid.UUID
	LocationID uuid.UUID
	Lot        Lot
	Qty        decimal.Decimal
	AvgCost    decimal.Decimal
	UpdatedAt  time.Time
}

// Movement is one immutable ledger entry. The sum of movement quantities per
// balance key equals that key's qty on hand at all times.
type Movement struct {
	ID            int64
	TenantID      uuid.UUID
	ProductID     uuid.UUID
	LocationID    uuid.UUID
	Qty           decimal.Decimal
	Type          MovementType
	ReferenceType ReferenceType
	ReferenceID   uuid.UUID
	Lot           Lot
	UnitCost      decimal.Decimal
	ExtendedCost  decimal.Decimal
	Reason        string
	CreatedBy     uuid.UUID
	CreatedAt     time.Time
}

// BalanceFilter narrows on-hand listings.
type BalanceFilter struct {
	ProductID   uuid.UUID
	LocationID  uuid.UUID
	IncludeZero bool
	Limit       int
}

// MovementFilter narrows movement history queries. Reference fields support the
// "show me the document that caused this movement" reverse lookup.
type MovementFilter struct {
	ProductID     uuid.UUID
	LocationID    uuid.UUID
	ReferenceType ReferenceType
	ReferenceID   uuid.UUID
	Limit         int
}

// ErrBalanceNotFound indicates no balance row exists for the requested key.
var ErrBalanceNotFound = errors.New("ledger: balance not found")
