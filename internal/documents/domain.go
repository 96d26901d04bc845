package documents

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockroom-hq/stockroom/internal/ledger"
)

// Kind enumerates the six inventory document kinds.
type Kind string

const (
	KindPurchaseOrder Kind = "purchase_order"
	KindShipment      Kind = "shipment"
	KindTransfer      Kind = "transfer"
	KindAdjustment    Kind = "adjustment"
	KindCycleCount    Kind = "cycle_count"
	KindReturn        Kind = "return"
)

// Status enumerates document lifecycle states. Not every kind uses every
// status; the workflow tables in workflow.go define what each kind permits.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusConfirmed Status = "confirmed"
	StatusPartial   Status = "partial"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ReturnType distinguishes the two return directions.
type ReturnType string

const (
	ReturnCustomer ReturnType = "customer"
	ReturnSupplier ReturnType = "supplier"
)

// AdjustmentReason enumerates why stock was adjusted.
type AdjustmentReason string

const (
	ReasonDamage     AdjustmentReason = "damage"
	ReasonLoss       AdjustmentReason = "loss"
	ReasonFound      AdjustmentReason = "found"
	ReasonExpired    AdjustmentReason = "expired"
	ReasonCorrection AdjustmentReason = "correction"
	ReasonOther      AdjustmentReason = "other"
)

// Document is the common header shared by all six kinds. Kind-specific fields
// stay zero for kinds that do not use them.
type Document struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Kind     Kind
	Number   string
	Status   Status

	SupplierID     uuid.UUID // purchase orders, supplier returns
	CustomerID     uuid.UUID // shipments, customer returns
	LocationID     uuid.UUID // every kind except transfers
	FromLocationID uuid.UUID // transfers
	ToLocationID   uuid.UUID // transfers

	ShipDate   time.Time        // shipments
	CountDate  time.Time        // cycle counts
	Reason     AdjustmentReason // adjustments
	ReturnType ReturnType       // returns

	Notes     string
	CreatedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Line belongs to exactly one document. Qty follows the kind's sign
// convention: ordered quantity for purchase orders, shipped/transferred/
// returned quantity (always positive) elsewhere, and a signed quantity for
// adjustments. Lines are replaced wholesale on every draft edit, never
// patched.
type Line struct {
	ID         int64
	DocumentID uuid.UUID
	ProductID  uuid.UUID
	Qty        decimal.Decimal

	QtyReceived decimal.Decimal // purchase orders
	SystemQty   decimal.Decimal // cycle counts
	CountedQty  decimal.Decimal // cycle counts

	Lot         ledger.Lot
	UnitCost    decimal.Decimal
	UnitCostSet bool
	Note        string
}

// ListFilter narrows document listings.
type ListFilter struct {
	Kind   Kind
	Status Status
	Limit  int
}
