package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockroom-hq/stockroom/internal/audit"
	"github.com/stockroom-hq/stockroom/internal/ledger"
	"github.com/stockroom-hq/stockroom/internal/shared"
)

// TxRepository exposes the document and ledger operations that must share one
// transaction. Embedding the ledger interface is what makes a committing
// transition a single unit of work: status flip, balance updates and movement
// inserts commit or roll back together.
type TxRepository interface {
	ledger.TxRepository
	InsertDocument(ctx context.Context, doc Document) error
	InsertLines(ctx context.Context, docID uuid.UUID, lines []Line) ([]Line, error)
	DeleteLines(ctx context.Context, docID uuid.UUID) error
	GetDocumentForUpdate(ctx context.Context, tenantID, docID uuid.UUID) (Document, []Line, error)
	UpdateDocumentStatus(ctx context.Context, docID uuid.UUID, status Status) error
	UpdateLineReceived(ctx context.Context, lineID int64, qtyReceived decimal.Decimal) error
	UpdateShipDate(ctx context.Context, docID uuid.UUID, shipDate time.Time) error
	DeleteDocument(ctx context.Context, docID uuid.UUID) error
	NextNumber(ctx context.Context, tenantID uuid.UUID, kind Kind) (string, error)
}

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetDocument(ctx context.Context, tenantID, id uuid.UUID) (Document, []Line, error)
	ListDocuments(ctx context.Context, tenantID uuid.UUID, filter ListFilter) ([]Document, error)
}

// ReferenceValidator checks master-data references before any store mutation.
type ReferenceValidator interface {
	ProductExists(ctx context.Context, tenantID, productID uuid.UUID) (bool, error)
	LocationExists(ctx context.Context, tenantID, locationID uuid.UUID) (bool, error)
	SupplierExists(ctx context.Context, tenantID, supplierID uuid.UUID) (bool, error)
	CustomerExists(ctx context.Context, tenantID, customerID uuid.UUID) (bool, error)
}

// BalanceReader reads balances without locking, for feasibility checks and
// cycle-count system quantities.
type BalanceReader interface {
	GetBalance(ctx context.Context, tenantID, productID, locationID uuid.UUID, lot ledger.Lot) (ledger.Balance, error)
}

// CacheInvalidator drops cached on-hand snapshots after a committing
// transition.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tenantID uuid.UUID)
}

// Service drives every document through its lifecycle.
type Service struct {
	repo     RepositoryPort
	refs     ReferenceValidator
	balances BalanceReader
	audit    audit.Recorder
	cache    CacheInvalidator
}

// NewService constructs the document workflow service.
func NewService(repo RepositoryPort, refs ReferenceValidator, balances BalanceReader, recorder audit.Recorder, cache CacheInvalidator) *Service {
	return &Service{repo: repo, refs: refs, balances: balances, audit: recorder, cache: cache}
}

// CreateInput describes a new draft document.
type CreateInput struct {
	Kind           Kind
	SupplierID     uuid.UUID
	CustomerID     uuid.UUID
	LocationID     uuid.UUID
	FromLocationID uuid.UUID
	ToLocationID   uuid.UUID
	ShipDate       time.Time
	CountDate      time.Time
	Reason         AdjustmentReason
	ReturnType     ReturnType
	Notes          string
	Lines          []LineInput
}

// LineInput describes one requested line.
type LineInput struct {
	ProductID  uuid.UUID
	Qty        decimal.Decimal
	CountedQty decimal.Decimal
	LotNumber  string
	ExpiryDate time.Time
	UnitCost   *decimal.Decimal
	Note       string
}

// ReceiveLineInput records quantity received against one purchase order line.
type ReceiveLineInput struct {
	LineID   int64
	Qty      decimal.Decimal
	UnitCost *decimal.Decimal
}

// Create validates the payload and persists a new draft with its lines.
func (s *Service) Create(ctx context.Context, ident shared.Identity, input CreateInput) (Document, []Line, error) {
	if !ValidKind(input.Kind) {
		return Document{}, nil, shared.NewValidationError("kind", "unknown document kind")
	}
	doc := Document{
		ID:             uuid.New(),
		TenantID:       ident.TenantID,
		Kind:           input.Kind,
		Status:         StatusDraft,
		SupplierID:     input.SupplierID,
		CustomerID:     input.CustomerID,
		LocationID:     input.LocationID,
		FromLocationID: input.FromLocationID,
		ToLocationID:   input.ToLocationID,
		ShipDate:       input.ShipDate,
		CountDate:      input.CountDate,
		Reason:         input.Reason,
		ReturnType:     input.ReturnType,
		Notes:          input.Notes,
		CreatedBy:      ident.ActorID,
	}
	if err := s.validateHeader(ctx, ident, doc); err != nil {
		return Document{}, nil, err
	}
	lines, err := s.buildLines(ctx, ident, doc, input.Lines)
	if err != nil {
		return Document{}, nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx, ident.TenantID, doc.Kind)
		if err != nil {
			return err
		}
		doc.Number = number
		if err := tx.InsertDocument(ctx, doc); err != nil {
			return err
		}
		lines, err = tx.InsertLines(ctx, doc.ID, lines)
		return err
	})
	if err != nil {
		return Document{}, nil, err
	}
	s.recordAudit(ctx, ident, doc, "create", nil, map[string]any{"status": string(StatusDraft), "lines": len(lines)}, "")
	return doc, lines, nil
}

// Get fetches a document with its lines.
func (s *Service) Get(ctx context.Context, ident shared.Identity, id uuid.UUID) (Document, []Line, error) {
	return s.repo.GetDocument(ctx, ident.TenantID, id)
}

// List returns document headers for the tenant.
func (s *Service) List(ctx context.Context, ident shared.Identity, filter ListFilter) ([]Document, error) {
	return s.repo.ListDocuments(ctx, ident.TenantID, filter)
}

// ReplaceLines swaps a draft document's lines wholesale. Anything past draft
// is immutable history.
func (s *Service) ReplaceLines(ctx context.Context, ident shared.Identity, docID uuid.UUID, inputs []LineInput) ([]Line, error) {
	var lines []Line
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, _, err := tx.GetDocumentForUpdate(ctx, ident.TenantID, docID)
		if err != nil {
			return err
		}
		if err := guardAction(doc, "edit lines", []Status{StatusDraft}); err != nil {
			return err
		}
		lines, err = s.buildLines(ctx, ident, doc, inputs)
		if err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, docID); err != nil {
			return err
		}
		lines, err = tx.InsertLines(ctx, docID, lines)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// Delete removes a draft document entirely.
func (s *Service) Delete(ctx context.Context, ident shared.Identity, docID uuid.UUID) error {
	var doc Document
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		doc, _, err = tx.GetDocumentForUpdate(ctx, ident.TenantID, docID)
		if err != nil {
			return err
		}
		if err := guardAction(doc, "delete", []Status{StatusDraft}); err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, docID); err != nil {
			return err
		}
		return tx.DeleteDocument(ctx, docID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, ident, doc, "delete", map[string]any{"status": string(doc.Status)}, nil, "")
	return nil
}

// Cancel moves a document to cancelled. Only pre-commit states allow it.
func (s *Service) Cancel(ctx context.Context, ident shared.Identity, docID uuid.UUID) (Document, error) {
	return s.transition(ctx, ident, docID, "cancel", func(ctx context.Context, tx TxRepository, doc Document, lines []Line) (Status, error) {
		if err := guardAction(doc, "cancel", cancellable[doc.Kind]); err != nil {
			return "", err
		}
		return StatusCancelled, nil
	})
}

// Confirm validates and moves purchase orders, shipments and transfers from
// draft to confirmed without touching stock. Shipments re-validate stock
// sufficiency for every line; the committing ship re-checks under lock.
func (s *Service) Confirm(ctx context.Context, ident shared.Identity, docID uuid.UUID) (Document, error) {
	return s.transition(ctx, ident, docID, "confirm", func(ctx context.Context, tx TxRepository, doc Document, lines []Line) (Status, error) {
		if !confirmable[doc.Kind] {
			return "", &shared.InvalidTransitionError{Kind: string(doc.Kind), From: string(doc.Status), Action: "confirm"}
		}
		if err := guardAction(doc, "confirm", []Status{StatusDraft}); err != nil {
			return "", err
		}
		if len(lines) == 0 {
			return "", shared.NewValidationError("lines", "at least one line required")
		}
		if doc.Kind == KindShipment {
			if err := s.checkShipmentStock(ctx, ident, doc, lines); err != nil {
				return "", err
			}
		}
		return StatusConfirmed, nil
	})
}

// Receive applies a partial or full receipt against a confirmed purchase
// order. Repeatable until every line is fully received.
func (s *Service) Receive(ctx context.Context, ident shared.Identity, docID uuid.UUID, inputs []ReceiveLineInput) (Document, error) {
	if len(inputs) == 0 {
		return Document{}, shared.NewValidationError("lines", "at least one receipt line required")
	}
	return s.transition(ctx, ident, docID, "receive", func(ctx context.Context, tx TxRepository, doc Document, lines []Line) (Status, error) {
		if doc.Kind != KindPurchaseOrder {
			return "", &shared.InvalidTransitionError{Kind: string(doc.Kind), From: string(doc.Status), Action: "receive"}
		}
		if err := guardAction(doc, "receive", committedFrom[KindPurchaseOrder]); err != nil {
			return "", err
		}
		return s.applyReceive(ctx, tx, ident, doc, lines, inputs)
	})
}

// Ship performs the actual stock deduction for a confirmed shipment and
// records the ship date.
func (s *Service) Ship(ctx context.Context, ident shared.Identity, docID uuid.UUID, shipDate time.Time) (Document, error) {
	if shipDate.IsZero() {
		shipDate = time.Now().UTC()
	}
	return s.transition(ctx, ident, docID, "ship", func(ctx context.Context, tx TxRepository, doc Document, lines []Line) (Status, error) {
		if doc.Kind != KindShipment {
			return "", &shared.InvalidTransitionError{Kind: string(doc.Kind), From: string(doc.Status), Action: "ship"}
		}
		if err := guardAction(doc, "ship", committedFrom[KindShipment]); err != nil {
			return "", err
		}
		if err := s.applyShip(ctx, tx, ident, doc, lines); err != nil {
			return "", err
		}
		return StatusCompleted, tx.UpdateShipDate(ctx, doc.ID, shipDate)
	})
}

// CompleteTransfer deducts from the source location and adds to the
// destination, two movements per line referencing the same transfer.
func (s *Service) CompleteTransfer(ctx context.Context, ident shared.Identity, docID uuid.UUID) (Document, error) {
	return s.transition(ctx, ident, docID, "complete", func(ctx context.Context, tx TxRepository, doc Document, lines []Line) (Status, error) {
		if doc.Kind != KindTransfer {
			return "", &shared.InvalidTransitionError{Kind: string(doc.Kind), From: string(doc.Status), Action: "complete"}
		}
		if err := guardAction(doc, "complete", committedFrom[KindTransfer]); err != nil {
			return "", err
		}
		if err := s.applyTransfer(ctx, tx, ident, doc, lines); err != nil {
			return "", err
		}
		return StatusCompleted, nil
	})
}

// PostAdjustment applies a draft adjustment's signed lines. Fail-fast: if any
// negative line cannot be satisfied nothing is applied.
func (s *Service) PostAdjustment(ctx context.Context, ident shared.Identity, docID uuid.UUID) (Document, error) {
	return s.transition(ctx, ident, docID, "post", func(ctx context.Context, tx TxRepository, doc Document, lines []Line) (Status, error) {
		if doc.Kind != KindAdjustment {
			return "", &shared.InvalidTransitionError{Kind: string(doc.Kind), From: string(doc.Status), Action: "post"}
		}
		if err := guardAction(doc, "post", committedFrom[KindAdjustment]); err != nil {
			return "", err
		}
		if err := s.applyAdjustment(ctx, tx, ident, doc, lines); err != nil {
			return "", err
		}
		return StatusCompleted, nil
	})
}

// PostCycleCount applies count variances: only lines whose counted quantity
// differs from the captured system quantity move stock.
func (s *Service) PostCycleCount(ctx context.Context, ident shared.Identity, docID uuid.UUID) (Document, error) {
	return s.transition(ctx, ident, docID, "post", func(ctx context.Context, tx TxRepository, doc Document, lines []Line) (Status, error) {
		if doc.Kind != KindCycleCount {
			return "", &shared.InvalidTransitionError{Kind: string(doc.Kind), From: string(doc.Status), Action: "post"}
		}
		if err := guardAction(doc, "post", committedFrom[KindCycleCount]); err != nil {
			return "", err
		}
		if err := s.applyCycleCount(ctx, tx, ident, doc, lines); err != nil {
			return "", err
		}
		return StatusCompleted, nil
	})
}

// ProcessReturn applies a draft return: customer returns add stock back,
// supplier returns deduct it.
func (s *Service) ProcessReturn(ctx context.Context, ident shared.Identity, docID uuid.UUID) (Document, error) {
	return s.transition(ctx, ident, docID, "process", func(ctx context.Context, tx TxRepository, doc Document, lines []Line) (Status, error) {
		if doc.Kind != KindReturn {
			return "", &shared.InvalidTransitionError{Kind: string(doc.Kind), From: string(doc.Status), Action: "process"}
		}
		if err := guardAction(doc, "process", committedFrom[KindReturn]); err != nil {
			return "", err
		}
		if err := s.applyReturn(ctx, tx, ident, doc, lines); err != nil {
			return "", err
		}
		return StatusCompleted, nil
	})
}

// transition runs one state change as a single unit of work: the document row
// is locked, the action decides the target status (applying ledger effects in
// the same transaction), and the audit event is emitted only after commit.
func (s *Service) transition(ctx context.Context, ident shared.Identity, docID uuid.UUID, action string,
	fn func(context.Context, TxRepository, Document, []Line) (Status, error)) (Document, error) {
	var doc Document
	var from Status
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var lines []Line
		var err error
		doc, lines, err = tx.GetDocumentForUpdate(ctx, ident.TenantID, docID)
		if err != nil {
			return err
		}
		from = doc.Status
		next, err := fn(ctx, tx, doc, lines)
		if err != nil {
			return err
		}
		if next != doc.Status {
			if err := tx.UpdateDocumentStatus(ctx, doc.ID, next); err != nil {
				return err
			}
			doc.Status = next
		}
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	// Only committing actions move stock, and a repeat partial receipt does
	// so without a status flip, so invalidation keys off the action.
	if commitAction[doc.Kind] == action {
		s.invalidate(ctx, ident)
	}
	s.recordAudit(ctx, ident, doc, action,
		map[string]any{"status": string(from)},
		map[string]any{"status": string(doc.Status)}, "")
	return doc, nil
}

func (s *Service) invalidate(ctx context.Context, ident shared.Identity) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, ident.TenantID)
	}
}

func (s *Service) recordAudit(ctx context.Context, ident shared.Identity, doc Document, action string, oldValues, newValues map[string]any, notes string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, audit.Event{
		TenantID:     ident.TenantID,
		ActorID:      ident.ActorID,
		Action:       fmt.Sprintf("%s.%s", doc.Kind, action),
		ResourceType: string(doc.Kind),
		ResourceID:   doc.ID.String(),
		ResourceName: doc.Number,
		OldValues:    oldValues,
		NewValues:    newValues,
		Notes:        notes,
	})
}

// validateHeader checks kind-specific required fields and references.
func (s *Service) validateHeader(ctx context.Context, ident shared.Identity, doc Document) error {
	switch doc.Kind {
	case KindPurchaseOrder:
		if doc.SupplierID == uuid.Nil {
			return shared.NewValidationError("supplier_id", "required")
		}
		if err := s.requireSupplier(ctx, ident, doc.SupplierID); err != nil {
			return err
		}
		return s.requireLocation(ctx, ident, doc.LocationID, "location_id")
	case KindShipment:
		if doc.CustomerID == uuid.Nil {
			return shared.NewValidationError("customer_id", "required")
		}
		if err := s.requireCustomer(ctx, ident, doc.CustomerID); err != nil {
			return err
		}
		return s.requireLocation(ctx, ident, doc.LocationID, "location_id")
	case KindTransfer:
		if doc.FromLocationID == doc.ToLocationID {
			return shared.NewValidationError("to_location_id", "must differ from source location")
		}
		if err := s.requireLocation(ctx, ident, doc.FromLocationID, "from_location_id"); err != nil {
			return err
		}
		return s.requireLocation(ctx, ident, doc.ToLocationID, "to_location_id")
	case KindAdjustment:
		if doc.Reason == "" {
			return shared.NewValidationError("reason", "required")
		}
		return s.requireLocation(ctx, ident, doc.LocationID, "location_id")
	case KindCycleCount:
		return s.requireLocation(ctx, ident, doc.LocationID, "location_id")
	case KindReturn:
		switch doc.ReturnType {
		case ReturnCustomer:
			if doc.CustomerID == uuid.Nil {
				return shared.NewValidationError("customer_id", "required")
			}
			if err := s.requireCustomer(ctx, ident, doc.CustomerID); err != nil {
				return err
			}
		case ReturnSupplier:
			if doc.SupplierID == uuid.Nil {
				return shared.NewValidationError("supplier_id", "required")
			}
			if err := s.requireSupplier(ctx, ident, doc.SupplierID); err != nil {
				return err
			}
		default:
			return shared.NewValidationError("return_type", "must be customer or supplier")
		}
		return s.requireLocation(ctx, ident, doc.LocationID, "location_id")
	}
	return shared.NewValidationError("kind", "unknown document kind")
}

// buildLines validates line inputs for the document's kind. Cycle counts
// capture the system quantity from the current balance at save time.
func (s *Service) buildLines(ctx context.Context, ident shared.Identity, doc Document, inputs []LineInput) ([]Line, error) {
	if len(inputs) == 0 {
		return nil, shared.NewValidationError("lines", "at least one line required")
	}
	lines := make([]Line, 0, len(inputs))
	for i, in := range inputs {
		if in.ProductID == uuid.Nil {
			return nil, shared.NewValidationError(fmt.Sprintf("lines[%d].product_id", i), "required")
		}
		ok, err := s.refs.ProductExists(ctx, ident.TenantID, in.ProductID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, shared.NewValidationError(fmt.Sprintf("lines[%d].product_id", i), "unknown product")
		}
		line := Line{
			DocumentID: doc.ID,
			ProductID:  in.ProductID,
			Qty:        in.Qty,
			Lot:        ledger.Lot{Number: in.LotNumber, Expiry: in.ExpiryDate}.Normalize(),
			Note:       in.Note,
		}
		if in.UnitCost != nil {
			if in.UnitCost.IsNegative() {
				return nil, shared.NewValidationError(fmt.Sprintf("lines[%d].unit_cost", i), "must be non-negative")
			}
			line.UnitCost = *in.UnitCost
			line.UnitCostSet = true
		}
		switch doc.Kind {
		case KindAdjustment:
			if in.Qty.IsZero() {
				return nil, shared.NewValidationError(fmt.Sprintf("lines[%d].qty", i), "must be non-zero")
			}
		case KindCycleCount:
			if in.CountedQty.IsNegative() {
				return nil, shared.NewValidationError(fmt.Sprintf("lines[%d].counted_qty", i), "must be non-negative")
			}
			line.CountedQty = in.CountedQty
			line.SystemQty = s.systemQty(ctx, ident, doc, line)
			line.Qty = decimal.Zero
		default:
			if !in.Qty.IsPositive() {
				return nil, shared.NewValidationError(fmt.Sprintf("lines[%d].qty", i), "must be positive")
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *Service) systemQty(ctx context.Context, ident shared.Identity, doc Document, line Line) decimal.Decimal {
	if s.balances == nil {
		return decimal.Zero
	}
	bal, err := s.balances.GetBalance(ctx, ident.TenantID, line.ProductID, doc.LocationID, line.Lot)
	if err != nil {
		return decimal.Zero
	}
	return bal.Qty
}

// checkShipmentStock is the confirm-time feasibility check. It reads without
// locking; the ship transition repeats the check atomically.
func (s *Service) checkShipmentStock(ctx context.Context, ident shared.Identity, doc Document, lines []Line) error {
	for _, line := range lines {
		bal, err := s.balances.GetBalance(ctx, ident.TenantID, line.ProductID, doc.LocationID, line.Lot)
		available := decimal.Zero
		if err == nil {
			available = bal.Qty
		} else if !errors.Is(err, ledger.ErrBalanceNotFound) {
			return err
		}
		if available.LessThan(line.Qty) {
			return &shared.InsufficientStockError{
				ProductID:  line.ProductID,
				LocationID: doc.LocationID,
				Lot:        line.Lot.Number,
				Requested:  line.Qty,
				Available:  available,
			}
		}
	}
	return nil
}

func (s *Service) requireLocation(ctx context.Context, ident shared.Identity, id uuid.UUID, field string) error {
	if id == uuid.Nil {
		return shared.NewValidationError(field, "required")
	}
	ok, err := s.refs.LocationExists(ctx, ident.TenantID, id)
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewValidationError(field, "unknown location")
	}
	return nil
}

func (s *Service) requireSupplier(ctx context.Context, ident shared.Identity, id uuid.UUID) error {
	ok, err := s.refs.SupplierExists(ctx, ident.TenantID, id)
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewValidationError("supplier_id", "unknown supplier")
	}
	return nil
}

func (s *Service) requireCustomer(ctx context.Context, ident shared.Identity, id uuid.UUID) error {
	ok, err := s.refs.CustomerExists(ctx, ident.TenantID, id)
	if err != nil {
		return err
	}
	if !ok {
		return shared.NewValidationError("customer_id", "unknown customer")
	}
	return nil
}
