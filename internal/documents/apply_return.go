package documents

import (
	"context"

	"github.com/stockroom-hq/stockroom/internal/ledger"
	"github.com/stockroom-hq/stockroom/internal/shared"
)

// applyReturn adds stock back for customer returns, blending the supplied
// unit cost into the average like any other receipt, and deducts stock for
// supplier returns subject to the sufficiency check.
func (s *Service) applyReturn(ctx context.Context, tx TxRepository, ident shared.Identity, doc Document, lines []Line) error {
	if len(lines) == 0 {
		return shared.NewValidationError("lines", "at least one line required")
	}
	for _, line := range lines {
		entry := ledger.Entry{
			ProductID:     line.ProductID,
			LocationID:    doc.LocationID,
			Lot:           line.Lot,
			ReferenceType: referenceTypes[doc.Kind],
			ReferenceID:   doc.ID,
		}
		switch doc.ReturnType {
		case ReturnCustomer:
			entry.Qty = line.Qty
			entry.Type = ledger.MovementReturnIn
			entry.UnitCost = line.UnitCost
			entry.UnitCostSet = line.UnitCostSet
		case ReturnSupplier:
			// Supplier returns leave at the prevailing average cost; a
			// line-level cost override only applies to the inbound branch.
			entry.Qty = line.Qty.Neg()
			entry.Type = ledger.MovementReturnOut
		default:
			return shared.NewValidationError("return_type", "must be customer or supplier")
		}
		if _, err := ledger.Apply(ctx, tx, ident, entry); err != nil {
			return err
		}
	}
	return nil
}
