package documents

import (
	"context"

	"github.com/stockroom-hq/stockroom/internal/ledger"
	"github.com/stockroom-hq/stockroom/internal/shared"
)

// applyTransfer moves each line out of the source location and into the
// destination. The inbound leg is costed at the outbound leg's applied
// average cost so value moves with the stock.
func (s *Service) applyTransfer(ctx context.Context, tx TxRepository, ident shared.Identity, doc Document, lines []Line) error {
	if len(lines) == 0 {
		return shared.NewValidationError("lines", "at least one line required")
	}
	for _, line := range lines {
		out, err := ledger.Apply(ctx, tx, ident, ledger.Entry{
			ProductID:     line.ProductID,
			LocationID:    doc.FromLocationID,
			Lot:           line.Lot,
			Qty:           line.Qty.Neg(),
			Type:          ledger.MovementTransferOut,
			ReferenceType: referenceTypes[doc.Kind],
			ReferenceID:   doc.ID,
		})
		if err != nil {
			return err
		}
		_, err = ledger.Apply(ctx, tx, ident, ledger.Entry{
			ProductID:     line.ProductID,
			LocationID:    doc.ToLocationID,
			Lot:           line.Lot,
			Qty:           line.Qty,
			Type:          ledger.MovementTransferIn,
			ReferenceType: referenceTypes[doc.Kind],
			ReferenceID:   doc.ID,
			UnitCost:      out.UnitCost,
			UnitCostSet:   true,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
