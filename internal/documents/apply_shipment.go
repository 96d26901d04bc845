package documents

import (
	"context"

	"github.com/stockroom-hq/stockroom/internal/ledger"
	"github.com/stockroom-hq/stockroom/internal/shared"
)

// applyShip deducts every line under lock. One sufficiency check, one balance
// decrease and one movement per line; any failure rolls the whole shipment
// back.
func (s *Service) applyShip(ctx context.Context, tx TxRepository, ident shared.Identity, doc Document, lines []Line) error {
	if len(lines) == 0 {
		return shared.NewValidationError("lines", "at least one line required")
	}
	for _, line := range lines {
		_, err := ledger.Apply(ctx, tx, ident, ledger.Entry{
			ProductID:     line.ProductID,
			LocationID:    doc.LocationID,
			Lot:           line.Lot,
			Qty:           line.Qty.Neg(),
			Type:          ledger.MovementShip,
			ReferenceType: referenceTypes[doc.Kind],
			ReferenceID:   doc.ID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
