package documents

import (
	"context"

	"github.com/stockroom-hq/stockroom/internal/ledger"
	"github.com/stockroom-hq/stockroom/internal/shared"
)

// applyAdjustment posts the signed lines with independent cost resolution per
// line: a caller-supplied unit cost overrides, otherwise increases blend at
// and decreases record the current average cost. Every negative line must be
// satisfiable or the whole adjustment rolls back.
func (s *Service) applyAdjustment(ctx context.Context, tx TxRepository, ident shared.Identity, doc Document, lines []Line) error {
	if len(lines) == 0 {
		return shared.NewValidationError("lines", "at least one line required")
	}
	for _, line := range lines {
		_, err := ledger.Apply(ctx, tx, ident, ledger.Entry{
			ProductID:     line.ProductID,
			LocationID:    doc.LocationID,
			Lot:           line.Lot,
			Qty:           line.Qty,
			Type:          ledger.MovementAdjustment,
			ReferenceType: referenceTypes[doc.Kind],
			ReferenceID:   doc.ID,
			UnitCost:      line.UnitCost,
			UnitCostSet:   line.UnitCostSet,
			Reason:        string(doc.Reason),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
