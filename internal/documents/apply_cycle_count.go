package documents

import (
	"context"

	"github.com/stockroom-hq/stockroom/internal/ledger"
	"github.com/stockroom-hq/stockroom/internal/shared"
)

// applyCycleCount posts one count_variance movement per line whose counted
// quantity differs from the captured system quantity. Matching lines are
// no-ops. Variances are cost-neutral: they move quantity at the balance's
// current average cost.
func (s *Service) applyCycleCount(ctx context.Context, tx TxRepository, ident shared.Identity, doc Document, lines []Line) error {
	if len(lines) == 0 {
		return shared.NewValidationError("lines", "at least one line required")
	}
	for _, line := range lines {
		variance := line.CountedQty.Sub(line.SystemQty)
		if variance.IsZero() {
			continue
		}
		_, err := ledger.Apply(ctx, tx, ident, ledger.Entry{
			ProductID:     line.ProductID,
			LocationID:    doc.LocationID,
			Lot:           line.Lot,
			Qty:           variance,
			Type:          ledger.MovementCountVariance,
			ReferenceType: referenceTypes[doc.Kind],
			ReferenceID:   doc.ID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
