package documents

import (
	"context"
	"fmt"

	"github.com/stockroom-hq/stockroom/internal/ledger"
	"github.com/stockroom-hq/stockroom/internal/shared"
)

// applyReceive increases balances for the received quantities and advances
// qty_received on each purchase order line. The resulting status is partial
// until every line is fully received.
func (s *Service) applyReceive(ctx context.Context, tx TxRepository, ident shared.Identity, doc Document, lines []Line, inputs []ReceiveLineInput) (Status, error) {
	byID := make(map[int64]*Line, len(lines))
	for i := range lines {
		byID[lines[i].ID] = &lines[i]
	}
	for i, in := range inputs {
		line, ok := byID[in.LineID]
		if !ok {
			return "", shared.NewValidationError(fmt.Sprintf("lines[%d].line_id", i), "not a line of this purchase order")
		}
		if !in.Qty.IsPositive() {
			return "", shared.NewValidationError(fmt.Sprintf("lines[%d].qty", i), "must be positive")
		}
		remaining := line.Qty.Sub(line.QtyReceived)
		if in.Qty.GreaterThan(remaining) {
			return "", shared.NewValidationError(fmt.Sprintf("lines[%d].qty", i),
				fmt.Sprintf("exceeds remaining ordered quantity %s", remaining))
		}

		entry := ledger.Entry{
			ProductID:     line.ProductID,
			LocationID:    doc.LocationID,
			Lot:           line.Lot,
			Qty:           in.Qty,
			Type:          ledger.MovementReceive,
			ReferenceType: referenceTypes[doc.Kind],
			ReferenceID:   doc.ID,
		}
		switch {
		case in.UnitCost != nil:
			if in.UnitCost.IsNegative() {
				return "", shared.NewValidationError(fmt.Sprintf("lines[%d].unit_cost", i), "must be non-negative")
			}
			entry.UnitCost = *in.UnitCost
			entry.UnitCostSet = true
		case line.UnitCostSet:
			entry.UnitCost = line.UnitCost
			entry.UnitCostSet = true
		}
		if _, err := ledger.Apply(ctx, tx, ident, entry); err != nil {
			return "", err
		}

		line.QtyReceived = line.QtyReceived.Add(in.Qty)
		if err := tx.UpdateLineReceived(ctx, line.ID, line.QtyReceived); err != nil {
			return "", err
		}
	}

	for _, line := range lines {
		if line.QtyReceived.LessThan(line.Qty) {
			return StatusPartial, nil
		}
	}
	return StatusCompleted, nil
}
