package documents

import (
	"github.com/stockroom-hq/stockroom/internal/ledger"
	"github.com/stockroom-hq/stockroom/internal/shared"
)

// numberPrefixes maps each kind to its human-readable number prefix.
var numberPrefixes = map[Kind]string{
	KindPurchaseOrder: "PO",
	KindShipment:      "SHP",
	KindTransfer:      "TRF",
	KindAdjustment:    "ADJ",
	KindCycleCount:    "CNT",
	KindReturn:        "RET",
}

// referenceTypes maps each kind to the reference type recorded on its
// movements, used verbatim for reverse lookup from the movement log.
var referenceTypes = map[Kind]ledger.ReferenceType{
	KindPurchaseOrder: ledger.RefPurchaseOrder,
	KindShipment:      ledger.RefShipment,
	KindTransfer:      ledger.RefTransfer,
	KindAdjustment:    ledger.RefAdjustment,
	KindCycleCount:    ledger.RefCycleCount,
	KindReturn:        ledger.RefReturn,
}

// confirmable lists kinds with a non-mutating draft -> confirmed transition.
var confirmable = map[Kind]bool{
	KindPurchaseOrder: true,
	KindShipment:      true,
	KindTransfer:      true,
}

// cancellable lists the states each kind may be cancelled from. Cancelling is
// an explicit state change, never an abort of an in-flight commit; documents
// that have applied their inventory effect cannot be cancelled.
var cancellable = map[Kind][]Status{
	KindPurchaseOrder: {StatusDraft, StatusConfirmed},
	KindShipment:      {StatusDraft, StatusConfirmed},
	KindTransfer:      {StatusDraft},
	KindAdjustment:    {StatusDraft},
	KindCycleCount:    {StatusDraft},
	KindReturn:        {StatusDraft},
}

// committedFrom lists the states each kind's committing transition starts
// from. Receiving a purchase order is repeatable, so confirmed and partial
// both permit it; everything else commits exactly once.
var committedFrom = map[Kind][]Status{
	KindPurchaseOrder: {StatusConfirmed, StatusPartial},
	KindShipment:      {StatusConfirmed},
	KindTransfer:      {StatusConfirmed},
	KindAdjustment:    {StatusDraft},
	KindCycleCount:    {StatusDraft},
	KindReturn:        {StatusDraft},
}

// commitAction names each kind's committing transition for error reporting.
var commitAction = map[Kind]string{
	KindPurchaseOrder: "receive",
	KindShipment:      "ship",
	KindTransfer:      "complete",
	KindAdjustment:    "post",
	KindCycleCount:    "post",
	KindReturn:        "process",
}

// ValidKind reports whether k is a known document kind.
func ValidKind(k Kind) bool {
	_, ok := numberPrefixes[k]
	return ok
}

func statusIn(status Status, set []Status) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

// guardAction checks that the document's current state permits the action.
func guardAction(doc Document, action string, allowed []Status) error {
	if !statusIn(doc.Status, allowed) {
		return &shared.InvalidTransitionError{Kind: string(doc.Kind), From: string(doc.Status), Action: action}
	}
	return nil
}
