package documents

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockroom-hq/stockroom/internal/shared"
)

func TestValidKind(t *testing.T) {
	for _, kind := range []Kind{KindPurchaseOrder, KindShipment, KindTransfer, KindAdjustment, KindCycleCount, KindReturn} {
		require.True(t, ValidKind(kind), kind)
	}
	require.False(t, ValidKind("invoice"))
	require.False(t, ValidKind(""))
}

func TestWorkflowTablesCoverEveryKind(t *testing.T) {
	for kind := range numberPrefixes {
		require.Contains(t, referenceTypes, kind)
		require.Contains(t, cancellable, kind)
		require.Contains(t, committedFrom, kind)
		require.Contains(t, commitAction, kind)
	}
}

func TestGuardAction(t *testing.T) {
	doc := Document{Kind: KindShipment, Status: StatusCompleted}
	err := guardAction(doc, "ship", committedFrom[KindShipment])
	var transition *shared.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	require.Equal(t, "shipment cannot ship while completed", err.Error())

	doc.Status = StatusConfirmed
	require.NoError(t, guardAction(doc, "ship", committedFrom[KindShipment]))
}

func TestCancellableStates(t *testing.T) {
	cases := []struct {
		kind   Kind
		status Status
		ok     bool
	}{
		{KindPurchaseOrder, StatusConfirmed, true},
		{KindPurchaseOrder, StatusPartial, false},
		{KindShipment, StatusConfirmed, true},
		{KindTransfer, StatusConfirmed, false},
		{KindAdjustment, StatusDraft, true},
		{KindCycleCount, StatusCompleted, false},
		{KindReturn, StatusDraft, true},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ok, statusIn(tc.status, cancellable[tc.kind]), "%s %s", tc.kind, tc.status)
	}
}
