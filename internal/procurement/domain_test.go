package procurement

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from   Status
		action Action
		to     Status
		ok     bool
	}{
		{StatusInitialized, ActionSubmit, StatusPending, true},
		{StatusInitialized, ActionSaveForLater, StatusSavedForLater, true},
		{StatusInitialized, ActionApprove, "", false},
		{StatusSavedForLater, ActionSubmit, StatusPending, true},
		{StatusSavedForLater, ActionSaveForLater, "", false},
		{StatusPending, ActionSubmitForReview, StatusManagerReview, true},
		{StatusPending, ActionApprove, StatusApproved, true},
		{StatusPending, ActionApproveAndCreatePO, StatusApproved, true},
		{StatusPending, ActionReject, StatusRejected, true},
		{StatusPending, ActionRequestModification, StatusRequestModification, true},
		{StatusManagerReview, ActionEndorse, StatusPending, true},
		{StatusManagerReview, ActionApprove, "", false},
		{StatusManagerReview, ActionReject, StatusRejected, true},
		{StatusRequestModification, ActionSubmit, StatusPending, true},
		{StatusApproved, ActionReject, "", false},
		{StatusRejected, ActionSubmit, "", false},
	}
	for _, tc := range cases {
		next, ok := NextStatus(tc.from, tc.action)
		require.Equal(t, tc.ok, ok, "%s + %s", tc.from, tc.action)
		if tc.ok {
			require.Equal(t, tc.to, next, "%s + %s", tc.from, tc.action)
		}
	}
}

func TestTerminalAndDraftClassification(t *testing.T) {
	require.True(t, StatusApproved.Terminal())
	require.True(t, StatusRejected.Terminal())
	require.False(t, StatusPending.Terminal())
	require.True(t, StatusInitialized.Draft())
	require.True(t, StatusSavedForLater.Draft())
	require.False(t, StatusManagerReview.Draft())
}

func TestOrderQuantityPrefersExplicitPurchaseQuantity(t *testing.T) {
	line := LineItem{PRQuantity: 5, UnitPrice: 10}
	require.Equal(t, 5.0, line.OrderQuantity())
	line.POQuantity = 3
	require.Equal(t, 3.0, line.OrderQuantity())
}
