package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"PENDING", "SHIPPED", "DELIVERED", "CANCELLED", "COMPLETED"} {
		parsed, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), parsed)
	}

	_, err := ParseStatus("REFUNDED")
	require.Error(t, err)

	_, err = ParseStatus("pending")
	require.Error(t, err, "statuses are case sensitive")
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusShipped},
		{StatusPending, StatusCancelled},
		{StatusPending, StatusCompleted},
		{StatusShipped, StatusDelivered},
	}
	for _, tc := range allowed {
		assert.True(t, tc.from.CanTransition(tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to Status }{
		{StatusPending, StatusDelivered},
		{StatusShipped, StatusCancelled},
		{StatusShipped, StatusCompleted},
		{StatusCancelled, StatusPending},
		{StatusDelivered, StatusShipped},
		{StatusCompleted, StatusCancelled},
		{StatusPending, StatusPending},
	}
	for _, tc := range denied {
		assert.False(t, tc.from.CanTransition(tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusShipped.Terminal())
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusCompleted.Terminal())
}
