package amqp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionEventRoundTrip(t *testing.T) {
	msg := NewTransactionEventMessage(42, ActionToggled)
	body, err := msg.ToJSON()
	require.NoError(t, err)

	decoded, err := TransactionEventMessageFromJSON(body)
	require.NoError(t, err)
	assert.Equal(t, int64(42), decoded.ID)
	assert.Equal(t, ActionToggled, decoded.Action)
	assert.False(t, decoded.Timestamp.IsZero())
}

func TestTransactionEventFromInvalidJSON(t *testing.T) {
	_, err := TransactionEventMessageFromJSON([]byte("not json"))
	assert.Error(t, err)
}
