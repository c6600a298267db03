package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeLines(t *testing.T) {
	got, err := mergeLines([]Line{
		{ProductID: "b", Quantity: 1},
		{ProductID: "a", Quantity: 2},
		{ProductID: "b", Quantity: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, []Line{{ProductID: "a", Quantity: 2}, {ProductID: "b", Quantity: 4}}, got)
}

func TestMergeLinesRejects(t *testing.T) {
	_, err := mergeLines(nil)
	assert.ErrorIs(t, err, ErrEmptyOrder)

	_, err = mergeLines([]Line{{ProductID: "a", Quantity: 0}})
	assert.ErrorIs(t, err, ErrInvalidQty)
}

func TestOutOfStockError(t *testing.T) {
	err := error(&OutOfStockError{Details: []StockShortage{{ProductID: "a", Required: 3, Available: 1}}})
	var oos *OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, 1, oos.Details[0].Available)
	assert.Contains(t, err.Error(), "1 product")
}
