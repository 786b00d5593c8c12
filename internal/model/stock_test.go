package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockMapApplyKeepsOriginal(t *testing.T) {
	base := StockMap{"w1": 10}
	next := base.Apply("w1", -3).Apply("w2", 4)

	assert.Equal(t, StockMap{"w1": 10}, base)
	assert.Equal(t, StockMap{"w1": 7, "w2": 4}, next)
	assert.Equal(t, 11, next.Sum())
}

func TestStockMapNilIsEmpty(t *testing.T) {
	var m StockMap
	assert.Equal(t, 0, m.Sum())
	assert.Equal(t, 0, m.Get("w1"))
	assert.Equal(t, StockMap{"w1": -2}, m.Apply("w1", -2))
}

func TestDecodeStockMap(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   StockMap
		legacy bool
	}{
		{"object", `{"w1": 7, "w2": -1}`, StockMap{"w1": 7, "w2": -1}, false},
		{"empty object", `{}`, StockMap{}, false},
		{"legacy number", `12`, StockMap{}, true},
		{"legacy null", `null`, StockMap{}, true},
		{"empty column", ``, StockMap{}, true},
		{"double encoded", `"{\"w1\":3}"`, StockMap{"w1": 3}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, legacy, err := DecodeStockMap([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.legacy, legacy)
		})
	}

	_, _, err := DecodeStockMap([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestProductStatus(t *testing.T) {
	p := Product{CriticalStock: 5, TotalStock: 6}
	assert.Equal(t, StockInStock, p.Status())
	p.TotalStock = 5
	assert.Equal(t, StockCritical, p.Status())
	p.TotalStock = -2
	assert.Equal(t, StockOutOfStock, p.Status())
}

func TestTransactionDelta(t *testing.T) {
	in := Transaction{Type: TxEntry, Quantity: 4}
	out := Transaction{Type: TxExit, Quantity: 4}
	assert.Equal(t, 4, in.Delta())
	assert.Equal(t, -4, out.Delta())
}
