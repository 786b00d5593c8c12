package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StockMap maps a warehouse id to its on-hand quantity. Quantities may be negative.
type StockMap map[string]int

// Sum returns the total over every warehouse entry.
func (m StockMap) Sum() int {
	total := 0
	for _, qty := range m {
		total += qty
	}
	return total
}

// Get returns the quantity for a warehouse, 0 when absent.
func (m StockMap) Get(warehouseID string) int {
	return m[warehouseID]
}

// Clone returns an independent copy; a nil map clones to an empty one.
func (m StockMap) Clone() StockMap {
	out := make(StockMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Apply returns a copy with delta added to the warehouse entry.
func (m StockMap) Apply(warehouseID string, delta int) StockMap {
	out := m.Clone()
	out[warehouseID] += delta
	return out
}

// Equal compares two maps, treating missing entries as absent (not zero).
func (m StockMap) Equal(other StockMap) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		ov, ok := other[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// DecodeStockMap parses a stored or imported stock value. Older records kept stock
// as a plain number (or null); those decode to an empty map with legacy=true.
func DecodeStockMap(raw []byte) (stock StockMap, legacy bool, err error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return StockMap{}, true, nil
	}
	switch trimmed[0] {
	case '{':
		var m StockMap
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return nil, false, fmt.Errorf("stock map: %w", err)
		}
		if m == nil {
			m = StockMap{}
		}
		return m, false, nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, false, fmt.Errorf("stock map: %w", err)
		}
		// JSON text columns on some drivers come back double encoded.
		if len(s) > 0 && s[0] == '{' {
			return DecodeStockMap([]byte(s))
		}
		return StockMap{}, true, nil
	default:
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return nil, false, fmt.Errorf("stock map: unsupported value %q", trimmed)
		}
		return StockMap{}, true, nil
	}
}
