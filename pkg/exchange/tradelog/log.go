// Package tradelog keeps the append-only record of executed trades.
package tradelog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade is immutable once created. Seller is the house sentinel for primary
// issuance.
type Trade struct {
	ID     uuid.UUID       `json:"id"`
	Meal   string          `json:"meal"`
	Buyer  string          `json:"buyer"`
	Seller string          `json:"seller"`
	Qty    int64           `json:"qty"`
	Price  decimal.Decimal `json:"price"`
	Time   time.Time       `json:"time"`
}

// Log is an append-only sequence, oldest first. No mutation or removal ever
// occurs. Not internally synchronized; the exchange engine serializes
// access.
type Log struct {
	trades []Trade
}

func New() *Log {
	return &Log{}
}

func (l *Log) Append(t Trade) {
	l.trades = append(l.trades, t)
}

func (l *Log) Len() int { return len(l.trades) }

// Recent returns the most recent n trades, newest first.
func (l *Log) Recent(n int) []Trade {
	if n <= 0 {
		return nil
	}
	if n > len(l.trades) {
		n = len(l.trades)
	}
	out := make([]Trade, n)
	for i := 0; i < n; i++ {
		out[i] = l.trades[len(l.trades)-1-i]
	}
	return out
}

// All returns a copy of the full record, oldest first.
func (l *Log) All() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Restore replaces the record from a snapshot, oldest first.
func (l *Log) Restore(trades []Trade) {
	l.trades = make([]Trade, len(trades))
	copy(l.trades, trades)
}
