// Package book holds the per-meal collections of resting limit orders.
//
// Each side is kept as an ordered index: asks ascending by price, bids
// descending, and within an equal price by ascending sequence number, so the
// head of a side is always the next order to match under price-time
// priority. Orders are keyed by ID; removal is by identity, never by
// structural equality, so two content-identical orders cannot collide.
//
// The book is not internally synchronized: the exchange engine is the single
// serialization point for all book access.
package book

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Side int8

const (
	Bid Side = 1
	Ask Side = -1
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "BID"
	case Ask:
		return "ASK"
	default:
		return "UNKNOWN"
	}
}

// Order is a resting limit order. Qty is the remaining quantity; it strictly
// decreases with each fill and the order leaves the book when it hits zero.
// Seq is assigned by the book at insertion and breaks price ties (earlier
// orders match first).
type Order struct {
	ID    uuid.UUID       `json:"id"`
	Meal  string          `json:"meal"`
	Side  Side            `json:"side"`
	Price decimal.Decimal `json:"price"`
	Qty   int64           `json:"qty"`
	Owner string          `json:"owner"`
	Seq   uint64          `json:"seq"`
}

// Book is the order book for a single meal.
type Book struct {
	meal string

	bids []*Order // price desc, then seq asc
	asks []*Order // price asc, then seq asc

	index   map[uuid.UUID]*Order
	nextSeq uint64
}

func New(meal string) *Book {
	return &Book{
		meal:  meal,
		index: make(map[uuid.UUID]*Order),
	}
}

func (b *Book) Meal() string { return b.meal }

// BestAsk returns a copy of the lowest-priced ask (FIFO among equals).
func (b *Book) BestAsk() (Order, bool) {
	if len(b.asks) == 0 {
		return Order{}, false
	}
	return *b.asks[0], true
}

// BestBid returns a copy of the highest-priced bid (FIFO among equals).
func (b *Book) BestBid() (Order, bool) {
	if len(b.bids) == 0 {
		return Order{}, false
	}
	return *b.bids[0], true
}

// Insert assigns the next sequence number and files the order into its
// side's index at the position its price-time priority dictates.
func (b *Book) Insert(o *Order) {
	b.nextSeq++
	o.Seq = b.nextSeq
	b.insert(o)
}

// insert files an order keeping its existing Seq (used by snapshot restore).
func (b *Book) insert(o *Order) {
	switch o.Side {
	case Ask:
		// First ask strictly worse (higher price), or same price with a
		// later sequence number.
		i := sort.Search(len(b.asks), func(i int) bool {
			if !b.asks[i].Price.Equal(o.Price) {
				return b.asks[i].Price.GreaterThan(o.Price)
			}
			return b.asks[i].Seq > o.Seq
		})
		b.asks = append(b.asks, nil)
		copy(b.asks[i+1:], b.asks[i:])
		b.asks[i] = o
	case Bid:
		i := sort.Search(len(b.bids), func(i int) bool {
			if !b.bids[i].Price.Equal(o.Price) {
				return b.bids[i].Price.LessThan(o.Price)
			}
			return b.bids[i].Seq > o.Seq
		})
		b.bids = append(b.bids, nil)
		copy(b.bids[i+1:], b.bids[i:])
		b.bids[i] = o
	default:
		panic(fmt.Sprintf("book: insert with invalid side %d", o.Side))
	}
	b.index[o.ID] = o
}

// Reduce subtracts filled quantity from a resting order and drops it from
// the book when exhausted. A fill referencing an unknown order, or one that
// exceeds the remaining quantity, is a consistency violation inside
// settlement and therefore fatal.
func (b *Book) Reduce(id uuid.UUID, filled int64) {
	o, ok := b.index[id]
	if !ok {
		panic(fmt.Sprintf("book %s: fill references unknown order %s", b.meal, id))
	}
	if filled <= 0 || filled > o.Qty {
		panic(fmt.Sprintf("book %s: fill qty %d out of range for order %s (remaining %d)", b.meal, filled, id, o.Qty))
	}
	o.Qty -= filled
	if o.Qty == 0 {
		b.remove(o)
	}
}

// Remove cancels a resting order by identity. Returns false if the order is
// not in the book (already filled or never existed).
func (b *Book) Remove(id uuid.UUID) bool {
	o, ok := b.index[id]
	if !ok {
		return false
	}
	b.remove(o)
	return true
}

// Get returns a copy of a resting order by ID.
func (b *Book) Get(id uuid.UUID) (Order, bool) {
	o, ok := b.index[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

func (b *Book) remove(o *Order) {
	side := &b.asks
	if o.Side == Bid {
		side = &b.bids
	}
	for i, cur := range *side {
		if cur.ID == o.ID {
			*side = append((*side)[:i], (*side)[i+1:]...)
			break
		}
	}
	delete(b.index, o.ID)
}

// Asks returns copies of all resting asks, ascending by price then sequence.
func (b *Book) Asks() []Order {
	out := make([]Order, len(b.asks))
	for i, o := range b.asks {
		out[i] = *o
	}
	return out
}

// Bids returns copies of all resting bids, descending by price then
// ascending by sequence.
func (b *Book) Bids() []Order {
	out := make([]Order, len(b.bids))
	for i, o := range b.bids {
		out[i] = *o
	}
	return out
}

// Len returns the total number of resting orders on both sides.
func (b *Book) Len() int { return len(b.asks) + len(b.bids) }

// Restore refills the book from snapshot orders, preserving their original
// sequence numbers so time priority survives a restart.
func (b *Book) Restore(orders []Order) {
	for i := range orders {
		o := orders[i]
		if o.Seq > b.nextSeq {
			b.nextSeq = o.Seq
		}
		b.insert(&o)
	}
}
