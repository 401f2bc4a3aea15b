// Package ledger holds cash balances and signed meal positions.
//
// Accounts are created once at exchange initialization and live for the
// engine's lifetime. Positions default to zero and may go negative (short).
// The ledger applies settlements unconditionally; every pre-trade check
// (funds, shares, supply) is the matching engine's responsibility, so a
// settlement that reaches the ledger is by contract consistent and its two
// legs (cash and position) always apply together.
//
// Not internally synchronized; the exchange engine serializes access.
package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// House is the sentinel counterparty for primary issuance. It has no
// account: it is never credited, debited, or position-tracked.
const House = "IPO_HOUSE"

type Ledger struct {
	balances  map[string]decimal.Decimal
	positions map[string]map[string]int64 // user -> meal -> signed qty
}

// New creates accounts for every user with the given starting balance.
func New(users []string, initialBalance decimal.Decimal) *Ledger {
	l := &Ledger{
		balances:  make(map[string]decimal.Decimal, len(users)),
		positions: make(map[string]map[string]int64, len(users)),
	}
	for _, u := range users {
		l.balances[u] = initialBalance
		l.positions[u] = make(map[string]int64)
	}
	return l
}

// HasAccount reports whether the user exists. The house sentinel is not an
// account.
func (l *Ledger) HasAccount(user string) bool {
	_, ok := l.balances[user]
	return ok
}

// Balance returns the user's cash balance, zero for unknown users.
func (l *Ledger) Balance(user string) decimal.Decimal {
	return l.balances[user]
}

// Position returns the signed quantity the user holds in a meal.
func (l *Ledger) Position(user, meal string) int64 {
	return l.positions[user][meal]
}

// Portfolio returns the user's non-zero positions.
func (l *Ledger) Portfolio(user string) map[string]int64 {
	out := make(map[string]int64)
	for meal, qty := range l.positions[user] {
		if qty != 0 {
			out[meal] = qty
		}
	}
	return out
}

// Settle applies one executed trade: debit buyer cash by price×qty, credit
// seller by the same amount, move qty from seller position to buyer
// position. The house sentinel has no account and its legs are skipped;
// selling to a real buyer from the house only creates the buyer's long.
//
// Settle is a single atomic step relative to matching: the engine holds its
// lock across the whole matching-and-settlement sequence, and Settle itself
// cannot partially apply (it panics on an unknown buyer or seller before
// touching state, which by contract is unreachable).
func (l *Ledger) Settle(buyer, seller, meal string, price decimal.Decimal, qty int64) {
	if _, ok := l.balances[buyer]; !ok {
		panic(fmt.Sprintf("ledger: settle with unknown buyer %q", buyer))
	}
	if seller != House {
		if _, ok := l.balances[seller]; !ok {
			panic(fmt.Sprintf("ledger: settle with unknown seller %q", seller))
		}
	}

	cost := price.Mul(decimal.NewFromInt(qty))
	l.balances[buyer] = l.balances[buyer].Sub(cost)
	l.positions[buyer][meal] += qty

	if seller != House {
		l.balances[seller] = l.balances[seller].Add(cost)
		l.positions[seller][meal] -= qty
	}
}

// Balances returns a copy of all cash balances, keyed by user.
func (l *Ledger) Balances() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(l.balances))
	for u, b := range l.balances {
		out[u] = b
	}
	return out
}

// Positions returns a copy of all non-zero positions.
func (l *Ledger) Positions() map[string]map[string]int64 {
	out := make(map[string]map[string]int64, len(l.positions))
	for u, pos := range l.positions {
		for meal, qty := range pos {
			if qty == 0 {
				continue
			}
			if out[u] == nil {
				out[u] = make(map[string]int64)
			}
			out[u][meal] = qty
		}
	}
	return out
}

// Restore overwrites balances and positions from a snapshot. Users absent
// from the snapshot keep their initialized state.
func (l *Ledger) Restore(balances map[string]decimal.Decimal, positions map[string]map[string]int64) {
	for u, b := range balances {
		if _, ok := l.balances[u]; ok {
			l.balances[u] = b
		}
	}
	for u, pos := range positions {
		if _, ok := l.positions[u]; !ok {
			continue
		}
		for meal, qty := range pos {
			l.positions[u][meal] = qty
		}
	}
}
