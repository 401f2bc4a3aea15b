// Package storage persists exchange snapshots in a Pebble key-value store.
// Persistence is optional: the engine is fully correct in memory, and the
// store only exists so a restart can resume the same economy.
package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/shopspring/decimal"

	"github.com/umdining/mealex/pkg/exchange"
	"github.com/umdining/mealex/pkg/exchange/book"
	"github.com/umdining/mealex/pkg/exchange/tradelog"
)

// Store wraps a Pebble database holding one exchange snapshot.
// Not internally synchronized; callers serialize access.
type Store struct {
	db *pebble.DB
}

// NewStore opens (or creates) the Pebble database at path.
func NewStore(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble db at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Key layout:
//
//	acct/<user>        -> decimal balance (JSON string)
//	pos/<user>/<meal>  -> int64 position
//	order/<uuid>       -> book.Order
//	trade/<seq16>      -> tradelog.Trade, seq zero-padded so iteration
//	                      order is append order
//	market/state       -> marketState
func kAccount(user string) []byte { return []byte("acct/" + user) }
func kPosition(user, meal string) []byte {
	return []byte("pos/" + user + "/" + meal)
}
func kOrder(id string) []byte { return []byte("order/" + id) }
func kTrade(seq int) []byte   { return []byte(fmt.Sprintf("trade/%016d", seq)) }
func kMarketState() []byte    { return []byte("market/state") }
func prefix(p string) []byte  { return []byte(p) }

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(b []byte) []byte {
	end := make([]byte, len(b))
	copy(end, b)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

type marketState struct {
	Supply   map[string]int64 `json:"supply"`
	IPOStart *time.Time       `json:"ipoStart,omitempty"`
}

// SaveSnapshot replaces the stored snapshot atomically. Stale entries from
// a previous snapshot (orders since filled, for example) are cleared by
// range-deleting each prefix before rewriting it.
func (s *Store) SaveSnapshot(snap *exchange.Snapshot) error {
	b := s.db.NewBatch()
	defer b.Close()

	for _, p := range []string{"acct/", "pos/", "order/", "trade/"} {
		lo := prefix(p)
		if err := b.DeleteRange(lo, keyUpperBound(lo), nil); err != nil {
			return fmt.Errorf("clear %s: %w", p, err)
		}
	}

	for user, bal := range snap.Balances {
		data, err := json.Marshal(bal)
		if err != nil {
			return fmt.Errorf("marshal balance: %w", err)
		}
		if err := b.Set(kAccount(user), data, nil); err != nil {
			return err
		}
	}
	for user, positions := range snap.Positions {
		for meal, qty := range positions {
			data, err := json.Marshal(qty)
			if err != nil {
				return fmt.Errorf("marshal position: %w", err)
			}
			if err := b.Set(kPosition(user, meal), data, nil); err != nil {
				return err
			}
		}
	}
	for _, o := range snap.Orders {
		data, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("marshal order: %w", err)
		}
		if err := b.Set(kOrder(o.ID.String()), data, nil); err != nil {
			return err
		}
	}
	for i, t := range snap.Trades {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal trade: %w", err)
		}
		if err := b.Set(kTrade(i), data, nil); err != nil {
			return err
		}
	}

	state := marketState{Supply: snap.Supply, IPOStart: snap.IPOStart}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal market state: %w", err)
	}
	if err := b.Set(kMarketState(), data, nil); err != nil {
		return err
	}

	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the stored snapshot. Returns (nil, nil) when the
// database holds no snapshot yet.
func (s *Store) LoadSnapshot() (*exchange.Snapshot, error) {
	stateData, closer, err := s.db.Get(kMarketState())
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get market state: %w", err)
	}
	var state marketState
	uerr := json.Unmarshal(stateData, &state)
	closer.Close()
	if uerr != nil {
		return nil, fmt.Errorf("unmarshal market state: %w", uerr)
	}

	snap := &exchange.Snapshot{
		Balances:  make(map[string]decimal.Decimal),
		Positions: make(map[string]map[string]int64),
		Supply:    state.Supply,
		IPOStart:  state.IPOStart,
	}

	if err := s.scan("acct/", func(key string, val []byte) error {
		var bal decimal.Decimal
		if err := json.Unmarshal(val, &bal); err != nil {
			return fmt.Errorf("unmarshal balance %s: %w", key, err)
		}
		snap.Balances[key] = bal
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.scan("pos/", func(key string, val []byte) error {
		user, meal, ok := strings.Cut(key, "/")
		if !ok {
			return fmt.Errorf("malformed position key %q", key)
		}
		var qty int64
		if err := json.Unmarshal(val, &qty); err != nil {
			return fmt.Errorf("unmarshal position %s: %w", key, err)
		}
		if snap.Positions[user] == nil {
			snap.Positions[user] = make(map[string]int64)
		}
		snap.Positions[user][meal] = qty
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.scan("order/", func(key string, val []byte) error {
		var o book.Order
		if err := json.Unmarshal(val, &o); err != nil {
			return fmt.Errorf("unmarshal order %s: %w", key, err)
		}
		snap.Orders = append(snap.Orders, o)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.scan("trade/", func(key string, val []byte) error {
		var t tradelog.Trade
		if err := json.Unmarshal(val, &t); err != nil {
			return fmt.Errorf("unmarshal trade %s: %w", key, err)
		}
		snap.Trades = append(snap.Trades, t)
		return nil
	}); err != nil {
		return nil, err
	}

	return snap, nil
}

// scan iterates every key under pfx, passing the key with the prefix
// stripped. Keys sort lexicographically, which for trades is append order.
func (s *Store) scan(pfx string, fn func(key string, val []byte) error) error {
	lo := prefix(pfx)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lo,
		UpperBound: keyUpperBound(lo),
	})
	if err != nil {
		return fmt.Errorf("iterate %s: %w", pfx, err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		key := strings.TrimPrefix(string(iter.Key()), pfx)
		if err := fn(key, iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}
