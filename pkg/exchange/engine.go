// Package exchange implements the closed-economy meal exchange engine: the
// IPO decay-pricing clock, per-meal order books, price-time matching, and
// atomic settlement of balances and positions.
//
// The engine is a single in-process component. One mutex serializes every
// operation, so a matching-and-settlement sequence for one submitted order
// never interleaves with any other operation, and queries always observe a
// consistent point-in-time state. All work is in-memory and CPU-bound;
// nothing blocks inside the critical section.
package exchange

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/umdining/mealex/params"
	"github.com/umdining/mealex/pkg/exchange/book"
	"github.com/umdining/mealex/pkg/exchange/ipo"
	"github.com/umdining/mealex/pkg/exchange/ledger"
	"github.com/umdining/mealex/pkg/exchange/tradelog"
	"github.com/umdining/mealex/pkg/util"
)

// Exchange is the engine facade. Construct with New; the zero value is not
// usable.
type Exchange struct {
	mu sync.Mutex

	cfg    params.Config
	log    *zap.SugaredLogger
	clock  util.Clock
	meals  []string // catalog in display order
	ledger *ledger.Ledger
	books  map[string]*book.Book
	supply map[string]int64
	ipo    *ipo.Clock
	trades *tradelog.Log

	// onTrade, if set, is invoked for every settled trade while the engine
	// lock is held. It must not call back into the Exchange.
	onTrade func(tradelog.Trade)
}

// New builds an exchange with accounts for the configured roster and empty
// books for the configured catalog. A nil clock means wall-clock time.
func New(cfg params.Config, logger *zap.SugaredLogger, clk util.Clock) *Exchange {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if clk == nil {
		clk = util.RealClock{}
	}

	meals := cfg.Meals()
	books := make(map[string]*book.Book, len(meals))
	supply := make(map[string]int64, len(meals))
	for _, m := range meals {
		books[m] = book.New(m)
		supply[m] = cfg.Economy.InitialHouseSupply
	}

	return &Exchange{
		cfg:    cfg,
		log:    logger,
		clock:  clk,
		meals:  meals,
		ledger: ledger.New(cfg.Roster, cfg.Economy.InitialBalance),
		books:  books,
		supply: supply,
		ipo:    ipo.New(cfg.Economy.IPOStartPrice, cfg.Economy.IPODecayStep, cfg.Economy.IPODecayInterval, clk),
		trades: tradelog.New(),
	}
}

// SetOnTrade registers a hook called for every settled trade (used by the
// API layer to broadcast fills). The hook runs under the engine lock.
func (e *Exchange) SetOnTrade(fn func(tradelog.Trade)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTrade = fn
}

// IPOPrice returns the current primary-issue price.
func (e *Exchange) IPOPrice() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ipo.Price()
}

// StartIPO opens the primary-issuance window. Idempotent: returns whether
// this call actually started the clock.
func (e *Exchange) StartIPO() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	started := e.ipo.Start()
	if started {
		e.log.Infow("ipo_started", "start_price", e.cfg.Economy.IPOStartPrice)
	}
	return started
}

// Balance returns a user's cash balance.
func (e *Exchange) Balance(user string) decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Balance(user)
}

// Portfolio returns a user's non-zero positions in catalog order.
func (e *Exchange) Portfolio(user string) []PortfolioEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	held := e.ledger.Portfolio(user)
	out := make([]PortfolioEntry, 0, len(held))
	for _, meal := range e.meals {
		qty, ok := held[meal]
		if !ok {
			continue
		}
		out = append(out, PortfolioEntry{Meal: meal, Shares: qty, IsShort: qty < 0})
	}
	return out
}

// MarketSummary returns the per-meal overview plus the current IPO price.
func (e *Exchange) MarketSummary() MarketSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := MarketSummary{
		IPOPrice:  e.ipo.Price(),
		IPOActive: e.ipo.Started(),
		Meals:     make([]MealSummary, 0, len(e.meals)),
	}
	for _, meal := range e.meals {
		b := e.books[meal]
		row := MealSummary{
			Name:        meal,
			Category:    e.cfg.CategoryOf(meal),
			HouseSupply: e.supply[meal],
		}
		if ask, ok := b.BestAsk(); ok {
			p := ask.Price
			row.BestAsk = &p
		}
		if bid, ok := b.BestBid(); ok {
			p := bid.Price
			row.BestBid = &p
		}
		if row.BestAsk != nil && row.BestBid != nil {
			spread := row.BestAsk.Sub(*row.BestBid)
			row.Spread = &spread
		}
		s.Meals = append(s.Meals, row)
	}
	return s
}

// OrderBook returns a point-in-time copy of one meal's book.
func (e *Exchange) OrderBook(meal string) (BookSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.books[meal]
	if !ok {
		return BookSnapshot{}, ErrInvalidMeal
	}
	return BookSnapshot{Meal: meal, Asks: b.Asks(), Bids: b.Bids()}, nil
}

// TradeHistory returns the most recent limit trades, newest first.
func (e *Exchange) TradeHistory(limit int) []tradelog.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trades.Recent(limit)
}

// BuyFromIPO purchases shares directly from house supply at the current IPO
// price. The price is locked at the moment of execution, not re-evaluated
// per unit.
func (e *Exchange) BuyFromIPO(user, meal string, qty int64) (*IPOResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ipo.Started() {
		return nil, ErrIPONotStarted
	}
	if !e.ledger.HasAccount(user) {
		return nil, ErrUnknownUser
	}
	if _, ok := e.books[meal]; !ok {
		return nil, ErrInvalidMeal
	}
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	price := e.ipo.Price()
	cost := price.Mul(decimal.NewFromInt(qty))

	if qty > e.supply[meal] {
		return nil, ErrInsufficientSupply
	}
	if e.ledger.Balance(user).LessThan(cost) {
		return nil, ErrInsufficientFunds
	}

	e.supply[meal] -= qty
	e.settle(user, ledger.House, meal, price, qty)

	return &IPOResult{
		Qty:     qty,
		Price:   price,
		Cost:    cost,
		Message: fmt.Sprintf("Bought %d shares of %s at $%s", qty, meal, price.StringFixed(2)),
	}, nil
}

// PlaceBuy submits a buy intent at a limit price. It repeatedly fills
// against the best resting ask while the ask price is at or below the limit
// and the buyer's remaining funds cover the fill. With snap set, any
// unmatched remainder is discarded instead of resting; a snap-buy that
// matches nothing fails with ErrNoMatchingOrders and no side effects.
func (e *Exchange) PlaceBuy(user, meal string, price decimal.Decimal, qty int64, snap bool) (*PlaceResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ledger.HasAccount(user) {
		return nil, ErrUnknownUser
	}
	b, ok := e.books[meal]
	if !ok {
		return nil, ErrInvalidMeal
	}
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}

	var fills []tradelog.Trade
	remaining := qty
	for remaining > 0 {
		ask, ok := b.BestAsk()
		if !ok || ask.Price.GreaterThan(price) {
			break
		}
		fillQty := min(remaining, ask.Qty)
		cost := ask.Price.Mul(decimal.NewFromInt(fillQty))
		if e.ledger.Balance(user).LessThan(cost) {
			break // funds exhausted; not an error mid-match
		}
		t := e.settle(user, ask.Owner, meal, ask.Price, fillQty)
		b.Reduce(ask.ID, fillQty)
		fills = append(fills, t)
		remaining -= fillQty
	}

	executed := qty - remaining
	if remaining > 0 && !snap {
		o := &book.Order{ID: uuid.New(), Meal: meal, Side: book.Bid, Price: price, Qty: remaining, Owner: user}
		b.Insert(o)
		e.log.Debugw("bid_rested", "user", user, "meal", meal, "price", price, "qty", remaining)
		return &PlaceResult{
			Executed: executed,
			Rested:   remaining,
			OrderID:  o.ID,
			Fills:    fills,
			Message:  fmt.Sprintf("Executed %d shares, %d shares added to order book", executed, remaining),
		}, nil
	}
	if len(fills) > 0 {
		return &PlaceResult{
			Executed: executed,
			Fills:    fills,
			Message:  fmt.Sprintf("Executed %d shares", executed),
		}, nil
	}
	return nil, ErrNoMatchingOrders
}

// PlaceSell submits a sell intent at a limit price. It repeatedly fills
// against the best resting bid while the bid price is at or above the
// limit; any remainder always rests as an ask. A non-short sale requires
// the seller's position to cover the quantity; a short sale bypasses that
// check entirely; shorts carry no collateral requirement.
func (e *Exchange) PlaceSell(user, meal string, price decimal.Decimal, qty int64, short bool) (*PlaceResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ledger.HasAccount(user) {
		return nil, ErrUnknownUser
	}
	b, ok := e.books[meal]
	if !ok {
		return nil, ErrInvalidMeal
	}
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if !short && e.ledger.Position(user, meal) < qty {
		return nil, ErrInsufficientShares
	}

	var fills []tradelog.Trade
	remaining := qty
	for remaining > 0 {
		bid, ok := b.BestBid()
		if !ok || bid.Price.LessThan(price) {
			break
		}
		fillQty := min(remaining, bid.Qty)
		t := e.settle(bid.Owner, user, meal, bid.Price, fillQty)
		b.Reduce(bid.ID, fillQty)
		fills = append(fills, t)
		remaining -= fillQty
	}

	executed := qty - remaining
	if remaining > 0 {
		o := &book.Order{ID: uuid.New(), Meal: meal, Side: book.Ask, Price: price, Qty: remaining, Owner: user}
		b.Insert(o)
		e.log.Debugw("ask_rested", "user", user, "meal", meal, "price", price, "qty", remaining, "short", short)
		return &PlaceResult{
			Executed: executed,
			Rested:   remaining,
			OrderID:  o.ID,
			Fills:    fills,
			Message:  fmt.Sprintf("Executed %d shares, %d shares added to order book", executed, remaining),
		}, nil
	}
	if len(fills) > 0 {
		return &PlaceResult{
			Executed: executed,
			Fills:    fills,
			Message:  fmt.Sprintf("Executed %d shares", executed),
		}, nil
	}
	return nil, ErrNoMatchingOrders
}

// CancelOrder removes a resting order and its sequence number permanently,
// atomically with respect to matching. Only the order's owner may cancel.
func (e *Exchange) CancelOrder(user string, orderID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ledger.HasAccount(user) {
		return ErrUnknownUser
	}
	for _, b := range e.books {
		o, ok := b.Get(orderID)
		if !ok {
			continue
		}
		if o.Owner != user {
			return ErrNotOrderOwner
		}
		b.Remove(orderID)
		e.log.Infow("order_cancelled", "user", user, "meal", o.Meal, "order_id", orderID)
		return nil
	}
	return ErrUnknownOrder
}

// settle executes one fill as a single atomic step: ledger first, then the
// trade record. Callers have already validated the trade; a failure past
// this point is a fatal consistency violation, not a recoverable error.
func (e *Exchange) settle(buyer, seller, meal string, price decimal.Decimal, qty int64) tradelog.Trade {
	e.ledger.Settle(buyer, seller, meal, price, qty)

	t := tradelog.Trade{
		ID:     uuid.New(),
		Meal:   meal,
		Buyer:  buyer,
		Seller: seller,
		Qty:    qty,
		Price:  price,
		Time:   e.clock.Now(),
	}
	e.trades.Append(t)

	e.log.Infow("trade_settled",
		"meal", meal,
		"buyer", buyer,
		"seller", seller,
		"qty", qty,
		"price", price)

	if e.onTrade != nil {
		e.onTrade(t)
	}
	return t
}

// Snapshot returns the full durable representation of engine state.
func (e *Exchange) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := &Snapshot{
		Balances:  e.ledger.Balances(),
		Positions: e.ledger.Positions(),
		Supply:    make(map[string]int64, len(e.supply)),
		Trades:    e.trades.All(),
	}
	for meal, n := range e.supply {
		snap.Supply[meal] = n
	}
	if at, ok := e.ipo.StartedAt(); ok {
		t := at
		snap.IPOStart = &t
	}
	for _, meal := range e.meals {
		b := e.books[meal]
		snap.Orders = append(snap.Orders, b.Asks()...)
		snap.Orders = append(snap.Orders, b.Bids()...)
	}
	return snap
}

// RestoreSnapshot overwrites engine state from a snapshot. Meals or users
// not in the current configuration are dropped.
func (e *Exchange) RestoreSnapshot(snap *Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ledger.Restore(snap.Balances, snap.Positions)
	for meal, n := range snap.Supply {
		if _, ok := e.supply[meal]; ok {
			e.supply[meal] = n
		}
	}
	if snap.IPOStart != nil {
		e.ipo.Restore(*snap.IPOStart)
	}

	byMeal := make(map[string][]book.Order)
	for _, o := range snap.Orders {
		byMeal[o.Meal] = append(byMeal[o.Meal], o)
	}
	for meal, orders := range byMeal {
		if b, ok := e.books[meal]; ok {
			b.Restore(orders)
		}
	}
	e.trades.Restore(snap.Trades)

	e.log.Infow("snapshot_restored",
		"orders", len(snap.Orders),
		"trades", len(snap.Trades),
		"ipo_started", snap.IPOStart != nil)
}

func min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
