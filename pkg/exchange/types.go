package exchange

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/umdining/mealex/pkg/exchange/book"
	"github.com/umdining/mealex/pkg/exchange/tradelog"
)

// IPOResult reports a successful primary-issuance purchase.
type IPOResult struct {
	Qty     int64           `json:"qty"`
	Price   decimal.Decimal `json:"price"` // locked at the moment of execution
	Cost    decimal.Decimal `json:"cost"`
	Message string          `json:"message"`
}

// PlaceResult reports a successful secondary-market order placement.
type PlaceResult struct {
	Executed int64            `json:"executed"` // shares filled immediately
	Rested   int64            `json:"rested"`   // shares left resting in the book (0 for snap-buy)
	OrderID  uuid.UUID        `json:"orderId,omitempty"`
	Message  string           `json:"message"`
	Fills    []tradelog.Trade `json:"fills"`
}

// PortfolioEntry is one non-zero position in a user's holdings.
type PortfolioEntry struct {
	Meal    string `json:"meal"`
	Shares  int64  `json:"shares"`
	IsShort bool   `json:"isShort"`
}

// MealSummary is the per-meal row of the market overview. BestAsk, BestBid
// and Spread are nil when the corresponding side (or either side, for
// spread) is unquoted.
type MealSummary struct {
	Name        string           `json:"name"`
	Category    string           `json:"category"`
	HouseSupply int64            `json:"houseSupply"`
	BestAsk     *decimal.Decimal `json:"bestAsk"`
	BestBid     *decimal.Decimal `json:"bestBid"`
	Spread      *decimal.Decimal `json:"spread"`
}

// MarketSummary is the full market overview.
type MarketSummary struct {
	IPOPrice  decimal.Decimal `json:"ipoPrice"`
	IPOActive bool            `json:"ipoActive"`
	Meals     []MealSummary   `json:"meals"`
}

// BookSnapshot is a point-in-time copy of one meal's order book: asks
// ascending by price, bids descending, FIFO within a price.
type BookSnapshot struct {
	Meal string       `json:"meal"`
	Asks []book.Order `json:"asks"`
	Bids []book.Order `json:"bids"`
}

// Snapshot is the full durable representation of engine state, mapping
// one-to-one to the entities of the data model. Used by the storage layer;
// the engine is correct without it.
type Snapshot struct {
	Balances  map[string]decimal.Decimal  `json:"balances"`
	Positions map[string]map[string]int64 `json:"positions"`
	Supply    map[string]int64            `json:"supply"`
	IPOStart  *time.Time                  `json:"ipoStart,omitempty"`
	Orders    []book.Order                `json:"orders"`
	Trades    []tradelog.Trade            `json:"trades"`
}
