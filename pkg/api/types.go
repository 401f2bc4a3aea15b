package api

import "github.com/shopspring/decimal"

// Request bodies. Prices arrive as JSON strings or numbers; decimal
// accepts both.

type BuyIPORequest struct {
	User string `json:"user"`
	Meal string `json:"meal"`
	Qty  int64  `json:"qty"`
}

type BuyOrderRequest struct {
	User  string          `json:"user"`
	Meal  string          `json:"meal"`
	Price decimal.Decimal `json:"price"`
	Qty   int64           `json:"qty"`
	Snap  bool            `json:"snap"`
}

type SellOrderRequest struct {
	User  string          `json:"user"`
	Meal  string          `json:"meal"`
	Price decimal.Decimal `json:"price"`
	Qty   int64           `json:"qty"`
	Short bool            `json:"short"`
}

type CancelOrderRequest struct {
	User    string `json:"user"`
	OrderID string `json:"orderId"`
}

// Envelope wraps every response. Business rejections (insufficient funds,
// no matching orders, and so on) are reported with Success false and a
// human-readable message, not an HTTP error status.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type BalanceResponse struct {
	User    string          `json:"user"`
	Balance decimal.Decimal `json:"balance"`
}

// WSSubscribeRequest is the client-to-server subscription message.
// Channels: "trades", "summary".
type WSSubscribeRequest struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}

// TradeUpdate is pushed to "trades" subscribers on every settled fill.
type TradeUpdate struct {
	Type  string      `json:"type"`
	Trade interface{} `json:"trade"`
}
