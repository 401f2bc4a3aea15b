package exchange

import "errors"

// Every rejected operation returns one of these and leaves all state
// unchanged. Callers branch with errors.Is.
var (
	ErrInvalidMeal        = errors.New("invalid meal")
	ErrUnknownUser        = errors.New("unknown user")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidPrice       = errors.New("price must be positive")
	ErrIPONotStarted      = errors.New("IPO not started")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientSupply = errors.New("insufficient supply")
	ErrInsufficientShares = errors.New("insufficient shares")
	ErrNoMatchingOrders   = errors.New("no matching orders")
	ErrUnknownOrder       = errors.New("unknown order")
	ErrNotOrderOwner      = errors.New("order belongs to another user")
)
