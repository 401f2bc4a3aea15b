// Package ipo implements the descending-price clock for primary issuance.
//
// The price is a pure function of wall-clock time: before the clock is
// started it is the configured start price; afterwards it drops by one step
// per elapsed interval and floors at zero. Nothing here mutates on read, so
// two queries at the same instant always agree.
package ipo

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/umdining/mealex/pkg/util"
)

// Clock tracks the IPO start instant and computes the current issue price.
//
// Clock is not internally synchronized: the exchange engine serializes
// Start and StartedAt behind its own lock, and Price only reads fields that
// are immutable once set.
type Clock struct {
	clock      util.Clock
	startPrice decimal.Decimal
	step       decimal.Decimal
	interval   time.Duration

	startedAt time.Time // zero until Start
}

func New(startPrice, step decimal.Decimal, interval time.Duration, clk util.Clock) *Clock {
	if clk == nil {
		clk = util.RealClock{}
	}
	return &Clock{
		clock:      clk,
		startPrice: startPrice,
		step:       step,
		interval:   interval,
	}
}

// Start begins the decay clock. The start instant, once set, is immutable:
// repeated calls are no-ops. Returns whether this call actually started it.
func (c *Clock) Start() bool {
	if !c.startedAt.IsZero() {
		return false
	}
	c.startedAt = c.clock.Now()
	return true
}

// Started reports whether the IPO window is open.
func (c *Clock) Started() bool {
	return !c.startedAt.IsZero()
}

// StartedAt returns the start instant and whether the clock has started.
func (c *Clock) StartedAt() (time.Time, bool) {
	return c.startedAt, !c.startedAt.IsZero()
}

// Restore sets the start instant from a snapshot. A zero time leaves the
// clock unstarted.
func (c *Clock) Restore(t time.Time) {
	c.startedAt = t
}

// Price returns the current primary-issue price.
//
// price = max(0, start − floor(elapsed/interval) × step)
//
// Piecewise-constant, non-increasing, never negative.
func (c *Clock) Price() decimal.Decimal {
	if c.startedAt.IsZero() {
		return c.startPrice
	}
	elapsed := c.clock.Now().Sub(c.startedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	steps := int64(elapsed / c.interval)
	p := c.startPrice.Sub(c.step.Mul(decimal.NewFromInt(steps)))
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}
