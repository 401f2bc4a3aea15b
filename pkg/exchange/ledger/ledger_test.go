package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
)

var users = []string{"Josh", "Jack", "Levi"}

func newLedger() *Ledger {
	return New(users, decimal.NewFromInt(10000))
}

func TestInitialState(t *testing.T) {
	l := newLedger()
	for _, u := range users {
		if !l.Balance(u).Equal(decimal.NewFromInt(10000)) {
			t.Errorf("%s balance = %s, want 10000", u, l.Balance(u))
		}
		if got := l.Position(u, "Beef Stew"); got != 0 {
			t.Errorf("%s position = %d, want 0", u, got)
		}
		if len(l.Portfolio(u)) != 0 {
			t.Errorf("%s portfolio not empty", u)
		}
	}
	if l.HasAccount(House) {
		t.Error("house sentinel must not be an account")
	}
	if !l.Balance("stranger").Equal(decimal.Zero) {
		t.Error("unknown user balance not zero")
	}
}

func TestSettleConservation(t *testing.T) {
	l := newLedger()
	price := decimal.RequireFromString("5.00")

	l.Settle("Jack", "Josh", "Beef Stew", price, 4)

	if !l.Balance("Jack").Equal(decimal.RequireFromString("9980.00")) {
		t.Errorf("buyer balance = %s, want 9980.00", l.Balance("Jack"))
	}
	if !l.Balance("Josh").Equal(decimal.RequireFromString("10020.00")) {
		t.Errorf("seller balance = %s, want 10020.00", l.Balance("Josh"))
	}

	// Cash is conserved across the trade.
	total := decimal.Zero
	for _, u := range users {
		total = total.Add(l.Balance(u))
	}
	if !total.Equal(decimal.NewFromInt(30000)) {
		t.Errorf("total cash = %s, want 30000", total)
	}

	// Position transfer is symmetric; the seller goes short from zero.
	if got := l.Position("Jack", "Beef Stew"); got != 4 {
		t.Errorf("buyer position = %d, want 4", got)
	}
	if got := l.Position("Josh", "Beef Stew"); got != -4 {
		t.Errorf("seller position = %d, want -4", got)
	}
}

func TestSettleWithHouse(t *testing.T) {
	l := newLedger()
	price := decimal.NewFromInt(200)

	l.Settle("Jack", House, "Beef Stew", price, 3)

	if !l.Balance("Jack").Equal(decimal.NewFromInt(9400)) {
		t.Errorf("buyer balance = %s, want 9400", l.Balance("Jack"))
	}
	if got := l.Position("Jack", "Beef Stew"); got != 3 {
		t.Errorf("buyer position = %d, want 3", got)
	}
	// The house is never credited; cash simply leaves the economy.
	if !l.Balance(House).Equal(decimal.Zero) {
		t.Error("house sentinel accumulated a balance")
	}
}

func TestSettleUnknownPartyPanics(t *testing.T) {
	l := newLedger()
	defer func() {
		if recover() == nil {
			t.Error("settle with unknown buyer did not panic")
		}
	}()
	l.Settle("stranger", "Josh", "Beef Stew", decimal.NewFromInt(1), 1)
}

func TestPortfolioOmitsZeroAndFlagsShorts(t *testing.T) {
	l := newLedger()
	p := decimal.NewFromInt(5)

	l.Settle("Jack", "Josh", "Beef Stew", p, 4)  // Josh short 4
	l.Settle("Josh", "Jack", "Beef Stew", p, 4)  // unwound to zero
	l.Settle("Jack", "Josh", "Corned Beef", p, 2)

	pf := l.Portfolio("Josh")
	if _, ok := pf["Beef Stew"]; ok {
		t.Error("zero position listed in portfolio")
	}
	if got := pf["Corned Beef"]; got != -2 {
		t.Errorf("Corned Beef position = %d, want -2", got)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	l := newLedger()
	l.Settle("Jack", "Josh", "Beef Stew", decimal.RequireFromString("7.50"), 6)

	fresh := newLedger()
	fresh.Restore(l.Balances(), l.Positions())

	for _, u := range users {
		if !fresh.Balance(u).Equal(l.Balance(u)) {
			t.Errorf("%s balance after restore = %s, want %s", u, fresh.Balance(u), l.Balance(u))
		}
	}
	if got := fresh.Position("Josh", "Beef Stew"); got != -6 {
		t.Errorf("restored position = %d, want -6", got)
	}
}
