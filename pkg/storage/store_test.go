package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/umdining/mealex/pkg/exchange"
	"github.com/umdining/mealex/pkg/exchange/book"
	"github.com/umdining/mealex/pkg/exchange/tradelog"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleSnapshot() *exchange.Snapshot {
	start := time.Unix(1_700_000_000, 0).UTC()
	return &exchange.Snapshot{
		Balances: map[string]decimal.Decimal{
			"Josh": d("9600"),
			"Jack": d("10020.00"),
		},
		Positions: map[string]map[string]int64{
			"Josh": {"Beef Stew": 2},
			"Jack": {"Lamb Meatballs w/ Green Harissa Sauce": -4},
		},
		Supply:   map[string]int64{"Beef Stew": 498},
		IPOStart: &start,
		Orders: []book.Order{
			{ID: uuid.New(), Meal: "Beef Stew", Side: book.Ask, Price: d("5.00"), Qty: 6, Owner: "Jack", Seq: 3},
		},
		Trades: []tradelog.Trade{
			{ID: uuid.New(), Meal: "Beef Stew", Buyer: "Josh", Seller: "IPO_HOUSE", Qty: 2, Price: d("200"), Time: start},
			{ID: uuid.New(), Meal: "Beef Stew", Buyer: "Levi", Seller: "Jack", Qty: 4, Price: d("5.00"), Time: start.Add(time.Minute)},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	want := sampleSnapshot()
	if err := s.SaveSnapshot(want); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	got, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if got == nil {
		t.Fatal("LoadSnapshot returned nil after save")
	}

	if !got.Balances["Josh"].Equal(d("9600")) {
		t.Errorf("Josh balance = %s, want 9600", got.Balances["Josh"])
	}
	if got.Positions["Jack"]["Lamb Meatballs w/ Green Harissa Sauce"] != -4 {
		t.Errorf("Jack position = %v", got.Positions["Jack"])
	}
	if got.Supply["Beef Stew"] != 498 {
		t.Errorf("supply = %v", got.Supply)
	}
	if got.IPOStart == nil || !got.IPOStart.Equal(*want.IPOStart) {
		t.Errorf("IPO start = %v, want %v", got.IPOStart, want.IPOStart)
	}
	if len(got.Orders) != 1 || got.Orders[0].ID != want.Orders[0].ID || got.Orders[0].Seq != 3 {
		t.Errorf("orders = %+v", got.Orders)
	}
	if len(got.Trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(got.Trades))
	}
	// Append order survives the round trip.
	if got.Trades[0].Seller != "IPO_HOUSE" || got.Trades[1].Buyer != "Levi" {
		t.Errorf("trade order lost: %+v", got.Trades)
	}
}

func TestLoadEmptyStore(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	snap, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if snap != nil {
		t.Errorf("empty store returned a snapshot: %+v", snap)
	}
}

func TestSaveReplacesStaleEntries(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	first := sampleSnapshot()
	if err := s.SaveSnapshot(first); err != nil {
		t.Fatal(err)
	}

	// Second snapshot has no resting orders; the old one must not leak back.
	second := sampleSnapshot()
	second.Orders = nil
	second.Balances["Josh"] = d("9000")
	if err := s.SaveSnapshot(second); err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Orders) != 0 {
		t.Errorf("stale orders survived: %+v", got.Orders)
	}
	if !got.Balances["Josh"].Equal(d("9000")) {
		t.Errorf("balance = %s, want 9000", got.Balances["Josh"])
	}
}
