package tradelog

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func trade(meal string, qty int64) Trade {
	return Trade{
		ID:     uuid.New(),
		Meal:   meal,
		Buyer:  "Jack",
		Seller: "Josh",
		Qty:    qty,
		Price:  decimal.NewFromInt(5),
		Time:   time.Now(),
	}
}

func TestRecentNewestFirst(t *testing.T) {
	l := New()
	l.Append(trade("Beef Stew", 1))
	l.Append(trade("Corned Beef", 2))
	l.Append(trade("Taco Chicken", 3))

	got := l.Recent(2)
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d trades", len(got))
	}
	if got[0].Meal != "Taco Chicken" || got[1].Meal != "Corned Beef" {
		t.Errorf("order = [%s, %s], want newest first", got[0].Meal, got[1].Meal)
	}
}

func TestRecentClampsToTotal(t *testing.T) {
	l := New()
	l.Append(trade("Beef Stew", 1))

	if got := l.Recent(20); len(got) != 1 {
		t.Errorf("Recent(20) with 1 trade returned %d", len(got))
	}
	if got := l.Recent(0); got != nil {
		t.Errorf("Recent(0) = %v, want nil", got)
	}
}

func TestRecentStableUnderRepeatedQueries(t *testing.T) {
	l := New()
	for i := int64(1); i <= 5; i++ {
		l.Append(trade("Beef Stew", i))
	}

	first := l.Recent(3)
	second := l.Recent(3)
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("query %d differs between calls", i)
		}
	}
	if l.Len() != 5 {
		t.Errorf("Len = %d after queries, want 5", l.Len())
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	l := New()
	l.Append(trade("Beef Stew", 1))
	l.Append(trade("Corned Beef", 2))

	fresh := New()
	fresh.Restore(l.All())

	if fresh.Len() != 2 {
		t.Fatalf("restored Len = %d, want 2", fresh.Len())
	}
	if fresh.Recent(1)[0].Meal != "Corned Beef" {
		t.Error("restore lost ordering")
	}
}
