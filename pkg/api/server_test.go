package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/umdining/mealex/params"
	"github.com/umdining/mealex/pkg/exchange"
	"github.com/umdining/mealex/pkg/util"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ex := exchange.New(params.Default(), nil, util.NewManualClock(time.Unix(1_700_000_000, 0)))
	s := NewServer(ex, nil)
	ts := httptest.NewServer(s.router)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) Envelope {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func getJSON(t *testing.T, url string) Envelope {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestIPOFlow(t *testing.T) {
	ts := newTestServer(t)

	// Buying before the IPO opens is a business failure, not an HTTP error.
	env := postJSON(t, ts.URL+"/api/v1/ipo/buy", BuyIPORequest{User: "Josh", Meal: "Beef Stew", Qty: 1})
	if env.Success {
		t.Error("buy before IPO start reported success")
	}

	env = postJSON(t, ts.URL+"/api/v1/ipo/start", nil)
	if !env.Success {
		t.Fatalf("start: %+v", env)
	}

	env = postJSON(t, ts.URL+"/api/v1/ipo/buy", BuyIPORequest{User: "Josh", Meal: "Beef Stew", Qty: 2})
	if !env.Success {
		t.Fatalf("buy: %+v", env)
	}
	if env.Message != "Bought 2 shares of Beef Stew at $200.00" {
		t.Errorf("message = %q", env.Message)
	}

	env = getJSON(t, ts.URL+"/api/v1/users/Josh/balance")
	if !env.Success {
		t.Fatalf("balance: %+v", env)
	}
}

func TestOrderFlow(t *testing.T) {
	ts := newTestServer(t)

	env := postJSON(t, ts.URL+"/api/v1/orders/sell", map[string]interface{}{
		"user": "Jack", "meal": "Beef Stew", "price": "5.00", "qty": 10, "short": true,
	})
	if !env.Success {
		t.Fatalf("sell: %+v", env)
	}

	env = postJSON(t, ts.URL+"/api/v1/orders/buy", map[string]interface{}{
		"user": "Levi", "meal": "Beef Stew", "price": "6.00", "qty": 4,
	})
	if !env.Success {
		t.Fatalf("buy: %+v", env)
	}
	if env.Message != "Executed 4 shares" {
		t.Errorf("message = %q", env.Message)
	}

	env = getJSON(t, ts.URL+"/api/v1/book?meal="+url.QueryEscape("Beef Stew"))
	if !env.Success {
		t.Fatalf("book: %+v", env)
	}
	env = getJSON(t, ts.URL+"/api/v1/trades?limit=5")
	if !env.Success {
		t.Fatalf("trades: %+v", env)
	}
}

func TestBookRequiresMeal(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/v1/book")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestUnknownMealIs404(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/v1/book?meal=" + url.QueryEscape("Pad Thai"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCancelValidation(t *testing.T) {
	ts := newTestServer(t)
	env := postJSON(t, ts.URL+"/api/v1/orders/cancel", CancelOrderRequest{User: "Jack", OrderID: "not-a-uuid"})
	if env.Success {
		t.Error("malformed orderId reported success")
	}
}
