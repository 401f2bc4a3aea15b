// Package api exposes the exchange over REST and WebSocket.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/umdining/mealex/pkg/exchange"
	"github.com/umdining/mealex/pkg/exchange/tradelog"
)

// Server handles REST and WebSocket connections for one exchange.
type Server struct {
	ex     *exchange.Exchange
	log    *zap.SugaredLogger
	router *mux.Router
	hub    *Hub
}

// NewServer builds the server and wires trade broadcasts from the engine
// to the WebSocket hub.
func NewServer(ex *exchange.Exchange, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{
		ex:     ex,
		log:    logger,
		router: mux.NewRouter(),
		hub:    NewHub(logger),
	}

	ex.SetOnTrade(func(t tradelog.Trade) {
		s.hub.BroadcastToChannel("trades", TradeUpdate{Type: "trade", Trade: t})
	})

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Market data
	api.HandleFunc("/summary", s.handleGetSummary).Methods("GET")
	api.HandleFunc("/book", s.handleGetBook).Methods("GET")
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")

	// Accounts
	api.HandleFunc("/users/{user}/balance", s.handleGetBalance).Methods("GET")
	api.HandleFunc("/users/{user}/portfolio", s.handleGetPortfolio).Methods("GET")

	// IPO
	api.HandleFunc("/ipo/start", s.handleStartIPO).Methods("POST")
	api.HandleFunc("/ipo/buy", s.handleBuyIPO).Methods("POST")

	// Secondary market
	api.HandleFunc("/orders/buy", s.handleBuyOrder).Methods("POST")
	api.HandleFunc("/orders/sell", s.handleSellOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the WebSocket hub and blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	handler := c.Handler(s.router)

	s.log.Infow("api_listening", "addr", addr)
	return http.ListenAndServe(addr, handler)
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	respondOK(w, s.ex.MarketSummary())
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	meal := r.URL.Query().Get("meal")
	if meal == "" {
		respondBadRequest(w, "missing meal parameter")
		return
	}
	snap, err := s.ex.OrderBook(meal)
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondOK(w, snap)
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	respondOK(w, s.ex.TradeHistory(limit))
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	respondOK(w, BalanceResponse{User: user, Balance: s.ex.Balance(user)})
}

func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]
	respondOK(w, s.ex.Portfolio(user))
}

func (s *Server) handleStartIPO(w http.ResponseWriter, r *http.Request) {
	started := s.ex.StartIPO()
	msg := "IPO started"
	if !started {
		msg = "IPO already started"
	}
	respondJSON(w, http.StatusOK, Envelope{Success: true, Message: msg})
}

func (s *Server) handleBuyIPO(w http.ResponseWriter, r *http.Request) {
	var req BuyIPORequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	res, err := s.ex.BuyFromIPO(req.User, req.Meal, req.Qty)
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, Envelope{Success: true, Message: res.Message, Data: res})
}

func (s *Server) handleBuyOrder(w http.ResponseWriter, r *http.Request) {
	var req BuyOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	res, err := s.ex.PlaceBuy(req.User, req.Meal, req.Price, req.Qty, req.Snap)
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, Envelope{Success: true, Message: res.Message, Data: res})
}

func (s *Server) handleSellOrder(w http.ResponseWriter, r *http.Request) {
	var req SellOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	res, err := s.ex.PlaceSell(req.User, req.Meal, req.Price, req.Qty, req.Short)
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, Envelope{Success: true, Message: res.Message, Data: res})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}
	id, err := uuid.Parse(req.OrderID)
	if err != nil {
		respondBadRequest(w, "invalid orderId")
		return
	}
	if err := s.ex.CancelOrder(req.User, id); err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, Envelope{Success: true, Message: "Order cancelled"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondOK(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func respondBadRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, Envelope{Success: false, Message: message})
}

// respondFailure reports a business rejection. Rejections are a normal
// outcome of the exchange rules, so they go out as HTTP 200 with
// success=false rather than an error status.
func respondFailure(w http.ResponseWriter, err error) {
	status := http.StatusOK
	if errors.Is(err, exchange.ErrInvalidMeal) || errors.Is(err, exchange.ErrUnknownOrder) {
		status = http.StatusNotFound
	}
	respondJSON(w, status, Envelope{Success: false, Message: err.Error()})
}
