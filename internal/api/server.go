package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"berrydex/internal/config"
	"berrydex/internal/market"
)

type Server struct {
	cfg    config.APIConfig
	log    *slog.Logger
	market *market.Service
	mux    *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, marketSvc *market.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		log:    logger,
		market: marketSvc,
		mux:    chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(newRateLimiter(s.cfg.RatePerSecond, s.cfg.RateBurst).middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/characters", s.handleCharactersList)
		r.Get("/characters/{slug}", s.handleCharacterDetail)

		r.Post("/accounts", s.handleCreateAccount)
		r.Get("/accounts/{id}", s.handleAccount)
		r.Get("/accounts/{id}/portfolio", s.handlePortfolio)
		r.Get("/accounts/{id}/transactions", s.handleTransactions)

		r.Post("/orders", s.handleOrder)
	})
}

func (s *Server) handleCharactersList(w http.ResponseWriter, r *http.Request) {
	out, err := s.market.Characters(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"characters": out})
}

func (s *Server) handleCharacterDetail(w http.ResponseWriter, r *http.Request) {
	out, err := s.market.CharacterDetail(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.ID = strings.TrimSpace(in.ID)
	if in.ID == "" {
		writeError(w, http.StatusBadRequest, "account id is required")
		return
	}
	out, err := s.market.EnsureAccount(r.Context(), in.ID, strings.TrimSpace(in.Username), s.cfg.Market)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	out, err := s.market.Account(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	out, err := s.market.Portfolio(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := s.market.Transactions(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var in struct {
		AccountID string `json:"account_id"`
		Character string `json:"character"`
		Side      string `json:"side"`
		Shares    int64  `json:"shares"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in.AccountID = strings.TrimSpace(in.AccountID)
	in.Character = strings.TrimSpace(in.Character)
	if in.AccountID == "" || in.Character == "" {
		writeError(w, http.StatusBadRequest, "account_id and character are required")
		return
	}

	ch, err := s.market.ResolveCharacter(r.Context(), in.Character)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var result market.TradeResult
	switch strings.ToUpper(strings.TrimSpace(in.Side)) {
	case string(market.SideBuy):
		result, err = s.market.Buy(r.Context(), in.AccountID, ch.ID, in.Shares, s.cfg.Market)
	case string(market.SideSell):
		result, err = s.market.Sell(r.Context(), in.AccountID, ch.ID, in.Shares, s.cfg.Market)
	default:
		writeError(w, http.StatusBadRequest, "side must be BUY or SELL")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, market.ErrInvalidShares),
		errors.Is(err, market.ErrInsufficientFunds),
		errors.Is(err, market.ErrInsufficientShares):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, market.ErrCharacterNotFound),
		errors.Is(err, market.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, market.ErrTradeCooldown):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, market.ErrTxConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
