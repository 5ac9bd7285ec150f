// Package api serves the trade core over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/cors"

	"moonroute/internal/config"
	"moonroute/internal/decoder"
	"moonroute/internal/journal"
	"moonroute/internal/metrics"
	"moonroute/internal/trade"
	"moonroute/internal/txbuilder"
	"moonroute/internal/venue"
)

const maxBodyBytes = 1 << 20

type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	trade    *trade.Service
	provider txbuilder.Provider
	journal  journal.Store
	decoder  *decoder.Decoder
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewServer(cfg *config.Config, logger *slog.Logger, tradeSvc *trade.Service, provider txbuilder.Provider, store journal.Store, dec *decoder.Decoder, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = journal.Nop{}
	}
	return &Server{
		cfg:      cfg,
		logger:   logger,
		trade:    tradeSvc,
		provider: provider,
		journal:  store,
		decoder:  dec,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	if s.cfg.API.RatePerMinute > 0 {
		r.Use(httprate.LimitByIP(s.cfg.API.RatePerMinute, time.Minute))
	}

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metricsHandler())

	r.Group(func(r chi.Router) {
		r.Use(s.withAuth)
		r.Get("/verify", s.handleVerify)
		r.Get("/venues", s.handleVenues)
		r.Get("/balances", s.handleBalances)
		r.Get("/tokens/probe", s.handleProbe)
		r.Get("/activity", s.handleActivity)
		r.Post("/trade/exact-in", s.handleTrade(venue.ExactIn))
		r.Post("/trade/exact-out", s.handleTrade(venue.ExactOut))
		r.Post("/swap", s.handleSwap)
		r.Post("/fees/preview", s.handleFeePreview)
		r.Post("/explain", s.handleExplain)
	})
	return newCORSHandler(s.cfg.API.CORSOrigins, r)
}

func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.API.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctxTimeout)
	}()
	s.logger.Info("api listening", "addr", s.cfg.API.Listen)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newCORSHandler(allowedOrigins []string, next http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	// Credentials cannot be combined with a wildcard origin.
	allowCredentials := !(len(allowedOrigins) == 1 && allowedOrigins[0] == "*")
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-API-Key"},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	}).Handler(next)
}

func (s *Server) metricsHandler() http.Handler {
	if s.metrics == nil {
		return http.NotFoundHandler()
	}
	return s.metrics.Handler()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.API.AuthToken != "" {
			token := r.Header.Get("X-API-Key")
			if token == "" {
				auth := r.Header.Get("Authorization")
				if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
					token = strings.TrimSpace(auth[7:])
				}
			}
			if token != s.cfg.API.AuthToken {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "chainId": s.cfg.ChainID})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	writeJSON(w, http.StatusOK, s.trade.Verify(r.Context(), token))
}

func (s *Server) handleVenues(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.trade.Venues())
}

func (s *Server) handleTrade(mode venue.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req trade.Request
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		res := s.trade.Execute(r.Context(), req, mode)
		s.record(r.Context(), journal.KindTrade, req.Account, res)
		writeJSON(w, resultStatus(res.Success), res)
	}
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req trade.SwapRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res := s.trade.Swap(r.Context(), req)
	s.record(r.Context(), journal.KindSwap, req.Account, res.Result)
	writeJSON(w, resultStatus(res.Success), res)
}

func (s *Server) handleFeePreview(w http.ResponseWriter, r *http.Request) {
	var req trade.FeeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	est, err := s.trade.PreviewFee(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	addrStr := r.URL.Query().Get("address")
	if addrStr == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}
	addr, err := txbuilder.ParseAddress(addrStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		bal, err := txbuilder.ReadNativeBalance(r.Context(), s.provider, addr)
		if err != nil {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"address": addr.Hex(),
			"eth_wei": bal.String(),
			"eth":     txbuilder.FormatUnits(bal, 18),
		})
		return
	}
	tokenAddr, err := txbuilder.ParseAddress(token)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	bal, err := txbuilder.ReadERC20Balance(r.Context(), s.provider, tokenAddr, addr)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	decimals, err := txbuilder.ReadERC20Decimals(r.Context(), s.provider, tokenAddr)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address":     addr.Hex(),
		"token":       tokenAddr.Hex(),
		"balance_wei": bal.String(),
		"balance":     txbuilder.FormatUnits(bal, decimals),
		"decimals":    decimals,
	})
}

func (s *Server) handleProbe(w http.ResponseWriter, r *http.Request) {
	token, err := txbuilder.ParseAddress(r.URL.Query().Get("token"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	info, err := txbuilder.ProbeToken(r.Context(), s.provider, token)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, 500)
	}
	entries, err := s.journal.Recent(r.Context(), r.URL.Query().Get("account"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

type explainRequest struct {
	Data string `json:"data"`
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	if s.decoder == nil {
		writeError(w, http.StatusNotImplemented, "decoder not configured")
		return
	}
	var req explainRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := s.decoder.DecodeHex(req.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// record journals a trade outcome. A journal failure is logged and does not
// change the response.
func (s *Server) record(ctx context.Context, kind, account string, res trade.Result) {
	err := s.journal.Append(ctx, journal.Entry{
		Time:    s.now().UTC(),
		Kind:    kind,
		Account: account,
		Token:   res.Token,
		Venue:   string(res.Venue),
		Side:    string(res.Side),
		Mode:    string(res.Mode),
		Amount:  res.Amount,
		Success: res.Success,
		TxHash:  res.TxHash,
		Error:   res.Error,
	})
	if err != nil {
		s.logger.Error("journal append failed", "error", err)
	}
}

func resultStatus(success bool) int {
	if success {
		return http.StatusOK
	}
	return http.StatusBadRequest
}

func readJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	if len(b) == 0 {
		return errors.New("empty body")
	}
	return json.Unmarshal(b, v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
