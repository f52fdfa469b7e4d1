package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"marketlens/internal/analytics"
	"marketlens/internal/compare"
	"marketlens/internal/listings"
	"marketlens/internal/session"
	"marketlens/pkg/model"
)

const sessionCookie = "marketlens_session"

// MarketsResponse lists the selectable markets.
type MarketsResponse struct {
	Markets []model.MarketConfig `json:"markets"`
	Default string               `json:"default"`
}

// IndicesResponse lists the index filters for a market.
type IndicesResponse struct {
	Indices []model.IndexInfo `json:"indices"`
}

// ListingsResponse carries one market's ticker table.
type ListingsResponse struct {
	Market   string              `json:"market"`
	Source   model.ListingSource `json:"source"`
	Count    int                 `json:"count"`
	Listings []model.Listing     `json:"listings"`
}

// ConstituentsResponse carries an index's member symbols.
type ConstituentsResponse struct {
	Index   string              `json:"index"`
	Source  model.ListingSource `json:"source"`
	Count   int                 `json:"count"`
	Symbols []string            `json:"symbols"`
}

// CompareResponse is the full comparison render payload. Symbols that
// failed appear in Errors; the rest chart from Returns and Stats.
type CompareResponse struct {
	From       string                         `json:"from"`
	To         string                         `json:"to"`
	Returns    []model.ReturnSeries           `json:"returns"`
	Stats      map[string]model.SummaryStats  `json:"stats"`
	Errors     map[string]compare.SymbolError `json:"errors,omitempty"`
	Truncation *analytics.Truncation          `json:"truncation,omitempty"`
	Elapsed    string                         `json:"elapsed"`
}

// DeepDiveResponse is the single-symbol drilldown payload.
type DeepDiveResponse struct {
	From    string             `json:"from"`
	To      string             `json:"to"`
	Series  model.PriceSeries  `json:"series"`
	Returns model.ReturnSeries `json:"returns"`
	Stats   model.SummaryStats `json:"stats"`
	Elapsed string             `json:"elapsed"`
}

// handleHealth reports liveness and the live session count.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "ok",
		"sessions": s.sessions.Len(),
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

// handleMarkets returns the market table and the default selection.
func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := MarketsResponse{
		Markets: listings.Markets(),
		Default: s.config.Defaults.Market,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleIndices returns index filters, optionally scoped to a market.
func (s *Server) handleIndices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	market := r.URL.Query().Get("market")
	var indices []model.IndexInfo
	if market == "" {
		indices = append(indices, listings.WorldIndices...)
		indices = append(indices, listings.NiftyBank)
	} else {
		if _, ok := listings.MarketFor(market); !ok {
			http.Error(w, "Unknown market: "+market, http.StatusBadRequest)
			return
		}
		indices = listings.IndicesForMarket(market)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(IndicesResponse{Indices: indices})
}

// handleListings returns the ticker table for one market.
func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	market := r.URL.Query().Get("market")
	if market == "" {
		http.Error(w, "market parameter required", http.StatusBadRequest)
		return
	}
	cfg, ok := listings.MarketFor(market)
	if !ok {
		http.Error(w, "Unknown market: "+market, http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	list, source, err := s.loader.Listings(ctx, cfg.Name)
	if err != nil {
		log.Printf("[WEB] Listings error: %v", err)
		http.Error(w, "Failed to load listings: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := ListingsResponse{
		Market:   cfg.Name,
		Source:   source,
		Count:    len(list),
		Listings: list,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleConstituents returns the member symbols of one index.
func (s *Server) handleConstituents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	indexSymbol := r.URL.Query().Get("index")
	if indexSymbol == "" {
		http.Error(w, "index parameter required", http.StatusBadRequest)
		return
	}
	idx, ok := listings.IndexFor(indexSymbol)
	if !ok {
		http.Error(w, "Unknown index: "+indexSymbol, http.StatusBadRequest)
		return
	}
	if market := r.URL.Query().Get("market"); market != "" && !strings.EqualFold(idx.Region, market) {
		http.Error(w, fmt.Sprintf("Index %s does not belong to market %s", indexSymbol, market), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	symbols, source, err := s.loader.Constituents(ctx, indexSymbol)
	if err != nil {
		http.Error(w, "No constituents available: "+err.Error(), http.StatusNotFound)
		return
	}

	resp := ConstituentsResponse{
		Index:   idx.Symbol,
		Source:  source,
		Count:   len(symbols),
		Symbols: symbols,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleCompare runs the comparison pipeline for the requested symbols
// and date range. Failing symbols land in the errors map; the response
// still carries every series that rendered.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	symbols := splitSymbols(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		http.Error(w, "symbols parameter required", http.StatusBadRequest)
		return
	}

	from, to, err := s.parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := s.resolveSession(w, r)
	if err != nil {
		log.Printf("[WEB] Session error: %v", err)
		http.Error(w, "Failed to establish session", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	result, err := s.comparer.Compare(ctx, sess.Prices(), symbols, from, to)
	if err != nil {
		log.Printf("[WEB] Compare error: %v", err)
		http.Error(w, "Comparison failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := CompareResponse{
		From:       from.Format("2006-01-02"),
		To:         to.Format("2006-01-02"),
		Returns:    result.Returns,
		Stats:      result.Stats,
		Errors:     result.Errors,
		Truncation: result.Truncation,
		Elapsed:    result.Elapsed.Round(time.Millisecond).String(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleDeepDive returns the single-symbol drilldown: raw candles for
// the candlestick chart plus derived returns and stats.
func (s *Server) handleDeepDive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	if symbol == "" {
		http.Error(w, "symbol parameter required", http.StatusBadRequest)
		return
	}

	from, to, err := s.parseRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sess, err := s.resolveSession(w, r)
	if err != nil {
		log.Printf("[WEB] Session error: %v", err)
		http.Error(w, "Failed to establish session", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	dive, err := s.comparer.Dive(ctx, sess.Prices(), symbol, from, to)
	if err != nil {
		symErr := compare.Classify(err)
		status := http.StatusBadGateway
		if symErr.Kind != compare.KindFetch {
			status = http.StatusUnprocessableEntity
		}
		log.Printf("[WEB] DeepDive %s: %v", symbol, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": symErr})
		return
	}

	resp := DeepDiveResponse{
		From:    from.Format("2006-01-02"),
		To:      to.Format("2006-01-02"),
		Series:  dive.Series,
		Returns: dive.Returns,
		Stats:   dive.Stats,
		Elapsed: dive.Elapsed.Round(time.Millisecond).String(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// resolveSession returns the request's session, issuing a fresh one
// (and setting its cookie) on first contact or when the presented
// token no longer resolves.
func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.sessions.Resolve(c.Value); ok {
			return sess, nil
		}
	}

	sess, token, err := s.sessions.Issue()
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   s.config.Server.SessionTTLMin * 60,
	})
	return sess, nil
}

// parseRange resolves the request's date range. Explicit start/end
// dates win; otherwise the period preset applies (defaulting to the
// configured period).
func (s *Server) parseRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")

	if start == "" && end == "" {
		period := q.Get("period")
		if period == "" {
			period = s.config.Defaults.Period
		}
		return compare.RangeForPeriod(period, time.Now().UTC())
	}

	if start == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("start parameter required when end is set")
	}
	from, err := time.Parse("2006-01-02", start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q (want YYYY-MM-DD)", start)
	}

	to := time.Now().UTC()
	if end != "" {
		to, err = time.Parse("2006-01-02", end)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q (want YYYY-MM-DD)", end)
		}
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date is before start date")
	}
	return from, to, nil
}

// splitSymbols parses the comma-separated symbols parameter.
func splitSymbols(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
