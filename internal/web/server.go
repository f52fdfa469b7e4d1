package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"marketlens/internal/compare"
	"marketlens/internal/config"
	"marketlens/internal/session"
	"marketlens/pkg/model"
)

//go:embed static
var staticFiles embed.FS

// Lister loads market ticker tables and index constituent lists.
// *listings.Loader is the production implementation.
type Lister interface {
	Listings(ctx context.Context, market string) ([]model.Listing, model.ListingSource, error)
	Constituents(ctx context.Context, index string) ([]string, model.ListingSource, error)
}

// Server serves the dashboard page and its JSON API.
type Server struct {
	config   *config.Config
	sessions *session.Manager
	loader   Lister
	comparer *compare.Comparer
	srv      *http.Server
}

// NewServer creates a new dashboard server.
func NewServer(cfg *config.Config, sessions *session.Manager, loader Lister, comparer *compare.Comparer) *Server {
	return &Server{
		config:   cfg,
		sessions: sessions,
		loader:   loader,
		comparer: comparer,
	}
}

// Start starts the web server on the specified port.
func (s *Server) Start(port int) error {
	mux := http.NewServeMux()

	// API routes
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/markets", s.handleMarkets)
	mux.HandleFunc("/api/indices", s.handleIndices)
	mux.HandleFunc("/api/listings", s.handleListings)
	mux.HandleFunc("/api/constituents", s.handleConstituents)
	mux.HandleFunc("/api/compare", s.handleCompare)
	mux.HandleFunc("/api/deepdive", s.handleDeepDive)

	// Static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("failed to create static file system: %w", err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticFS)))

	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      corsMiddleware(loggingMiddleware(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Starting MarketLens dashboard at http://localhost:%d", port)
	log.Printf("Press Ctrl+C to stop")

	return s.srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers for local development
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs API requests with their duration. Static
// asset requests stay quiet.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[WEB] %s %s (%s)", r.Method, r.URL.RequestURI(), time.Since(start).Round(time.Millisecond))
	})
}
