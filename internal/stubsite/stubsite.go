// Package stubsite serves a tiny storefront that answers every path the
// traffic profile generates, so the generator can be tried without a
// cluster behind it.
package stubsite

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Options tune the stub's behavior.
type Options struct {
	// MaxDelay bounds the random per-request handling delay. Zero
	// disables the delay.
	MaxDelay time.Duration
	Seed     int64
}

type site struct {
	mu       sync.Mutex
	rng      *rand.Rand
	maxDelay time.Duration
}

var products = []string{
	"Aurora Desk Lamp",
	"Birch Standing Desk",
	"Cobalt Office Chair",
	"Drift Monitor Arm",
	"Ember Space Heater",
	"Fjord Bookshelf",
	"Gale Desk Fan",
	"Harbor File Cabinet",
	"Inlet Cable Tray",
	"Juniper Plant Pot",
}

// Handler returns the storefront routes.
func Handler(opt Options) http.Handler {
	seed := opt.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &site{
		rng:      rand.New(rand.NewSource(seed)),
		maxDelay: opt.MaxDelay,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/productpage", s.handleProductPage)
	mux.HandleFunc("/api/v1/products/", s.handleProduct)
	mux.HandleFunc("/details/", s.handleDetails)
	mux.HandleFunc("/reviews/", s.handleReviews)
	mux.HandleFunc("/ratings/", s.handleRatings)
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/", s.handleNotFound)
	return mux
}

// Serve runs the stub site until ctx is cancelled, then drains
// in-flight requests.
func Serve(ctx context.Context, addr string, opt Options) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(opt),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// delay sleeps a random slice of MaxDelay.
func (s *site) delay() {
	if s.maxDelay <= 0 {
		return
	}
	s.mu.Lock()
	d := time.Duration(s.rng.Int63n(int64(s.maxDelay)))
	s.mu.Unlock()
	time.Sleep(d)
}

func (s *site) handleProductPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	s.delay()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<!DOCTYPE html><html><head><title>Footfall Storefront</title></head><body><h1>Storefront</h1><ul>")
	for id, title := range products {
		fmt.Fprintf(w, `<li><a href="/api/v1/products/%d">%s</a></li>`, id, title)
	}
	fmt.Fprint(w, "</ul></body></html>")
}

func (s *site) handleProduct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	s.delay()
	id, ok := trailingID(r.URL.Path, "/api/v1/products/")
	if !ok || id < 0 || id >= len(products) {
		respondJSON(w, http.StatusNotFound, map[string]any{"error": "no such product"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":    id,
		"title": products[id],
		"stock": 10 + id*3,
	})
}

func (s *site) handleDetails(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	s.delay()
	id, ok := trailingID(r.URL.Path, "/details/")
	if !ok || id < 0 || id >= len(products) {
		respondJSON(w, http.StatusNotFound, map[string]any{"error": "no such product"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":       id,
		"title":    products[id],
		"supplier": "Loopwork Supply Co.",
		"weight_g": 500 + id*120,
	})
}

func (s *site) handleReviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	s.delay()
	id, ok := trailingID(r.URL.Path, "/reviews/")
	if !ok || id < 0 || id >= len(products) {
		respondJSON(w, http.StatusNotFound, map[string]any{"error": "no such product"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id": id,
		"reviews": []map[string]any{
			{"reviewer": "ada", "text": "Does what it says.", "stars": 4},
			{"reviewer": "lin", "text": "Arrived quickly.", "stars": 5},
		},
	})
}

func (s *site) handleRatings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	s.delay()
	id, ok := trailingID(r.URL.Path, "/ratings/")
	if !ok || id < 0 || id >= len(products) {
		respondJSON(w, http.StatusNotFound, map[string]any{"error": "no such product"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":    id,
		"stars": map[string]any{"ada": 4, "lin": 5},
	})
}

func (s *site) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.delay()
	respondJSON(w, http.StatusOK, map[string]any{"session": "stub", "user": "demo"})
}

func (s *site) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.delay()
	respondJSON(w, http.StatusNotFound, map[string]any{"error": "not found", "path": r.URL.Path})
}

func trailingID(path, prefix string) (int, bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == "" || strings.Contains(rest, "/") {
		return 0, false
	}
	id, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
