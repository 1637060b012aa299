package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"artis/internal/cache"
	"artis/internal/core"
	applog "artis/internal/log"
	"artis/internal/refdata"
	"artis/internal/services"
	appweb "artis/web"
)

// SubmissionLister returns the latest stored submissions for the history
// partial. Nil when no storage backend is configured.
type SubmissionLister interface {
	ListRecentSubmissions(ctx context.Context, limit int) ([]core.Submission, error)
}

type lookupResult struct {
	Value float64
	Found bool
}

type Server struct {
	http.Server
	templates *template.Template
	svc       *services.CalculationService
	lookup    refdata.Lookup
	lister    SubmissionLister

	rateLimiter *rateLimiter

	// Caches for the reference lookup and the history partial
	lookupCache  cache.Cache[lookupResult]
	recentCache  cache.Cache[[]core.Submission]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server. lister may be nil when running without a storage backend.
func NewServer(addr string, svc *services.CalculationService, lookup refdata.Lookup, lister SubmissionLister) *Server {
	mux := http.NewServeMux()

	lookupCache := cache.NewLRUCache[lookupResult](200, 30*time.Minute)
	recentCache := cache.NewLRUCache[[]core.Submission](10, 5*time.Minute)

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:          svc,
		lookup:       lookup,
		lister:       lister,
		rateLimiter:  newRateLimiter(),
		lookupCache:  lookupCache,
		recentCache:  recentCache,
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(lookupCache)
	s.cacheManager.Register(recentCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/calculate", s.withSecurityHeaders(s.handleCalculate))
	// UI partials
	mux.HandleFunc("/ui/reference-value", s.withSecurityHeaders(s.handleReferenceValue))
	mux.HandleFunc("/ui/recent-submissions", s.withSecurityHeaders(s.handleRecentSubmissions))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.cacheManager != nil {
			s.cacheManager.Stop()
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		fields := applog.NewFields().
			WithRequestID(requestID).
			WithClientIP(clientIP).
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery,
				r.Header.Get("User-Agent"), r.Header.Get("Referer"))
		slog.InfoContext(ctx, "Request started", fields.ToSlice()...)

		// Rate limit the calculation POSTs
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		fields.WithHTTPResponse(rw.statusCode, duration.Milliseconds(),
			rw.statusCode < http.StatusInternalServerError)
		slog.InfoContext(ctx, "Request completed", fields.ToSlice()...)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleIndex renders the calculator form. Missing templates is the one
// fatal condition: a page-level fallback message is all we can serve.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "Sayfa yüklenemedi", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	data := struct {
		Sections []core.Section
		Months   []int
		Years    []int
		Month    int
		Year     int
	}{
		Sections: s.svc.Sections(),
		Months:   monthRange(),
		Years:    yearRange(now.Year()),
		Month:    int(now.Month()),
		Year:     now.Year(),
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func monthRange() []int {
	months := make([]int, 12)
	for i := range months {
		months[i] = i + 1
	}
	return months
}

// yearRange lists selectable years, oldest first, up to the current year.
func yearRange(current int) []int {
	const firstYear = 2020
	years := make([]int, 0, current-firstYear+1)
	for y := firstYear; y <= current; y++ {
		years = append(years, y)
	}
	return years
}
