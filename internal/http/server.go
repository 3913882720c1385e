// Package http serves the workbook export, the record capture API and the
// dashboard summary endpoints.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"unibudget/internal/cache"
	"unibudget/internal/report"
	"unibudget/internal/services"
	"unibudget/internal/storage"
	"unibudget/web"
)

const (
	summaryCacheSize = 64
	summaryCacheTTL  = 5 * time.Minute
	cacheSweepEvery  = 10 * time.Minute
)

// Reader is the storage slice the read-only endpoints need.
type Reader interface {
	storage.RecordReader
	storage.Pinger
}

// Server exposes the HTTP surface: /export for the xlsx download, the JSON
// capture and listing API, the summary endpoint and the health probes.
type Server struct {
	http.Server

	records *services.RecordService
	reader  Reader
	reports *report.Builder

	templates    *template.Template
	rateLimiter  *rateLimiter
	summaryCache *cache.LRU[summaryResponse]
	cacheManager *cache.Manager

	startedAt    time.Time
	shutdownOnce sync.Once
}

// NewServer builds the router, middleware chain and caches. The returned
// server is ready for ListenAndServe.
func NewServer(addr string, records *services.RecordService, reader Reader, reports *report.Builder) *Server {
	router := mux.NewRouter()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		records:      records,
		reader:       reader,
		reports:      reports,
		rateLimiter:  newRateLimiter(),
		summaryCache: cache.NewLRU[summaryResponse](summaryCacheSize, summaryCacheTTL),
		cacheManager: cache.NewManager(),
		startedAt:    time.Now(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.StartCleanup(cacheSweepEvery)

	// A capture from any entry point invalidates every cached summary.
	if records != nil {
		records.SetCaptureHook(s.summaryCache.Purge)
	}

	tmpl, err := template.ParseFS(web.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed to parse embedded templates", "error", err)
	}
	s.templates = tmpl

	router.Use(s.requestIDMiddleware, s.loggingMiddleware, s.securityHeadersMiddleware, s.rateLimitMiddleware)

	router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)
	router.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	router.HandleFunc("/api/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	router.HandleFunc("/api/expenses", s.handleListExpenses).Methods(http.MethodGet)
	router.HandleFunc("/api/income", s.handleCreateIncome).Methods(http.MethodPost)
	router.HandleFunc("/api/income", s.handleListIncome).Methods(http.MethodGet)
	router.HandleFunc("/api/summary", s.handleSummary).Methods(http.MethodGet)

	if static, err := fs.Sub(web.StaticFS, "static"); err == nil {
		files := http.StripPrefix("/static/", http.FileServer(http.FS(static)))
		router.PathPrefix("/static/").Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			files.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static files", "error", err)
	}

	return s
}

// Shutdown stops the cache janitor and rate limiter before draining the
// HTTP server. Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
