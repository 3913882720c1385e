package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"unibudget/internal/core"
	"unibudget/internal/report"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]any{
		"summary_cache_entries": s.summaryCache.Size(),
	}

	if err := s.reader.Ping(ctx); err != nil {
		checks["storage"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded")
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		CurrentMonth string
	}{
		CurrentMonth: time.Now().Format("2006-01"),
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template failed", "error", err)
	}
}

// handleExport generates the four-sheet workbook and streams it as an
// attachment. A malformed month value yields an unfiltered export, never a
// client error.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filter := core.ParseMonthFilter(r.URL.Query().Get("month"))

	data, err := s.reports.Generate(r.Context(), filter)
	if err != nil {
		if errors.Is(err, report.ErrConnection) {
			slog.ErrorContext(r.Context(), "Export aborted, storage unreachable", "error", err)
			http.Error(w, "database connection failed", http.StatusInternalServerError)
			return
		}
		slog.ErrorContext(r.Context(), "Export failed", "error", err)
		http.Error(w, "failed to generate report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		slog.WarnContext(r.Context(), "Failed to write export body", "error", err)
	}
}
