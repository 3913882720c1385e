package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"unibudget/internal/core"
	"unibudget/internal/services"
)

type expensePayload struct {
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	Day         int    `json:"day"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

type incomePayload struct {
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Day    int    `json:"day"`
	Source string `json:"source"`
	Amount string `json:"amount"`
}

type expenseResponse struct {
	ID          int64  `json:"id"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
}

type incomeResponse struct {
	ID     int64  `json:"id"`
	Date   string `json:"date"`
	Source string `json:"source"`
	Amount string `json:"amount"`
}

func expenseJSON(rec core.ExpenseRecord) expenseResponse {
	return expenseResponse{
		ID:          rec.ID,
		Date:        rec.Date(),
		Category:    rec.Category,
		Description: rec.Description,
		Amount:      core.FormatAmount(rec.Amount),
	}
}

func incomeJSON(rec core.IncomeRecord) incomeResponse {
	return incomeResponse{
		ID:     rec.ID,
		Date:   rec.Date(),
		Source: rec.Source,
		Amount: core.FormatAmount(rec.Amount),
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var payload expensePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := core.ParseAmount(payload.Amount)
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	rec := core.ExpenseRecord{
		Year:        payload.Year,
		Month:       payload.Month,
		Day:         payload.Day,
		Category:    sanitizeInput(payload.Category),
		Description: sanitizeInput(payload.Description),
		Amount:      amount,
	}

	stored, err := s.records.CreateExpense(r.Context(), rec)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Expense capture failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to save expense")
		return
	}

	writeJSON(w, http.StatusCreated, expenseJSON(stored))
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var payload incomePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := core.ParseAmount(payload.Amount)
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	rec := core.IncomeRecord{
		Year:   payload.Year,
		Month:  payload.Month,
		Day:    payload.Day,
		Source: sanitizeInput(payload.Source),
		Amount: amount,
	}

	stored, err := s.records.CreateIncome(r.Context(), rec)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Income capture failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to save income")
		return
	}

	writeJSON(w, http.StatusCreated, incomeJSON(stored))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	filter := core.ParseMonthFilter(r.URL.Query().Get("month"))

	rows, err := s.reader.Expenses(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "Expense listing failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}

	out := make([]expenseResponse, 0, len(rows))
	for _, rec := range rows {
		out = append(out, expenseJSON(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListIncome(w http.ResponseWriter, r *http.Request) {
	filter := core.ParseMonthFilter(r.URL.Query().Get("month"))

	rows, err := s.reader.Income(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "Income listing failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list income")
		return
	}

	out := make([]incomeResponse, 0, len(rows))
	for _, rec := range rows {
		out = append(out, incomeJSON(rec))
	}
	writeJSON(w, http.StatusOK, out)
}
