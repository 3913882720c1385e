package http

import (
	"log/slog"
	"net/http"

	"unibudget/internal/core"
)

type monthTotal struct {
	Month string `json:"month"`
	Total string `json:"total"`
}

type classificationRow struct {
	Month   string `json:"month"`
	Uber    string `json:"uber"`
	Food    string `json:"food"`
	Airtime string `json:"airtime"`
	Other   string `json:"other"`
	Total   string `json:"total"`
}

type summaryResponse struct {
	Month          string              `json:"month,omitempty"`
	TotalExpenses  string              `json:"total_expenses"`
	TotalIncome    string              `json:"total_income"`
	Balance        string              `json:"balance"`
	IncomeByMonth  []monthTotal        `json:"income_by_month"`
	Classification []classificationRow `json:"classification"`
}

const summaryAllKey = "all"

// handleSummary serves the dashboard aggregates. Results are cached per
// filter key; a successful capture purges the whole cache.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	filter := core.ParseMonthFilter(r.URL.Query().Get("month"))

	key := summaryAllKey
	if filter.Active() {
		key = string(filter.Key())
	}

	if cached, ok := s.summaryCache.Get(key); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	expenses, err := s.reader.Expenses(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary expense fetch failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	income, err := s.reader.Income(r.Context(), filter)
	if err != nil {
		slog.ErrorContext(r.Context(), "Summary income fetch failed", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to build summary")
		return
	}

	resp := buildSummary(expenses, income, filter)
	s.summaryCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func buildSummary(expenses []core.ExpenseRecord, income []core.IncomeRecord, filter core.MonthFilter) summaryResponse {
	totalExpenses := core.SumExpenses(expenses)
	totalIncome := core.SumIncome(income)

	resp := summaryResponse{
		TotalExpenses: core.FormatAmount(totalExpenses),
		TotalIncome:   core.FormatAmount(totalIncome),
		Balance:       core.FormatAmount(core.Balance(totalIncome, totalExpenses)),
	}
	if filter.Active() {
		resp.Month = string(filter.Key())
	}

	incomeMonths, incomeByMonth := core.IncomeByMonth(income)
	resp.IncomeByMonth = make([]monthTotal, 0, len(incomeMonths))
	for _, month := range incomeMonths {
		resp.IncomeByMonth = append(resp.IncomeByMonth, monthTotal{
			Month: string(month),
			Total: core.FormatAmount(incomeByMonth[month]),
		})
	}

	classMonths, classByMonth := core.ClassifyByMonth(expenses)
	resp.Classification = make([]classificationRow, 0, len(classMonths))
	for _, month := range classMonths {
		totals := classByMonth[month]
		resp.Classification = append(resp.Classification, classificationRow{
			Month:   string(month),
			Uber:    core.FormatAmount(totals.Uber),
			Food:    core.FormatAmount(totals.Food),
			Airtime: core.FormatAmount(totals.Airtime),
			Other:   core.FormatAmount(totals.Other),
			Total:   core.FormatAmount(totals.Total()),
		})
	}

	return resp
}
