package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// SumExpenses totals all expense amounts with exact decimal arithmetic.
func SumExpenses(rows []ExpenseRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total
}

// SumIncome totals all income amounts.
func SumIncome(rows []IncomeRecord) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total
}

// Balance is income minus expenses. It can be negative.
func Balance(income, expenses decimal.Decimal) decimal.Decimal {
	return income.Sub(expenses)
}

// GroupExpensesByMonth buckets expense rows by MonthKey. The returned keys are
// sorted strictly descending (most recent month first); within a bucket rows
// keep their relative fetch order. Grouping depends only on each row's
// year+month, never on input order.
func GroupExpensesByMonth(rows []ExpenseRecord) ([]MonthKey, map[MonthKey][]ExpenseRecord) {
	groups := make(map[MonthKey][]ExpenseRecord)
	for _, r := range rows {
		k := r.Key()
		groups[k] = append(groups[k], r)
	}
	return sortedKeysDesc(groups), groups
}

// IncomeByMonth sums income amounts per MonthKey, keys descending.
func IncomeByMonth(rows []IncomeRecord) ([]MonthKey, map[MonthKey]decimal.Decimal) {
	sums := make(map[MonthKey]decimal.Decimal)
	for _, r := range rows {
		k := r.Key()
		sums[k] = sums[k].Add(r.Amount)
	}
	return sortedKeysDesc(sums), sums
}

// ClassifyByMonth groups expense rows by month and classifies each group into
// the four fixed buckets, keys descending.
func ClassifyByMonth(rows []ExpenseRecord) ([]MonthKey, map[MonthKey]CategoryTotals) {
	keys, groups := GroupExpensesByMonth(rows)
	totals := make(map[MonthKey]CategoryTotals, len(groups))
	for k, group := range groups {
		totals[k] = Classify(group)
	}
	return keys, totals
}

func sortedKeysDesc[V any](m map[MonthKey]V) []MonthKey {
	keys := make([]MonthKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] > keys[j] })
	return keys
}
