// Package report builds the xlsx financial report served by the export
// endpoint. A report covers four sheets, Expenses, Income, Balance and
// Classification, computed from the records currently in storage with an
// optional month filter applied at the query layer.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"unibudget/internal/core"
	"unibudget/internal/storage"
)

const (
	// Filename is the attachment name offered to download clients.
	Filename = "university_expenses.xlsx"

	// ContentType is the MIME type for xlsx workbooks.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrConnection marks a failure to obtain the report's database connection.
// The HTTP layer maps it to a plain 500 before any body is written.
var ErrConnection = errors.New("database connection failed")

// Builder generates xlsx reports from a storage source. The zero value is
// not usable; construct with NewBuilder.
type Builder struct {
	src    storage.ReportSource
	logger *slog.Logger
	now    func() time.Time
}

// NewBuilder returns a Builder reading from src. The current time is taken
// from time.Now; tests can override it through WithClock.
func NewBuilder(src storage.ReportSource, logger *slog.Logger) *Builder {
	return &Builder{
		src:    src,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the builder's time source and returns the builder.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Generate produces a complete xlsx workbook for the given month filter.
// The whole result is materialized in memory before anything is returned,
// so a failed generation never yields partial output.
func (b *Builder) Generate(ctx context.Context, filter core.MonthFilter) ([]byte, error) {
	conn, err := b.src.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	defer func() {
		if err := conn.Release(); err != nil {
			b.logger.WarnContext(ctx, "Failed to release report connection", "error", err)
		}
	}()

	expenses, err := conn.Expenses(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}
	income, err := conn.Income(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("fetch income: %w", err)
	}

	data := buildReportData(expenses, income, filter, b.now())

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			b.logger.WarnContext(ctx, "Failed to close workbook", "error", err)
		}
	}()

	if err := render(f, data); err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}

	month := ""
	if filter.Active() {
		month = string(filter.Key())
	}
	b.logger.InfoContext(ctx, "Generated report",
		"expenses", len(expenses),
		"income", len(income),
		"month", month,
		"bytes", buf.Len())

	return buf.Bytes(), nil
}

// reportData carries everything the sheet renderers need, precomputed so
// rendering itself cannot fail on domain input.
type reportData struct {
	expenses []core.ExpenseRecord
	income   []core.IncomeRecord

	totalExpenses decimal.Decimal
	totalIncome   decimal.Decimal
	balance       decimal.Decimal

	incomeMonths  []core.MonthKey
	incomeByMonth map[core.MonthKey]decimal.Decimal

	classMonths  []core.MonthKey
	classByMonth map[core.MonthKey]core.CategoryTotals

	filter core.MonthFilter
	today  string
}

func buildReportData(expenses []core.ExpenseRecord, income []core.IncomeRecord, filter core.MonthFilter, now time.Time) reportData {
	totalExpenses := core.SumExpenses(expenses)
	totalIncome := core.SumIncome(income)
	incomeMonths, incomeByMonth := core.IncomeByMonth(income)
	classMonths, classByMonth := core.ClassifyByMonth(expenses)

	return reportData{
		expenses:      expenses,
		income:        income,
		totalExpenses: totalExpenses,
		totalIncome:   totalIncome,
		balance:       core.Balance(totalIncome, totalExpenses),
		incomeMonths:  incomeMonths,
		incomeByMonth: incomeByMonth,
		classMonths:   classMonths,
		classByMonth:  classByMonth,
		filter:        filter,
		today:         now.Format("2006-01-02"),
	}
}
