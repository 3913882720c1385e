package mirror

import (
	"context"

	"unibudget/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordAppender appends ledger records to the spreadsheet mirror.
	RecordAppender interface {
		AppendExpense(ctx context.Context, e core.ExpenseRecord) (rowRef string, err error)
		AppendIncome(ctx context.Context, in core.IncomeRecord) (rowRef string, err error)
	}
)
