package report

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"unibudget/internal/core"
)

// Sheet names in workbook order. Expenses replaces the default sheet so it
// is both first and active when the file opens.
const (
	sheetExpenses       = "Expenses"
	sheetIncome         = "Income"
	sheetBalance        = "Balance"
	sheetClassification = "Classification"
)

const (
	autosizeLastCol = 12 // columns A through L
	minColWidth     = 8
	maxColWidth     = 60
)

func render(f *excelize.File, data reportData) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create bold style: %w", err)
	}

	f.SetSheetName("Sheet1", sheetExpenses)
	for _, name := range []string{sheetIncome, sheetBalance, sheetClassification} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	renderExpenseSheet(f, bold, data)
	renderIncomeSheet(f, bold, data)
	renderBalanceSheet(f, bold, data)
	renderClassificationSheet(f, bold, data)

	for _, name := range []string{sheetExpenses, sheetIncome, sheetBalance, sheetClassification} {
		if err := autosizeColumns(f, name); err != nil {
			return fmt.Errorf("autosize %s: %w", name, err)
		}
	}

	f.SetActiveSheet(0)
	return nil
}

func renderExpenseSheet(f *excelize.File, bold int, data reportData) {
	f.SetCellValue(sheetExpenses, "A1", "==== EXPENSES ====")
	f.SetCellStyle(sheetExpenses, "A1", "D1", bold)

	for i, h := range []string{"Date", "Category", "Description", "Amount"} {
		f.SetCellValue(sheetExpenses, fmt.Sprintf("%c2", 'A'+i), h)
	}
	f.SetCellStyle(sheetExpenses, "A2", "D2", bold)

	f.SetCellValue(sheetExpenses, "F2", "Total Expenses:")
	f.SetCellValue(sheetExpenses, "G2", core.FormatAmount(data.totalExpenses))
	f.SetCellStyle(sheetExpenses, "F2", "G2", bold)

	row := 3
	for _, e := range data.expenses {
		f.SetCellValue(sheetExpenses, fmt.Sprintf("A%d", row), e.Date())
		f.SetCellValue(sheetExpenses, fmt.Sprintf("B%d", row), e.Category)
		f.SetCellValue(sheetExpenses, fmt.Sprintf("C%d", row), e.Description)
		f.SetCellValue(sheetExpenses, fmt.Sprintf("D%d", row), core.FormatAmount(e.Amount))
		row++
	}

	f.SetCellValue(sheetExpenses, fmt.Sprintf("A%d", row), "Total Expenses")
	f.SetCellValue(sheetExpenses, fmt.Sprintf("D%d", row), core.FormatAmount(data.totalExpenses))
}

func renderIncomeSheet(f *excelize.File, bold int, data reportData) {
	f.SetCellValue(sheetIncome, "A1", "==== INCOME ====")
	f.SetCellStyle(sheetIncome, "A1", "C1", bold)

	for i, h := range []string{"Date", "Source", "Amount"} {
		f.SetCellValue(sheetIncome, fmt.Sprintf("%c2", 'A'+i), h)
	}
	f.SetCellStyle(sheetIncome, "A2", "C2", bold)

	if total, ok := data.incomeByMonth[data.filter.Key()]; data.filter.Active() && ok {
		f.SetCellValue(sheetIncome, "F2", fmt.Sprintf("Income for %s:", data.filter.Key()))
		f.SetCellValue(sheetIncome, "G2", core.FormatAmount(total))
	} else {
		f.SetCellValue(sheetIncome, "F2", "Income by Month:")
	}
	f.SetCellStyle(sheetIncome, "F2", "G2", bold)

	row := 3
	for _, in := range data.income {
		f.SetCellValue(sheetIncome, fmt.Sprintf("A%d", row), in.Date())
		f.SetCellValue(sheetIncome, fmt.Sprintf("B%d", row), in.Source)
		f.SetCellValue(sheetIncome, fmt.Sprintf("C%d", row), core.FormatAmount(in.Amount))
		row++
	}
	f.SetCellValue(sheetIncome, fmt.Sprintf("A%d", row), "Total Income")
	f.SetCellValue(sheetIncome, fmt.Sprintf("C%d", row), core.FormatAmount(data.totalIncome))

	// The month breakdown sits at a fixed anchor. Long income listings share
	// rows with it in columns A-C, which is accepted layout behavior.
	f.SetCellValue(sheetIncome, "F5", "==== INCOME BY MONTH ====")
	f.SetCellStyle(sheetIncome, "F5", "G5", bold)
	f.SetCellValue(sheetIncome, "F6", "Month")
	f.SetCellValue(sheetIncome, "G6", "Total Income")
	f.SetCellStyle(sheetIncome, "F6", "G6", bold)

	mrow := 7
	for _, key := range data.incomeMonths {
		f.SetCellValue(sheetIncome, fmt.Sprintf("F%d", mrow), string(key))
		f.SetCellValue(sheetIncome, fmt.Sprintf("G%d", mrow), core.FormatAmount(data.incomeByMonth[key]))
		mrow++
	}
}

func renderBalanceSheet(f *excelize.File, bold int, data reportData) {
	f.SetCellValue(sheetBalance, "A1", fmt.Sprintf("==== REMAINING BALANCE AS OF %s ====", data.today))
	f.SetCellStyle(sheetBalance, "A1", "B1", bold)

	f.SetCellValue(sheetBalance, "A2", "Balance")
	f.SetCellValue(sheetBalance, "B2", core.FormatAmount(data.balance))
	f.SetCellStyle(sheetBalance, "A2", "B2", bold)
}

func renderClassificationSheet(f *excelize.File, bold int, data reportData) {
	f.SetCellValue(sheetClassification, "A1", "==== EXPENSE CLASSIFICATION BY MONTH (Uber, Food, Airtime, Other) ====")
	f.SetCellStyle(sheetClassification, "A1", "F1", bold)

	for i, h := range []string{"Month", "Uber", "Food", "Airtime", "Other", "Total"} {
		f.SetCellValue(sheetClassification, fmt.Sprintf("%c2", 'A'+i), h)
	}
	f.SetCellStyle(sheetClassification, "A2", "F2", bold)

	row := 3
	for _, key := range data.classMonths {
		t := data.classByMonth[key]
		f.SetCellValue(sheetClassification, fmt.Sprintf("A%d", row), string(key))
		f.SetCellValue(sheetClassification, fmt.Sprintf("B%d", row), core.FormatAmount(t.Uber))
		f.SetCellValue(sheetClassification, fmt.Sprintf("C%d", row), core.FormatAmount(t.Food))
		f.SetCellValue(sheetClassification, fmt.Sprintf("D%d", row), core.FormatAmount(t.Airtime))
		f.SetCellValue(sheetClassification, fmt.Sprintf("E%d", row), core.FormatAmount(t.Other))
		f.SetCellValue(sheetClassification, fmt.Sprintf("F%d", row), core.FormatAmount(t.Total()))
		row++
	}
}

// autosizeColumns widens columns A through L to fit their longest content.
// excelize has no native autofit, so one rune of content counts as one unit
// of width, padded and clamped to keep the sheet readable.
func autosizeColumns(f *excelize.File, sheet string) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}

	var longest [autosizeLastCol]int
	for _, row := range rows {
		for i, cell := range row {
			if i >= autosizeLastCol {
				break
			}
			if n := utf8.RuneCountInString(cell); n > longest[i] {
				longest[i] = n
			}
		}
	}

	for i := range longest {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := float64(longest[i]) + 2
		if width < minColWidth {
			width = minColWidth
		}
		if width > maxColWidth {
			width = maxColWidth
		}
		if err := f.SetColWidth(sheet, name, name, width); err != nil {
			return err
		}
	}
	return nil
}
