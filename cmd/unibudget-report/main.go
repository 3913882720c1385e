package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"unibudget/internal/cli"
	"unibudget/internal/core"
	"unibudget/internal/report"
)

type Params struct {
	Month string `descr:"Restrict the report to one month (YYYY-MM)"`
	Out   string `descr:"Write the xlsx workbook to this path instead of printing tables"`
}

func main() {
	boa.NewCmdT[Params]("unibudget-report").
		WithShort("Render the expense report in the terminal or as an xlsx file").
		WithLong("Reads the configured storage backend and either prints the monthly classification, income and balance tables, or writes the full four-sheet workbook to a file.").
		WithRunFunc(run).
		Run()
}

func run(params *Params) {
	cli.LoadEnvFile()

	// Logs would interleave with the rendered tables, so default to quiet.
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "error"
	}
	logger := cli.SetupLogger("report", level)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	store, cleanup := cli.OpenStore(ctx, logger, cfg)
	defer func() { _ = cleanup() }()

	filter := core.ParseMonthFilter(params.Month)

	if params.Out != "" {
		builder := report.NewBuilder(store, logger.Logger)
		data, err := builder.Generate(ctx, filter)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(params.Out, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", params.Out, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s (%d bytes)\n", params.Out, len(data))
		return
	}

	expenses, err := store.Expenses(ctx, filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching expenses: %v\n", err)
		os.Exit(1)
	}
	income, err := store.Income(ctx, filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching income: %v\n", err)
		os.Exit(1)
	}

	renderSummary(os.Stdout, expenses, income, filter)
}

func renderSummary(w io.Writer, expenses []core.ExpenseRecord, income []core.IncomeRecord, filter core.MonthFilter) {
	totalExpenses := core.SumExpenses(expenses)
	totalIncome := core.SumIncome(income)
	balance := core.Balance(totalIncome, totalExpenses)

	if filter.Active() {
		fmt.Fprintf(w, "Records for %s\n\n", filter.Key())
	} else {
		fmt.Fprintf(w, "All records\n\n")
	}

	months, classified := core.ClassifyByMonth(expenses)
	ct := table.NewWriter()
	ct.SetOutputMirror(w)
	ct.AppendHeader(table.Row{"Month", "Uber", "Food", "Airtime", "Other", "Total"})
	for _, month := range months {
		c := classified[month]
		ct.AppendRow(table.Row{
			string(month),
			core.FormatAmount(c.Uber),
			core.FormatAmount(c.Food),
			core.FormatAmount(c.Airtime),
			core.FormatAmount(c.Other),
			core.FormatAmount(c.Total()),
		})
	}
	ct.AppendSeparator()
	ct.AppendFooter(table.Row{"", "", "", "", text.Bold.Sprint("Expenses"), text.Bold.Sprint(core.FormatAmount(totalExpenses))})
	ct.SetStyle(table.StyleRounded)
	ct.Style().Format.Header = text.FormatDefault
	ct.Style().Format.Footer = text.FormatDefault
	ct.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	ct.Render()

	fmt.Fprintln(w)

	incomeMonths, incomeByMonth := core.IncomeByMonth(income)
	it := table.NewWriter()
	it.SetOutputMirror(w)
	it.AppendHeader(table.Row{"Month", "Income"})
	for _, month := range incomeMonths {
		it.AppendRow(table.Row{string(month), core.FormatAmount(incomeByMonth[month])})
	}
	it.AppendSeparator()
	it.AppendFooter(table.Row{text.Bold.Sprint("Income"), text.Bold.Sprint(core.FormatAmount(totalIncome))})
	it.SetStyle(table.StyleRounded)
	it.Style().Format.Header = text.FormatDefault
	it.Style().Format.Footer = text.FormatDefault
	it.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	it.Render()

	fmt.Fprintln(w)

	balanceStr := text.FgGreen.Sprint(core.FormatAmount(balance))
	if balance.IsNegative() {
		balanceStr = text.FgRed.Sprint(core.FormatAmount(balance))
	}
	fmt.Fprintf(w, "Balance: %s\n", balanceStr)
}
