package core

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// MonthKey is the canonical "YYYY-MM" grouping and sort key. Year is four
	// digits and month is zero-padded, so descending lexical order equals
	// descending chronological order.
	MonthKey string

	// ExpenseRecord is one row of the expenses table, fetched once per export
	// and never mutated.
	ExpenseRecord struct {
		ID          int64
		Year        int
		Month       int
		Day         int
		Category    string
		Description string
		Amount      decimal.Decimal
	}

	// IncomeRecord is one row of the income table.
	IncomeRecord struct {
		ID     int64
		Year   int
		Month  int
		Day    int
		Source string
		Amount decimal.Decimal
	}

	// MonthFilter restricts fetches to a single year+month. The zero value
	// means "no filter". Use ParseMonthFilter or NewMonthFilter.
	MonthFilter struct {
		Year  int
		Month int
		valid bool
	}
)

var (
	ErrInvalidYear      = errors.New("invalid year")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptySource      = errors.New("empty income source")
	ErrEmptyDescription = errors.New("empty description")
)

var monthFilterPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// ParseMonthFilter turns a raw filter string into a MonthFilter. Only strings
// of the exact form "YYYY-MM" naming a real month (01-12) activate the filter;
// everything else, including "2024-13", is silently treated as no filter.
// Parsing never fails: a bad filter means an unfiltered fetch, not an error.
func ParseMonthFilter(raw string) MonthFilter {
	if !monthFilterPattern.MatchString(raw) {
		return MonthFilter{}
	}
	year, err := strconv.Atoi(raw[:4])
	if err != nil {
		return MonthFilter{}
	}
	month, err := strconv.Atoi(raw[5:])
	if err != nil {
		return MonthFilter{}
	}
	if month < 1 || month > 12 {
		return MonthFilter{}
	}
	return MonthFilter{Year: year, Month: month, valid: true}
}

// NewMonthFilter builds an active filter from known-good parts.
func NewMonthFilter(year, month int) MonthFilter {
	return MonthFilter{Year: year, Month: month, valid: true}
}

// Active reports whether the filter restricts fetches.
func (f MonthFilter) Active() bool {
	return f.valid
}

// Key returns the MonthKey the filter names. Only meaningful when Active.
func (f MonthFilter) Key() MonthKey {
	return MonthKeyOf(f.Year, f.Month)
}

// MonthKeyOf derives the "YYYY-MM" key from year and month.
func MonthKeyOf(year, month int) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", year, month))
}

// Date renders the record date as "YYYY-MM-DD".
func (r ExpenseRecord) Date() string {
	return fmt.Sprintf("%04d-%02d-%02d", r.Year, r.Month, r.Day)
}

// Key returns the month grouping key for the record.
func (r ExpenseRecord) Key() MonthKey {
	return MonthKeyOf(r.Year, r.Month)
}

func (r ExpenseRecord) Validate() error {
	if err := validateDate(r.Year, r.Month, r.Day); err != nil {
		return err
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(r.Description) == "" {
		return ErrEmptyDescription
	}
	if len(r.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Date renders the record date as "YYYY-MM-DD".
func (r IncomeRecord) Date() string {
	return fmt.Sprintf("%04d-%02d-%02d", r.Year, r.Month, r.Day)
}

// Key returns the month grouping key for the record.
func (r IncomeRecord) Key() MonthKey {
	return MonthKeyOf(r.Year, r.Month)
}

func (r IncomeRecord) Validate() error {
	if err := validateDate(r.Year, r.Month, r.Day); err != nil {
		return err
	}
	if strings.TrimSpace(r.Source) == "" {
		return ErrEmptySource
	}
	if len(r.Source) > 200 {
		return errors.New("source too long (max 200 characters)")
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func validateDate(year, month, day int) error {
	if year < 1 || year > 9999 {
		return ErrInvalidYear
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	if day < 1 || day > daysInMonth(year, month) {
		return ErrInvalidDay
	}
	return nil
}

// daysInMonth returns the day count of month in year, accounting for leap years.
func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
