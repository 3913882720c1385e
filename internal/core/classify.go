package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// The classification is deliberately closed: exactly these four buckets,
// no matter how many distinct raw category values the table holds.
const (
	CategoryUber    = "uber"
	CategoryFood    = "food"
	CategoryAirtime = "airtime"
	CategoryOther   = "other"
)

// CategoryTotals accumulates expense amounts into the four fixed buckets.
type CategoryTotals struct {
	Uber    decimal.Decimal
	Food    decimal.Decimal
	Airtime decimal.Decimal
	Other   decimal.Decimal
}

// Total returns the sum of all four buckets. For any classified input set it
// equals the sum of the input amounts: nothing is dropped or double-counted.
func (t CategoryTotals) Total() decimal.Decimal {
	return t.Uber.Add(t.Food).Add(t.Airtime).Add(t.Other)
}

// Classify folds expense rows into CategoryTotals. Matching is on the
// lower-cased category; anything that is not uber, food or airtime lands in
// the other bucket, unknown values and empty strings included.
func Classify(rows []ExpenseRecord) CategoryTotals {
	var t CategoryTotals
	for _, r := range rows {
		switch strings.ToLower(r.Category) {
		case CategoryUber:
			t.Uber = t.Uber.Add(r.Amount)
		case CategoryFood:
			t.Food = t.Food.Add(r.Amount)
		case CategoryAirtime:
			t.Airtime = t.Airtime.Add(r.Amount)
		default:
			t.Other = t.Other.Add(r.Amount)
		}
	}
	return t
}
