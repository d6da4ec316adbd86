// Package ledger computes totals and month-bucketed series over payments and
// expenses. Every function is pure: inputs are never modified and the same
// inputs always give the same result.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"villaledger/internal/core"
)

// MatchMode decides how a record's stored month is matched against a
// calendar month of the target year.
type MatchMode int

const (
	// MatchYearMonth requires the full "YYYY-MM" to equal the target month.
	MatchYearMonth MatchMode = iota
	// MatchMonthOnly compares only the part after the '-' with the target
	// month number, so a record from another year with the same month number
	// lands in the same bucket. Kept for reports that must stay identical to
	// the old dashboard.
	MatchMonthOnly
)

// MonthPoint is one bucket of the 12-month income/expense series.
type MonthPoint struct {
	Month   string     `json:"month"` // "Jan".."Dec"
	Number  int        `json:"number"`
	Income  core.Money `json:"income"`
	Expense core.Money `json:"expense"`
}

// MonthCount is the number of payment rows recorded for a month.
type MonthCount struct {
	Month core.Month `json:"month"`
	Name  string     `json:"name"` // "January".."December"
	Count int        `json:"count"`
}

// ExpenseGroup is the expense listing of one stored month.
type ExpenseGroup struct {
	Month    core.Month     `json:"month"`
	Label    string         `json:"label"`
	Total    core.Money     `json:"total"`
	Expenses []core.Expense `json:"expenses"`
}

// TotalIncome sums every payment amount. Amounts that could not be read are
// already zero in the snapshot.
func TotalIncome(payments []core.Payment) core.Money {
	var total core.Money
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// TotalExpenses sums every expense amount.
func TotalExpenses(expenses []core.Expense) core.Money {
	var total core.Money
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// Balance is income minus expenses and may be negative.
func Balance(payments []core.Payment, expenses []core.Expense) core.Money {
	return TotalIncome(payments).Sub(TotalExpenses(expenses))
}

// MonthlySeries returns exactly 12 points, January to December of year.
// Months without records are zero.
func MonthlySeries(payments []core.Payment, expenses []core.Expense, year int, mode MatchMode) []MonthPoint {
	series := make([]MonthPoint, 12)
	for i := range series {
		series[i] = MonthPoint{Month: core.ShortMonthName(i + 1), Number: i + 1}
	}
	for _, p := range payments {
		if n := bucket(p.Month, year, mode); n > 0 {
			series[n-1].Income = series[n-1].Income.Add(p.Amount)
		}
	}
	for _, e := range expenses {
		if n := bucket(e.Month, year, mode); n > 0 {
			series[n-1].Expense = series[n-1].Expense.Add(e.Amount)
		}
	}
	return series
}

// bucket returns the 1-based series index m falls in, or 0 if none.
func bucket(m core.Month, year int, mode MatchMode) int {
	switch mode {
	case MatchMonthOnly:
		part := m.MonthPart()
		for n := 1; n <= 12; n++ {
			if part == fmt.Sprintf("%02d", n) {
				return n
			}
		}
		return 0
	default:
		if !m.Valid() || m.Year() != year {
			return 0
		}
		return m.Number()
	}
}

// PaymentCountByMonth counts payment rows per month of year. Only months with
// at least one payment appear, in calendar order.
func PaymentCountByMonth(payments []core.Payment, year int) []MonthCount {
	counts := map[int]int{}
	for _, p := range payments {
		if p.Month.Valid() && p.Month.Year() == year {
			counts[p.Month.Number()]++
		}
	}
	out := make([]MonthCount, 0, len(counts))
	for n := 1; n <= 12; n++ {
		c, ok := counts[n]
		if !ok {
			continue
		}
		out = append(out, MonthCount{
			Month: core.MonthOf(year, n),
			Name:  time.Month(n).String(),
			Count: c,
		})
	}
	return out
}

// GroupExpensesByMonth groups expenses by their stored month, most recent
// month first. Expenses keep their input order inside a group.
func GroupExpensesByMonth(expenses []core.Expense) []ExpenseGroup {
	index := map[core.Month]int{}
	var groups []ExpenseGroup
	for _, e := range expenses {
		i, ok := index[e.Month]
		if !ok {
			i = len(groups)
			index[e.Month] = i
			groups = append(groups, ExpenseGroup{Month: e.Month, Label: e.Month.Label()})
		}
		groups[i].Expenses = append(groups[i].Expenses, e)
		groups[i].Total = groups[i].Total.Add(e.Amount)
	}
	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].Month > groups[b].Month
	})
	return groups
}
