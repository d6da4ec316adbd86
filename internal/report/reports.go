package report

import (
	"fmt"
	"slices"
	"time"

	"villaledger/internal/core"
	"villaledger/internal/dues"
	"villaledger/internal/ledger"
	applog "villaledger/internal/log"
	"villaledger/internal/snapshot"
)

// Report names used for metrics and logs.
const (
	ReportDues    = "dues"
	ReportMonth   = "month_detail"
	ReportSummary = "summary"
)

type DuesReport struct {
	VillaID    string             `json:"villa_id"`
	VillaLabel string             `json:"villa_label"`
	Missed     []dues.MissedMonth `json:"missed"`
}

// VillaRef is the roster entry shown in month-detail lists.
type VillaRef struct {
	ID        string `json:"id"`
	VillaNo   string `json:"villaNo"`
	OwnerName string `json:"ownerName"`
	Label     string `json:"label"`
}

type MonthDetail struct {
	Month      core.Month `json:"month"`
	Label      string     `json:"label"`
	Paid       []VillaRef `json:"paid"`
	Unpaid     []VillaRef `json:"unpaid"`
	PaidLabels []string   `json:"paid_labels"`
}

// FinancialSummary is the dashboard overview for one year. Totals cover the
// whole ledger; Series and PaymentCounts are restricted to Year. Duplicates
// and Issues are only filled in for board members.
type FinancialSummary struct {
	Year            int                    `json:"year"`
	TotalIncome     core.Money             `json:"total_income"`
	TotalExpenses   core.Money             `json:"total_expenses"`
	Balance         core.Money             `json:"balance"`
	Series          []ledger.MonthPoint    `json:"series"`
	PaymentCounts   []ledger.MonthCount    `json:"payment_counts"`
	ExpensesByMonth []ledger.ExpenseGroup  `json:"expenses_by_month"`
	Duplicates      []dues.Duplicate       `json:"duplicates,omitempty"`
	Issues          []snapshot.RecordIssue `json:"issues,omitempty"`
	Generation      uint64                 `json:"generation"`
}

func (f *Facade) observe(report string, start time.Time) {
	f.metrics.ObserveReport(report, time.Since(start))
}

// DuesReport lists the active months villaID has not paid. A blank villaID
// yields an empty list.
func (f *Facade) DuesReport(session core.Session, villaID string) DuesReport {
	defer f.observe(ReportDues, time.Now())
	snap, _ := f.view()

	villas := snap.Villas()
	r := DuesReport{
		VillaID: villaID,
		Missed:  dues.MissedMonths(snap.Payments(), villaID),
	}
	if villaID != "" {
		r.VillaLabel = dues.VillaLabel(villas, villaID)
	}
	f.logger.Debug("Dues report computed",
		applog.FieldUser, user(session),
		applog.FieldVillaID, villaID,
		"missed", len(r.Missed))
	return r
}

// MonthDetail partitions the roster into paid and unpaid villas for month.
func (f *Facade) MonthDetail(session core.Session, month core.Month) MonthDetail {
	defer f.observe(ReportMonth, time.Now())
	snap, _ := f.view()

	payments := snap.Payments()
	villas := snap.Villas()
	part := dues.PartitionByPaymentStatus(payments, villas, month)
	d := MonthDetail{
		Month:      month,
		Label:      month.Label(),
		Paid:       refs(part.Paid),
		Unpaid:     refs(part.Unpaid),
		PaidLabels: dues.PaidVillaLabels(payments, villas, month),
	}
	f.logger.Debug("Month detail computed",
		applog.FieldUser, user(session),
		applog.FieldMonth, string(month),
		"paid", len(d.Paid),
		"unpaid", len(d.Unpaid))
	return d
}

// FinancialSummary computes totals, the 12-month series of year, payment
// counts and the grouped expense listing. Results are cached per snapshot
// generation, year and role.
func (f *Facade) FinancialSummary(session core.Session, year int) FinancialSummary {
	defer f.observe(ReportSummary, time.Now())
	snap, gen := f.view()

	key := fmt.Sprintf("%d:%d:%t", gen, year, session.IsBoardMember)
	if s, ok := f.summaries.Get(key); ok {
		f.metrics.CacheLookup(true)
		return s.clone()
	}
	f.metrics.CacheLookup(false)

	payments := snap.Payments()
	expenses := snap.Expenses()
	s := FinancialSummary{
		Year:            year,
		TotalIncome:     ledger.TotalIncome(payments),
		TotalExpenses:   ledger.TotalExpenses(expenses),
		Balance:         ledger.Balance(payments, expenses),
		Series:          ledger.MonthlySeries(payments, expenses, year, f.mode),
		PaymentCounts:   ledger.PaymentCountByMonth(payments, year),
		ExpensesByMonth: ledger.GroupExpensesByMonth(expenses),
		Generation:      gen,
	}
	if s.ExpensesByMonth == nil {
		s.ExpensesByMonth = []ledger.ExpenseGroup{}
	}
	if session.IsBoardMember {
		s.Duplicates = dues.DuplicatePayments(payments)
		s.Issues = snap.Issues()
	}

	if gen > 0 {
		f.summaries.Set(key, s.clone())
	}
	return s
}

// clone copies every slice so callers never share memory with the cache.
func (s FinancialSummary) clone() FinancialSummary {
	out := s
	out.Series = slices.Clone(s.Series)
	out.PaymentCounts = slices.Clone(s.PaymentCounts)
	out.Duplicates = slices.Clone(s.Duplicates)
	for i := range out.Duplicates {
		out.Duplicates[i].PaymentIDs = slices.Clone(s.Duplicates[i].PaymentIDs)
	}
	out.Issues = slices.Clone(s.Issues)
	out.ExpensesByMonth = slices.Clone(s.ExpensesByMonth)
	for i := range out.ExpensesByMonth {
		out.ExpensesByMonth[i].Expenses = slices.Clone(s.ExpensesByMonth[i].Expenses)
	}
	return out
}

func refs(villas []core.Villa) []VillaRef {
	out := make([]VillaRef, 0, len(villas))
	for _, v := range villas {
		out = append(out, VillaRef{ID: v.ID, VillaNo: v.VillaNo, OwnerName: v.OwnerName, Label: v.Label()})
	}
	return out
}

func user(s core.Session) string {
	if s.IsAnonymous() {
		return "anonymous"
	}
	return s.Email
}
