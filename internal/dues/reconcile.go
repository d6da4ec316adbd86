// Package dues reconciles per-villa payment history against the months in
// which the association collected any dues.
//
// A month is "active" when at least one villa paid in it. A villa missed an
// active month when it has no payment row for it. Several rows for the same
// villa and month count as a single paid month; DuplicatePayments reports
// them separately as a data-quality anomaly.
package dues

import (
	"sort"
	"strings"

	"villaledger/internal/core"
)

// MissedMonth is one bar of the missed-payments chart. Missed is always 1.
type MissedMonth struct {
	Month  core.Month `json:"month"`
	Missed int        `json:"missed"`
}

// Partition splits the roster by payment status for one month.
type Partition struct {
	Paid   []core.Villa `json:"paid"`
	Unpaid []core.Villa `json:"unpaid"`
}

// Duplicate is a villa with more than one payment row in the same month.
type Duplicate struct {
	VillaID    string     `json:"villa_id"`
	Month      core.Month `json:"month"`
	Count      int        `json:"count"`
	PaymentIDs []string   `json:"payment_ids"`
}

func sameVilla(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

// ActiveMonths returns the distinct well formed months that have at least one
// payment, ascending.
func ActiveMonths(payments []core.Payment) []core.Month {
	seen := map[core.Month]struct{}{}
	var out []core.Month
	for _, p := range payments {
		if !p.Month.Valid() {
			continue
		}
		if _, ok := seen[p.Month]; ok {
			continue
		}
		seen[p.Month] = struct{}{}
		out = append(out, p.Month)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PaidMonths returns the set of months in which villaID has at least one
// payment.
func PaidMonths(payments []core.Payment, villaID string) map[core.Month]struct{} {
	paid := map[core.Month]struct{}{}
	if strings.TrimSpace(villaID) == "" {
		return paid
	}
	for _, p := range payments {
		if sameVilla(p.VillaID, villaID) {
			paid[p.Month] = struct{}{}
		}
	}
	return paid
}

// MissedMonths returns the active months in which villaID has no payment,
// oldest first. An empty villaID yields an empty result.
func MissedMonths(payments []core.Payment, villaID string) []MissedMonth {
	out := []MissedMonth{}
	if strings.TrimSpace(villaID) == "" {
		return out
	}
	paid := PaidMonths(payments, villaID)
	for _, m := range ActiveMonths(payments) {
		if _, ok := paid[m]; ok {
			continue
		}
		out = append(out, MissedMonth{Month: m, Missed: 1})
	}
	return out
}

// PartitionByPaymentStatus splits villas into those with at least one payment
// for month and those without. Input order is kept within each side.
func PartitionByPaymentStatus(payments []core.Payment, villas []core.Villa, month core.Month) Partition {
	payers := map[string]struct{}{}
	for _, p := range payments {
		if p.Month == month {
			payers[strings.TrimSpace(p.VillaID)] = struct{}{}
		}
	}
	part := Partition{Paid: []core.Villa{}, Unpaid: []core.Villa{}}
	for _, v := range villas {
		if _, ok := payers[strings.TrimSpace(v.ID)]; ok {
			part.Paid = append(part.Paid, v)
		} else {
			part.Unpaid = append(part.Unpaid, v)
		}
	}
	return part
}

// DuplicatePayments lists every villa/month pair with more than one payment
// row, ordered by month then villa id.
func DuplicatePayments(payments []core.Payment) []Duplicate {
	type key struct {
		villa string
		month core.Month
	}
	groups := map[key]*Duplicate{}
	var order []key
	for _, p := range payments {
		k := key{strings.TrimSpace(p.VillaID), p.Month}
		d, ok := groups[k]
		if !ok {
			d = &Duplicate{VillaID: k.villa, Month: k.month}
			groups[k] = d
			order = append(order, k)
		}
		d.Count++
		d.PaymentIDs = append(d.PaymentIDs, p.ID)
	}
	out := []Duplicate{}
	for _, k := range order {
		if d := groups[k]; d.Count > 1 {
			out = append(out, *d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].VillaID < out[j].VillaID
	})
	return out
}

// VillaLabel returns the display label of villa id, or core.VillaNotFound
// when the roster has no such villa.
func VillaLabel(villas []core.Villa, id string) string {
	for _, v := range villas {
		if sameVilla(v.ID, id) {
			return v.Label()
		}
	}
	return core.VillaNotFound
}

// PaidVillaLabels returns the villa number of every payment row in month, in
// payment order. Payments whose villa is gone show as "Villa <id>".
func PaidVillaLabels(payments []core.Payment, villas []core.Villa, month core.Month) []string {
	out := []string{}
	for _, p := range payments {
		if p.Month != month {
			continue
		}
		label := "Villa " + p.VillaID
		for _, v := range villas {
			if sameVilla(v.ID, p.VillaID) {
				label = v.VillaNo
				break
			}
		}
		out = append(out, label)
	}
	return out
}
