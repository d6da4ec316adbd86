package dues

import (
	"reflect"
	"testing"

	"villaledger/internal/core"
)

func villaIDs(vs []core.Villa) []string {
	out := []string{}
	for _, v := range vs {
		out = append(out, v.ID)
	}
	return out
}

func TestMissedMonthsScenarioA(t *testing.T) {
	payments := []core.Payment{{VillaID: "1", Month: "2025-01", Amount: core.Money{Cents: 50000}}}

	got := MissedMonths(payments, "2")
	want := []MissedMonth{{Month: "2025-01", Missed: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MissedMonths(v2) = %+v, want %+v", got, want)
	}
	if got := MissedMonths(payments, "1"); len(got) != 0 {
		t.Fatalf("MissedMonths(v1) = %+v, want empty", got)
	}
}

func TestMissedMonths(t *testing.T) {
	payments := []core.Payment{
		{VillaID: "1", Month: "2025-03"},
		{VillaID: "2", Month: "2025-01"},
		{VillaID: "1", Month: "2024-12"},
		{VillaID: "3", Month: "2025-02"},
		{VillaID: "3", Month: "oops"},
	}

	tests := []struct {
		name    string
		villaID string
		want    []core.Month
	}{
		{name: "sorted ascending", villaID: "1", want: []core.Month{"2025-01", "2025-02"}},
		{name: "numeric-looking id with spaces", villaID: " 2 ", want: []core.Month{"2024-12", "2025-02", "2025-03"}},
		{name: "unknown villa misses every active month", villaID: "99", want: []core.Month{"2024-12", "2025-01", "2025-02", "2025-03"}},
		{name: "empty villa id", villaID: "", want: nil},
		{name: "blank villa id", villaID: "   ", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MissedMonths(payments, tt.villaID)
			var months []core.Month
			for _, m := range got {
				if m.Missed != 1 {
					t.Fatalf("missed flag = %d, want 1", m.Missed)
				}
				months = append(months, m.Month)
			}
			if !reflect.DeepEqual(months, tt.want) {
				t.Errorf("MissedMonths(%q) = %v, want %v", tt.villaID, months, tt.want)
			}
		})
	}
}

func TestMissedMonthsProperties(t *testing.T) {
	payments := []core.Payment{
		{VillaID: "1", Month: "2025-01"}, {VillaID: "1", Month: "2025-01"},
		{VillaID: "2", Month: "2025-02"}, {VillaID: "3", Month: "2025-03"},
		{VillaID: "2", Month: "2025-03"},
	}
	active := map[core.Month]bool{}
	for _, m := range ActiveMonths(payments) {
		active[m] = true
	}
	for _, v := range []string{"1", "2", "3", "4"} {
		paid := PaidMonths(payments, v)
		for _, m := range MissedMonths(payments, v) {
			if !active[m.Month] {
				t.Fatalf("villa %s: missed month %s is not an active month", v, m.Month)
			}
			if _, ok := paid[m.Month]; ok {
				t.Fatalf("villa %s: month %s is both paid and missed", v, m.Month)
			}
		}
	}
}

func TestPartitionScenarioB(t *testing.T) {
	payments := []core.Payment{
		{VillaID: "1", Month: "2025-03", Amount: core.Money{Cents: 20000}},
		{VillaID: "2", Month: "2025-03", Amount: core.Money{Cents: 30000}},
	}
	villas := []core.Villa{{ID: "1"}, {ID: "2"}, {ID: "3"}}

	part := PartitionByPaymentStatus(payments, villas, "2025-03")
	if got := villaIDs(part.Paid); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Fatalf("paid = %v", got)
	}
	if got := villaIDs(part.Unpaid); !reflect.DeepEqual(got, []string{"3"}) {
		t.Fatalf("unpaid = %v", got)
	}
}

func TestPartitionIsExact(t *testing.T) {
	payments := []core.Payment{
		{VillaID: "2", Month: "2025-01"},
		{VillaID: "2", Month: "2025-01"},
		{VillaID: "9", Month: "2025-01"}, // dangling reference
		{VillaID: "4", Month: "2025-02"},
	}
	villas := []core.Villa{{ID: "4"}, {ID: "2"}, {ID: "1"}, {ID: "3"}}

	for _, m := range []core.Month{"2025-01", "2025-02", "2030-01"} {
		part := PartitionByPaymentStatus(payments, villas, m)
		if len(part.Paid)+len(part.Unpaid) != len(villas) {
			t.Fatalf("%s: partition sizes %d+%d != %d", m, len(part.Paid), len(part.Unpaid), len(villas))
		}
		seen := map[string]bool{}
		for _, v := range append(part.Paid, part.Unpaid...) {
			if seen[v.ID] {
				t.Fatalf("%s: villa %s in both sides", m, v.ID)
			}
			seen[v.ID] = true
		}
	}

	part := PartitionByPaymentStatus(payments, villas, "2025-01")
	if got := villaIDs(part.Unpaid); !reflect.DeepEqual(got, []string{"4", "1", "3"}) {
		t.Fatalf("input order not preserved: %v", got)
	}
	part = PartitionByPaymentStatus(nil, villas, "2025-01")
	if len(part.Paid) != 0 || len(part.Unpaid) != 4 {
		t.Fatalf("villas with no payments must all be unpaid: %+v", part)
	}
}

func TestDuplicatePayments(t *testing.T) {
	payments := []core.Payment{
		{ID: "p1", VillaID: "2", Month: "2025-02"},
		{ID: "p2", VillaID: "1", Month: "2025-01"},
		{ID: "p3", VillaID: "2", Month: "2025-02"},
		{ID: "p4", VillaID: "1", Month: "2025-02"},
		{ID: "p5", VillaID: " 1", Month: "2025-01"},
	}
	got := DuplicatePayments(payments)
	want := []Duplicate{
		{VillaID: "1", Month: "2025-01", Count: 2, PaymentIDs: []string{"p2", "p5"}},
		{VillaID: "2", Month: "2025-02", Count: 2, PaymentIDs: []string{"p1", "p3"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DuplicatePayments() = %+v, want %+v", got, want)
	}
	// duplicates still count as one paid month
	if missed := MissedMonths(payments, "1"); len(missed) != 0 {
		t.Fatalf("villa 1 should have no missed months, got %+v", missed)
	}
}

func TestLabels(t *testing.T) {
	villas := []core.Villa{{ID: "1", VillaNo: "A1", OwnerName: "Asha"}, {ID: "2", VillaNo: "B2"}}
	if got := VillaLabel(villas, "1"); got != "A1 - Asha" {
		t.Fatalf("label = %q", got)
	}
	if got := VillaLabel(villas, "7"); got != core.VillaNotFound {
		t.Fatalf("dangling label = %q", got)
	}
	payments := []core.Payment{
		{VillaID: "2", Month: "2025-05"},
		{VillaID: "7", Month: "2025-05"},
		{VillaID: "1", Month: "2025-06"},
	}
	got := PaidVillaLabels(payments, villas, "2025-05")
	if !reflect.DeepEqual(got, []string{"B2", "Villa 7"}) {
		t.Fatalf("PaidVillaLabels() = %v", got)
	}
}
