package core

import (
	"errors"
	"testing"
	"time"
)

func TestMonthValidate(t *testing.T) {
	cases := []struct {
		m  Month
		ok bool
	}{
		{"2025-01", true},
		{"2025-12", true},
		{"2025-13", false},
		{"2025-00", false},
		{"2025-1", false},
		{"25-01", false},
		{"", false},
		{"2025/01", false},
	}
	for _, tc := range cases {
		err := tc.m.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.m, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidMonth) {
			t.Fatalf("%q expected ErrInvalidMonth, got %v", tc.m, err)
		}
	}
}

func TestMonthParts(t *testing.T) {
	m := MonthOf(2025, 3)
	if m != "2025-03" || m.Year() != 2025 || m.Number() != 3 {
		t.Fatalf("unexpected month %q year=%d number=%d", m, m.Year(), m.Number())
	}
	if got := m.Label(); got != "March 2025" {
		t.Fatalf("label: %q", got)
	}
	if got := Month("2024-07").MonthPart(); got != "07" {
		t.Fatalf("month part: %q", got)
	}
	if got := Month("garbage").MonthPart(); got != "" {
		t.Fatalf("month part of garbage: %q", got)
	}
	if Month("bad").Year() != 0 || Month("bad").Number() != 0 {
		t.Fatalf("malformed month should yield zero parts")
	}
	if got := MonthOfTime(time.Date(2024, 11, 30, 23, 0, 0, 0, time.UTC)); got != "2024-11" {
		t.Fatalf("month of time: %q", got)
	}
}

func TestPaymentValidate(t *testing.T) {
	good := Payment{VillaID: "1", Month: "2025-01", Amount: Money{Cents: 50000}, Mode: "UPI"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		p   Payment
		err error
	}{
		{Payment{VillaID: "", Month: "2025-01", Amount: Money{Cents: 1}, Mode: "UPI"}, ErrUnknownVilla},
		{Payment{VillaID: "1", Month: "2025-1", Amount: Money{Cents: 1}, Mode: "UPI"}, ErrInvalidMonth},
		{Payment{VillaID: "1", Month: "2025-01", Amount: Money{Cents: 0}, Mode: "UPI"}, ErrInvalidAmount},
		{Payment{VillaID: "1", Month: "2025-01", Amount: Money{Cents: 1}, Mode: " "}, ErrEmptyMode},
	}
	for i, tc := range bads {
		if err := tc.p.Validate(); !errors.Is(err, tc.err) {
			t.Fatalf("case %d expected %v, got %v", i, tc.err, err)
		}
	}
}

func TestExpenseValidate(t *testing.T) {
	d := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	good := Expense{Title: "Gardening", Amount: Money{Cents: 10000}, Date: d, Month: MonthOfTime(d)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Title: "", Amount: Money{Cents: 1}, Date: d, Month: "2025-01"},
		{Title: "a", Amount: Money{Cents: 0}, Date: d, Month: "2025-01"},
		{Title: "a", Amount: Money{Cents: 1}, Date: time.Time{}, Month: "2025-01"},
		{Title: "a", Amount: Money{Cents: 1}, Date: d, Month: "2025-02"}, // month disagrees with date
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestVillaLabelAndSession(t *testing.T) {
	v := Villa{ID: "7", VillaNo: "A-12", OwnerName: "R. Kumar", Email: "r@example.com", IsBoardMember: true}
	if got := v.Label(); got != "A-12 - R. Kumar" {
		t.Fatalf("label: %q", got)
	}
	if got := (Villa{VillaNo: "B-1"}).Label(); got != "B-1" {
		t.Fatalf("label without owner: %q", got)
	}
	s := SessionForVilla(v)
	if s.IsAnonymous() || !s.IsBoardMember || s.VillaID != "7" {
		t.Fatalf("unexpected session %+v", s)
	}
	if !Anonymous.IsAnonymous() {
		t.Fatalf("anonymous session should be anonymous")
	}
}
