package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"villaledger/internal/core"
	"villaledger/internal/report"
	"villaledger/internal/snapshot"
	"villaledger/internal/source"
	"villaledger/internal/source/memory"
)

var (
	board    = core.Session{Email: "board@villas.test", VillaID: "1", IsBoardMember: true}
	resident = core.Session{Email: "res@villas.test", VillaID: "2"}
)

type published struct {
	collection, operation, id string
}

type fakePublisher struct {
	sent []published
	err  error
}

func (p *fakePublisher) PublishLedgerChanged(_ context.Context, collection, operation, id string) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{collection, operation, id})
	return nil
}

func newFixture(t *testing.T, pub *fakePublisher) (*LedgerService, *report.Facade, *memory.Store) {
	t.Helper()
	store := memory.New()
	if err := store.Seed(core.CollectionVillas, []source.Record{
		{"id": 1, "villaNo": "A1", "ownerName": "Asha", "isBoardMember": true},
		{"id": 2, "villaNo": "A2", "ownerName": "Ravi"},
	}); err != nil {
		t.Fatal(err)
	}
	facade := report.New(snapshot.NewLoader(store, nil), report.Options{})
	if err := facade.Reload(context.Background()); err != nil {
		t.Fatalf("initial reload: %v", err)
	}
	var svc *LedgerService
	if pub != nil {
		svc = NewLedgerService(store, pub, facade, nil)
	} else {
		svc = NewLedgerService(store, nil, facade, nil)
	}
	svc.now = func() time.Time { return time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC) }
	return svc, facade, store
}

func TestRecordPaymentReloadsInProcess(t *testing.T) {
	svc, facade, _ := newFixture(t, nil)
	gen := facade.Generation()

	p, err := svc.RecordPayment(context.Background(), board, PaymentInput{
		VillaID: " 2 ", Month: "2025-03", Amount: "1500.50", Mode: "UPI",
	})
	if err != nil {
		t.Fatalf("RecordPayment() error = %v", err)
	}
	if p.ID == "" || p.VillaID != "2" || p.Amount.Cents != 150050 || p.RecordedBy != board.Email {
		t.Fatalf("RecordPayment() = %+v", p)
	}
	if facade.Generation() <= gen {
		t.Fatal("write should reload the facade when no publisher is configured")
	}

	detail := facade.MonthDetail(board, "2025-03")
	if len(detail.Paid) != 1 || detail.Paid[0].ID != "2" {
		t.Fatalf("MonthDetail().Paid = %+v, want villa 2", detail.Paid)
	}
	if got := facade.Snapshot().Payments()[0].CreatedAt; !got.Equal(svc.now()) {
		t.Errorf("CreatedAt = %v, want %v", got, svc.now())
	}
}

func TestRecordPaymentValidation(t *testing.T) {
	svc, _, store := newFixture(t, nil)

	tests := []struct {
		name    string
		session core.Session
		in      PaymentInput
		want    error
	}{
		{"resident", resident, PaymentInput{VillaID: "2", Month: "2025-03", Amount: "10", Mode: "Cash"}, core.ErrForbidden},
		{"anonymous", core.Anonymous, PaymentInput{VillaID: "2", Month: "2025-03", Amount: "10", Mode: "Cash"}, core.ErrForbidden},
		{"unknown villa", board, PaymentInput{VillaID: "9", Month: "2025-03", Amount: "10", Mode: "Cash"}, core.ErrUnknownVilla},
		{"bad month", board, PaymentInput{VillaID: "2", Month: "March", Amount: "10", Mode: "Cash"}, core.ErrInvalidMonth},
		{"zero amount", board, PaymentInput{VillaID: "2", Month: "2025-03", Amount: "0", Mode: "Cash"}, core.ErrInvalidAmount},
		{"garbage amount", board, PaymentInput{VillaID: "2", Month: "2025-03", Amount: "ten", Mode: "Cash"}, core.ErrInvalidAmount},
		{"no mode", board, PaymentInput{VillaID: "2", Month: "2025-03", Amount: "10"}, core.ErrEmptyMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordPayment(context.Background(), tt.session, tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("RecordPayment() error = %v, want %v", err, tt.want)
			}
			if tt.want != core.ErrForbidden && !errors.Is(err, ErrValidation) {
				t.Errorf("input errors should wrap ErrValidation, got %v", err)
			}
		})
	}

	rows, _ := store.SelectAll(context.Background(), core.CollectionPayments)
	if len(rows) != 0 {
		t.Fatalf("rejected payments were stored: %v", rows)
	}
}

func TestAddExpensePublishes(t *testing.T) {
	pub := &fakePublisher{}
	svc, facade, _ := newFixture(t, pub)
	gen := facade.Generation()

	e, err := svc.AddExpense(context.Background(), board, ExpenseInput{Title: "Garden", Amount: "250", Date: "2025-02-14"})
	if err != nil {
		t.Fatalf("AddExpense() error = %v", err)
	}
	if e.Month != "2025-02" || e.Amount.Cents != 25000 || e.AddedBy != board.Email {
		t.Fatalf("AddExpense() = %+v", e)
	}
	if len(pub.sent) != 1 || pub.sent[0] != (published{core.CollectionExpenses, "create", e.ID}) {
		t.Fatalf("published = %+v", pub.sent)
	}
	if facade.Generation() != gen {
		t.Fatal("with a publisher the reload is left to the worker")
	}

	if err := facade.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := facade.FinancialSummary(board, 2025).TotalExpenses.Cents; got != 25000 {
		t.Fatalf("TotalExpenses = %d, want 25000", got)
	}
}

func TestPublishFailureFallsBackToReload(t *testing.T) {
	pub := &fakePublisher{err: errors.New("circuit breaker is open")}
	svc, facade, _ := newFixture(t, pub)
	gen := facade.Generation()

	if _, err := svc.AddExpense(context.Background(), board, ExpenseInput{Title: "Lights", Amount: "12.5", Date: "2025-01-03"}); err != nil {
		t.Fatalf("AddExpense() error = %v", err)
	}
	if facade.Generation() <= gen {
		t.Fatal("a failed publish should reload in-process")
	}
}

func TestAddExpenseValidation(t *testing.T) {
	svc, _, _ := newFixture(t, nil)
	tests := []struct {
		name string
		in   ExpenseInput
		want error
	}{
		{"empty title", ExpenseInput{Title: " ", Amount: "1", Date: "2025-01-01"}, core.ErrEmptyTitle},
		{"bad amount", ExpenseInput{Title: "x", Amount: "-4", Date: "2025-01-01"}, core.ErrInvalidAmount},
		{"bad date", ExpenseInput{Title: "x", Amount: "4", Date: "01/01/2025"}, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AddExpense(context.Background(), board, tt.in); !errors.Is(err, tt.want) {
				t.Fatalf("AddExpense() error = %v, want %v", err, tt.want)
			}
		})
	}
	if _, err := svc.AddExpense(context.Background(), resident, ExpenseInput{Title: "x", Amount: "4", Date: "2025-01-01"}); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("resident AddExpense() error = %v", err)
	}
}

func TestDelete(t *testing.T) {
	pub := &fakePublisher{}
	svc, _, _ := newFixture(t, pub)

	p, err := svc.RecordPayment(context.Background(), board, PaymentInput{VillaID: "1", Month: "2025-01", Amount: "5", Mode: "Cash"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.DeletePayment(context.Background(), resident, p.ID); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("resident DeletePayment() error = %v", err)
	}
	if err := svc.DeletePayment(context.Background(), board, p.ID); err != nil {
		t.Fatalf("DeletePayment() error = %v", err)
	}
	if err := svc.DeletePayment(context.Background(), board, p.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second DeletePayment() error = %v, want ErrNotFound", err)
	}
	if err := svc.DeleteExpense(context.Background(), board, " "); !errors.Is(err, ErrValidation) {
		t.Fatalf("DeleteExpense(blank) error = %v", err)
	}
	if last := pub.sent[len(pub.sent)-1]; last != (published{core.CollectionPayments, "delete", p.ID}) {
		t.Fatalf("last published = %+v", last)
	}
}
