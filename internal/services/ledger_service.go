package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"villaledger/internal/amqp"
	"villaledger/internal/core"
	applog "villaledger/internal/log"
	"villaledger/internal/snapshot"
	"villaledger/internal/source"
)

// ErrValidation wraps every input error returned by the write service.
var ErrValidation = errors.New("validation failed")

// Reloader is the part of the reporting facade the write path needs: the
// installed snapshot for roster checks and a way to invalidate it.
type Reloader interface {
	Reload(ctx context.Context) error
	Snapshot() *snapshot.Snapshot
}

// PaymentInput is a payment as entered by a board member.
type PaymentInput struct {
	VillaID string `json:"villa_id"`
	Month   string `json:"month"`
	Amount  string `json:"amount"`
	Mode    string `json:"mode"`
	Remarks string `json:"remarks"`
}

// ExpenseInput is an expense as entered by a board member. Date is
// YYYY-MM-DD; the month is derived from it.
type ExpenseInput struct {
	Title  string `json:"title"`
	Amount string `json:"amount"`
	Date   string `json:"date"`
}

// LedgerService writes payments and expenses through the store and makes
// the change visible to reports, either by publishing a ledger change for
// the reload worker or by reloading in-process.
type LedgerService struct {
	store     source.RecordWriter
	publisher amqp.Publisher
	reloader  Reloader
	logger    *applog.Logger
	now       func() time.Time
}

// NewLedgerService creates the write service. publisher may be nil, in
// which case every write reloads the facade directly.
func NewLedgerService(store source.RecordWriter, publisher amqp.Publisher, reloader Reloader, logger *applog.Logger) *LedgerService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		reloader:  reloader,
		logger:    logger.WithComponent(applog.ComponentLedger),
		now:       time.Now,
	}
}

// RecordPayment validates and stores a payment for a villa of the roster.
func (s *LedgerService) RecordPayment(ctx context.Context, session core.Session, in PaymentInput) (core.Payment, error) {
	if !session.IsBoardMember {
		return core.Payment{}, core.ErrForbidden
	}

	p, err := s.paymentFromInput(in)
	if err != nil {
		return core.Payment{}, err
	}
	p.RecordedBy = session.Email
	p.CreatedAt = s.now().UTC()

	id, err := s.store.Insert(ctx, core.CollectionPayments, source.Record{
		"villa_id":    p.VillaID,
		"month":       string(p.Month),
		"amount":      p.Amount.String(),
		"mode":        p.Mode,
		"remarks":     p.Remarks,
		"recorded_by": p.RecordedBy,
		"created_at":  p.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return core.Payment{}, fmt.Errorf("save payment: %w", err)
	}
	p.ID = id

	s.logger.InfoContext(ctx, "Payment recorded",
		applog.NewFields().
			WithRecord(core.CollectionPayments, id).
			WithPayment(p.VillaID, string(p.Month), p.Amount.String(), session.Email).
			ToSlice()...)

	s.changed(ctx, core.CollectionPayments, amqp.OperationCreate, id)
	return p, nil
}

// AddExpense validates and stores an expense.
func (s *LedgerService) AddExpense(ctx context.Context, session core.Session, in ExpenseInput) (core.Expense, error) {
	if !session.IsBoardMember {
		return core.Expense{}, core.ErrForbidden
	}

	e, err := expenseFromInput(in)
	if err != nil {
		return core.Expense{}, err
	}
	e.AddedBy = session.Email

	id, err := s.store.Insert(ctx, core.CollectionExpenses, source.Record{
		"title":    e.Title,
		"amount":   e.Amount.String(),
		"date":     e.Date.Format("2006-01-02"),
		"month":    string(e.Month),
		"added_by": e.AddedBy,
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	e.ID = id

	s.logger.InfoContext(ctx, "Expense added",
		applog.FieldRecordID, id,
		applog.FieldMonth, string(e.Month),
		applog.FieldAmount, e.Amount.String(),
		applog.FieldUser, session.Email)

	s.changed(ctx, core.CollectionExpenses, amqp.OperationCreate, id)
	return e, nil
}

func (s *LedgerService) DeletePayment(ctx context.Context, session core.Session, id string) error {
	return s.delete(ctx, session, core.CollectionPayments, id)
}

func (s *LedgerService) DeleteExpense(ctx context.Context, session core.Session, id string) error {
	return s.delete(ctx, session, core.CollectionExpenses, id)
}

func (s *LedgerService) delete(ctx context.Context, session core.Session, collection, id string) error {
	if !session.IsBoardMember {
		return core.ErrForbidden
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: empty id", ErrValidation)
	}
	if err := s.store.Delete(ctx, collection, id); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Record deleted",
		applog.FieldCollection, collection,
		applog.FieldRecordID, id,
		applog.FieldUser, session.Email)

	s.changed(ctx, collection, amqp.OperationDelete, id)
	return nil
}

// changed makes a completed write visible. The write itself already
// succeeded, so failures here are logged and not returned.
func (s *LedgerService) changed(ctx context.Context, collection, operation, id string) {
	if s.publisher != nil {
		err := s.publisher.PublishLedgerChanged(ctx, collection, operation, id)
		if err == nil {
			return
		}
		s.logger.ErrorContext(ctx, "Failed to publish ledger change, reloading in-process",
			applog.FieldCollection, collection,
			applog.FieldRecordID, id,
			applog.FieldError, err.Error())
	}
	if s.reloader == nil {
		return
	}
	if err := s.reloader.Reload(ctx); err != nil {
		s.logger.WarnContext(ctx, "Reload after write failed",
			applog.FieldCollection, collection,
			applog.FieldError, err.Error())
	}
}

func (s *LedgerService) paymentFromInput(in PaymentInput) (core.Payment, error) {
	villaID := strings.TrimSpace(in.VillaID)
	if s.reloader != nil {
		if snap := s.reloader.Snapshot(); snap != nil {
			if _, ok := snap.Villa(villaID); !ok {
				return core.Payment{}, fmt.Errorf("%w: %w %q", ErrValidation, core.ErrUnknownVilla, villaID)
			}
		}
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Payment{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	p := core.Payment{
		VillaID: villaID,
		Month:   core.Month(strings.TrimSpace(in.Month)),
		Amount:  amount,
		Mode:    strings.TrimSpace(in.Mode),
		Remarks: strings.TrimSpace(in.Remarks),
	}
	if err := p.Validate(); err != nil {
		return core.Payment{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return p, nil
}

func expenseFromInput(in ExpenseInput) (core.Expense, error) {
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	date, err := time.Parse("2006-01-02", strings.TrimSpace(in.Date))
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: invalid date %q", ErrValidation, in.Date)
	}
	e := core.Expense{
		Title:  strings.TrimSpace(in.Title),
		Amount: amount,
		Date:   date,
		Month:  core.MonthOfTime(date),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return e, nil
}
