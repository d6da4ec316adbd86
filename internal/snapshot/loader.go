package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"villaledger/internal/core"
	applog "villaledger/internal/log"
	"villaledger/internal/source"
)

// Loader fetches the three collections from a record source.
type Loader struct {
	src    source.RecordSource
	logger *applog.Logger
	now    func() time.Time
}

func NewLoader(src source.RecordSource, logger *applog.Logger) *Loader {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Loader{
		src:    src,
		logger: logger.WithComponent(applog.ComponentLoader),
		now:    time.Now,
	}
}

// Load reads villas, payments and expenses concurrently. If any read fails
// the whole load fails with an error wrapping core.ErrSourceUnavailable;
// a partially loaded snapshot is never returned.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	if l.src == nil {
		return nil, fmt.Errorf("%w: no record source configured", core.ErrSourceUnavailable)
	}
	start := l.now()

	var raw [3][]source.Record
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range core.Collections {
		g.Go(func() error {
			rows, err := l.src.SelectAll(gctx, c)
			if err != nil {
				if errors.Is(err, core.ErrSourceUnavailable) {
					return err
				}
				return source.Unavailable(c, err)
			}
			raw[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.logger.WarnContext(ctx, "Snapshot load failed", applog.FieldError, err.Error())
		return nil, err
	}

	var issues []RecordIssue
	villas := make([]core.Villa, 0, len(raw[0]))
	for _, r := range raw[0] {
		v, is := DecodeVilla(r)
		villas = append(villas, v)
		issues = append(issues, is...)
	}
	payments := make([]core.Payment, 0, len(raw[1]))
	for _, r := range raw[1] {
		p, is := DecodePayment(r)
		payments = append(payments, p)
		issues = append(issues, is...)
	}
	expenses := make([]core.Expense, 0, len(raw[2]))
	for _, r := range raw[2] {
		e, is := DecodeExpense(r)
		expenses = append(expenses, e)
		issues = append(issues, is...)
	}

	for _, is := range issues {
		l.logger.WarnContext(ctx, "Malformed record field",
			"collection", is.Collection,
			"id", is.ID,
			"field", is.Field,
			applog.FieldError, is.Err)
	}

	snap := New(villas, payments, expenses, issues, l.now())
	l.logger.InfoContext(ctx, "Snapshot loaded",
		"villas", len(villas),
		"payments", len(payments),
		"expenses", len(expenses),
		"issues", len(issues),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return snap, nil
}
