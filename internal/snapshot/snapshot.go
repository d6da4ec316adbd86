// Package snapshot loads the villas, payments and expenses collections into
// an immutable in-memory snapshot that every report is computed from.
package snapshot

import (
	"slices"
	"time"

	"villaledger/internal/core"
)

// Snapshot is a read-only copy of the three collections at one point in time.
// Accessors return copies; nothing can change a Snapshot after New.
type Snapshot struct {
	villas   []core.Villa
	payments []core.Payment
	expenses []core.Expense
	issues   []RecordIssue
	loadedAt time.Time
}

// New builds a snapshot, copying the given slices.
func New(villas []core.Villa, payments []core.Payment, expenses []core.Expense, issues []RecordIssue, loadedAt time.Time) *Snapshot {
	return &Snapshot{
		villas:   slices.Clone(villas),
		payments: slices.Clone(payments),
		expenses: slices.Clone(expenses),
		issues:   slices.Clone(issues),
		loadedAt: loadedAt,
	}
}

func (s *Snapshot) Villas() []core.Villa {
	if s == nil {
		return nil
	}
	return slices.Clone(s.villas)
}

func (s *Snapshot) Payments() []core.Payment {
	if s == nil {
		return nil
	}
	return slices.Clone(s.payments)
}

func (s *Snapshot) Expenses() []core.Expense {
	if s == nil {
		return nil
	}
	return slices.Clone(s.expenses)
}

// Issues lists the malformed fields found while decoding.
func (s *Snapshot) Issues() []RecordIssue {
	if s == nil {
		return nil
	}
	return slices.Clone(s.issues)
}

func (s *Snapshot) LoadedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.loadedAt
}

// Villa looks up a villa by id. The second result is false for dangling
// references.
func (s *Snapshot) Villa(id string) (core.Villa, bool) {
	if s == nil {
		return core.Villa{}, false
	}
	for _, v := range s.villas {
		if v.ID == id {
			return v, true
		}
	}
	return core.Villa{}, false
}

// FindVillaByLogin returns the villa whose email and phone both match, which
// is how residents sign in.
func (s *Snapshot) FindVillaByLogin(email, phone string) (core.Villa, bool) {
	if s == nil || email == "" || phone == "" {
		return core.Villa{}, false
	}
	for _, v := range s.villas {
		if v.Email == email && v.Phone == phone {
			return v, true
		}
	}
	return core.Villa{}, false
}
