package core

import (
	"errors"
	"strings"
	"time"
)

// Collection names understood by every record source.
const (
	CollectionVillas   = "villas"
	CollectionPayments = "payments"
	CollectionExpenses = "expenses"
)

// Collections lists the collections a snapshot is built from, in load order.
var Collections = []string{CollectionVillas, CollectionPayments, CollectionExpenses}

// VillaNotFound is the display label used when a payment references a villa
// that is not in the roster.
const VillaNotFound = "Villa Not Found"

type (
	Money struct {
		Cents int64
	}

	Villa struct {
		ID            string `json:"id"`
		VillaNo       string `json:"villaNo"`
		OwnerName     string `json:"ownerName"`
		Email         string `json:"email"`
		Phone         string `json:"-"` // doubles as the login secret
		IsBoardMember bool   `json:"isBoardMember"`
	}

	Payment struct {
		ID         string    `json:"id"`
		VillaID    string    `json:"villa_id"`
		Month      Month     `json:"month"`
		Amount     Money     `json:"amount"`
		Mode       string    `json:"mode"` // Cash, UPI, Bank...
		Remarks    string    `json:"remarks"`
		RecordedBy string    `json:"recorded_by"`
		CreatedAt  time.Time `json:"created_at"`
	}

	Expense struct {
		ID      string    `json:"id"`
		Title   string    `json:"title"`
		Amount  Money     `json:"amount"`
		Date    time.Time `json:"date"`
		Month   Month     `json:"month"` // stored value, trusted over Date
		AddedBy string    `json:"added_by"`
	}

	// Session identifies the user a report or write is performed for.
	// It is passed explicitly; nothing reads it from ambient state.
	Session struct {
		Email         string
		VillaID       string
		IsBoardMember bool
	}
)

var (
	ErrSourceUnavailable = errors.New("record source unavailable")
	ErrMalformedRecord   = errors.New("malformed record")
	ErrNotFound          = errors.New("not found")

	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrEmptyTitle    = errors.New("empty title")
	ErrEmptyMode     = errors.New("empty payment mode")
	ErrUnknownVilla  = errors.New("unknown villa")
	ErrForbidden     = errors.New("board membership required")
)

// Anonymous is the session used before login.
var Anonymous = Session{}

// IsAnonymous reports whether the session carries no identity.
func (s Session) IsAnonymous() bool {
	return s.Email == ""
}

// SessionForVilla builds the session of a logged in resident.
func SessionForVilla(v Villa) Session {
	return Session{Email: v.Email, VillaID: v.ID, IsBoardMember: v.IsBoardMember}
}

// Label returns the "<villaNo> - <ownerName>" display string.
func (v Villa) Label() string {
	if strings.TrimSpace(v.OwnerName) == "" {
		return v.VillaNo
	}
	return v.VillaNo + " - " + v.OwnerName
}

// Validate checks a payment before it is written to the store.
func (p Payment) Validate() error {
	if strings.TrimSpace(p.VillaID) == "" {
		return ErrUnknownVilla
	}
	if err := p.Month.Validate(); err != nil {
		return err
	}
	if p.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(p.Mode) == "" {
		return ErrEmptyMode
	}
	if len(p.Remarks) > 500 {
		return errors.New("remarks too long (max 500 characters)")
	}
	return nil
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if e.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if e.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	if err := e.Month.Validate(); err != nil {
		return err
	}
	// month is derived from date and must agree with it
	if e.Month != MonthOfTime(e.Date) {
		return errors.New("month does not match date")
	}
	return nil
}
