package snapshot

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"villaledger/internal/core"
	"villaledger/internal/source"
)

// RecordIssue describes a field that could not be read from a raw record.
// The record itself is kept with the field's zero value.
type RecordIssue struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Field      string `json:"field"`
	Err        error  `json:"-"`
}

func (i RecordIssue) Error() string {
	return fmt.Sprintf("%s %s: field %s: %v", i.Collection, i.ID, i.Field, i.Err)
}

func (i RecordIssue) Unwrap() error {
	return core.ErrMalformedRecord
}

// MarshalJSON includes the error text, which encoding/json would drop.
func (i RecordIssue) MarshalJSON() ([]byte, error) {
	type alias RecordIssue
	msg := ""
	if i.Err != nil {
		msg = i.Err.Error()
	}
	return json.Marshal(struct {
		alias
		Reason string `json:"reason"`
	}{alias(i), msg})
}

type decoder struct {
	collection string
	id         string
	issues     []RecordIssue
}

func (d *decoder) issue(field string, err error) {
	d.issues = append(d.issues, RecordIssue{Collection: d.collection, ID: d.id, Field: field, Err: err})
}

// DecodeVilla maps a raw villas row onto core.Villa.
func DecodeVilla(r source.Record) (core.Villa, []RecordIssue) {
	d := &decoder{collection: core.CollectionVillas, id: IDString(r["id"])}
	if d.id == "" {
		d.issue("id", errMissing)
	}
	v := core.Villa{
		ID:            d.id,
		VillaNo:       d.str(r, "villaNo", "villa_no"),
		OwnerName:     d.str(r, "ownerName", "owner_name"),
		Email:         d.str(r, "email"),
		Phone:         d.str(r, "phone"),
		IsBoardMember: d.boolean(r, "isBoardMember", "is_board_member"),
	}
	return v, d.issues
}

// DecodePayment maps a raw payments row onto core.Payment. A missing or
// non-numeric amount becomes zero, a missing month stays empty.
func DecodePayment(r source.Record) (core.Payment, []RecordIssue) {
	d := &decoder{collection: core.CollectionPayments, id: IDString(r["id"])}
	p := core.Payment{
		ID:         d.id,
		VillaID:    IDString(r["villa_id"]),
		Month:      d.month(r, "month"),
		Amount:     d.amount(r, "amount"),
		Mode:       d.str(r, "mode"),
		Remarks:    d.str(r, "remarks"),
		RecordedBy: d.str(r, "recorded_by"),
		CreatedAt:  d.timestamp(r, "created_at"),
	}
	if p.VillaID == "" {
		d.issue("villa_id", errMissing)
	}
	return p, d.issues
}

// DecodeExpense maps a raw expenses row onto core.Expense. The stored month is
// trusted; it is not recomputed from date.
func DecodeExpense(r source.Record) (core.Expense, []RecordIssue) {
	d := &decoder{collection: core.CollectionExpenses, id: IDString(r["id"])}
	e := core.Expense{
		ID:      d.id,
		Title:   d.str(r, "title"),
		Amount:  d.amount(r, "amount"),
		Date:    d.timestamp(r, "date"),
		Month:   d.month(r, "month"),
		AddedBy: d.str(r, "added_by"),
	}
	return e, d.issues
}

var errMissing = fmt.Errorf("missing value")

// IDString normalizes an id of any representation to its string form, so
// that 1, 1.0, "1" and json.Number("1") compare equal.
func IDString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return normalizeNumeric(x.String())
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case []byte:
		return strings.TrimSpace(string(x))
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func normalizeNumeric(s string) string {
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

func lookup(r source.Record, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func (d *decoder) str(r source.Record, keys ...string) string {
	v, ok := lookup(r, keys...)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (d *decoder) boolean(r source.Record, keys ...string) bool {
	v, ok := lookup(r, keys...)
	if !ok {
		return false
	}
	switch x := v.(type) {
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case json.Number:
		return x.String() != "0"
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			d.issue(keys[0], err)
		}
		return b
	default:
		d.issue(keys[0], fmt.Errorf("unexpected type %T", v))
		return false
	}
}

func (d *decoder) amount(r source.Record, key string) core.Money {
	v, ok := lookup(r, key)
	if !ok {
		d.issue(key, errMissing)
		return core.Money{}
	}
	m, err := core.AmountFromAny(v)
	if err != nil {
		d.issue(key, err)
		return core.Money{}
	}
	return m
}

func (d *decoder) month(r source.Record, key string) core.Month {
	v, ok := lookup(r, key)
	if !ok {
		d.issue(key, errMissing)
		return ""
	}
	m := core.Month(strings.TrimSpace(fmt.Sprint(v)))
	if err := m.Validate(); err != nil {
		// keep the raw value, it may still be compared verbatim
		d.issue(key, err)
	}
	return m
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02"}

func (d *decoder) timestamp(r source.Record, key string) time.Time {
	v, ok := lookup(r, key)
	if !ok {
		return time.Time{}
	}
	switch x := v.(type) {
	case time.Time:
		return x
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		d.issue(key, fmt.Errorf("unparseable time %q", s))
	default:
		d.issue(key, fmt.Errorf("unexpected type %T", v))
	}
	return time.Time{}
}
