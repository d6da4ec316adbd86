package memory

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"villaledger/internal/core"
	applog "villaledger/internal/log"
	"villaledger/internal/source"
)

func TestInsertSelectDelete(t *testing.T) {
	ctx := context.Background()
	s := New()

	id, err := s.Insert(ctx, core.CollectionPayments, source.Record{"villa_id": "1", "month": "2025-01", "amount": "500.00"})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id == "" {
		t.Fatal("Insert should generate an id")
	}
	if got, _ := s.Insert(ctx, core.CollectionPayments, source.Record{"id": 42, "villa_id": "2"}); got != "42" {
		t.Fatalf("explicit id = %q, want 42", got)
	}

	rows, err := s.SelectAll(ctx, core.CollectionPayments)
	if err != nil || len(rows) != 2 {
		t.Fatalf("SelectAll = %d rows, %v", len(rows), err)
	}
	rows[0]["amount"] = "0"
	again, _ := s.SelectAll(ctx, core.CollectionPayments)
	if again[0]["amount"] != "500.00" {
		t.Fatal("returned records must be copies")
	}

	if err := s.Delete(ctx, core.CollectionPayments, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, core.CollectionPayments, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second Delete = %v, want ErrNotFound", err)
	}
	if rows, _ := s.SelectAll(ctx, core.CollectionPayments); len(rows) != 1 {
		t.Fatalf("rows after delete = %d", len(rows))
	}
}

func TestUnknownCollection(t *testing.T) {
	s := New()
	if _, err := s.SelectAll(context.Background(), "members"); err == nil {
		t.Error("SelectAll on an unknown collection should fail")
	}
	if _, err := s.Insert(context.Background(), "members", source.Record{}); err == nil {
		t.Error("Insert on an unknown collection should fail")
	}
	if err := s.Seed("members", nil); err == nil {
		t.Error("Seed on an unknown collection should fail")
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("villas.json", `[{"id": 1, "villaNo": "A1"}, {"id": 2, "villaNo": "A2"}]`)
	write("payments.json", `not json`)
	// expenses.json is missing

	var buf bytes.Buffer
	s := NewFromFiles(dir, applog.New(applog.Config{Handler: slog.NewTextHandler(&buf, nil)}))
	ctx := context.Background()

	villas, _ := s.SelectAll(ctx, core.CollectionVillas)
	if len(villas) != 2 {
		t.Fatalf("villas = %d, want 2", len(villas))
	}
	if villas[0]["id"].(interface{ String() string }).String() != "1" {
		t.Errorf("ids should be decoded as json.Number, got %T", villas[0]["id"])
	}
	for _, c := range []string{core.CollectionPayments, core.CollectionExpenses} {
		rows, err := s.SelectAll(ctx, c)
		if err != nil || len(rows) != 0 {
			t.Errorf("%s = %d rows, %v; want empty", c, len(rows), err)
		}
	}

	out := buf.String()
	if !strings.Contains(out, "Skipping seed file") || !strings.Contains(out, "collection=payments") || !strings.Contains(out, "component=backend") {
		t.Errorf("unreadable seed file should be logged through the given logger:\n%s", out)
	}

	if err := s.Delete(ctx, core.CollectionVillas, "2"); err != nil {
		t.Errorf("delete of a json.Number id: %v", err)
	}
}
