// Package storage is the SQLite record store. Each ledger collection is a
// table; rows are returned as raw records and decoded by the snapshot
// loader like any other source.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"villaledger/internal/core"
	applog "villaledger/internal/log"
	"villaledger/internal/source"

	_ "modernc.org/sqlite"
)

// columns lists, per collection, the columns read by SelectAll and written by
// Insert. The first column is always the primary key.
var columns = map[string][]string{
	core.CollectionVillas:   {"id", "villa_no", "owner_name", "email", "phone", "is_board_member"},
	core.CollectionPayments: {"id", "villa_id", "month", "amount", "mode", "remarks", "recorded_by", "created_at"},
	core.CollectionExpenses: {"id", "title", "amount", "date", "month", "added_by"},
}

// aliases maps a column to the camelCase field names used by JSON seed files.
var aliases = map[string]string{
	"villa_no":        "villaNo",
	"owner_name":      "ownerName",
	"is_board_member": "isBoardMember",
}

type SQLiteRepository struct {
	db      *sql.DB
	logger  *applog.Logger
	version uint
}

// Ensure interface conformance
var _ source.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		logger:  logger.WithComponent(applog.ComponentStorage),
		version: version,
	}
	repo.logger.Info("SQLite store ready", "path", dbPath, "schema_version", version)
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SchemaVersion is the migration version applied at open time.
func (r *SQLiteRepository) SchemaVersion() uint { return r.version }

// Ping checks that the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SelectAll implements source.RecordSource
func (r *SQLiteRepository) SelectAll(ctx context.Context, collection string) ([]source.Record, error) {
	if err := source.ValidateCollection(collection); err != nil {
		return nil, err
	}
	cols := columns[collection]
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(cols, ", "), collection)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, source.Unavailable(collection, err)
	}
	defer rows.Close()

	out := []source.Record{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, source.Unavailable(collection, err)
		}
		rec := make(source.Record, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[c] = string(b)
				continue
			}
			rec[c] = values[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, source.Unavailable(collection, err)
	}
	return out, nil
}

// Insert implements source.RecordWriter. Fields outside the table's columns
// are ignored; a missing id is generated.
func (r *SQLiteRepository) Insert(ctx context.Context, collection string, rec source.Record) (string, error) {
	if err := source.ValidateCollection(collection); err != nil {
		return "", err
	}
	id := ""
	if v, ok := rec["id"]; ok && v != nil {
		id = strings.TrimSpace(fmt.Sprint(v))
	}
	if id == "" {
		id = uuid.NewString()
	}

	cols := []string{"id"}
	args := []any{id}
	for _, c := range columns[collection][1:] {
		v, ok := rec[c]
		if !ok || v == nil {
			v, ok = rec[aliases[c]]
		}
		if !ok || v == nil {
			continue
		}
		cols = append(cols, c)
		args = append(args, dbValue(v))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", collection, strings.Join(cols, ", "), placeholders)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert %s: %w", collection, err)
	}

	r.logger.InfoContext(ctx, "Record saved to SQLite",
		applog.FieldCollection, collection,
		applog.FieldRecordID, id)
	return id, nil
}

// Delete implements source.RecordWriter
func (r *SQLiteRepository) Delete(ctx context.Context, collection, id string) error {
	if err := source.ValidateCollection(collection); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", collection), id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", collection, id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s %s: %w", collection, id, core.ErrNotFound)
	}

	r.logger.InfoContext(ctx, "Record deleted from SQLite",
		applog.FieldCollection, collection,
		applog.FieldRecordID, id)
	return nil
}

// Count returns the number of rows in collection.
func (r *SQLiteRepository) Count(ctx context.Context, collection string) (int, error) {
	if err := source.ValidateCollection(collection); err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// Import copies every row of src into the store for collections that are
// still empty. It is how a fresh database is seeded from JSON files.
func (r *SQLiteRepository) Import(ctx context.Context, src source.RecordSource) (int, error) {
	imported := 0
	for _, c := range core.Collections {
		n, err := r.Count(ctx, c)
		if err != nil {
			return imported, err
		}
		if n > 0 {
			continue
		}
		rows, err := src.SelectAll(ctx, c)
		if err != nil {
			return imported, err
		}
		for _, row := range rows {
			if _, err := r.Insert(ctx, c, row); err != nil {
				return imported, err
			}
			imported++
		}
	}
	return imported, nil
}

// dbValue converts record values to types the driver stores verbatim.
func dbValue(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case json.Number:
		return x.String()
	case core.Money:
		return x.String()
	case core.Month:
		return string(x)
	default:
		return v
	}
}
