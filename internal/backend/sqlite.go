// Package backend provides the reference SQLite backend behind the two
// narrow interfaces the engine core depends on: sending compiled SQL text
// and reading a table into memory. The core itself never holds a
// connection; a backend is supplied explicitly at execution time.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/quarry/internal/ir"
	"github.com/roach88/quarry/internal/schema"
	"github.com/roach88/quarry/internal/tabular"
)

// StatementSender sends compiled SQL text and receives rows.
type StatementSender interface {
	SendStatement(ctx context.Context, sqlText string) (*tabular.Table, error)
}

// TableReader reads a referenced table into an in-memory value.
type TableReader interface {
	ReadTable(ctx context.Context, ref schema.TableRef) (*tabular.Table, error)
}

// SQLite is the reference backend. Uses WAL mode for concurrent read
// access and a single-writer pool.
type SQLite struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path. Use the path
// ":memory:" for a throwaway database. Idempotent.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	// A single connection also keeps TEMP tables visible across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (b *SQLite) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// SendStatement executes one compiled statement. SELECT statements return
// their rows; DDL (materialize output) returns nil.
func (b *SQLite) SendStatement(ctx context.Context, sqlText string) (*tabular.Table, error) {
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sqlText)), "SELECT") {
		if _, err := b.db.ExecContext(ctx, sqlText); err != nil {
			return nil, fmt.Errorf("execute statement: %w", err)
		}
		return nil, nil
	}

	rows, err := b.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("send statement: %w", err)
	}
	defer rows.Close()
	return scanTable(rows)
}

// ReadTable loads a referenced table, declared columns only, in declared
// order.
func (b *SQLite) ReadTable(ctx context.Context, ref schema.TableRef) (*tabular.Table, error) {
	cols := make([]string, len(ref.Columns))
	for i, c := range ref.Columns {
		cols[i] = quote(c)
	}
	rows, err := b.db.QueryContext(ctx,
		"SELECT "+strings.Join(cols, ", ")+" FROM "+quote(ref.Name))
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", ref.Name, err)
	}
	defer rows.Close()
	return scanTable(rows)
}

// LoadTable creates the referenced table and inserts the snapshot's rows.
// Staged references become TEMP tables.
func (b *SQLite) LoadTable(ctx context.Context, ref schema.TableRef, t *tabular.Table) error {
	kw := "CREATE TABLE "
	if ref.Staged {
		kw = "CREATE TEMP TABLE "
	}
	cols := make([]string, len(ref.Columns))
	for i, c := range ref.Columns {
		cols[i] = quote(c)
	}
	if _, err := b.db.ExecContext(ctx,
		kw+quote(ref.Name)+" ("+strings.Join(cols, ", ")+")"); err != nil {
		return fmt.Errorf("create table %s: %w", ref.Name, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ref.Columns)), ", ")
	insert := "INSERT INTO " + quote(ref.Name) + " VALUES (" + placeholders + ")"
	for _, row := range t.Rows {
		args := make([]any, len(row))
		for i, v := range row {
			args[i] = ir.ToAny(v)
		}
		if _, err := b.db.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("insert into %s: %w", ref.Name, err)
		}
	}
	return nil
}

// StageTable loads a snapshot under a unique temporary name and returns
// the staged reference, ready to root a pipeline at.
func (b *SQLite) StageTable(ctx context.Context, baseName string, t *tabular.Table) (schema.TableRef, error) {
	name := fmt.Sprintf("%s_stage_%s", baseName, strings.ReplaceAll(uuid.NewString(), "-", ""))
	ref, err := schema.NewStagedRef(name, t.Columns)
	if err != nil {
		return schema.TableRef{}, err
	}
	if err := b.LoadTable(ctx, ref, t); err != nil {
		return schema.TableRef{}, err
	}
	return ref, nil
}

func scanTable(rows *sql.Rows) (*tabular.Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := tabular.New(cols...)
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(tabular.Row, len(cols))
		for i, v := range raw {
			row[i] = scanValue(v)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, rows.Err()
}

// scanValue maps driver values onto the engine's value variants. Booleans
// surface from SQLite as 0/1 integers; callers comparing across backends
// should stick to numeric and string columns.
func scanValue(v any) ir.Value {
	switch val := v.(type) {
	case nil:
		return ir.Null{}
	case int64:
		return ir.Int(val)
	case float64:
		return ir.Float(val)
	case bool:
		return ir.Bool(val)
	case string:
		return ir.String(val)
	case []byte:
		return ir.String(string(val))
	default:
		return ir.Null{}
	}
}

func quote(name string) string {
	return `"` + name + `"`
}
