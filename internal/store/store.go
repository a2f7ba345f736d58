// Package store provides generic record access over the relational schema.
// It is the one place that builds SQL dynamically: filters map columns to
// values (scalar = equality, slice = IN), order is a column name with an
// optional leading '-' for descending, and rows come back as plain
// column->value maps.  Table and column names are always code-supplied
// constants, never request input; only values are bound as parameters.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
)

// ErrDataAccess wraps every underlying store failure.  The driver message is
// logged server-side and carried on the wrapped error; handlers surface only
// a generic failure to clients.
var ErrDataAccess = errors.New("data access failed")

// Record is a row in store-native representation normalized to a plain map.
// Text columns are normalized from []byte to string; DATETIME columns arrive
// as time.Time when the driver parses them, or as strings otherwise.
type Record map[string]any

// Filters maps column names to match values.  A scalar value matches by
// equality; a []any value matches by IN.
type Filters map[string]any

type Store struct{ DB *sql.DB }

func New(db *sql.DB) *Store { return &Store{DB: db} }

func fail(op string, err error) error {
	log.Printf("store: %s: %v", op, err)
	return fmt.Errorf("%w: %s: %v", ErrDataAccess, op, err)
}

// Columns introspects the live schema and returns the set of column names
// for a table.  The startup migration uses this to detect drifted tables.
func (s *Store) Columns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT column_name FROM information_schema.columns WHERE table_schema = DATABASE() AND table_name = ?",
		table)
	if err != nil {
		return nil, fail("columns "+table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fail("columns "+table, err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fail("columns "+table, err)
	}
	return cols, nil
}

// Select returns all rows of table matching filters, optionally ordered and
// limited.  A nil Filters selects everything.
func (s *Store) Select(ctx context.Context, table string, filters Filters, order string, limit int) ([]Record, error) {
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(table)

	where, args := buildWhere(filters)
	b.WriteString(where)

	if order != "" {
		col, desc := strings.TrimPrefix(order, "-"), strings.HasPrefix(order, "-")
		b.WriteString(" ORDER BY ")
		b.WriteString(col)
		if desc {
			b.WriteString(" DESC")
		}
	}
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}

	rows, err := s.DB.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fail("select "+table, err)
	}
	defer rows.Close()

	out, err := scanRecords(rows)
	if err != nil {
		return nil, fail("select "+table, err)
	}
	return out, nil
}

// Insert adds one row and returns it with the generated id filled in.
func (s *Store) Insert(ctx context.Context, table string, rec Record) (Record, error) {
	cols := sortedKeys(rec)
	args := make([]any, 0, len(cols))
	ph := make([]string, 0, len(cols))
	for _, c := range cols {
		args = append(args, rec[c])
		ph = append(ph, "?")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(ph, ", "))
	res, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fail("insert "+table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fail("insert "+table, err)
	}

	out := make(Record, len(rec)+1)
	for k, v := range rec {
		out[k] = v
	}
	out["id"] = uint64(id)
	return out, nil
}

// Update applies patch to every row matching filters and reports the number
// of affected rows.
func (s *Store) Update(ctx context.Context, table string, patch Record, filters Filters) (int64, error) {
	if len(patch) == 0 {
		return 0, nil
	}
	cols := sortedKeys(patch)
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for _, c := range cols {
		sets = append(sets, c+" = ?")
		args = append(args, patch[c])
	}

	where, whereArgs := buildWhere(filters)
	query := fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(sets, ", "), where)
	res, err := s.DB.ExecContext(ctx, query, append(args, whereArgs...)...)
	if err != nil {
		return 0, fail("update "+table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fail("update "+table, err)
	}
	return n, nil
}

// Delete removes every row matching filters and reports the number removed.
func (s *Store) Delete(ctx context.Context, table string, filters Filters) (int64, error) {
	where, args := buildWhere(filters)
	res, err := s.DB.ExecContext(ctx, "DELETE FROM "+table+where, args...)
	if err != nil {
		return 0, fail("delete "+table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fail("delete "+table, err)
	}
	return n, nil
}

// buildWhere renders filters as a WHERE clause with bound parameters.  Keys
// are sorted so generated SQL is deterministic.
func buildWhere(filters Filters) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	conds := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, col := range sortedFilterKeys(filters) {
		switch v := filters[col].(type) {
		case []any:
			if len(v) == 0 {
				conds = append(conds, "1 = 0") // IN over the empty set matches nothing
				continue
			}
			ph := strings.TrimSuffix(strings.Repeat("?, ", len(v)), ", ")
			conds = append(conds, fmt.Sprintf("%s IN (%s)", col, ph))
			args = append(args, v...)
		default:
			conds = append(conds, col+" = ?")
			args = append(args, v)
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make(Record, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				rec[c] = string(b)
				continue
			}
			rec[c] = vals[i]
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func sortedKeys(rec Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFilterKeys(f Filters) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
