package storage

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Rows is the row-resource abstraction shared by live query results and
// deserialized cache entries. Results are fully materialized, so unlike
// *sql.Rows every implementation supports Seek and Len.
type Rows interface {
	// Columns returns the result column names in order
	Columns() []string
	// Next advances to the next row, returning false at the end
	Next() bool
	// Scan copies the current row into dest pointers
	Scan(dest ...any) error
	// Seek positions the cursor so the next call to Next returns row n
	Seek(n int) error
	// Len returns the total number of rows
	Len() int
	// Err returns the first error encountered during iteration
	Err() error
	// Close releases the result. Safe to call multiple times.
	Close() error
}

// memRows is the single Rows implementation: column names plus fully
// materialized row values. Live cursors are drained into one at query time;
// cache entries decode into one.
type memRows struct {
	cols   []string
	rows   [][]any
	cursor int // index of the row Next will move to
	err    error
}

// newMemRows builds a Rows over already-materialized values
func newMemRows(cols []string, rows [][]any) *memRows {
	return &memRows{cols: cols, rows: rows, cursor: 0}
}

// drainRows materializes a live *sql.Rows into column names and values.
// The cursor is closed before returning.
func drainRows(rows *sql.Rows) ([]string, [][]any, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("row iteration failed: %w", err)
	}

	return cols, out, nil
}

func (m *memRows) Columns() []string {
	return m.cols
}

func (m *memRows) Next() bool {
	if m.cursor >= len(m.rows) {
		return false
	}
	m.cursor++
	return true
}

func (m *memRows) Scan(dest ...any) error {
	if m.cursor == 0 {
		return fmt.Errorf("Scan called before Next")
	}
	row := m.rows[m.cursor-1]
	if len(dest) != len(row) {
		return fmt.Errorf("expected %d destination arguments in Scan, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		if err := convertAssign(d, row[i]); err != nil {
			return fmt.Errorf("Scan column %d (%s): %w", i, m.cols[i], err)
		}
	}
	return nil
}

func (m *memRows) Seek(n int) error {
	if n < 0 || n > len(m.rows) {
		return fmt.Errorf("seek position %d out of range [0,%d]", n, len(m.rows))
	}
	m.cursor = n
	return nil
}

func (m *memRows) Len() int {
	return len(m.rows)
}

func (m *memRows) Err() error {
	return m.err
}

func (m *memRows) Close() error {
	return nil
}

// Row wraps a single-row result, deferring errors to Scan like sql.Row does
type Row struct {
	rows Rows
	err  error
}

// Scan copies the first row into dest, returning sql.ErrNoRows when the
// result is empty
func (r *Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	defer r.rows.Close()
	if !r.rows.Next() {
		return sql.ErrNoRows
	}
	return r.rows.Scan(dest...)
}

// convertAssign copies a materialized source value into a destination
// pointer. SQLite yields int64, float64, string, []byte, bool and nil.
func convertAssign(dest, src any) error {
	switch d := dest.(type) {
	case *any:
		*d = src
		return nil
	case *string:
		switch s := src.(type) {
		case nil:
			*d = ""
		case string:
			*d = s
		case []byte:
			*d = string(s)
		case int64:
			*d = strconv.FormatInt(s, 10)
		case float64:
			*d = strconv.FormatFloat(s, 'g', -1, 64)
		default:
			*d = fmt.Sprintf("%v", s)
		}
		return nil
	case **string:
		switch s := src.(type) {
		case nil:
			*d = nil
		case string:
			v := s
			*d = &v
		case []byte:
			v := string(s)
			*d = &v
		default:
			return fmt.Errorf("cannot convert %T to *string", src)
		}
		return nil
	case *[]byte:
		switch s := src.(type) {
		case nil:
			*d = nil
		case []byte:
			*d = append([]byte(nil), s...)
		case string:
			*d = []byte(s)
		default:
			return fmt.Errorf("cannot convert %T to []byte", src)
		}
		return nil
	case *int64:
		switch s := src.(type) {
		case int64:
			*d = s
		case float64:
			*d = int64(s)
		case string:
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("cannot convert %q to int64", s)
			}
			*d = v
		case nil:
			*d = 0
		default:
			return fmt.Errorf("cannot convert %T to int64", src)
		}
		return nil
	case **int64:
		switch s := src.(type) {
		case nil:
			*d = nil
		case int64:
			v := s
			*d = &v
		default:
			return fmt.Errorf("cannot convert %T to *int64", src)
		}
		return nil
	case *int:
		var v int64
		if err := convertAssign(&v, src); err != nil {
			return err
		}
		*d = int(v)
		return nil
	case *float64:
		switch s := src.(type) {
		case float64:
			*d = s
		case int64:
			*d = float64(s)
		case string:
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("cannot convert %q to float64", s)
			}
			*d = v
		case nil:
			*d = 0
		default:
			return fmt.Errorf("cannot convert %T to float64", src)
		}
		return nil
	case *bool:
		switch s := src.(type) {
		case bool:
			*d = s
		case int64:
			*d = s != 0
		case nil:
			*d = false
		default:
			return fmt.Errorf("cannot convert %T to bool", src)
		}
		return nil
	case *time.Time:
		switch s := src.(type) {
		case time.Time:
			*d = s
		case string:
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return fmt.Errorf("cannot parse %q as time: %w", s, err)
			}
			*d = t
		case nil:
			*d = time.Time{}
		default:
			return fmt.Errorf("cannot convert %T to time.Time", src)
		}
		return nil
	case **time.Time:
		switch s := src.(type) {
		case nil:
			*d = nil
		case time.Time:
			v := s
			*d = &v
		case string:
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return fmt.Errorf("cannot parse %q as time: %w", s, err)
			}
			*d = &t
		default:
			return fmt.Errorf("cannot convert %T to *time.Time", src)
		}
		return nil
	default:
		return fmt.Errorf("unsupported Scan destination type %T", dest)
	}
}
