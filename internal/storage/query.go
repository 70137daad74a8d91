package storage

import (
	"database/sql"
	"time"

	"tipline/internal/cache"
	"tipline/internal/errors"
)

// Exec executes a statement without returning rows. Statements route through
// the open transaction when one exists.
func (db *DB) Exec(query string, args ...any) (sql.Result, error) {
	t, err := db.target()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := t.Exec(query, args...)

	affected := 0
	if err == nil {
		if n, aerr := res.RowsAffected(); aerr == nil {
			affected = int(n)
		}
	}
	db.record(query, args, start, affected, false, err)

	if err != nil {
		return nil, errors.Wrap(errors.QueryFailed, "exec failed", err)
	}
	return res, nil
}

// Query executes a statement and materializes the full result set
func (db *DB) Query(query string, args ...any) (Rows, error) {
	t, err := db.target()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	live, err := t.Query(query, args...)
	if err != nil {
		db.record(query, args, start, 0, false, err)
		return nil, errors.Wrap(errors.QueryFailed, "query failed", err)
	}

	cols, rows, err := drainRows(live)
	db.record(query, args, start, len(rows), false, err)
	if err != nil {
		return nil, errors.Wrap(errors.QueryFailed, "query failed", err)
	}

	return newMemRows(cols, rows), nil
}

// QueryRow executes a query expected to return at most one row. Errors are
// deferred to Scan, like database/sql.
func (db *DB) QueryRow(query string, args ...any) *Row {
	rows, err := db.Query(query, args...)
	if err != nil {
		return &Row{err: err}
	}
	return &Row{rows: rows}
}

// CachedQuery executes a read statement through the result cache. The key is
// the hash of the fully interpolated SQL text; a hit within ttl skips the
// database entirely. The bool reports whether the cache served the result.
func (db *DB) CachedQuery(query string, ttl time.Duration, args ...any) (Rows, bool, error) {
	db.mu.Lock()
	c := db.cache
	db.mu.Unlock()

	if c == nil || ttl <= 0 {
		rows, err := db.Query(query, args...)
		return rows, false, err
	}

	sqlText, err := Interpolate(query, args...)
	if err != nil {
		return nil, false, errors.Wrap(errors.QueryFailed, "failed to build cache key", err)
	}
	key := cache.Key(sqlText)

	start := time.Now()
	if cols, rows, ok := c.Get(key); ok {
		db.recordText(sqlText, start, len(rows), true, nil)
		return newMemRows(cols, rows), true, nil
	}

	t, err := db.target()
	if err != nil {
		return nil, false, err
	}

	live, err := t.Query(query, args...)
	if err != nil {
		db.recordText(sqlText, start, 0, false, err)
		return nil, false, errors.Wrap(errors.QueryFailed, "query failed", err)
	}

	cols, rows, err := drainRows(live)
	db.recordText(sqlText, start, len(rows), false, err)
	if err != nil {
		return nil, false, errors.Wrap(errors.QueryFailed, "query failed", err)
	}

	if err := c.Put(key, cols, rows, ttl); err != nil {
		// A failed write degrades to uncached operation
		db.logger.Warn("Failed to write query cache entry", map[string]any{
			"error": err.Error(),
		})
	}

	return newMemRows(cols, rows), false, nil
}

// record profiles a statement given its raw text and bind arguments
func (db *DB) record(query string, args []any, start time.Time, rows int, hit bool, err error) {
	db.mu.Lock()
	r := db.recorder
	db.mu.Unlock()
	if r == nil {
		return
	}

	sqlText, ierr := Interpolate(query, args...)
	if ierr != nil {
		// Unrenderable bind values: show the raw statement instead
		sqlText = query
	}
	r.Record(sqlText, float64(time.Since(start).Microseconds())/1000.0, rows, hit, err)
}

// recordText profiles a statement whose final SQL text is already known
func (db *DB) recordText(sqlText string, start time.Time, rows int, hit bool, err error) {
	db.mu.Lock()
	r := db.recorder
	db.mu.Unlock()
	if r == nil {
		return
	}
	r.Record(sqlText, float64(time.Since(start).Microseconds())/1000.0, rows, hit, err)
}
