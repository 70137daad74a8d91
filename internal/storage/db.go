package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"tipline/internal/cache"
	"tipline/internal/errors"
	"tipline/internal/logging"
)

// txState tracks the transaction bookkeeping flag
type txState int

const (
	// txIdle means no transaction is open
	txIdle txState = iota
	// txActive means a normal transaction is open
	txActive
	// txTest means a test-mode transaction is open; commits are downgraded
	// to rollbacks so test runs never persist writes
	txTest
)

// Recorder receives per-statement diagnostics. The debug console implements
// it; a nil recorder disables profiling.
type Recorder interface {
	Record(sql string, durationMs float64, rows int, cacheHit bool, err error)
}

// DB wraps a SQLite database with lazy connection initialization and
// transaction bookkeeping
type DB struct {
	path   string
	logger *logging.Logger

	mu       sync.Mutex
	conn     *sql.DB
	tx       *sql.Tx
	state    txState
	testMode bool

	recorder Recorder
	cache    *cache.Cache
}

// New creates a DB handle without connecting. The underlying connection is
// opened on first use.
func New(path string, logger *logging.Logger) *DB {
	return &DB{
		path:   path,
		logger: logger,
	}
}

// SetRecorder attaches a statement recorder (the debug console)
func (db *DB) SetRecorder(r Recorder) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.recorder = r
}

// SetCache attaches the file-based result cache used by CachedQuery
func (db *DB) SetCache(c *cache.Cache) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.cache = c
}

// SetTestMode controls test mode. While enabled, Begin opens a transaction
// whose Commit is recorded but executed as a rollback.
func (db *DB) SetTestMode(enabled bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.testMode = enabled
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// ensureConn opens the connection if it isn't open yet. Callers must hold mu.
func (db *DB) ensureConn() (*sql.DB, error) {
	if db.conn != nil {
		return db.conn, nil
	}

	if err := os.MkdirAll(filepath.Dir(db.path), 0755); err != nil {
		return nil, errors.Wrap(errors.ConnectionFailed, "failed to create database directory", err)
	}

	dbExists := fileExists(db.path)

	conn, err := sql.Open("sqlite", db.path)
	if err != nil {
		return nil, errors.Wrap(errors.ConnectionFailed, "failed to open database", err)
	}

	// Set pragmas for performance and reliability
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-16000",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, errors.Wrap(errors.ConnectionFailed, "failed to set pragma", err)
		}
	}

	db.conn = conn

	if !dbExists {
		db.logger.Info("Creating new database", map[string]any{
			"path": db.path,
		})
		if err := db.initializeSchema(); err != nil {
			conn.Close()
			db.conn = nil
			return nil, errors.Wrap(errors.ConnectionFailed, "failed to initialize schema", err)
		}
	} else {
		db.logger.Debug("Running database migrations", map[string]any{
			"path": db.path,
		})
		if err := db.runMigrations(); err != nil {
			conn.Close()
			db.conn = nil
			return nil, errors.Wrap(errors.ConnectionFailed, "failed to run migrations", err)
		}
	}

	return db.conn, nil
}

// Connect forces the lazy connection open, for callers that want startup
// failures at startup (the serve command does)
func (db *DB) Connect() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, err := db.ensureConn()
	return err
}

// Ping verifies the database is reachable, opening the connection if needed
func (db *DB) Ping() error {
	db.mu.Lock()
	conn, err := db.ensureConn()
	db.mu.Unlock()
	if err != nil {
		return err
	}
	return conn.Ping()
}

// Close rolls back any open transaction and closes the connection
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.tx != nil {
		if err := db.tx.Rollback(); err != nil {
			db.logger.Warn("Rollback on close failed", map[string]any{
				"error": err.Error(),
			})
		}
		db.tx = nil
		db.state = txIdle
	}

	if db.conn != nil {
		err := db.conn.Close()
		db.conn = nil
		return err
	}
	return nil
}

// Begin starts a bookkept transaction. It is an error if one is already open.
func (db *DB) Begin() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.state != txIdle {
		return errors.New(errors.TxState, "transaction already open")
	}

	conn, err := db.ensureConn()
	if err != nil {
		return err
	}

	tx, err := conn.Begin()
	if err != nil {
		return errors.Wrap(errors.QueryFailed, "failed to begin transaction", err)
	}

	db.tx = tx
	if db.testMode {
		db.state = txTest
	} else {
		db.state = txActive
	}
	return nil
}

// Commit finishes the open transaction. In test mode the commit is recorded
// and executed as a rollback.
func (db *DB) Commit() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.state == txIdle {
		return errors.New(errors.TxState, "commit without open transaction")
	}

	tx := db.tx
	state := db.state
	db.tx = nil
	db.state = txIdle

	if state == txTest {
		db.logger.Debug("Test mode commit downgraded to rollback", nil)
		if err := tx.Rollback(); err != nil {
			return errors.Wrap(errors.QueryFailed, "failed to rollback test transaction", err)
		}
		return nil
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.QueryFailed, "failed to commit transaction", err)
	}
	return nil
}

// Rollback abandons the open transaction
func (db *DB) Rollback() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.state == txIdle {
		return errors.New(errors.TxState, "rollback without open transaction")
	}

	tx := db.tx
	db.tx = nil
	db.state = txIdle

	if err := tx.Rollback(); err != nil {
		return errors.Wrap(errors.QueryFailed, "failed to rollback transaction", err)
	}
	return nil
}

// InTransaction reports whether a bookkept transaction is open
func (db *DB) InTransaction() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state != txIdle
}

// WithTx executes a function within a transaction. If the function returns
// an error or panics, the transaction is rolled back; otherwise it is
// committed (or rolled back in test mode).
func (db *DB) WithTx(fn func() error) error {
	if err := db.Begin(); err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = db.Rollback()
			panic(p) // Re-throw panic after rollback
		}
	}()

	if err := fn(); err != nil {
		if rbErr := db.Rollback(); rbErr != nil {
			db.logger.Error("failed to rollback transaction", map[string]any{
				"error":          err.Error(),
				"rollback_error": rbErr.Error(),
			})
		}
		return err
	}

	return db.Commit()
}

// execer abstracts *sql.DB and *sql.Tx so statements route through the open
// transaction when one exists
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// target returns the statement target: the open transaction, or the
// connection, opening it lazily
func (db *DB) target() (execer, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.tx != nil {
		return db.tx, nil
	}
	return db.ensureConn()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
