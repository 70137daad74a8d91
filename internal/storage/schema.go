package storage

import (
	"database/sql"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database. Called with mu held
// from ensureConn, so it talks to the raw connection directly.
func (db *DB) initializeSchema() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := createSchemaVersionTable(tx); err != nil {
		return err
	}
	if err := createLocationsTable(tx); err != nil {
		return err
	}
	if err := createTargetsTable(tx); err != nil {
		return err
	}
	if err := createReportsTable(tx); err != nil {
		return err
	}
	if err := createUsersTable(tx); err != nil {
		return err
	}
	if err := createAuthenticationsTable(tx); err != nil {
		return err
	}

	if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	db.logger.Info("Database schema initialized", map[string]any{
		"version": currentSchemaVersion,
	})
	return nil
}

// runMigrations runs any pending schema migrations. Called with mu held.
func (db *DB) runMigrations() error {
	version, err := db.schemaVersion()
	if err != nil {
		return err
	}

	if version == 0 {
		// Existing file without our schema (or empty database file)
		return db.initializeSchema()
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", map[string]any{
			"version": version,
		})
		return nil
	}

	db.logger.Info("Running database migrations", map[string]any{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	// Run migrations sequentially as the schema evolves
	// if version < 2 { ... }

	return nil
}

// schemaVersion reads the current schema version, 0 for a fresh database.
// Called with mu held.
func (db *DB) schemaVersion() (int, error) {
	var tableName string
	err := db.conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

func createLocationsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS locations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			region TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)
	`)
	return err
}

func createTargetsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS targets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			location_id INTEGER NOT NULL REFERENCES locations(id),
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_targets_location ON targets(location_id)`)
	return err
}

func createReportsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			public_id TEXT NOT NULL UNIQUE,
			location_id INTEGER NOT NULL REFERENCES locations(id),
			target_id INTEGER REFERENCES targets(id),
			reporter_name TEXT NOT NULL DEFAULT '',
			reporter_email TEXT NOT NULL DEFAULT '',
			subject TEXT NOT NULL,
			body TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'open'
				CHECK (status IN ('open', 'reviewing', 'closed')),
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	if _, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_reports_location ON reports(location_id)`); err != nil {
		return err
	}
	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status)`)
	return err
}

func createUsersTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'reviewer'
				CHECK (role IN ('admin', 'reviewer')),
			created_at TEXT NOT NULL
		)
	`)
	return err
}

func createAuthenticationsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS authentications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			token_hash TEXT NOT NULL,
			token_prefix TEXT NOT NULL,
			expires_at TEXT NOT NULL,
			created_at TEXT NOT NULL,
			last_seen_at TEXT
		)
	`)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_auth_prefix ON authentications(token_prefix)`)
	return err
}
