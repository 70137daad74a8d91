package record

import (
	"database/sql"
	"strings"
	"time"

	"tipline/internal/errors"
	"tipline/internal/storage"
)

// Store executes active-record operations against the database wrapper
type Store struct {
	db *storage.DB
}

// NewStore creates a store over an open database handle
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying wrapper for callers that need raw queries
func (s *Store) DB() *storage.DB {
	return s.db
}

// selectList builds "id, col1, col2, ..." for a record
func selectList(rec Record) string {
	return rec.PrimaryKey() + ", " + strings.Join(rec.Columns(), ", ")
}

// Find loads a record by primary key. Returns errors.NotFound when absent.
func (s *Store) Find(rec Record, id int64) error {
	query := "SELECT " + selectList(rec) +
		" FROM " + rec.Table() +
		" WHERE " + rec.PrimaryKey() + " = ?"

	var pk int64
	dest := append([]any{&pk}, rec.Pointers()...)

	err := s.db.QueryRow(query, id).Scan(dest...)
	if err == sql.ErrNoRows {
		return errors.New(errors.NotFound, rec.Table()+" record not found")
	}
	if err != nil {
		return errors.Wrap(errors.QueryFailed, "failed to load "+rec.Table()+" record", err)
	}

	rec.SetID(pk)
	return nil
}

// FindWhere loads the first record matching a WHERE clause
func (s *Store) FindWhere(rec Record, where string, args ...any) error {
	query := "SELECT " + selectList(rec) +
		" FROM " + rec.Table() +
		" WHERE " + where +
		" LIMIT 1"

	var pk int64
	dest := append([]any{&pk}, rec.Pointers()...)

	err := s.db.QueryRow(query, args...).Scan(dest...)
	if err == sql.ErrNoRows {
		return errors.New(errors.NotFound, rec.Table()+" record not found")
	}
	if err != nil {
		return errors.Wrap(errors.QueryFailed, "failed to load "+rec.Table()+" record", err)
	}

	rec.SetID(pk)
	return nil
}

// Insert saves a new record and sets its assigned id
func (s *Store) Insert(rec Record) error {
	cols := rec.Columns()
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	query := "INSERT INTO " + rec.Table() +
		" (" + strings.Join(cols, ", ") + ")" +
		" VALUES (" + placeholders + ")"

	res, err := s.db.Exec(query, rec.Values()...)
	if err != nil {
		return errors.Wrap(errors.QueryFailed, "failed to insert "+rec.Table()+" record", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(errors.QueryFailed, "failed to read inserted id", err)
	}
	rec.SetID(id)
	return nil
}

// Update saves an existing record by primary key
func (s *Store) Update(rec Record) error {
	if rec.ID() == 0 {
		return errors.New(errors.QueryFailed, "cannot update unsaved "+rec.Table()+" record")
	}

	cols := rec.Columns()
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}

	query := "UPDATE " + rec.Table() +
		" SET " + strings.Join(sets, ", ") +
		" WHERE " + rec.PrimaryKey() + " = ?"

	args := append(rec.Values(), rec.ID())
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return errors.Wrap(errors.QueryFailed, "failed to update "+rec.Table()+" record", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(errors.QueryFailed, "failed to read affected rows", err)
	}
	if affected == 0 {
		return errors.New(errors.NotFound, rec.Table()+" record not found")
	}
	return nil
}

// Delete removes a record by primary key
func (s *Store) Delete(rec Record) error {
	if rec.ID() == 0 {
		return errors.New(errors.QueryFailed, "cannot delete unsaved "+rec.Table()+" record")
	}

	query := "DELETE FROM " + rec.Table() +
		" WHERE " + rec.PrimaryKey() + " = ?"

	if _, err := s.db.Exec(query, rec.ID()); err != nil {
		return errors.Wrap(errors.QueryFailed, "failed to delete "+rec.Table()+" record", err)
	}
	return nil
}

// scanAll drains rows into records produced by newRec
func scanAll(rows storage.Rows, newRec func() Record, add func(Record)) error {
	defer rows.Close()

	for rows.Next() {
		rec := newRec()
		var pk int64
		dest := append([]any{&pk}, rec.Pointers()...)
		if err := rows.Scan(dest...); err != nil {
			return errors.Wrap(errors.QueryFailed, "failed to scan row", err)
		}
		rec.SetID(pk)
		add(rec)
	}
	return rows.Err()
}

// listQuery builds a list statement for a record type
func listQuery(rec Record, where, order string) string {
	query := "SELECT " + selectList(rec) + " FROM " + rec.Table()
	if where != "" {
		query += " WHERE " + where
	}
	if order != "" {
		query += " ORDER BY " + order
	}
	return query
}

// ListLocations returns locations ordered by name, optionally through the
// result cache
func (s *Store) ListLocations(ttl time.Duration) ([]*Location, error) {
	rows, _, err := s.db.CachedQuery(listQuery(&Location{}, "", "name"), ttl)
	if err != nil {
		return nil, err
	}

	var out []*Location
	err = scanAll(rows,
		func() Record { return &Location{} },
		func(r Record) { out = append(out, r.(*Location)) })
	return out, err
}

// ListTargets returns active targets for a location, ordered by name
func (s *Store) ListTargets(locationId int64, ttl time.Duration) ([]*Target, error) {
	query := listQuery(&Target{}, "location_id = ? AND active = 1", "name")
	rows, _, err := s.db.CachedQuery(query, ttl, locationId)
	if err != nil {
		return nil, err
	}

	var out []*Target
	err = scanAll(rows,
		func() Record { return &Target{} },
		func(r Record) { out = append(out, r.(*Target)) })
	return out, err
}

// ReportFilter narrows ListReports
type ReportFilter struct {
	Status     string
	LocationId int64
	Limit      int
}

// ListReports returns reports newest-first, optionally filtered
func (s *Store) ListReports(f ReportFilter) ([]*Report, error) {
	var conds []string
	var args []any
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.LocationId != 0 {
		conds = append(conds, "location_id = ?")
		args = append(args, f.LocationId)
	}

	query := listQuery(&Report{}, strings.Join(conds, " AND "), "created_at DESC, id DESC")
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}

	var out []*Report
	err = scanAll(rows,
		func() Record { return &Report{} },
		func(r Record) { out = append(out, r.(*Report)) })
	return out, err
}

// FindReportByPublicID loads a report by its public UUID
func (s *Store) FindReportByPublicID(publicId string) (*Report, error) {
	var rep Report
	if err := s.FindWhere(&rep, "public_id = ?", publicId); err != nil {
		return nil, err
	}
	return &rep, nil
}

// FindUserByEmail loads a user by email
func (s *Store) FindUserByEmail(email string) (*User, error) {
	var u User
	if err := s.FindWhere(&u, "email = ?", email); err != nil {
		return nil, err
	}
	return &u, nil
}
