// Package record implements the active-record layer: each model declares its
// table, columns and value/pointer lists, and the Store builds parameterized
// INSERT/UPDATE/DELETE/SELECT statements from those declarations. No
// reflection is involved.
package record

import (
	"time"
)

// Record is implemented by every model. Columns excludes the primary key;
// Values and Pointers must match Columns in length and order.
type Record interface {
	// Table returns the table name
	Table() string
	// Columns returns the non-key column names in declaration order
	Columns() []string
	// PrimaryKey returns the primary key column name
	PrimaryKey() string
	// ID returns the primary key value, 0 when unsaved
	ID() int64
	// SetID sets the primary key value after an insert
	SetID(int64)
	// Values returns bind values for Columns, in order
	Values() []any
	// Pointers returns scan destinations for Columns, in order
	Pointers() []any
}

// Report statuses
const (
	StatusOpen      = "open"
	StatusReviewing = "reviewing"
	StatusClosed    = "closed"
)

// User roles
const (
	RoleAdmin    = "admin"
	RoleReviewer = "reviewer"
)

// Location is a place reports can be filed against
type Location struct {
	Id        int64
	Name      string
	Region    string
	CreatedAt time.Time
}

func (l *Location) Table() string      { return "locations" }
func (l *Location) PrimaryKey() string { return "id" }
func (l *Location) ID() int64          { return l.Id }
func (l *Location) SetID(id int64)     { l.Id = id }

func (l *Location) Columns() []string {
	return []string{"name", "region", "created_at"}
}

func (l *Location) Values() []any {
	return []any{l.Name, l.Region, l.CreatedAt.UTC().Format(time.RFC3339)}
}

func (l *Location) Pointers() []any {
	return []any{&l.Name, &l.Region, &l.CreatedAt}
}

// Target is a named entity within a location that a report can point at
type Target struct {
	Id         int64
	LocationId int64
	Name       string
	Category   string
	Active     bool
	CreatedAt  time.Time
}

func (t *Target) Table() string      { return "targets" }
func (t *Target) PrimaryKey() string { return "id" }
func (t *Target) ID() int64          { return t.Id }
func (t *Target) SetID(id int64)     { t.Id = id }

func (t *Target) Columns() []string {
	return []string{"location_id", "name", "category", "active", "created_at"}
}

func (t *Target) Values() []any {
	return []any{t.LocationId, t.Name, t.Category, t.Active, t.CreatedAt.UTC().Format(time.RFC3339)}
}

func (t *Target) Pointers() []any {
	return []any{&t.LocationId, &t.Name, &t.Category, &t.Active, &t.CreatedAt}
}

// Report is a submitted tip
type Report struct {
	Id            int64
	PublicId      string
	LocationId    int64
	TargetId      *int64
	ReporterName  string
	ReporterEmail string
	Subject       string
	Body          string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (r *Report) Table() string      { return "reports" }
func (r *Report) PrimaryKey() string { return "id" }
func (r *Report) ID() int64          { return r.Id }
func (r *Report) SetID(id int64)     { r.Id = id }

func (r *Report) Columns() []string {
	return []string{
		"public_id", "location_id", "target_id",
		"reporter_name", "reporter_email",
		"subject", "body", "status",
		"created_at", "updated_at",
	}
}

func (r *Report) Values() []any {
	return []any{
		r.PublicId, r.LocationId, r.TargetId,
		r.ReporterName, r.ReporterEmail,
		r.Subject, r.Body, r.Status,
		r.CreatedAt.UTC().Format(time.RFC3339), r.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (r *Report) Pointers() []any {
	return []any{
		&r.PublicId, &r.LocationId, &r.TargetId,
		&r.ReporterName, &r.ReporterEmail,
		&r.Subject, &r.Body, &r.Status,
		&r.CreatedAt, &r.UpdatedAt,
	}
}

// ValidTransition reports whether a status change is allowed.
// open -> reviewing -> closed, with reopening from reviewing back to open.
func ValidTransition(from, to string) bool {
	switch from {
	case StatusOpen:
		return to == StatusReviewing
	case StatusReviewing:
		return to == StatusClosed || to == StatusOpen
	default:
		return false
	}
}

// User is a reviewer or admin account
type User struct {
	Id           int64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

func (u *User) Table() string      { return "users" }
func (u *User) PrimaryKey() string { return "id" }
func (u *User) ID() int64          { return u.Id }
func (u *User) SetID(id int64)     { u.Id = id }

func (u *User) Columns() []string {
	return []string{"email", "name", "password_hash", "role", "created_at"}
}

func (u *User) Values() []any {
	return []any{u.Email, u.Name, u.PasswordHash, u.Role, u.CreatedAt.UTC().Format(time.RFC3339)}
}

func (u *User) Pointers() []any {
	return []any{&u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.CreatedAt}
}

// Authentication is an issued session token
type Authentication struct {
	Id          int64
	UserId      int64
	TokenHash   string
	TokenPrefix string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	LastSeenAt  *time.Time
}

func (a *Authentication) Table() string      { return "authentications" }
func (a *Authentication) PrimaryKey() string { return "id" }
func (a *Authentication) ID() int64          { return a.Id }
func (a *Authentication) SetID(id int64)     { a.Id = id }

func (a *Authentication) Columns() []string {
	return []string{"user_id", "token_hash", "token_prefix", "expires_at", "created_at", "last_seen_at"}
}

func (a *Authentication) Values() []any {
	var lastSeen any
	if a.LastSeenAt != nil {
		lastSeen = a.LastSeenAt.UTC().Format(time.RFC3339)
	}
	return []any{
		a.UserId, a.TokenHash, a.TokenPrefix,
		a.ExpiresAt.UTC().Format(time.RFC3339),
		a.CreatedAt.UTC().Format(time.RFC3339),
		lastSeen,
	}
}

func (a *Authentication) Pointers() []any {
	return []any{&a.UserId, &a.TokenHash, &a.TokenPrefix, &a.ExpiresAt, &a.CreatedAt, &a.LastSeenAt}
}
