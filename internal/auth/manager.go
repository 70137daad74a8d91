package auth

import (
	"strings"
	"time"

	"tipline/internal/errors"
	"tipline/internal/logging"
	"tipline/internal/record"
)

// Config configures the auth manager
type Config struct {
	TokenTTL   time.Duration
	BcryptCost int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		TokenTTL:   72 * time.Hour,
		BcryptCost: 12,
	}
}

// Manager handles user accounts and session tokens, backed by the users and
// authentications tables
type Manager struct {
	config Config
	store  *record.Store
	logger *logging.Logger
}

// NewManager creates a new auth manager
func NewManager(config Config, store *record.Store, logger *logging.Logger) *Manager {
	if config.TokenTTL <= 0 {
		config.TokenTTL = DefaultConfig().TokenTTL
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = DefaultConfig().BcryptCost
	}
	return &Manager{
		config: config,
		store:  store,
		logger: logger,
	}
}

// CreateUser registers a new account
func (m *Manager) CreateUser(email, name, password, role string) (*record.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if role != record.RoleAdmin && role != record.RoleReviewer {
		return nil, ErrInvalidRole
	}

	if _, err := m.store.FindUserByEmail(email); err == nil {
		return nil, ErrDuplicateEmail
	}

	hash, err := HashPassword(password, m.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &record.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := m.store.Insert(user); err != nil {
		return nil, err
	}

	m.logger.Info("User created", map[string]any{
		"email": email,
		"role":  role,
	})
	return user, nil
}

// Authenticate checks email/password credentials.
// Failures are uniform: a missing account and a wrong password both return
// ErrInvalidCredentials.
func (m *Manager) Authenticate(email, password string) (*record.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := m.store.FindUserByEmail(email)
	if err != nil {
		if errors.CodeOf(err) == errors.NotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken creates a session token for a user, returning the raw token.
// Only the bcrypt hash and the lookup prefix are stored.
func (m *Manager) IssueToken(user *record.User) (string, error) {
	raw, prefix, err := GenerateToken()
	if err != nil {
		return "", err
	}

	hash, err := HashToken(raw, m.config.BcryptCost)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	authn := &record.Authentication{
		UserId:      user.Id,
		TokenHash:   hash,
		TokenPrefix: prefix,
		ExpiresAt:   now.Add(m.config.TokenTTL),
		CreatedAt:   now,
	}
	if err := m.store.Insert(authn); err != nil {
		return "", err
	}

	m.logger.Debug("Session token issued", map[string]any{
		"user_id": user.Id,
		"prefix":  prefix,
	})
	return raw, nil
}

// VerifyToken resolves a raw token to its user. Expired rows are deleted on
// sight; a successful verify touches last_seen_at.
func (m *Manager) VerifyToken(raw string) (*record.User, error) {
	prefix, err := ExtractTokenPrefix(raw)
	if err != nil {
		return nil, err
	}

	// Prefix collisions are possible, so check every candidate row
	rows, err := m.store.DB().Query(`
		SELECT id, user_id, token_hash, expires_at
		FROM authentications
		WHERE token_prefix = ?
	`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now().UTC()
	var matchedID, userID int64
	var expired bool
	for rows.Next() {
		var id, uid int64
		var hash string
		var expiresAt time.Time
		if err := rows.Scan(&id, &uid, &hash, &expiresAt); err != nil {
			return nil, err
		}
		if !VerifyTokenHash(raw, hash) {
			continue
		}
		if now.After(expiresAt) {
			expired = true
			matchedID = id
			break
		}
		matchedID = id
		userID = uid
		break
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if matchedID == 0 {
		return nil, ErrTokenNotFound
	}
	if expired {
		_, _ = m.store.DB().Exec("DELETE FROM authentications WHERE id = ?", matchedID)
		return nil, ErrTokenExpired
	}

	_, err = m.store.DB().Exec(
		"UPDATE authentications SET last_seen_at = ? WHERE id = ?",
		now.Format(time.RFC3339), matchedID)
	if err != nil {
		m.logger.Warn("Failed to touch token", map[string]any{
			"error": err.Error(),
		})
	}

	var user record.User
	if err := m.store.Find(&user, userID); err != nil {
		return nil, err
	}
	return &user, nil
}

// RevokeToken deletes the session matching a raw token
func (m *Manager) RevokeToken(raw string) error {
	prefix, err := ExtractTokenPrefix(raw)
	if err != nil {
		return err
	}

	rows, err := m.store.DB().Query(`
		SELECT id, token_hash FROM authentications WHERE token_prefix = ?
	`, prefix)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return err
		}
		if VerifyTokenHash(raw, hash) {
			_, err := m.store.DB().Exec("DELETE FROM authentications WHERE id = ?", id)
			return err
		}
	}
	return ErrTokenNotFound
}

// CleanupExpired deletes expired session rows, returning the number removed
func (m *Manager) CleanupExpired() (int64, error) {
	res, err := m.store.DB().Exec(
		"DELETE FROM authentications WHERE expires_at < ?",
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
