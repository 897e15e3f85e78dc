package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/spigell/music-dna/internal/buddy"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrNotFound is returned when no profile matches the lookup.
var ErrNotFound = errors.New("profile not found")

// Store persists buddy profiles in a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the profile database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := path
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps in-memory databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, path: path}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS buddy_profiles (
		id TEXT PRIMARY KEY,
		persona_id INTEGER NOT NULL,
		persona_name TEXT NOT NULL,
		traits_json TEXT NOT NULL,
		vibe_tags_json TEXT NOT NULL,
		nickname TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		linkedin_url TEXT NOT NULL DEFAULT '',
		is_discoverable INTEGER NOT NULL DEFAULT 1,
		show_contacts_publicly INTEGER NOT NULL DEFAULT 0,
		access_token TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_buddy_profiles_browse ON buddy_profiles(is_discoverable, expires_at);
	CREATE INDEX IF NOT EXISTS idx_buddy_profiles_created ON buddy_profiles(created_at);
	CREATE INDEX IF NOT EXISTS idx_buddy_profiles_persona ON buddy_profiles(persona_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

const profileColumns = `id, persona_id, persona_name, traits_json, vibe_tags_json, nickname, city,
	email, linkedin_url, is_discoverable, show_contacts_publicly, access_token, created_at, expires_at`

// Insert stores a new profile.
func (s *Store) Insert(ctx context.Context, p *buddy.Profile) error {
	traits, err := json.Marshal(nonNil(p.Traits))
	if err != nil {
		return fmt.Errorf("failed to marshal traits: %w", err)
	}
	tags, err := json.Marshal(nonNil(p.VibeTags))
	if err != nil {
		return fmt.Errorf("failed to marshal vibe tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO buddy_profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.PersonaID, p.PersonaName, string(traits), string(tags), p.Nickname, p.City,
		p.Email, p.LinkedInURL, p.IsDiscoverable, p.ShowContactsPublicly, p.AccessToken,
		p.CreatedAt.UnixMilli(), p.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// FindByID returns the profile with the given id, expired or not.
func (s *Store) FindByID(ctx context.Context, id string) (*buddy.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM buddy_profiles WHERE id = ?`, id)
	return scanProfile(row)
}

// FindByToken returns the profile owned by the given access token.
func (s *Store) FindByToken(ctx context.Context, token string) (*buddy.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM buddy_profiles WHERE access_token = ?`, token)
	return scanProfile(row)
}

// Query narrows a browse over discoverable, unexpired profiles.
type Query struct {
	Now       time.Time
	PersonaID *int
	City      string
	Limit     int
}

// List returns discoverable profiles that have not expired at q.Now, newest first.
func (s *Store) List(ctx context.Context, q Query) (*buddy.Profiles, error) {
	var (
		sb   strings.Builder
		args []any
	)

	sb.WriteString(`SELECT ` + profileColumns + ` FROM buddy_profiles WHERE is_discoverable = 1 AND expires_at > ?`)
	args = append(args, q.Now.UnixMilli())

	if q.PersonaID != nil {
		sb.WriteString(` AND persona_id = ?`)
		args = append(args, *q.PersonaID)
	}
	if q.City != "" {
		sb.WriteString(` AND city = ?`)
		args = append(args, q.City)
	}

	sb.WriteString(` ORDER BY created_at DESC, rowid DESC`)
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := &buddy.Profiles{Items: []*buddy.Profile{}}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles.Items = append(profiles.Items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return profiles, nil
}

// UpdateByToken overwrites the owner-editable fields of the profile owned by token.
func (s *Store) UpdateByToken(ctx context.Context, token string, p *buddy.Profile) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE buddy_profiles SET nickname = ?, city = ?, email = ?, linkedin_url = ?,
			is_discoverable = ?, show_contacts_publicly = ? WHERE access_token = ?`,
		p.Nickname, p.City, p.Email, p.LinkedInURL, p.IsDiscoverable, p.ShowContactsPublicly, token,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return expectAffected(res)
}

// DeleteByToken removes the profile owned by token.
func (s *Store) DeleteByToken(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM buddy_profiles WHERE access_token = ?`, token)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return expectAffected(res)
}

// DeleteExpired removes every profile whose retention window has passed at now
// and returns how many were removed.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM buddy_profiles WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired profiles: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted profiles: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*buddy.Profile, error) {
	var (
		p                  buddy.Profile
		traits, tags       string
		created, expiresAt int64
	)

	err := row.Scan(&p.ID, &p.PersonaID, &p.PersonaName, &traits, &tags, &p.Nickname, &p.City,
		&p.Email, &p.LinkedInURL, &p.IsDiscoverable, &p.ShowContactsPublicly, &p.AccessToken,
		&created, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}

	if err := json.Unmarshal([]byte(traits), &p.Traits); err != nil {
		return nil, fmt.Errorf("failed to decode traits of %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &p.VibeTags); err != nil {
		return nil, fmt.Errorf("failed to decode vibe tags of %s: %w", p.ID, err)
	}

	p.CreatedAt = time.UnixMilli(created).UTC()
	p.ExpiresAt = time.UnixMilli(expiresAt).UTC()

	return &p, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
