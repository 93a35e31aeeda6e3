// Package settings persists operator preferences between runs in a local
// SQLite database.
package settings

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Preference keys.
const (
	KeyMaxRetries      = "max_retries"
	KeyChatworkEnabled = "chatwork_enabled"
	KeyChatworkAPIKey  = "chatwork_api_key"
	KeyChatworkRoomID  = "chatwork_room_id"
)

// Keys lists every known preference key.
var Keys = []string{KeyMaxRetries, KeyChatworkEnabled, KeyChatworkAPIKey, KeyChatworkRoomID}

// ErrUnknownKey is returned for keys outside Keys.
var ErrUnknownKey = errors.New("unknown preference")

// Preferences are the values an operator sets once and reuses.
type Preferences struct {
	MaxRetries      int
	ChatworkEnabled bool
	ChatworkAPIKey  string
	ChatworkRoomID  string

	present map[string]bool
}

// DefaultPreferences returns the values used before anything is stored.
func DefaultPreferences() Preferences {
	return Preferences{MaxRetries: 3}
}

// Has reports whether key was loaded from the store.
func (p Preferences) Has(key string) bool {
	return p.present[key]
}

// Set parses value into the field named by key.
func (p *Preferences) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case KeyMaxRetries:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive integer, got %q", key, value)
		}
		p.MaxRetries = n
	case KeyChatworkEnabled:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s must be true or false, got %q", key, value)
		}
		p.ChatworkEnabled = b
	case KeyChatworkAPIKey:
		p.ChatworkAPIKey = value
	case KeyChatworkRoomID:
		p.ChatworkRoomID = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if p.present == nil {
		p.present = make(map[string]bool)
	}
	p.present[key] = true
	return nil
}

// Values renders the preferences as key/value strings.
func (p Preferences) Values() map[string]string {
	return map[string]string{
		KeyMaxRetries:      strconv.Itoa(p.MaxRetries),
		KeyChatworkEnabled: strconv.FormatBool(p.ChatworkEnabled),
		KeyChatworkAPIKey:  p.ChatworkAPIKey,
		KeyChatworkRoomID:  p.ChatworkRoomID,
	}
}

// Store reads and writes preferences.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create settings directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply settings schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the stored preferences on top of DefaultPreferences.
func (s *Store) Load(ctx context.Context) (Preferences, error) {
	prefs := DefaultPreferences()

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM preferences`)
	if err != nil {
		return prefs, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return prefs, fmt.Errorf("scan preference: %w", err)
		}
		if err := prefs.Set(key, value); err != nil {
			if errors.Is(err, ErrUnknownKey) {
				continue
			}
			return prefs, fmt.Errorf("stored preference: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return prefs, fmt.Errorf("read preferences: %w", err)
	}
	return prefs, nil
}

// Save stores every preference.
func (s *Store) Save(ctx context.Context, prefs Preferences) error {
	if prefs.MaxRetries < 1 {
		return fmt.Errorf("%s must be a positive integer, got %d", KeyMaxRetries, prefs.MaxRetries)
	}
	return s.put(ctx, prefs.Values())
}

// Set validates and stores one preference.
func (s *Store) Set(ctx context.Context, key, value string) error {
	var p Preferences
	if err := p.Set(key, value); err != nil {
		return err
	}
	return s.put(ctx, map[string]string{key: p.Values()[key]})
}

func (s *Store) put(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings tx: %w", err)
	}
	defer tx.Rollback()

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := time.Now().Unix()
	for _, k := range keys {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			k, values[k], now,
		)
		if err != nil {
			return fmt.Errorf("store %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settings: %w", err)
	}
	return nil
}
