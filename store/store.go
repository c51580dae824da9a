// Package store persists run artifacts — the scanned conversation list,
// selection key sets, accumulated messages, and user settings — so the
// orchestrator can resume export after a restart without re-scanning.
package store

import (
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pevans/chatexport"
)

// Store manages run artifacts using SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the artifact database at the given path.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the artifact tables if they don't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chats (
		chat_key      TEXT PRIMARY KEY,
		display_name  TEXT NOT NULL,
		last_preview  TEXT,
		last_activity TEXT,
		profile_url   TEXT,
		position      INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS selection (
		chat_key TEXT PRIMARY KEY,
		excluded INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS messages (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		platform     TEXT NOT NULL,
		message_date TEXT,
		sender       TEXT,
		receiver     TEXT,
		text         TEXT,
		chat_key     TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS runs (
		run_id     TEXT PRIMARY KEY,
		status     TEXT NOT NULL,
		processed  INTEGER NOT NULL,
		total      INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceChats stores a scan result, replacing the previous list wholesale.
func (s *Store) ReplaceChats(chats []chatexport.ConversationSummary) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM chats"); err != nil {
		return fmt.Errorf("failed to clear chats: %w", err)
	}
	for i, c := range chats {
		_, err := tx.Exec(
			"INSERT INTO chats (chat_key, display_name, last_preview, last_activity, profile_url, position) VALUES (?, ?, ?, ?, ?, ?)",
			c.ChatKey, c.DisplayName, c.LastPreview, c.LastActivity, c.ProfileURL, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chat %s: %w", c.ChatKey, err)
		}
	}
	return tx.Commit()
}

// LoadChats returns the stored scan result in scan order.
func (s *Store) LoadChats() ([]chatexport.ConversationSummary, error) {
	rows, err := s.db.Query(
		"SELECT chat_key, display_name, last_preview, last_activity, profile_url FROM chats ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	var chats []chatexport.ConversationSummary
	for rows.Next() {
		var c chatexport.ConversationSummary
		if err := rows.Scan(&c.ChatKey, &c.DisplayName, &c.LastPreview, &c.LastActivity, &c.ProfileURL); err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// SaveSelection stores the selected and excluded key sets.
func (s *Store) SaveSelection(selected, excluded []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM selection"); err != nil {
		return fmt.Errorf("failed to clear selection: %w", err)
	}
	for _, key := range selected {
		if _, err := tx.Exec("INSERT OR REPLACE INTO selection (chat_key, excluded) VALUES (?, 0)", key); err != nil {
			return fmt.Errorf("failed to insert selection: %w", err)
		}
	}
	for _, key := range excluded {
		if _, err := tx.Exec("INSERT OR REPLACE INTO selection (chat_key, excluded) VALUES (?, 1)", key); err != nil {
			return fmt.Errorf("failed to insert exclusion: %w", err)
		}
	}
	return tx.Commit()
}

// LoadSelection returns the stored selected and excluded key sets.
func (s *Store) LoadSelection() (selected, excluded []string, err error) {
	rows, err := s.db.Query("SELECT chat_key, excluded FROM selection")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query selection: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var isExcluded int
		if err := rows.Scan(&key, &isExcluded); err != nil {
			return nil, nil, fmt.Errorf("failed to scan selection row: %w", err)
		}
		if isExcluded == 1 {
			excluded = append(excluded, key)
		} else {
			selected = append(selected, key)
		}
	}
	return selected, excluded, rows.Err()
}

// AppendMessages adds newly extracted messages to the accumulated list.
func (s *Store) AppendMessages(messages []chatexport.ExtractedMessage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range messages {
		_, err := tx.Exec(
			"INSERT INTO messages (platform, message_date, sender, receiver, text, chat_key) VALUES (?, ?, ?, ?, ?, ?)",
			m.Platform, m.MessageDate, m.Sender, m.Receiver, m.Text, m.ChatKey,
		)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}
	return tx.Commit()
}

// LoadMessages returns all accumulated messages in insertion order.
func (s *Store) LoadMessages() ([]chatexport.ExtractedMessage, error) {
	rows, err := s.db.Query(
		"SELECT platform, message_date, sender, receiver, text, chat_key FROM messages ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []chatexport.ExtractedMessage
	for rows.Next() {
		var m chatexport.ExtractedMessage
		if err := rows.Scan(&m.Platform, &m.MessageDate, &m.Sender, &m.Receiver, &m.Text, &m.ChatKey); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ClearMessages drops the accumulated message list, typically at the start
// of a fresh run.
func (s *Store) ClearMessages() error {
	if _, err := s.db.Exec("DELETE FROM messages"); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}

// SaveSettings stores the user settings.
func (s *Store) SaveSettings(settings chatexport.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	return s.setValue("settings", string(data))
}

// LoadSettings returns the stored settings, or defaults when none were
// saved yet.
func (s *Store) LoadSettings() (chatexport.Settings, error) {
	var settings chatexport.Settings
	value, ok, err := s.getValue("settings")
	if err != nil {
		return settings, err
	}
	if !ok {
		return settings.Normalize(), nil
	}
	if err := json.Unmarshal([]byte(value), &settings); err != nil {
		return settings, fmt.Errorf("failed to parse stored settings: %w", err)
	}
	return settings.Normalize(), nil
}

// SaveAnonKey stores the anonymization key. It lives only here; exports
// never carry it.
func (s *Store) SaveAnonKey(key []byte) error {
	return s.setValue("anon_key", hex.EncodeToString(key))
}

// LoadAnonKey returns the stored anonymization key, generating and storing
// a fresh one on first use.
func (s *Store) LoadAnonKey() ([]byte, error) {
	value, ok, err := s.getValue("anon_key")
	if err != nil {
		return nil, err
	}
	if ok {
		key, err := hex.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("failed to decode stored key: %w", err)
		}
		return key, nil
	}

	key, err := chatexport.NewAnonKey()
	if err != nil {
		return nil, err
	}
	if err := s.SaveAnonKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

// SaveRun upserts a run record.
func (s *Store) SaveRun(runID string, status chatexport.RunStatus, processed, total int) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO runs (run_id, status, processed, total, updated_at) VALUES (?, ?, ?, ?, ?)",
		runID, string(status), processed, total, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func (s *Store) setValue(key, value string) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func (s *Store) getValue(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query %s: %w", key, err)
	}
	return value, true, nil
}
