// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"nickandperla.net/scribescript/internal/mutation"
	"nickandperla.net/scribescript/internal/quality"
	"nickandperla.net/scribescript/internal/schedule"
)

// Current schema version
const SchemaVersion = "1"

const driverName = "sqlite"

// worldOwner is the owner key of world qualities in the qualities table.
const worldOwner = "#world"

// SQLite is a SQLite-backed store.
type SQLite struct {
	mu   sync.Mutex
	db   *sql.DB
	defs map[string]quality.Definition // Read-through cache for Lookup
	now  func() time.Time
}

// NewSQLite creates a new SQLite store at the given path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db, defs: make(map[string]quality.Definition), now: time.Now}

	version, err := s.getMetadataUnlocked("schema_version")
	if err != nil {
		db.Close()
		return nil, err
	}
	switch version {
	case "":
		if err := s.migrateToV1(); err != nil {
			db.Close()
			return nil, err
		}
		if err := s.setMetadataUnlocked("schema_version", SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	case SchemaVersion:
	default:
		db.Close()
		return nil, fmt.Errorf("unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}

	if err := s.loadDefinitions(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrateToV1 creates the runtime tables.
func (s *SQLite) migrateToV1() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS characters (
			id TEXT PRIMARY KEY
		);
		CREATE TABLE IF NOT EXISTS qualities (
			owner TEXT NOT NULL,
			id TEXT NOT NULL,
			data TEXT NOT NULL,
			PRIMARY KEY (owner, id)
		);
		CREATE TABLE IF NOT EXISTS definitions (
			id TEXT PRIMARY KEY,
			data TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS pending_events (
			id TEXT PRIMARY KEY,
			character TEXT NOT NULL,
			target TEXT NOT NULL,
			trigger_at INTEGER NOT NULL,
			data TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS pending_events_trigger ON pending_events (trigger_at);
		CREATE TABLE IF NOT EXISTS mutation_log (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			character TEXT NOT NULL,
			quality_id TEXT NOT NULL,
			data TEXT NOT NULL,
			ts TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS mutation_log_character ON mutation_log (character, seq);
	`)
	return err
}

func (s *SQLite) loadDefinitions() error {
	rows, err := s.db.Query("SELECT data FROM definitions")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return err
		}
		var d quality.Definition
		if err := json.Unmarshal([]byte(data), &d); err != nil {
			return fmt.Errorf("decode definition: %w", err)
		}
		s.defs[d.ID] = d
	}
	return rows.Err()
}

// Lookup implements quality.Registry from the definition cache.
func (s *SQLite) Lookup(id string) (quality.Definition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.defs[id]
	return d, ok
}

// Character returns a character's quality state.
func (s *SQLite) Character(id string) (quality.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadState(id)
}

func (s *SQLite) loadState(owner string) (quality.State, error) {
	rows, err := s.db.Query("SELECT data FROM qualities WHERE owner = ?", owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	state := quality.State{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		q := &quality.Quality{}
		if err := json.Unmarshal([]byte(data), q); err != nil {
			return nil, fmt.Errorf("decode quality: %w", err)
		}
		state[q.ID] = q
	}
	return state, rows.Err()
}

// SaveCharacter replaces a character's quality state.
func (s *SQLite) SaveCharacter(id string, state quality.State) error {
	if id == "" {
		return ErrEmptyCharacter
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT OR IGNORE INTO characters (id) VALUES (?)", id); err != nil {
			return err
		}
		return replaceState(tx, id, state)
	})
}

// Characters lists stored character IDs.
func (s *SQLite) Characters() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query("SELECT id FROM characters ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PutDefinition stores a definition.
func (s *SQLite) PutDefinition(d quality.Definition) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode definition: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(`
		INSERT INTO definitions (id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`, d.ID, string(data))
	if err != nil {
		return err
	}
	s.defs[d.ID] = d
	return nil
}

// Definitions returns all definitions sorted by ID.
func (s *SQLite) Definitions() ([]quality.Definition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query("SELECT data FROM definitions ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var defs []quality.Definition
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var d quality.Definition
		if err := json.Unmarshal([]byte(data), &d); err != nil {
			return nil, fmt.Errorf("decode definition: %w", err)
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// World returns the world qualities.
func (s *SQLite) World() (quality.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadState(worldOwner)
}

// SaveWorld replaces the world qualities.
func (s *SQLite) SaveWorld(state quality.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(func(tx *sql.Tx) error {
		return replaceState(tx, worldOwner, state)
	})
}

// Commit applies a batch in one transaction.
func (s *SQLite) Commit(character string, state quality.State, b Batch) error {
	if character == "" {
		return ErrEmptyCharacter
	}
	ts := s.now().UTC().Format(time.RFC3339Nano)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT OR IGNORE INTO characters (id) VALUES (?)", character); err != nil {
			return err
		}
		for _, id := range touched(b.Mutations) {
			q, ok := state.Get(id)
			if !ok {
				continue
			}
			if err := putQuality(tx, character, q); err != nil {
				return err
			}
		}
		for _, m := range b.Mutations {
			data, err := json.Marshal(m)
			if err != nil {
				return fmt.Errorf("encode mutation: %w", err)
			}
			if _, err := tx.Exec(
				"INSERT INTO mutation_log (character, quality_id, data, ts) VALUES (?, ?, ?, ?)",
				character, m.QualityID, string(data), ts,
			); err != nil {
				return err
			}
		}
		for _, c := range b.Cancelled {
			if _, err := tx.Exec(
				"DELETE FROM pending_events WHERE character = ? AND target = ?",
				character, c.TargetQualityID,
			); err != nil {
				return err
			}
		}
		for _, id := range b.Fired {
			if _, err := tx.Exec("DELETE FROM pending_events WHERE id = ?", id); err != nil {
				return err
			}
		}
		for _, ev := range b.Rescheduled {
			data, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("encode event: %w", err)
			}
			if _, err := tx.Exec(
				"UPDATE pending_events SET trigger_at = ?, data = ? WHERE id = ?",
				ev.TriggerTime.UnixNano(), string(data), ev.ID,
			); err != nil {
				return err
			}
		}
		for _, ev := range b.Scheduled {
			if err := putEvent(tx, character, ev); err != nil {
				return err
			}
		}
		return nil
	})
}

// History returns logged mutations newest first.
func (s *SQLite) History(character string, limit int) ([]LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := "SELECT seq, data, ts FROM mutation_log WHERE character = ? ORDER BY seq DESC"
	args := []any{character}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var (
			e        LogEntry
			data, ts string
		)
		if err := rows.Scan(&e.Seq, &data, &ts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &e.Mutation); err != nil {
			return nil, fmt.Errorf("decode mutation: %w", err)
		}
		if e.Ts, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("decode timestamp: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PendingEvents returns all pending events, oldest first.
func (s *SQLite) PendingEvents() ([]schedule.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query("SELECT character, data FROM pending_events ORDER BY trigger_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []schedule.Entry
	for rows.Next() {
		var character, data string
		if err := rows.Scan(&character, &data); err != nil {
			return nil, err
		}
		var ev mutation.PendingEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		entries = append(entries, schedule.Entry{CharacterID: character, Event: ev})
	}
	return entries, rows.Err()
}

// RemoveEvents deletes pending events by ID.
func (s *SQLite) RemoveEvents(ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.Exec("DELETE FROM pending_events WHERE id = ?", id); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetMetadata retrieves a metadata value by key.
func (s *SQLite) GetMetadata(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getMetadataUnlocked(key)
}

// getMetadataUnlocked retrieves metadata without locking (caller must hold lock).
func (s *SQLite) getMetadataUnlocked(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMetadata stores a metadata value by key.
func (s *SQLite) SetMetadata(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setMetadataUnlocked(key, value)
}

// setMetadataUnlocked stores metadata without locking (caller must hold lock).
func (s *SQLite) setMetadataUnlocked(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// inTx runs fn in a transaction (caller must hold lock).
func (s *SQLite) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func replaceState(tx *sql.Tx, owner string, state quality.State) error {
	if _, err := tx.Exec("DELETE FROM qualities WHERE owner = ?", owner); err != nil {
		return err
	}
	for _, id := range state.IDs() {
		q, _ := state.Get(id)
		if err := putQuality(tx, owner, q); err != nil {
			return err
		}
	}
	return nil
}

func putQuality(tx *sql.Tx, owner string, q *quality.Quality) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quality: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO qualities (owner, id, data) VALUES (?, ?, ?)
		ON CONFLICT(owner, id) DO UPDATE SET data = excluded.data
	`, owner, q.ID, string(data))
	return err
}

func putEvent(tx *sql.Tx, character string, ev mutation.PendingEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO pending_events (id, character, target, trigger_at, data) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			character = excluded.character, target = excluded.target,
			trigger_at = excluded.trigger_at, data = excluded.data
	`, ev.ID, character, ev.TargetQualityID, ev.TriggerTime.UnixNano(), string(data))
	return err
}
