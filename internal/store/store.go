// Package store persists the whole session collection as a single keyed JSON
// blob in SQLite. The database is opened eagerly but failures degrade to
// in-memory operation: if opening the DB or executing queries fails, the
// collection lives only for the lifetime of the process.
//
// The collection is the one shared mutable resource of the application. It is
// replaced wholesale on every mutation (copy-on-write at the collection
// level), serialized atomically, last-write-wins at the storage boundary.
package store

import (
	"database/sql"
	"encoding/json"
	"sync"

	_ "github.com/glebarez/go-sqlite"

	"github.com/gemchat/gemchat-go/internal/chat"
	"github.com/gemchat/gemchat-go/internal/logger"
)

// blobKey matches the storage key used by the original web client.
const blobKey = "gemini_sessions"

// Store owns the session collection and its durable copy.
type Store struct {
	mu       sync.Mutex
	sessions []chat.Session
	db       *sql.DB // nil when running on the in-memory fallback
}

// Open loads the persisted collection from the SQLite file at path. Any
// failure to open the database or read the blob is non-fatal: the store
// starts empty and keeps working in memory.
func Open(path string) *Store {
	s := &Store{}

	db, err := sql.Open("sqlite", "file:"+path+"?_busy_timeout=10000&_fk=1")
	if err != nil {
		logger.L.Warn("sqlite open failed; using in-memory sessions", "error", err)
		return s
	}
	if _, err = db.Exec(`CREATE TABLE IF NOT EXISTS blobs (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL
	);`); err != nil {
		logger.L.Warn("sqlite table creation failed; using in-memory sessions", "error", err)
		if cerr := db.Close(); cerr != nil {
			logger.L.Warn("sqlite close error", "error", cerr)
		}
		return s
	}

	s.db = db
	s.sessions = s.read()
	return s
}

// read fetches and decodes the blob. Absent or unreadable content is treated
// as an empty collection, never as an error.
func (s *Store) read() []chat.Session {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM blobs WHERE key = ?;`, blobKey).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		logger.L.Warn("sqlite read failed; starting with empty sessions", "error", err)
		return nil
	}

	var sessions []chat.Session
	if err := json.Unmarshal([]byte(payload), &sessions); err != nil {
		logger.L.Warn("malformed session blob; starting with empty sessions", "error", err)
		return nil
	}
	return sessions
}

// persist serializes the whole collection and writes it under blobKey.
// Write failures are logged and ignored; the in-memory copy stays valid.
// Caller must hold s.mu.
func (s *Store) persist() {
	if s.db == nil {
		return
	}
	payload, err := json.Marshal(s.sessions)
	if err != nil {
		logger.L.Error("failed to serialize sessions", "error", err)
		return
	}
	_, err = s.db.Exec(`INSERT INTO blobs (key, payload) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload;`, blobKey, string(payload))
	if err != nil {
		logger.L.Error("failed to store sessions in sqlite; keeping in-memory copy", "error", err)
	}
}

// Sessions returns the current collection snapshot. The returned slice is a
// copy; element contents are safe to read because all mutation goes through
// copy-on-write replacement.
func (s *Store) Sessions() []chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chat.Session, len(s.sessions))
	copy(out, s.sessions)
	return out
}

// SessionByID returns the session with the given id, if present.
func (s *Store) SessionByID(id string) (chat.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return chat.Session{}, false
}

// Add prepends a new session to the collection and persists.
func (s *Store) Add(sess chat.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]chat.Session, 0, len(s.sessions)+1)
	next = append(next, sess)
	next = append(next, s.sessions...)
	s.sessions = next
	s.persist()
}

// Delete removes the session with the given id and persists. Deleting an
// unknown id is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]chat.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if sess.ID != id {
			next = append(next, sess)
		}
	}
	s.sessions = next
	s.persist()
}

// MutateSession maps the collection, replacing the session matching id with
// fn's result and leaving all others untouched, then persists. A missing id
// is a silent no-op: a session deleted mid-stream must neither resurrect nor
// raise.
func (s *Store) MutateSession(id string, fn func(chat.Session) chat.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found := false
	next := make([]chat.Session, len(s.sessions))
	for i, sess := range s.sessions {
		if sess.ID == id {
			next[i] = fn(sess)
			found = true
		} else {
			next[i] = sess
		}
	}
	if !found {
		return
	}
	s.sessions = next
	s.persist()
}

// Close releases the underlying database, if any.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return
	}
	if err := s.db.Close(); err != nil {
		logger.L.Warn("sqlite close error", "error", err)
	}
	s.db = nil
}
