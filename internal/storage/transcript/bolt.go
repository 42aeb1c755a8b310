package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/antoniopedrola/synthetic-research/internal/model/chat"
)

var bucketName = []byte("transcripts")

// Store persists full conversation transcripts in a BoltDB file. Each record
// is the complete turn sequence for one (persona, session) pair; Save has
// upsert semantics on that composite key.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the transcript database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening transcript db %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored transcript for the (persona, session) pair.
func (s *Store) Save(personaID, sessionID string, turns []chat.Turn) error {
	if turns == nil {
		turns = []chat.Turn{}
	}
	enc, err := json.Marshal(turns)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key(personaID, sessionID), enc)
	})
}

// Load returns the stored transcript for the (persona, session) pair, or an
// empty slice when none exists.
func (s *Store) Load(personaID, sessionID string) ([]chat.Turn, error) {
	var turns []chat.Turn
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketName).Get(key(personaID, sessionID))
		if len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, &turns)
	})
	if err != nil {
		return nil, err
	}
	return turns, nil
}

func key(personaID, sessionID string) []byte {
	return []byte(personaID + "/" + sessionID)
}
