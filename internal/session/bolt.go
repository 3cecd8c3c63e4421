package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	boltFilePerm    = fs.FileMode(0o600)
	boltDirPerm     = fs.FileMode(0o700)
	boltOpenTimeout = 5 * time.Second
)

var sessionsBucket = []byte("sessions")

type boltEntry struct {
	Data      []byte `json:"data"`
	ExpiresAt int64  `json:"expires_at"`
}

// BoltStore keeps sessions in a bbolt database.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed) the database at path.
func NewBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), boltDirPerm); err != nil {
		return nil, fmt.Errorf("session: creating database directory: %w", err)
	}

	db, err := bolt.Open(path, boltFilePerm, &bolt.Options{Timeout: boltOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("session: opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("session: initializing bolt db: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Load(_ context.Context, key string, now time.Time) ([]byte, error) {
	var data []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(sessionsBucket).Get([]byte(key))
		if v == nil {
			return nil
		}

		var e boltEntry
		if err := json.Unmarshal(v, &e); err != nil {
			return err
		}

		if now.Unix() < e.ExpiresAt {
			data = e.Data
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("session: reading bolt entry: %w", err)
	}

	return data, nil
}

func (s *BoltStore) Save(_ context.Context, key string, data []byte, expiresAt time.Time) error {
	buf, err := json.Marshal(boltEntry{Data: data, ExpiresAt: expiresAt.Unix()})
	if err != nil {
		return fmt.Errorf("session: encoding bolt entry: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Put([]byte(key), buf)
	})
}

func (s *BoltStore) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(sessionsBucket).Delete([]byte(key))
	})
}

func (s *BoltStore) Sweep(_ context.Context, now time.Time) (int, error) {
	var n int

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionsBucket)

		var expired [][]byte

		err := b.ForEach(func(k, v []byte) error {
			var e boltEntry
			if json.Unmarshal(v, &e) != nil || now.Unix() >= e.ExpiresAt {
				expired = append(expired, append([]byte(nil), k...))
			}

			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}

		n = len(expired)

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("session: sweeping bolt db: %w", err)
	}

	return n, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
