package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"conduit/internal/auth"
	"conduit/internal/types"
)

var (
	bucketCredentials  = []byte("credentials")
	bucketSessionCache = []byte("session_cache")
	keyCredentials     = []byte("current")
	keySessionList     = []byte("list")
)

type bboltRepository struct {
	db          *bolt.DB
	credentials auth.Storage
	sessions    SessionCacheStore
}

func NewBboltRepository(path string) (Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRepository{
		db:          db,
		credentials: &bboltCredentialStore{db: db},
		sessions:    &bboltSessionCacheStore{db: db},
	}, nil
}

func initSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketCredentials, bucketSessionCache} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *bboltRepository) Credentials() auth.Storage {
	return r.credentials
}

func (r *bboltRepository) Sessions() SessionCacheStore {
	return r.sessions
}

func (r *bboltRepository) Close() error {
	return r.db.Close()
}

type bboltCredentialStore struct {
	db *bolt.DB
}

func (s *bboltCredentialStore) Load() (auth.Credentials, error) {
	var creds auth.Credentials
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketCredentials).Get(keyCredentials)
		if len(data) == 0 {
			return nil
		}
		return json.Unmarshal(data, &creds)
	})
	return creds, err
}

func (s *bboltCredentialStore) Save(creds auth.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCredentials).Put(keyCredentials, data)
	})
}

func (s *bboltCredentialStore) Clear() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCredentials).Delete(keyCredentials)
	})
}

type bboltSessionCacheStore struct {
	db *bolt.DB
}

func (s *bboltSessionCacheStore) SaveSessions(sessions []*types.ChatSession) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSessionCache).Put(keySessionList, data)
	})
}

func (s *bboltSessionCacheStore) LoadSessions() ([]*types.ChatSession, error) {
	var sessions []*types.ChatSession
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketSessionCache).Get(keySessionList)
		if len(data) == 0 {
			return nil
		}
		return json.Unmarshal(data, &sessions)
	})
	return sessions, err
}
