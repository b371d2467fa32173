// Package localstate keeps the device-local settings in a bbolt file:
// the fallback owner id, the stored session token and the academic profile.
package localstate

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/trezcool/unilife/core"
	"github.com/trezcool/unilife/core/record"
)

var ErrNotFound = errors.New("not found")

var settingsBucket = []byte("settings")

// Keys
const (
	KeySessionToken = "session_token"
	KeyProfile      = "profile"
)

type Store struct {
	db *bbolt.DB
}

func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("local state path is required")
	}
	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening local state")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(settingsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating settings bucket")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the value stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var val string
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(settingsBucket).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		val = string(v)
		return nil
	})
	return val, storeErr(err)
}

func (s *Store) Put(ctx context.Context, key, val string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(settingsBucket).Put([]byte(key), []byte(val))
	})
	return storeErr(err)
}

// PutIfAbsent stores val under key unless a value is already there, and returns the stored value.
func (s *Store) PutIfAbsent(ctx context.Context, key, val string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	stored := val
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(settingsBucket)
		if v := b.Get([]byte(key)); v != nil {
			stored = string(v)
			return nil
		}
		return b.Put([]byte(key), []byte(val))
	})
	return stored, storeErr(err)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(settingsBucket).Delete([]byte(key))
	})
	return storeErr(err)
}

// storeErr reports a closed database as a shutdown error: the settings can no longer be read or saved.
func storeErr(err error) error {
	if errors.Cause(err) == bbolt.ErrDatabaseNotOpen {
		return core.NewShutdownError("local state is closed")
	}
	return err
}

// Token returns the stored session token, or "" when logged out.
func (s *Store) Token(ctx context.Context) (string, error) {
	token, err := s.Get(ctx, KeySessionToken)
	if errors.Cause(err) == ErrNotFound {
		return "", nil
	}
	return token, err
}

// Profile returns the stored academic profile, or one targeting defaultTarget.
func (s *Store) Profile(ctx context.Context, defaultTarget float64) (record.Profile, error) {
	val, err := s.Get(ctx, KeyProfile)
	if errors.Cause(err) == ErrNotFound {
		return record.Profile{TargetAverage: defaultTarget}, nil
	}
	if err != nil {
		return record.Profile{}, err
	}
	var p record.Profile
	if err = json.Unmarshal([]byte(val), &p); err != nil {
		return record.Profile{}, errors.Wrap(err, "decoding profile")
	}
	return p, nil
}

func (s *Store) SaveProfile(ctx context.Context, p record.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encoding profile")
	}
	return s.Put(ctx, KeyProfile, string(data))
}
