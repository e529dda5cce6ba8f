// Package boltengine is the alternative embedded engine backing the "sled"
// engine kind (spec.md §6.4's `--engine sled` flag). It stands in for
// original_source/src/engine/sled_eng.rs's SledKvEngine, which wraps the
// sled embedded database the same way this package wraps bbolt: a single
// key/value bucket, no segments, no compactor, no worker pool of its own.
// It exists to prove the engine surface (internal/engine.API) is
// substitutable (spec.md §1), not to be a second tuned storage engine.
//
// Grounded on dreamsxin-wal's go.etcd.io/bbolt dependency.
package boltengine

import (
	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/iamNilotpal/ignitedb/internal/engine"
	"github.com/iamNilotpal/ignitedb/pkg/errors"
)

// bucketName is the single bbolt bucket every key/value pair lives in.
var bucketName = []byte("ignitedb")

var _ engine.API = (*Engine)(nil)

// Engine is the bbolt-backed alternative embedded engine.
type Engine struct {
	db  *bbolt.DB
	log *zap.SugaredLogger
}

// Config configures an Engine.
type Config struct {
	// Path is the bbolt database file (spec.md §6.5 detects this
	// engine kind by the presence of a sled-managed "db" entry; this
	// port uses a single file instead, named by the caller).
	Path   string
	Logger *zap.SugaredLogger
}

// Open creates or opens the bbolt database at config.Path and ensures the
// single bucket every operation reads and writes exists.
func Open(config Config) (*Engine, error) {
	if config.Path == "" || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "boltengine configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	db, err := bbolt.Open(config.Path, 0644, bbolt.DefaultOptions)
	if err != nil {
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to open bolt database").
			WithPath(config.Path)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, errors.NewStorageError(err, errors.ErrorCodeIO, "failed to create bolt bucket").
			WithPath(config.Path)
	}

	config.Logger.Infow("bolt engine opened", "path", config.Path)
	return &Engine{db: db, log: config.Logger}, nil
}

// Set stores key/val, overwriting any existing value.
func (e *Engine) Set(key, val string) error {
	err := e.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), []byte(val))
	})
	if err != nil {
		return errors.NewEngineError(err, errors.ErrorCodeIO, "bolt put failed").
			WithOperation("Set").WithKey(key)
	}
	return nil
}

// Get returns key's current value, or (_, false, nil) if absent.
func (e *Engine) Get(key string) (string, bool, error) {
	var val []byte
	err := e.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(key))
		if v != nil {
			val = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return "", false, errors.NewEngineError(err, errors.ErrorCodeIO, "bolt get failed").
			WithOperation("Get").WithKey(key)
	}
	if val == nil {
		return "", false, nil
	}
	return string(val), true, nil
}

// Remove deletes key, failing with KeyNotFound if it was already absent
// (matching the log-structured engine's Remove contract, spec.md §4.4).
func (e *Engine) Remove(key string) error {
	_, present, err := e.Get(key)
	if err != nil {
		return err
	}
	if !present {
		return errors.NewKeyNotFoundEngineError("Remove", key)
	}

	if err := e.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	}); err != nil {
		return errors.NewEngineError(err, errors.ErrorCodeIO, "bolt delete failed").
			WithOperation("Remove").WithKey(key)
	}
	return nil
}

// Close closes the underlying bolt database.
func (e *Engine) Close() error {
	e.log.Infow("bolt engine closed")
	return e.db.Close()
}
