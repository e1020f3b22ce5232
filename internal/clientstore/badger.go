package clientstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Badger persists values in an embedded Badger database.
type Badger struct {
	db     *badger.DB
	ttl    time.Duration
	logger *zap.Logger
}

// OpenBadger opens (or creates) the database at path. A positive ttl expires
// entries that are not written again within it.
func OpenBadger(path string, ttl time.Duration, logger *zap.Logger) (*Badger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	logger.Info("guest store: badger opened", zap.String("path", path))
	return &Badger{db: db, ttl: ttl, logger: logger}, nil
}

func (b *Badger) Get(key string) (string, bool, error) {
	var value string
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("badger get %s: %w", key, err)
	}
	return value, true, nil
}

func (b *Badger) Set(key, value string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), []byte(value))
		if b.ttl > 0 {
			entry = entry.WithTTL(b.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

func (b *Badger) Remove(key string) error {
	if err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	}); err != nil {
		return fmt.Errorf("badger delete %s: %w", key, err)
	}
	return nil
}

// Touch rewrites key with a fresh ttl. Missing keys are ignored.
func (b *Badger) Touch(key string) error {
	if b.ttl <= 0 {
		return nil
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(b.ttl))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("badger touch %s: %w", key, err)
	}
	return nil
}

// DeletePrefix deletes the keys under prefix one by one. DropPrefix is
// avoided because it blocks writes to the whole database while it runs.
func (b *Badger) DeletePrefix(prefix string) error {
	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger scan prefix %s: %w", prefix, err)
	}
	if len(keys) == 0 {
		return nil
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return fmt.Errorf("badger delete prefix %s: %w", prefix, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("badger delete prefix %s: %w", prefix, err)
	}
	return nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}
