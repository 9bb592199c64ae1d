package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Badger stores entries in a Badger directory and lets Badger expire them.
type Badger struct {
	db     *badger.DB
	policy TTLPolicy
}

// OpenBadger opens or creates a Badger store at dir.
func OpenBadger(dir string, policy TTLPolicy) (*Badger, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Badger{db: db, policy: policy}, nil
}

// openBadgerInMemory backs tests without touching disk.
func openBadgerInMemory(policy TTLPolicy) (*Badger, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Badger{db: db, policy: policy}, nil
}

func (b *Badger) Get(_ context.Context, key string, typ Type) ([]byte, bool, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(compositeKey(typ, key)))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger get: %w", err)
	}
	return value, true, nil
}

func (b *Badger) Set(_ context.Context, key string, typ Type, value []byte) error {
	entry := badger.NewEntry([]byte(compositeKey(typ, key)), append([]byte(nil), value...))
	if ttl := b.policy.For(typ); ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(entry)
	})
}

func (b *Badger) Delete(_ context.Context, key string, typ Type) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(compositeKey(typ, key)))
	})
}

func (b *Badger) Close() error {
	return b.db.Close()
}
