package badgergrid

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/yndnr/gridsession-go/pkg/grid"
)

// Map is one key prefix of a Client's database.
type Map struct {
	name   string
	prefix []byte
	client *Client
}

var _ grid.Map = (*Map)(nil)

func (m *Map) Name() string { return m.name }

func (m *Map) key(k string) []byte {
	out := make([]byte, 0, len(m.prefix)+len(k))
	out = append(out, m.prefix...)
	return append(out, k...)
}

func (m *Map) Get(ctx context.Context, key string) ([]byte, error) {
	if err := m.client.check(ctx); err != nil {
		return nil, err
	}
	var value []byte
	err := m.client.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(m.key(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (m *Map) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := m.client.check(ctx); err != nil {
		return err
	}
	e := badger.NewEntry(m.key(key), append([]byte(nil), value...))
	if ttl > 0 {
		e = e.WithTTL(ceilSeconds(ttl))
	}
	return m.client.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(e)
	})
}

func (m *Map) Delete(ctx context.Context, key string) error {
	if err := m.client.check(ctx); err != nil {
		return err
	}
	return m.client.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(m.key(key))
	})
}

func (m *Map) Clear(ctx context.Context) error {
	if err := m.client.check(ctx); err != nil {
		return err
	}
	return m.client.db.DropPrefix(m.prefix)
}

func (m *Map) Size(ctx context.Context) (int, error) {
	if err := m.client.check(ctx); err != nil {
		return 0, err
	}
	n := 0
	err := m.scan(ctx, false, func(*badger.Item) error {
		n++
		return nil
	})
	return n, err
}

func (m *Map) Values(ctx context.Context) ([][]byte, error) {
	if err := m.client.check(ctx); err != nil {
		return nil, err
	}
	var out [][]byte
	err := m.scan(ctx, true, func(item *badger.Item) error {
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TTL returns the remaining lifetime of key. ok is false when the key is
// absent; a zero duration means no expiry.
func (m *Map) TTL(ctx context.Context, key string) (ttl time.Duration, ok bool, err error) {
	if err := m.client.check(ctx); err != nil {
		return 0, false, err
	}
	err = m.client.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(m.key(key))
		if err != nil {
			return err
		}
		ok = true
		if exp := item.ExpiresAt(); exp > 0 {
			ttl = time.Until(time.Unix(int64(exp), 0))
		}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	return ttl, ok, err
}

// scan visits every live entry of the map. Expired entries are skipped by
// Badger itself.
func (m *Map) scan(ctx context.Context, values bool, fn func(*badger.Item) error) error {
	return m.client.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = m.prefix
		opts.PrefetchValues = values
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(it.Item()); err != nil {
				return err
			}
		}
		return nil
	})
}
