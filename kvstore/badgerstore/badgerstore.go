// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package badgerstore is the alternate kvstore.DB backend, built on
// dgraph-io/badger's LSM-tree engine instead of bboltstore's B+tree. It
// exists to prove C1's contract is backend-agnostic: the same property
// tests exercise both packages against the identical kvstore.DB
// interface. badger's own iterator already walks keys in lexicographic
// order and its Txn model gives the same all-or-nothing batch semantics
// bboltstore gets from bbolt.
package badgerstore

import (
	"context"

	"github.com/dgraph-io/badger"

	"github.com/stratachain/stratad/kvstore"
)

// DB is a kvstore.DB backed by badger.
type DB struct {
	badger *badger.DB
}

// Open opens (creating if necessary) a badger-backed store at path.
func Open(path string) (*DB, error) {
	opts := badger.DefaultOptions
	opts.Dir = path
	opts.ValueDir = path
	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, kvstore.WrapIOError(err, "badgerstore: open %s", path)
	}
	return &DB{badger: bdb}, nil
}

// Read implements kvstore.DB.
func (d *DB) Read(key []byte) ([]byte, bool, error) {
	var value []byte
	found := false
	err := d.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false, kvstore.WrapIOError(err, "badgerstore: read")
	}
	return value, found, nil
}

// Exists implements kvstore.DB.
func (d *DB) Exists(key []byte) (bool, error) {
	found := false
	err := d.badger.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, kvstore.WrapIOError(err, "badgerstore: exists")
	}
	return found, nil
}

// WriteBatch implements kvstore.DB. badger's Update runs the closure in a
// single transaction, committed only if the closure returns nil, giving
// the same atomicity bboltstore gets from bbolt.Update.
func (d *DB) WriteBatch(batch *kvstore.Batch) error {
	err := d.badger.Update(func(txn *badger.Txn) error {
		for _, o := range batch.Ops() {
			if o.Erase {
				if err := txn.Delete(o.Key); err != nil {
					return err
				}
				continue
			}
			if err := txn.Set(o.Key, o.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return kvstore.WrapIOError(err, "badgerstore: write batch of %d ops", batch.Len())
	}
	return nil
}

// Iterator implements kvstore.DB.
func (d *DB) Iterator(ctx context.Context, seek []byte) kvstore.Cursor {
	txn := d.badger.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	c := &cursor{ctx: ctx, txn: txn, it: it}
	it.Seek(seek)
	c.load()
	return c
}

// Close implements kvstore.DB.
func (d *DB) Close() error {
	if err := d.badger.Close(); err != nil {
		return kvstore.WrapIOError(err, "badgerstore: close")
	}
	return nil
}

type cursor struct {
	ctx        context.Context
	txn        *badger.Txn
	it         *badger.Iterator
	key, value []byte
	done       bool
	cancelled  bool
}

// load copies the current item's key/value out of badger's iterator,
// which invalidates them on the next Next call.
func (c *cursor) load() {
	if !c.it.Valid() {
		c.done = true
		return
	}
	item := c.it.Item()
	c.key = append([]byte(nil), item.Key()...)
	v, err := item.ValueCopy(nil)
	if err != nil {
		c.done = true
		return
	}
	c.value = v
	select {
	case <-c.ctx.Done():
		c.done = true
		c.cancelled = true
	default:
	}
}

func (c *cursor) Valid() bool { return !c.done }

func (c *cursor) Key() []byte {
	return append([]byte(nil), c.key...)
}

func (c *cursor) Value() []byte {
	return append([]byte(nil), c.value...)
}

func (c *cursor) Next() {
	if c.done {
		return
	}
	c.it.Next()
	c.load()
}

func (c *cursor) Cancelled() bool { return c.cancelled }

func (c *cursor) Close() error {
	if c.it == nil {
		return nil
	}
	c.it.Close()
	c.txn.Discard()
	c.it = nil
	return nil
}
