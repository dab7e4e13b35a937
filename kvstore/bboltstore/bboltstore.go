// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package bboltstore is the primary kvstore.DB backend: a single top-level
// bucket inside a go.etcd.io/bbolt (née coreos/bbolt) B+tree file, keyed
// by the tag-prefixed bytes kvstore.Tag describes. bbolt's own Cursor
// already walks keys in lexicographic order, which is exactly the
// ordering guarantee the keyspace needs, and its Update/Batch calls are
// already all-or-nothing, matching the atomic WriteBatch contract.
package bboltstore

import (
	"context"
	"fmt"

	bolt "github.com/coreos/bbolt"

	"github.com/stratachain/stratad/kvstore"
)

// rootBucket is the single bucket every tag-prefixed key lives under. The
// store is deliberately schema-agnostic, so there is no
// per-tag bucket the way Qitmeer's dbnamespace.go lays one bucket per
// concern — everything here shares one ordered keyspace the way the
// original LevelDB-backed CLevelDBWrapper does.
var rootBucket = []byte("chainstate")

// DB is a kvstore.DB backed by bbolt.
type DB struct {
	bolt *bolt.DB
}

// Open opens (creating if necessary) a bbolt-backed store at path.
func Open(path string) (*DB, error) {
	bdb, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, kvstore.WrapIOError(err, "bboltstore: open %s", path)
	}
	err = bdb.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	})
	if err != nil {
		bdb.Close()
		return nil, kvstore.WrapIOError(err, "bboltstore: create root bucket")
	}
	return &DB{bolt: bdb}, nil
}

// Read implements kvstore.DB.
func (d *DB) Read(key []byte) ([]byte, bool, error) {
	var value []byte
	err := d.bolt.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(rootBucket).Get(key)
		if v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, kvstore.WrapIOError(err, "bboltstore: read")
	}
	return value, value != nil, nil
}

// Exists implements kvstore.DB.
func (d *DB) Exists(key []byte) (bool, error) {
	found := false
	err := d.bolt.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(rootBucket).Get(key) != nil
		return nil
	})
	if err != nil {
		return false, kvstore.WrapIOError(err, "bboltstore: exists")
	}
	return found, nil
}

// WriteBatch implements kvstore.DB. bbolt's Update already wraps the
// whole closure in a single disk transaction, so every staged op commits
// together or none does.
func (d *DB) WriteBatch(batch *kvstore.Batch) error {
	err := d.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(rootBucket)
		for _, o := range batch.Ops() {
			if o.Erase {
				if err := b.Delete(o.Key); err != nil {
					return err
				}
				continue
			}
			if err := b.Put(o.Key, o.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return kvstore.WrapIOError(err, "bboltstore: write batch of %d ops", batch.Len())
	}
	return nil
}

// Iterator implements kvstore.DB.
func (d *DB) Iterator(ctx context.Context, seek []byte) kvstore.Cursor {
	tx, err := d.bolt.Begin(false)
	if err != nil {
		return &errCursor{err: kvstore.WrapIOError(err, "bboltstore: begin iterator tx")}
	}
	c := &cursor{ctx: ctx, tx: tx, bcursor: tx.Bucket(rootBucket).Cursor()}
	c.key, c.value = c.bcursor.Seek(seek)
	c.checkDone()
	return c
}

// Close implements kvstore.DB.
func (d *DB) Close() error {
	if err := d.bolt.Close(); err != nil {
		return kvstore.WrapIOError(err, "bboltstore: close")
	}
	return nil
}

type cursor struct {
	ctx       context.Context
	tx        *bolt.Tx
	bcursor   *bolt.Cursor
	key, value []byte
	done      bool
	cancelled bool
}

func (c *cursor) checkDone() {
	if c.key == nil {
		c.done = true
		return
	}
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
	c.key, c.value = c.bcursor.Next()
	c.checkDone()
}

func (c *cursor) Cancelled() bool { return c.cancelled }

func (c *cursor) Close() error {
	if c.tx == nil {
		return nil
	}
	err := c.tx.Rollback()
	c.tx = nil
	if err != nil {
		return kvstore.WrapIOError(err, "bboltstore: close iterator")
	}
	return nil
}

// errCursor is returned by Iterator when the backing transaction itself
// could not be opened; it surfaces as an immediately-invalid, non-
// cancelled cursor whose Close returns the error (Error gives its text).
type errCursor struct {
	err error
}

func (c *errCursor) Valid() bool       { return false }
func (c *errCursor) Key() []byte       { return nil }
func (c *errCursor) Value() []byte     { return nil }
func (c *errCursor) Next()             {}
func (c *errCursor) Cancelled() bool   { return false }
func (c *errCursor) Close() error      { return c.err }
func (c *errCursor) Error() string     { return fmt.Sprint(c.err) }
