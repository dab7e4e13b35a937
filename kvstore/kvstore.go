// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package kvstore is the key-value engine adapter: an ordered,
// byte-keyed store with batched atomic writes and cancellable prefix
// iteration, agnostic to the key schema layered on top of it. Concrete
// backends live in the bboltstore and badgerstore subpackages; both
// satisfy DB, so the blockchain package never imports a backend directly.
package kvstore

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Tag identifies the structured-key namespace a record belongs to.
// Every on-disk key is Tag followed by a canonical
// serialization of the structured remainder; only 'B', 'l', 'R' are the
// tag byte alone.
type Tag byte

const (
	TagCoins            Tag = 'c' // coins record, keyed by txid
	TagBestBlock        Tag = 'B' // best-block marker, no further key bytes
	TagBlockIndex       Tag = 'b' // block-index entry, keyed by block hash
	TagFileInfo         Tag = 'f' // per-file block-file info, keyed by file number
	TagLastFile         Tag = 'l' // last block file number, no further key bytes
	TagReindexing       Tag = 'R' // reindex-in-progress flag, no further key bytes
	TagFlag             Tag = 'F' // named boolean flag
	TagInt              Tag = 'I' // named integer value
	TagAddressIndex     Tag = 'a' // address-index entry
	TagSpentIndex       Tag = 'p' // spent-index entry, keyed by outpoint
	TagAddressUnspent   Tag = 'u' // address-unspent entry
	TagTxIndex          Tag = 't' // tx position, keyed by txid
	TagBareTxIndex      Tag = 'T' // tx position, keyed by bare txid
)

// ErrorCode classifies a kvstore-level failure.
type ErrorCode int

const (
	// ErrIO indicates a write or read against the backing store failed.
	// Fatal to the calling batch; never partial.
	ErrIO ErrorCode = iota

	// ErrCorruption indicates a stored record could not be deserialized.
	ErrCorruption
)

// Error is the structured failure type kvstore and its callers use instead
// of bare fmt.Errorf, so the chain-state lock holder can classify a
// failure by ErrorCode without string matching.
type Error struct {
	ErrorCode   ErrorCode
	Description string
}

func (e Error) Error() string {
	return e.Description
}

// WrapIOError wraps cause as an ErrIO kvstore.Error with additional
// context, for use by backend implementations translating a driver-
// specific failure into this taxonomy.
func WrapIOError(cause error, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	log.Errorf("%s: %v", msg, cause)
	return Error{ErrorCode: ErrIO, Description: fmt.Sprintf("%s: %v", msg, cause)}
}

// AsError reports whether err wraps a kvstore.Error and returns it.
func AsError(err error) (Error, bool) {
	var kerr Error
	if stderrors.As(err, &kerr) {
		return kerr, true
	}
	return Error{}, false
}

// DB is the ordered key-value store C1 abstracts over. Implementations
// must provide read-your-writes consistency after WriteBatch returns and
// must never apply a batch partially.
type DB interface {
	// Read returns the value stored under key. found is false when the
	// key is absent; that is not an error.
	Read(key []byte) (value []byte, found bool, err error)

	// Exists reports whether key is present without copying its value.
	Exists(key []byte) (bool, error)

	// WriteBatch applies every operation in batch atomically: readers
	// either observe all of it or none of it.
	WriteBatch(batch *Batch) error

	// Iterator returns a cursor positioned at the first key >= seek, in
	// lexicographic key order (tag byte included). The cursor must be
	// closed by the caller.
	Iterator(ctx context.Context, seek []byte) Cursor

	// Close releases the backing store.
	Close() error
}

// op is one accumulated mutation inside a Batch.
type op struct {
	key   []byte
	value []byte // unused when erase is set
	erase bool
}

// Batch accumulates Put/Erase operations for a single atomic WriteBatch.
// It is not safe for concurrent use.
type Batch struct {
	ops []op
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Put stages a write of value under key. Writing Coins/address-unspent/
// spent-index records that are logically deleted should instead call
// Erase — a null-valued write is translated into an Erase before it ever
// reaches the batch.
func (b *Batch) Put(key, value []byte) {
	b.ops = append(b.ops, op{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
}

// Erase stages a deletion of key.
func (b *Batch) Erase(key []byte) {
	b.ops = append(b.ops, op{key: append([]byte(nil), key...), erase: true})
}

// Len reports the number of staged operations.
func (b *Batch) Len() int { return len(b.ops) }

// Ops exposes the staged operations for backend implementations. Not
// intended for use outside a DB.WriteBatch implementation.
func (b *Batch) Ops() []struct {
	Key   []byte
	Value []byte
	Erase bool
} {
	out := make([]struct {
		Key   []byte
		Value []byte
		Erase bool
	}, len(b.ops))
	for i, o := range b.ops {
		out[i] = struct {
			Key   []byte
			Value []byte
			Erase bool
		}{Key: o.key, Value: o.value, Erase: o.erase}
	}
	return out
}

// Cursor iterates a DB's key space in lexicographic order starting from
// the seek key passed to Iterator. It polls the context passed to
// Iterator on every Next, implementing a cooperative-cancellation model;
// on cancellation, Valid returns false and Cancelled returns true so the
// caller can distinguish "ran out of keys" from "asked to stop".
type Cursor interface {
	// Valid reports whether the cursor currently addresses a key/value
	// pair. It is false once iteration is exhausted or cancelled.
	Valid() bool

	// Key returns the full key (tag byte included) at the current
	// position. Only valid while Valid() is true.
	Key() []byte

	// Value returns the value at the current position. Only valid while
	// Valid() is true.
	Value() []byte

	// Next advances the cursor. It is a no-op once !Valid().
	Next()

	// Cancelled reports whether iteration stopped because the context
	// passed to Iterator was done, as opposed to exhausting the keyspace.
	Cancelled() bool

	// Close releases cursor resources. Safe to call more than once.
	Close() error
}
