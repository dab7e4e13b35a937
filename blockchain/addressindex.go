// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"context"
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"

	"github.com/stratachain/stratad/kvstore"
)

// AddressIndexEntry is one ledger event for an address: a payment or a
// spend touching outputIndex of txid at blockHeight. IsSpendingInput
// distinguishes an output paying the address from an input spending one
// of its previously-received outputs.
type AddressIndexEntry struct {
	Type            byte
	AddrHash        [20]byte
	BlockHeight     uint32
	TxNumber        uint32
	Txid            chainhash.Hash
	OutputIndex     uint32
	IsSpendingInput bool
	Satoshis        btcutil.Amount
}

// addressIndexMetrics are the non-contractual range-scan counters
// reported via rcrowley/go-metrics, mirroring coinsViewMetrics.
type addressIndexMetrics struct {
	scanCount     metrics.Counter
	scanCancelled metrics.Counter
}

func newAddressIndexMetrics(r metrics.Registry) *addressIndexMetrics {
	m := &addressIndexMetrics{
		scanCount:     metrics.NewCounter(),
		scanCancelled: metrics.NewCounter(),
	}
	r.Register("addressindex.scan.count", m.scanCount)
	r.Register("addressindex.scan.cancelled", m.scanCancelled)
	return m
}

// AddressIndex is the append-only per-block index ('a' tag): writes
// happen once per block and are never mutated in
// place; reads are range scans over (type, addressHash) optionally
// bounded to [start, end] heights.
type AddressIndex struct {
	db      kvstore.DB
	metrics *addressIndexMetrics
}

// NewAddressIndex wraps db for address-history writes/reads. A nil
// registry gets its own private metrics.Registry, matching
// NewCoinsViewCache's convention.
func NewAddressIndex(db kvstore.DB, registry metrics.Registry) *AddressIndex {
	if registry == nil {
		registry = metrics.NewRegistry()
	}
	return &AddressIndex{db: db, metrics: newAddressIndexMetrics(registry)}
}

// WriteAddressIndex appends entries in a single atomic batch, matching
// the "updated in the same transaction group" contract indexes share.
func (a *AddressIndex) WriteAddressIndex(entries []AddressIndexEntry) error {
	batch := kvstore.NewBatch()
	for _, e := range entries {
		key := addressIndexKey(e.Type, e.AddrHash, e.BlockHeight, e.TxNumber, e.Txid, e.OutputIndex, e.IsSpendingInput)
		var value [8]byte
		binary.LittleEndian.PutUint64(value[:], uint64(e.Satoshis))
		batch.Put(key, value[:])
	}
	if err := a.db.WriteBatch(batch); err != nil {
		return errors.Wrap(err, "WriteAddressIndex")
	}
	return nil
}

// EraseAddressIndex removes entries (used when a block is invalidated
// and its index contributions must be rolled back).
func (a *AddressIndex) EraseAddressIndex(entries []AddressIndexEntry) error {
	batch := kvstore.NewBatch()
	for _, e := range entries {
		key := addressIndexKey(e.Type, e.AddrHash, e.BlockHeight, e.TxNumber, e.Txid, e.OutputIndex, e.IsSpendingInput)
		batch.Erase(key)
	}
	if err := a.db.WriteBatch(batch); err != nil {
		return errors.Wrap(err, "EraseAddressIndex")
	}
	return nil
}

// ReadAddressIndex range-reads every entry for (addrType, addrHash),
// optionally restricted to [start, end] block heights (end == 0 means
// unbounded). Iteration stops at the first key that falls outside the
// (type, addressHash) prefix or past end, and any
// deserialization failure aborts the scan rather than skipping the
// offending key.
func (a *AddressIndex) ReadAddressIndex(ctx context.Context, addrType byte, addrHash [20]byte, start, end uint32) ([]AddressIndexEntry, error) {
	prefix := addressIndexPrefix(addrType, addrHash)

	seek := prefix
	if start > 0 {
		seek = addressIndexKey(addrType, addrHash, start, 0, chainhash.Hash{}, 0, false)
	}

	cur := a.db.Iterator(ctx, seek)
	defer cur.Close()

	var out []AddressIndexEntry
	for cur.Valid() {
		key := cur.Key()
		if !hasPrefix(key, prefix) {
			break
		}
		height, ok := addressIndexHeightOf(key)
		if !ok {
			return nil, errDeserialize("ReadAddressIndex: malformed key")
		}
		if end != 0 && height > end {
			break
		}
		entry, err := decodeAddressIndexKey(key, cur.Value())
		if err != nil {
			return nil, errors.Wrap(err, "ReadAddressIndex")
		}
		out = append(out, entry)
		a.metrics.scanCount.Inc(1)
		cur.Next()
	}
	if cur.Cancelled() {
		a.metrics.scanCancelled.Inc(1)
		return out, context.Canceled
	}
	return out, nil
}

func decodeAddressIndexKey(key, value []byte) (AddressIndexEntry, error) {
	// tag(1) type(1) addrHash(20) height(4) txNumber(4) txid(32) outIdx(4) spend(1)
	const want = 1 + 1 + 20 + 4 + 4 + 32 + 4 + 1
	if len(key) != want {
		return AddressIndexEntry{}, errDeserialize("decodeAddressIndexKey: wrong key length")
	}
	if len(value) != 8 {
		return AddressIndexEntry{}, errDeserialize("decodeAddressIndexKey: wrong value length")
	}
	e := AddressIndexEntry{Type: key[1]}
	copy(e.AddrHash[:], key[2:22])
	e.BlockHeight = binary.BigEndian.Uint32(key[22:26])
	e.TxNumber = binary.BigEndian.Uint32(key[26:30])
	copy(e.Txid[:], key[30:62])
	e.OutputIndex = binary.BigEndian.Uint32(key[62:66])
	e.IsSpendingInput = key[66] != 0
	e.Satoshis = btcutil.Amount(binary.LittleEndian.Uint64(value))
	return e, nil
}

func hasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}

// AddressUnspentEntry is one currently-unspent output owned by an
// address, the value half of the address-unspent record.
type AddressUnspentEntry struct {
	Type        byte
	AddrHash    [20]byte
	Txid        chainhash.Hash
	OutputIndex uint32
	Satoshis    btcutil.Amount
	Script      []byte
	BlockHeight uint32
}

// AddressUnspentIndex is the upsert/delete index ('u' tag).
type AddressUnspentIndex struct {
	db kvstore.DB
}

// NewAddressUnspentIndex wraps db for unspent-output bookkeeping.
func NewAddressUnspentIndex(db kvstore.DB) *AddressUnspentIndex {
	return &AddressUnspentIndex{db: db}
}

// UpdateAddressUnspentIndex applies entries and deletions in one atomic
// batch: entries are written (upserted), deletions are erased, matching
// original_source/txdb.cpp's UpdateAddressUnspentIndex two-list form.
func (a *AddressUnspentIndex) UpdateAddressUnspentIndex(entries []AddressUnspentEntry, deletions []AddressUnspentEntry) error {
	batch := kvstore.NewBatch()
	for _, e := range entries {
		key := addressUnspentKey(e.Type, e.AddrHash, e.Txid, e.OutputIndex)
		batch.Put(key, serializeAddressUnspentValue(e))
	}
	for _, e := range deletions {
		key := addressUnspentKey(e.Type, e.AddrHash, e.Txid, e.OutputIndex)
		batch.Erase(key)
	}
	if err := a.db.WriteBatch(batch); err != nil {
		return errors.Wrap(err, "UpdateAddressUnspentIndex")
	}
	return nil
}

func serializeAddressUnspentValue(e AddressUnspentEntry) []byte {
	b := make([]byte, 0, 8+4+len(e.Script))
	var sat [8]byte
	binary.LittleEndian.PutUint64(sat[:], uint64(e.Satoshis))
	b = append(b, sat[:]...)
	b = appendU32(b, e.BlockHeight)
	b = append(b, e.Script...)
	return b
}

func deserializeAddressUnspentValue(data []byte) (btcutil.Amount, uint32, []byte, error) {
	if len(data) < 12 {
		return 0, 0, nil, errDeserialize("deserializeAddressUnspentValue: too short")
	}
	sat := btcutil.Amount(binary.LittleEndian.Uint64(data[0:8]))
	height := binary.LittleEndian.Uint32(data[8:12])
	script := append([]byte(nil), data[12:]...)
	return sat, height, script, nil
}

// ReadAddressUnspentIndex returns every currently-unspent output owned by
// (addrType, addrHash).
func (a *AddressUnspentIndex) ReadAddressUnspentIndex(ctx context.Context, addrType byte, addrHash [20]byte) ([]AddressUnspentEntry, error) {
	prefix := addressUnspentPrefix(addrType, addrHash)
	cur := a.db.Iterator(ctx, prefix)
	defer cur.Close()

	var out []AddressUnspentEntry
	for cur.Valid() {
		key := cur.Key()
		if !hasPrefix(key, prefix) {
			break
		}
		const want = 1 + 1 + 20 + 32 + 4
		if len(key) != want {
			return nil, errDeserialize("ReadAddressUnspentIndex: malformed key")
		}
		e := AddressUnspentEntry{Type: key[1]}
		copy(e.AddrHash[:], key[2:22])
		copy(e.Txid[:], key[22:54])
		e.OutputIndex = binary.BigEndian.Uint32(key[54:58])

		sat, height, script, err := deserializeAddressUnspentValue(cur.Value())
		if err != nil {
			return nil, errors.Wrap(err, "ReadAddressUnspentIndex")
		}
		e.Satoshis = sat
		e.BlockHeight = height
		e.Script = script
		out = append(out, e)
		cur.Next()
	}
	if cur.Cancelled() {
		return out, context.Canceled
	}
	return out, nil
}
