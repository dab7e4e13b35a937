// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"

	"github.com/stratachain/stratad/kvstore"
)

// DiskTxPos is the (file, blockOffset, txOffsetInBlock) triple used
// to locate a transaction inside the raw block files.
type DiskTxPos struct {
	File            uint32
	BlockOffset     uint32
	TxOffsetInBlock uint32
}

func serializeDiskTxPos(p DiskTxPos) []byte {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b[0:4], p.File)
	binary.LittleEndian.PutUint32(b[4:8], p.BlockOffset)
	binary.LittleEndian.PutUint32(b[8:12], p.TxOffsetInBlock)
	return b
}

func deserializeDiskTxPos(data []byte) (DiskTxPos, error) {
	if len(data) != 12 {
		return DiskTxPos{}, errDeserialize("deserializeDiskTxPos: wrong length")
	}
	return DiskTxPos{
		File:            binary.LittleEndian.Uint32(data[0:4]),
		BlockOffset:     binary.LittleEndian.Uint32(data[4:8]),
		TxOffsetInBlock: binary.LittleEndian.Uint32(data[8:12]),
	}, nil
}

// TxIndex implements the tx-index/bare-tx-index duality: the same
// position is written under both identifiers, and a
// read tries the full txid first, then the bare txid.
type TxIndex struct {
	db kvstore.DB
}

// NewTxIndex wraps db for tx-position lookups.
func NewTxIndex(db kvstore.DB) *TxIndex {
	return &TxIndex{db: db}
}

// WriteTxIndex writes pos under both txid and bareTxid. A transaction
// with no distinct witness-stripped form should pass txid for both
// arguments, matching the original "two identifiers, one position"
// contract even in the degenerate case.
func (t *TxIndex) WriteTxIndex(txid, bareTxid chainhash.Hash, pos DiskTxPos) error {
	data := serializeDiskTxPos(pos)
	batch := kvstore.NewBatch()
	batch.Put(hashKey(kvstore.TagTxIndex, txid), data)
	batch.Put(hashKey(kvstore.TagBareTxIndex, bareTxid), data)
	if err := t.db.WriteBatch(batch); err != nil {
		return errors.Wrap(err, "WriteTxIndex")
	}
	return nil
}

// ReadTxIndex tries the 't' tag first, then 'T': a
// collision between an unrelated txid and bare-txid is cryptographically
// negligible and treated as impossible.
func (t *TxIndex) ReadTxIndex(id chainhash.Hash) (DiskTxPos, bool, error) {
	data, found, err := t.db.Read(hashKey(kvstore.TagTxIndex, id))
	if err != nil {
		return DiskTxPos{}, false, errors.Wrap(err, "ReadTxIndex")
	}
	if !found {
		data, found, err = t.db.Read(hashKey(kvstore.TagBareTxIndex, id))
		if err != nil {
			return DiskTxPos{}, false, errors.Wrap(err, "ReadTxIndex")
		}
		if !found {
			return DiskTxPos{}, false, nil
		}
	}
	pos, err := deserializeDiskTxPos(data)
	if err != nil {
		return DiskTxPos{}, false, errors.Wrap(err, "ReadTxIndex")
	}
	return pos, true, nil
}
