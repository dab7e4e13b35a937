// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"

	"github.com/stratachain/stratad/kvstore"
)

// SpentIndexKey identifies the spent output; SpentIndexValue records
// what spent it.
type SpentIndexKey struct {
	Txid chainhash.Hash
	Vout uint32
}

type SpentIndexValue struct {
	SpendingTxid chainhash.Hash
	InputIndex   uint32
	Height       uint32
	Satoshis     btcutil.Amount
	AddrType     byte
	AddrHash     [20]byte
}

func serializeSpentIndexValue(v SpentIndexValue) []byte {
	b := make([]byte, 0, 32+4+4+8+1+20)
	b = append(b, v.SpendingTxid[:]...)
	b = appendU32(b, v.InputIndex)
	b = appendU32(b, v.Height)
	var sat [8]byte
	binary.LittleEndian.PutUint64(sat[:], uint64(v.Satoshis))
	b = append(b, sat[:]...)
	b = append(b, v.AddrType)
	b = append(b, v.AddrHash[:]...)
	return b
}

func deserializeSpentIndexValue(data []byte) (SpentIndexValue, error) {
	const want = 32 + 4 + 4 + 8 + 1 + 20
	if len(data) != want {
		return SpentIndexValue{}, errDeserialize("deserializeSpentIndexValue: wrong length")
	}
	var v SpentIndexValue
	copy(v.SpendingTxid[:], data[0:32])
	v.InputIndex = binary.LittleEndian.Uint32(data[32:36])
	v.Height = binary.LittleEndian.Uint32(data[36:40])
	v.Satoshis = btcutil.Amount(binary.LittleEndian.Uint64(data[40:48]))
	v.AddrType = data[48]
	copy(v.AddrHash[:], data[49:69])
	return v, nil
}

// SpentIndex is the point-lookup index ('p' tag): given a spent
// outpoint, find what spent it.
type SpentIndex struct {
	db kvstore.DB
}

// NewSpentIndex wraps db for spent-outpoint lookups.
func NewSpentIndex(db kvstore.DB) *SpentIndex {
	return &SpentIndex{db: db}
}

// UpdateSpentIndex applies an upsert/delete batch in one atomic step.
func (s *SpentIndex) UpdateSpentIndex(writes map[SpentIndexKey]SpentIndexValue, deletes []SpentIndexKey) error {
	batch := kvstore.NewBatch()
	for k, v := range writes {
		batch.Put(spentKey(k.Txid, k.Vout), serializeSpentIndexValue(v))
	}
	for _, k := range deletes {
		batch.Erase(spentKey(k.Txid, k.Vout))
	}
	if err := s.db.WriteBatch(batch); err != nil {
		return errors.Wrap(err, "UpdateSpentIndex")
	}
	return nil
}

// ReadSpentIndex looks up what spent (txid, vout), if anything.
func (s *SpentIndex) ReadSpentIndex(txid chainhash.Hash, vout uint32) (SpentIndexValue, bool, error) {
	data, found, err := s.db.Read(spentKey(txid, vout))
	if err != nil {
		return SpentIndexValue{}, false, errors.Wrap(err, "ReadSpentIndex")
	}
	if !found {
		return SpentIndexValue{}, false, nil
	}
	v, err := deserializeSpentIndexValue(data)
	if err != nil {
		return SpentIndexValue{}, false, errors.Wrap(err, "ReadSpentIndex")
	}
	return v, true, nil
}
