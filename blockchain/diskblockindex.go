// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// diskBlockIndex is the wire shape CBlockTreeDB::WriteBlockIndex persists
// under the 'b' tag (original_source/txdb.cpp), flattened: the in-memory
// IndexEntry's ArenaIx links don't survive a restart, so PrevHash/
// NextHash ride along as plain hashes and get re-interned by
// LoadBlockIndexGuts.
type diskBlockIndex struct {
	Hash     chainhash.Hash
	PrevHash chainhash.Hash
	NextHash chainhash.Hash
	Height   uint32

	File    uint32
	DataPos uint32
	UndoPos uint32

	Version    int32
	MerkleRoot chainhash.Hash
	Time       uint32
	Bits       uint32
	Nonce      uint32
	Status     blockStatus
	TxCount    uint32

	StakeModifier        uint64
	PrevoutStakeTxid     chainhash.Hash
	PrevoutStakeN        uint32
	StakeTime            uint32
	HashProofOfStake     chainhash.Hash

	MoneySupply           int64
	LotteryWinners        [][]byte
	AccumulatorCheckpoint chainhash.Hash
}

func entryToDiskBlockIndex(e *IndexEntry, prevHash, nextHash chainhash.Hash) *diskBlockIndex {
	return &diskBlockIndex{
		Hash:                  e.Hash,
		PrevHash:              prevHash,
		NextHash:              nextHash,
		Height:                e.Height,
		File:                  e.File,
		DataPos:               e.DataPos,
		UndoPos:               e.UndoPos,
		Version:               e.Version,
		MerkleRoot:            e.MerkleRoot,
		Time:                  e.Time,
		Bits:                  e.Bits,
		Nonce:                 e.Nonce,
		Status:                e.Status,
		TxCount:               e.TxCount,
		StakeModifier:         e.StakeModifier,
		PrevoutStakeTxid:      e.PrevoutStakeTxid,
		PrevoutStakeN:         e.PrevoutStakeN,
		StakeTime:             e.StakeTime,
		HashProofOfStake:      e.HashProofOfStake,
		MoneySupply:           e.MoneySupply,
		LotteryWinners:        e.LotteryWinners,
		AccumulatorCheckpoint: e.AccumulatorCheckpoint,
	}
}

func diskBlockIndexToEntry(d *diskBlockIndex) IndexEntry {
	return IndexEntry{
		Hash:                  d.Hash,
		Height:                d.Height,
		File:                  d.File,
		DataPos:               d.DataPos,
		UndoPos:               d.UndoPos,
		Version:               d.Version,
		MerkleRoot:            d.MerkleRoot,
		Time:                  d.Time,
		Bits:                  d.Bits,
		Nonce:                 d.Nonce,
		Status:                d.Status,
		TxCount:               d.TxCount,
		StakeModifier:         d.StakeModifier,
		PrevoutStakeTxid:      d.PrevoutStakeTxid,
		PrevoutStakeN:         d.PrevoutStakeN,
		StakeTime:             d.StakeTime,
		HashProofOfStake:      d.HashProofOfStake,
		MoneySupply:           d.MoneySupply,
		LotteryWinners:        d.LotteryWinners,
		AccumulatorCheckpoint: d.AccumulatorCheckpoint,
	}
}

func serializeDiskBlockIndex(d *diskBlockIndex) ([]byte, error) {
	var buf bytes.Buffer
	writeHash(&buf, d.Hash)
	writeHash(&buf, d.PrevHash)
	writeHash(&buf, d.NextHash)
	writeU32(&buf, d.Height)
	writeU32(&buf, d.File)
	writeU32(&buf, d.DataPos)
	writeU32(&buf, d.UndoPos)
	writeU32(&buf, uint32(d.Version))
	writeHash(&buf, d.MerkleRoot)
	writeU32(&buf, d.Time)
	writeU32(&buf, d.Bits)
	writeU32(&buf, d.Nonce)
	writeU32(&buf, uint32(d.Status))
	writeU32(&buf, d.TxCount)

	writeU64(&buf, d.StakeModifier)
	writeHash(&buf, d.PrevoutStakeTxid)
	writeU32(&buf, d.PrevoutStakeN)
	writeU32(&buf, d.StakeTime)
	writeHash(&buf, d.HashProofOfStake)

	writeU64(&buf, uint64(d.MoneySupply))
	if err := writeVarInt(&buf, uint64(len(d.LotteryWinners))); err != nil {
		return nil, err
	}
	for _, w := range d.LotteryWinners {
		if err := writeVarInt(&buf, uint64(len(w))); err != nil {
			return nil, err
		}
		buf.Write(w)
	}
	writeHash(&buf, d.AccumulatorCheckpoint)

	return buf.Bytes(), nil
}

func deserializeDiskBlockIndex(data []byte) (*diskBlockIndex, error) {
	r := bytes.NewReader(data)
	d := &diskBlockIndex{}

	fields := []func() error{
		func() (err error) { d.Hash, err = readHash(r); return },
		func() (err error) { d.PrevHash, err = readHash(r); return },
		func() (err error) { d.NextHash, err = readHash(r); return },
	}
	for _, f := range fields {
		if err := f(); err != nil {
			return nil, errDeserialize("deserializeDiskBlockIndex: " + err.Error())
		}
	}

	var err error
	if d.Height, err = readU32(r); err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: height: " + err.Error())
	}
	if d.File, err = readU32(r); err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: file: " + err.Error())
	}
	if d.DataPos, err = readU32(r); err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: dataPos: " + err.Error())
	}
	if d.UndoPos, err = readU32(r); err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: undoPos: " + err.Error())
	}
	var version uint32
	if version, err = readU32(r); err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: version: " + err.Error())
	}
	d.Version = int32(version)
	if d.MerkleRoot, err = readHash(r); err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: merkleRoot: " + err.Error())
	}
	if d.Time, err = readU32(r); err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: time: " + err.Error())
	}
	if d.Bits, err = readU32(r); err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: bits: " + err.Error())
	}
	if d.Nonce, err = readU32(r); err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: nonce: " + err.Error())
	}
	var status uint32
	if status, err = readU32(r); err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: status: " + err.Error())
	}
	d.Status = blockStatus(status)
	if d.TxCount, err = readU32(r); err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: txCount: " + err.Error())
	}

	if d.StakeModifier, err = readU64(r); err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: stakeModifier: " + err.Error())
	}
	if d.PrevoutStakeTxid, err = readHash(r); err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: prevoutStakeTxid: " + err.Error())
	}
	if d.PrevoutStakeN, err = readU32(r); err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: prevoutStakeN: " + err.Error())
	}
	if d.StakeTime, err = readU32(r); err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: stakeTime: " + err.Error())
	}
	if d.HashProofOfStake, err = readHash(r); err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: hashProofOfStake: " + err.Error())
	}

	var money uint64
	if money, err = readU64(r); err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: moneySupply: " + err.Error())
	}
	d.MoneySupply = int64(money)

	winnerCount, err := readVarInt(r)
	if err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: lotteryWinners count: " + err.Error())
	}
	d.LotteryWinners = make([][]byte, winnerCount)
	for i := range d.LotteryWinners {
		wlen, err := readVarInt(r)
		if err != nil {
			return nil, errDeserialize("deserializeDiskBlockIndex: lotteryWinner len: " + err.Error())
		}
		w := make([]byte, wlen)
		if _, err := io.ReadFull(r, w); err != nil {
			return nil, errDeserialize("deserializeDiskBlockIndex: lotteryWinner: " + err.Error())
		}
		d.LotteryWinners[i] = w
	}

	if d.AccumulatorCheckpoint, err = readHash(r); err != nil {
		return nil, errDeserialize("deserializeDiskBlockIndex: accumulatorCheckpoint: " + err.Error())
	}

	return d, nil
}

func writeHash(w io.Writer, h chainhash.Hash) { w.Write(h[:]) }

func readHash(r io.Reader) (chainhash.Hash, error) {
	var h chainhash.Hash
	_, err := io.ReadFull(r, h[:])
	return h, err
}

func writeU32(w io.Writer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func readU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func writeU64(w io.Writer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.Write(b[:])
}

func readU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
