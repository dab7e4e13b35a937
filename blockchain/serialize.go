// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/stratachain/stratad/kvstore"
)

// Value fields (coins records, block-index entries, index payloads) use
// the same little-endian fixed-width integers and CompactSize/VarInt
// encoding wire.MsgTx already relies on — this module's "host
// serialization format", ground truth in original_source/txdb.cpp's
// CDataStream usage.
//
// Order-sensitive numeric fields embedded directly inside a structured
// key are the one deliberate exception: they are written big-endian so
// that lexicographic key order matches ascending numeric order, exactly
// the way the real address-index key type writes its height and
// tx-number fields big-endian while every value elsewhere on the same
// stream stays little-endian. Without this a range-read by (type,
// addressHash) restricted to [start, end] heights could not simply stop
// at the first out-of-range key.

// putUint32BE appends the big-endian encoding of v to dst.
func putUint32BE(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func getUint32BE(src []byte) (uint32, []byte, bool) {
	if len(src) < 4 {
		return 0, src, false
	}
	return binary.BigEndian.Uint32(src[:4]), src[4:], true
}

// writeVarInt/readVarInt wrap wire.WriteVarInt/ReadVarInt's CompactSize
// encoding (protocol version 0) for the value encoders (Coins record,
// block-index lottery winners).
func writeVarInt(w io.Writer, v uint64) error {
	return wire.WriteVarInt(w, 0, v)
}

func readVarInt(r io.Reader) (uint64, error) {
	return wire.ReadVarInt(r, 0)
}

// keyTag returns key prefixed with the one-byte tag.
func keyTag(tag kvstore.Tag, key []byte) []byte {
	out := make([]byte, 0, 1+len(key))
	out = append(out, byte(tag))
	return append(out, key...)
}

// hashKey is the (tag, hash) key shape used by coins records ('c'),
// block-index entries ('b'), and tx-index positions ('t'/'T').
func hashKey(tag kvstore.Tag, h chainhash.Hash) []byte {
	return keyTag(tag, h[:])
}

// outpointKey is the (tag, txid, vout) key shape; spentKey builds the
// spent-index ('p') keys with it.
func outpointKey(tag kvstore.Tag, txid chainhash.Hash, vout uint32) []byte {
	k := keyTag(tag, txid[:])
	return putUint32BE(k, vout)
}

// spentKey is the (tag, txid, vout) key shape used by the spent index
// ('p'). Distinct constructor from outpointKey even though the shape is
// identical, since the two tags are never compared against one another.
func spentKey(txid chainhash.Hash, vout uint32) []byte {
	return outpointKey(kvstore.TagSpentIndex, txid, vout)
}

// addressIndexKey builds the (tag, type, addressHash, blockHeight,
// txNumber, txid, outputIndex, isSpendingInput) key, ordered so a
// prefix scan on (type, addressHash) walks entries in ledger order.
func addressIndexKey(addrType byte, addrHash [20]byte, blockHeight, txNumber uint32, txid chainhash.Hash, outputIndex uint32, isSpendingInput bool) []byte {
	k := make([]byte, 0, 1+1+20+4+4+32+4+1)
	k = append(k, byte(kvstore.TagAddressIndex))
	k = append(k, addrType)
	k = append(k, addrHash[:]...)
	k = putUint32BE(k, blockHeight)
	k = putUint32BE(k, txNumber)
	k = append(k, txid[:]...)
	k = putUint32BE(k, outputIndex)
	if isSpendingInput {
		k = append(k, 1)
	} else {
		k = append(k, 0)
	}
	return k
}

// addressIndexPrefix builds the (tag, type, addressHash) prefix used to
// range-scan one address's history. It carries no height; a scan that
// starts at a height seeks with a full addressIndexKey instead.
func addressIndexPrefix(addrType byte, addrHash [20]byte) []byte {
	k := make([]byte, 0, 1+1+20)
	k = append(k, byte(kvstore.TagAddressIndex))
	k = append(k, addrType)
	return append(k, addrHash[:]...)
}

// addressIndexHeightOf extracts the blockHeight field from a key built by
// addressIndexKey, for terminating a range scan at end height.
func addressIndexHeightOf(key []byte) (uint32, bool) {
	// tag(1) + type(1) + addrHash(20) = 22 bytes before blockHeight.
	const off = 1 + 1 + 20
	if len(key) < off+4 {
		return 0, false
	}
	h, _, ok := getUint32BE(key[off:])
	return h, ok
}

// addressUnspentKey builds the (tag, type, addressHash, txid,
// outputIndex) key for the address-unspent index ('u').
func addressUnspentKey(addrType byte, addrHash [20]byte, txid chainhash.Hash, outputIndex uint32) []byte {
	k := make([]byte, 0, 1+1+20+32+4)
	k = append(k, byte(kvstore.TagAddressUnspent))
	k = append(k, addrType)
	k = append(k, addrHash[:]...)
	k = append(k, txid[:]...)
	return putUint32BE(k, outputIndex)
}

func addressUnspentPrefix(addrType byte, addrHash [20]byte) []byte {
	k := make([]byte, 0, 1+1+20)
	k = append(k, byte(kvstore.TagAddressUnspent))
	k = append(k, addrType)
	return append(k, addrHash[:]...)
}

// fileInfoKey builds the (tag, fileNumber) key for block-file metadata.
func fileInfoKey(fileNumber uint32) []byte {
	k := []byte{byte(kvstore.TagFileInfo)}
	return putUint32BE(k, fileNumber)
}

// namedKey builds the (tag, name) key for named flags/ints.
func namedKey(tag kvstore.Tag, name string) []byte {
	return keyTag(tag, []byte(name))
}

// soleTagKey returns the one-byte key for a tag that carries no further
// structured remainder ('B' best-block, 'l' last-file, 'R' reindexing).
func soleTagKey(tag kvstore.Tag) []byte {
	return []byte{byte(tag)}
}
