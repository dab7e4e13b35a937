// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"bytes"
	"io"

	"github.com/btcsuite/btcutil"
	"github.com/pkg/errors"
)

// TxOut is one transaction output as stored inside a Coins record. A nil
// TxOut inside Coins.Outputs marks a pruned (already-spent) output.
type TxOut struct {
	Value  btcutil.Amount
	Script []byte
}

// Coins is the per-transaction bundle: a coinbase
// flag, the height it was mined at, its version, and the ordered set of
// outputs, each independently prunable in place. This intentionally
// diverges from Qitmeer's own per-outpoint UtxoEntry (core/blockchain/
// utxo.go) in favor of the original per-txid CCoins bundle shape
// original_source/txdb.cpp persists — see DESIGN.md.
type Coins struct {
	Coinbase bool
	Height   uint32
	Version  uint32
	Outputs  []*TxOut
}

// IsPruned reports whether every output has been pruned, meaning the
// whole record should be erased rather than written.
func (c *Coins) IsPruned() bool {
	for _, o := range c.Outputs {
		if o != nil {
			return false
		}
	}
	return true
}

// Spend prunes output n in place. It is a no-op if already pruned.
// Returns AssertError if n is out of range: callers are expected to have
// already validated the output exists.
func (c *Coins) Spend(n uint32) error {
	if int(n) >= len(c.Outputs) {
		return AssertError("Coins.Spend: output index out of range")
	}
	c.Outputs[n] = nil
	return nil
}

// serializeCoins encodes c the way original_source/txdb.cpp's CCoins
// serializer does: a header code folding coinbase-ness and the version
// into a varint, then the height, then the output count and each output
// (a presence byte, then value and script when present).
// Ground truth: CTxOutCompressor-style value/script compression is
// deliberately not reproduced here (value/script are treated as
// opaque bytes) — only the record shape (coinbase flag, height, ordered
// prunable outputs) is load-bearing for this module's invariants.
func serializeCoins(c *Coins) ([]byte, error) {
	if c.IsPruned() {
		return nil, AssertError("serializeCoins: record with all outputs pruned must be erased, not written")
	}
	var buf bytes.Buffer
	header := uint64(c.Version)<<1 | boolToUint64(c.Coinbase)
	if err := writeVarInt(&buf, header); err != nil {
		return nil, errors.Wrap(err, "serializeCoins: header")
	}
	if err := writeVarInt(&buf, uint64(c.Height)); err != nil {
		return nil, errors.Wrap(err, "serializeCoins: height")
	}
	if err := writeVarInt(&buf, uint64(len(c.Outputs))); err != nil {
		return nil, errors.Wrap(err, "serializeCoins: output count")
	}
	for _, out := range c.Outputs {
		if out == nil {
			if err := buf.WriteByte(0); err != nil {
				return nil, err
			}
			continue
		}
		if err := buf.WriteByte(1); err != nil {
			return nil, err
		}
		if err := writeVarInt(&buf, uint64(out.Value)); err != nil {
			return nil, errors.Wrap(err, "serializeCoins: output value")
		}
		if err := writeVarInt(&buf, uint64(len(out.Script))); err != nil {
			return nil, errors.Wrap(err, "serializeCoins: script len")
		}
		if _, err := buf.Write(out.Script); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// deserializeCoins is the inverse of serializeCoins. A malformed record
// returns errDeserialize: corrupt records abort with a descriptive
// error rather than being silently skipped.
func deserializeCoins(data []byte) (*Coins, error) {
	r := bytes.NewReader(data)

	header, err := readVarInt(r)
	if err != nil {
		return nil, errDeserialize("deserializeCoins: header: " + err.Error())
	}
	height, err := readVarInt(r)
	if err != nil {
		return nil, errDeserialize("deserializeCoins: height: " + err.Error())
	}
	count, err := readVarInt(r)
	if err != nil {
		return nil, errDeserialize("deserializeCoins: output count: " + err.Error())
	}

	c := &Coins{
		Coinbase: header&1 != 0,
		Version:  uint32(header >> 1),
		Height:   uint32(height),
		Outputs:  make([]*TxOut, count),
	}
	for i := range c.Outputs {
		present, err := r.ReadByte()
		if err != nil {
			return nil, errDeserialize("deserializeCoins: output presence: " + err.Error())
		}
		if present == 0 {
			continue
		}
		value, err := readVarInt(r)
		if err != nil {
			return nil, errDeserialize("deserializeCoins: output value: " + err.Error())
		}
		scriptLen, err := readVarInt(r)
		if err != nil {
			return nil, errDeserialize("deserializeCoins: script len: " + err.Error())
		}
		script := make([]byte, scriptLen)
		if _, err := io.ReadFull(r, script); err != nil {
			return nil, errDeserialize("deserializeCoins: script: " + err.Error())
		}
		c.Outputs[i] = &TxOut{Value: btcutil.Amount(value), Script: script}
	}
	return c, nil
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
