// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/stratachain/stratad/kvstore"
)

// BlockFileInfo is the per-file accounting CBlockFileInfo tracks:
// how many blocks a file holds and the byte ranges they and their undo
// data occupy, enough for the block validator to know when to roll to
// a new file.
type BlockFileInfo struct {
	Blocks      uint32
	Size        uint32
	UndoSize    uint32
	HeightFirst uint32
	HeightLast  uint32
	TimeFirst   uint32
	TimeLast    uint32
}

func serializeBlockFileInfo(info *BlockFileInfo) []byte {
	b := make([]byte, 0, 28)
	b = appendU32(b, info.Blocks)
	b = appendU32(b, info.Size)
	b = appendU32(b, info.UndoSize)
	b = appendU32(b, info.HeightFirst)
	b = appendU32(b, info.HeightLast)
	b = appendU32(b, info.TimeFirst)
	b = appendU32(b, info.TimeLast)
	return b
}

func deserializeBlockFileInfo(data []byte) (*BlockFileInfo, error) {
	if len(data) != 28 {
		return nil, errDeserialize("deserializeBlockFileInfo: wrong length")
	}
	return &BlockFileInfo{
		Blocks:      binary.LittleEndian.Uint32(data[0:4]),
		Size:        binary.LittleEndian.Uint32(data[4:8]),
		UndoSize:    binary.LittleEndian.Uint32(data[8:12]),
		HeightFirst: binary.LittleEndian.Uint32(data[12:16]),
		HeightLast:  binary.LittleEndian.Uint32(data[16:20]),
		TimeFirst:   binary.LittleEndian.Uint32(data[20:24]),
		TimeLast:    binary.LittleEndian.Uint32(data[24:28]),
	}, nil
}

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

// ChainstateDB wraps a kvstore.DB with the block-index metadata write
// paths beyond the block-index entries themselves: file-info,
// last-file, reindexing flag, and generic named flags/ints. Ground
// truth: original_source/txdb.cpp's CBlockTreeDB.
type ChainstateDB struct {
	db kvstore.DB
}

// NewChainstateDB wraps db for C3 metadata writes.
func NewChainstateDB(db kvstore.DB) *ChainstateDB {
	return &ChainstateDB{db: db}
}

// WriteBlockFileInfo persists the accounting record for file n.
func (c *ChainstateDB) WriteBlockFileInfo(n uint32, info *BlockFileInfo) error {
	batch := kvstore.NewBatch()
	batch.Put(fileInfoKey(n), serializeBlockFileInfo(info))
	if err := c.db.WriteBatch(batch); err != nil {
		return errors.Wrap(err, "WriteBlockFileInfo")
	}
	return nil
}

// ReadBlockFileInfo returns the accounting record for file n, or nil if
// never written.
func (c *ChainstateDB) ReadBlockFileInfo(n uint32) (*BlockFileInfo, error) {
	data, found, err := c.db.Read(fileInfoKey(n))
	if err != nil {
		return nil, errors.Wrap(err, "ReadBlockFileInfo")
	}
	if !found {
		return nil, nil
	}
	info, err := deserializeBlockFileInfo(data)
	if err != nil {
		return nil, errors.Wrap(err, "ReadBlockFileInfo")
	}
	return info, nil
}

// WriteLastBlockFile records n as the file currently being appended to.
func (c *ChainstateDB) WriteLastBlockFile(n uint32) error {
	batch := kvstore.NewBatch()
	batch.Put(soleTagKey(kvstore.TagLastFile), appendU32(nil, n))
	if err := c.db.WriteBatch(batch); err != nil {
		return errors.Wrap(err, "WriteLastBlockFile")
	}
	return nil
}

// ReadLastBlockFile returns the last-written file number, or 0 if never
// written.
func (c *ChainstateDB) ReadLastBlockFile() (uint32, error) {
	data, found, err := c.db.Read(soleTagKey(kvstore.TagLastFile))
	if err != nil {
		return 0, errors.Wrap(err, "ReadLastBlockFile")
	}
	if !found || len(data) != 4 {
		return 0, nil
	}
	return binary.LittleEndian.Uint32(data), nil
}

// WriteReindexing stores the reindex-in-progress flag: writing true
// stores 'R' = 1; writing false erases the key entirely.
func (c *ChainstateDB) WriteReindexing(reindexing bool) error {
	batch := kvstore.NewBatch()
	key := soleTagKey(kvstore.TagReindexing)
	if reindexing {
		batch.Put(key, []byte{reindexingFlagValue})
	} else {
		batch.Erase(key)
	}
	if err := c.db.WriteBatch(batch); err != nil {
		return errors.Wrap(err, "WriteReindexing")
	}
	return nil
}

// ReadReindexing reports whether the flag is present: absence of the key
// means false. Only a failed read of the store returns an error.
func (c *ChainstateDB) ReadReindexing() (bool, error) {
	_, found, err := c.db.Read(soleTagKey(kvstore.TagReindexing))
	if err != nil {
		return false, errors.Wrap(err, "ReadReindexing")
	}
	return found, nil
}

// WriteFlag stores a named boolean under the 'F' tag.
func (c *ChainstateDB) WriteFlag(name string, value bool) error {
	batch := kvstore.NewBatch()
	b := flagFalse
	if value {
		b = flagTrue
	}
	batch.Put(namedKey(kvstore.TagFlag, name), []byte{b})
	if err := c.db.WriteBatch(batch); err != nil {
		return errors.Wrap(err, "WriteFlag")
	}
	return nil
}

// ReadFlag returns the named boolean, defaulting to false if unset.
func (c *ChainstateDB) ReadFlag(name string) (bool, error) {
	data, found, err := c.db.Read(namedKey(kvstore.TagFlag, name))
	if err != nil {
		return false, errors.Wrap(err, "ReadFlag")
	}
	if !found || len(data) != 1 {
		return false, nil
	}
	return data[0] == flagTrue, nil
}

// WriteInt stores a named 32-bit integer under the 'I' tag.
func (c *ChainstateDB) WriteInt(name string, value int32) error {
	batch := kvstore.NewBatch()
	batch.Put(namedKey(kvstore.TagInt, name), appendU32(nil, uint32(value)))
	if err := c.db.WriteBatch(batch); err != nil {
		return errors.Wrap(err, "WriteInt")
	}
	return nil
}

// ReadInt returns the named integer, defaulting to 0 if unset.
func (c *ChainstateDB) ReadInt(name string) (int32, error) {
	data, found, err := c.db.Read(namedKey(kvstore.TagInt, name))
	if err != nil {
		return 0, errors.Wrap(err, "ReadInt")
	}
	if !found || len(data) != 4 {
		return 0, nil
	}
	return int32(binary.LittleEndian.Uint32(data)), nil
}
