// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config defines the recognized option set, using jessevdk/go-flags
// struct tags. Narrowed to the seven options the chainstate/block-index
// core consumes; RPC, P2P, mining, banning, and similar options belong to
// collaborator components this module does not implement.
package config

import flags "github.com/jessevdk/go-flags"

// Config is the recognized option set.
type Config struct {
	DataDir string `short:"b" long:"datadir" description:"Directory to store data" default:"~/.stratad"`

	Reindex bool `long:"reindex" description:"Rebuild the block index and chainstate from raw block files on disk"`

	CacheSizeCoins int64 `long:"cache-size-coins" description:"Tip-cache budget in bytes for the coin view" default:"536870912"`
	CacheSizeIndex int64 `long:"cache-size-index" description:"Block-tree database cache budget in bytes" default:"67108864"`

	TxIndex      bool `long:"txindex" description:"Maintain the full transaction index ('t'/'T')"`
	AddressIndex bool `long:"addressindex" description:"Maintain the address and address-unspent indexes ('a'/'u')"`
	SpentIndex   bool `long:"spentindex" description:"Maintain the spent-output index ('p')"`
}

// Parse parses args (typically os.Args[1:]) into a Config, returning the
// jessevdk/go-flags error type unmodified so callers can distinguish a
// help request (flags.ErrHelp) from a genuine parse failure.
func Parse(args []string) (*Config, error) {
	cfg := &Config{}
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		log.Errorf("parse: %v", err)
		return nil, err
	}
	log.Debugf("parsed config: datadir=%s reindex=%v txindex=%v addressindex=%v spentindex=%v",
		cfg.DataDir, cfg.Reindex, cfg.TxIndex, cfg.AddressIndex, cfg.SpentIndex)
	return cfg, nil
}

// IndexActivation reports whether any of the three optional secondary
// indexes transitioned from disabled to enabled between prior and c. Activating
// an index from a previously-disabled state requires a reindex.
func (c *Config) IndexActivation(prior *Config) (requiresReindex bool) {
	requiresReindex = (c.TxIndex && !prior.TxIndex) ||
		(c.AddressIndex && !prior.AddressIndex) ||
		(c.SpentIndex && !prior.SpentIndex)
	if requiresReindex {
		log.Warnf("a previously-disabled index was enabled; a reindex is required")
	}
	return requiresReindex
}
