// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command coredbd is the top-level driver: it owns a single NodeContext
// and threads it through the chainstate/block-index/versionbits core by
// reference, rather than relying on package-level globals. It does not
// implement the block validator, network stack, or any of the other
// external collaborators — it exists to open the stores, run
// reconstruction, and report the chainstate summary an operator would
// use to sanity-check a node before enabling it to serve traffic.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stratachain/stratad/blockchain"
	"github.com/stratachain/stratad/chaincfg"
	"github.com/stratachain/stratad/config"
	"github.com/stratachain/stratad/kvstore/bboltstore"
	stratalog "github.com/stratachain/stratad/internal/log"
)

var log = stratalog.New("coredbd")

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "coredbd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("create datadir: %w", err)
	}

	chainstatePath := filepath.Join(cfg.DataDir, "chainstate")
	blockIndexPath := filepath.Join(cfg.DataDir, "blocks", "index")
	if err := os.MkdirAll(filepath.Dir(blockIndexPath), 0700); err != nil {
		return fmt.Errorf("create block index dir: %w", err)
	}

	log.Infof("opening chainstate at %s", chainstatePath)
	chainstateDB, err := bboltstore.Open(chainstatePath)
	if err != nil {
		return fmt.Errorf("open chainstate: %w", err)
	}
	defer chainstateDB.Close()

	log.Infof("opening block index at %s", blockIndexPath)
	indexDB, err := bboltstore.Open(blockIndexPath)
	if err != nil {
		return fmt.Errorf("open block index: %w", err)
	}
	defer indexDB.Close()

	nc, err := blockchain.NewNodeContext(&chaincfg.MainNetParams, chainstateDB, indexDB)
	if err != nil {
		return fmt.Errorf("wire node context: %w", err)
	}

	if err := nc.Chainstate.WriteReindexing(cfg.Reindex); err != nil {
		return fmt.Errorf("write reindexing flag: %w", err)
	}

	if cfg.Reindex {
		log.Infof("reindex requested: reconstructing block index from disk")
		if err := nc.BlockIndex.LoadBlockIndexGuts(context.Background(), nil); err != nil {
			return fmt.Errorf("load block index: %w", err)
		}
		if err := nc.Chainstate.WriteReindexing(false); err != nil {
			return fmt.Errorf("clear reindexing flag: %w", err)
		}
	}

	best := nc.CoinsTip.GetBestBlock()
	log.Infof("best block: %s", best)

	stats, err := blockchain.NewCoinsViewDB(chainstateDB).GetStats(context.Background(), 0)
	if err != nil {
		return fmt.Errorf("compute chainstate stats: %w", err)
	}
	log.Infof("chainstate: txCount=%d outputCount=%d totalAmount=%d hashSerialized=%s",
		stats.TxCount, stats.OutputCount, stats.TotalAmount, stats.HashSerialized)

	return nil
}
