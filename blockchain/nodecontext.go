// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2023 The stratad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/rcrowley/go-metrics"

	"github.com/stratachain/stratad/chaincfg"
	"github.com/stratachain/stratad/kvstore"
)

// NodeContext consolidates what would otherwise be process-wide globals
// (pCurrentParams, mapBlockIndex, setStakeSeen, pblocktree, pcoinsTip in
// the original C++) into one struct, owned by the top-level driver and
// threaded through by reference.
type NodeContext struct {
	Params *chaincfg.Params

	ChainstateDB kvstore.DB
	IndexDB      kvstore.DB

	BlockIndex *BlockIndex
	CoinsTip   *CoinsViewCache
	Chainstate *ChainstateDB

	TxIndex             *TxIndex
	AddressIndex        *AddressIndex
	AddressUnspentIndex *AddressUnspentIndex
	SpentIndex          *SpentIndex

	Deployments []*DeploymentCache

	Metrics metrics.Registry
}

// NewNodeContext wires a NodeContext's components over the given
// chainstate and block-tree stores, creating one DeploymentCache per
// configured deployment.
func NewNodeContext(params *chaincfg.Params, chainstateDB, indexDB kvstore.DB) (*NodeContext, error) {
	registry := metrics.NewRegistry()

	coinsView := NewCoinsViewDB(chainstateDB)
	coinsTip, err := NewCoinsViewCache(coinsView, registry)
	if err != nil {
		return nil, err
	}

	deployments := make([]*DeploymentCache, len(params.Deployments))
	for i := range deployments {
		deployments[i] = NewDeploymentCache()
	}

	return &NodeContext{
		Params:              params,
		ChainstateDB:        chainstateDB,
		IndexDB:             indexDB,
		BlockIndex:          NewBlockIndex(indexDB, params, registry),
		CoinsTip:            coinsTip,
		Chainstate:          NewChainstateDB(indexDB),
		TxIndex:             NewTxIndex(indexDB),
		AddressIndex:        NewAddressIndex(indexDB, registry),
		AddressUnspentIndex: NewAddressUnspentIndex(indexDB),
		SpentIndex:          NewSpentIndex(indexDB),
		Deployments:         deployments,
		Metrics:             registry,
	}, nil
}

// DeploymentState computes the current threshold state for the
// deploymentID-th entry in Params.Deployments, given the chain tip
// represented by tipIx.
func (nc *NodeContext) DeploymentState(tipIx ArenaIx, deploymentID int) ThresholdState {
	idx := nc.BlockIndex.AsChainIndex(tipIx)
	return nc.Deployments[deploymentID].State(idx, nc.Params.Deployments[deploymentID])
}
