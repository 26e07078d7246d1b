// Copyright 2026 The chainhook-observer Authors
// This file is part of the chainhook-observer library.
//
// The chainhook-observer library is free software: you can redistribute it
// and/or modify it under the terms of the GNU Lesser General Public License
// as published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The chainhook-observer library is distributed in the hope that it will be
// useful, but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU Lesser
// General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the chainhook-observer library. If not, see
// <http://www.gnu.org/licenses/>.

package dispatcher

import (
	"context"
	"time"

	"github.com/rcrowley/go-metrics"

	"github.com/klaytn/chainhook-observer/chaintypes"
	"github.com/klaytn/chainhook-observer/log"
)

var dispatcherLogger = log.NewModuleLogger(log.Dispatcher)

// btcProxyTimeout bounds a single get_tx_out_proof call (spec §5).
const btcProxyTimeout = 5 * time.Second

// ProofClient is the external BTC RPC collaborator used to fetch SPV
// inclusion proofs. The dispatcher depends only on this contract (spec
// §4.6); cmd/chainhook-observer supplies a gettxoutproof implementation.
type ProofClient interface {
	GetTxOutProof(ctx context.Context, txid, blockHash string) (string, error)
}

type proofKey struct {
	txid      string
	blockHash string
}

// proofCache fetches each (txid, block) proof at most once per batch
// (spec §4.6, invariant that a failed attempt does not block the rest of
// the trigger). Not safe for concurrent use; one instance per Dispatch
// call, or shared across every trigger of one DispatchBatch call.
type proofCache struct {
	client    ProofClient
	failures  metrics.Counter
	memo      map[proofKey]*string
}

func newProofCache(client ProofClient, failures metrics.Counter) *proofCache {
	return &proofCache{client: client, failures: failures, memo: make(map[proofKey]*string)}
}

func (c *proofCache) fetch(ctx context.Context, tx chaintypes.Tx, block chaintypes.Block) *string {
	if c.client == nil {
		return nil
	}
	key := proofKey{txid: tx.Id.Hash.String(), blockHash: block.Id.Hash.String()}
	if v, ok := c.memo[key]; ok {
		return v
	}
	cctx, cancel := context.WithTimeout(ctx, btcProxyTimeout)
	defer cancel()
	proof, err := c.client.GetTxOutProof(cctx, key.txid, key.blockHash)
	if err != nil {
		dispatcherLogger.Warn("btc proof fetch failed", "txid", key.txid, "block", key.blockHash, "err", err)
		if c.failures != nil {
			c.failures.Inc(1)
		}
		c.memo[key] = nil
		return nil
	}
	hex := "0x" + proof
	c.memo[key] = &hex
	return &hex
}
