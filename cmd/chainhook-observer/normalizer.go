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

package main

import (
	"encoding/json"

	"github.com/klaytn/chainhook-observer/chaintypes"
)

// canonicalNormalizer decodes the already-canonical JSON shape this binary
// accepts on its ingestion routes. Per-node JSON parsing (translating a
// real BTC or Stacks node's own wire format) is explicitly out of scope
// (spec §1): operators fronting a node whose push payloads don't already
// match this shape supply their own indexer.Normalizer.
type canonicalNormalizer struct{}

type wireTx struct {
	Hash       string                   `json:"hash"`
	Index      uint32                   `json:"index"`
	Sender     string                   `json:"sender"`
	Recipients []string                 `json:"recipients"`
	Kind       string                   `json:"kind"`
	Payload    string                   `json:"payload"`
	Events     []chaintypes.ContractEvent `json:"events"`
}

type wireBlock struct {
	Hash         string   `json:"hash"`
	Index        uint64   `json:"index"`
	ParentHash   string   `json:"parent_hash"`
	ParentIndex  uint64   `json:"parent_index"`
	Transactions []wireTx `json:"transactions"`
}

type wireMicroblock struct {
	Hash             string   `json:"hash"`
	Sequence         uint32   `json:"sequence"`
	AnchorBlockHash  string   `json:"anchor_block_hash"`
	AnchorBlockIndex uint64   `json:"anchor_block_index"`
	Transactions     []wireTx `json:"transactions"`
}

func decodeHash32(s string) chaintypes.Hash32 {
	var h chaintypes.Hash32
	copy(h[:], s)
	return h
}

func (w wireBlock) toBlock() chaintypes.Block {
	b := chaintypes.Block{
		Id:       chaintypes.BlockId{Hash: decodeHash32(w.Hash), Index: w.Index},
		ParentId: chaintypes.BlockId{Hash: decodeHash32(w.ParentHash), Index: w.ParentIndex},
	}
	for _, t := range w.Transactions {
		b.Transactions = append(b.Transactions, t.toTx())
	}
	return b
}

func (t wireTx) toTx() chaintypes.Tx {
	return chaintypes.Tx{
		Id:         chaintypes.TxId{Hash: decodeHash32(t.Hash), Index: t.Index},
		Sender:     t.Sender,
		Recipients: t.Recipients,
		Kind:       t.Kind,
		Payload:    []byte(t.Payload),
		Events:     t.Events,
	}
}

func (canonicalNormalizer) NormalizeBTCBlock(raw []byte) (chaintypes.Block, error) {
	var w wireBlock
	if err := json.Unmarshal(raw, &w); err != nil {
		return chaintypes.Block{}, err
	}
	return w.toBlock(), nil
}

func (canonicalNormalizer) NormalizeSTXBlock(raw []byte) (chaintypes.Block, error) {
	var w wireBlock
	if err := json.Unmarshal(raw, &w); err != nil {
		return chaintypes.Block{}, err
	}
	return w.toBlock(), nil
}

func (canonicalNormalizer) NormalizeSTXMicroblocks(raw []byte) ([]chaintypes.Microblock, error) {
	var wms []wireMicroblock
	if err := json.Unmarshal(raw, &wms); err != nil {
		return nil, err
	}
	out := make([]chaintypes.Microblock, 0, len(wms))
	for _, w := range wms {
		mb := chaintypes.Microblock{
			Id:           decodeHash32(w.Hash),
			Seq:          w.Sequence,
			ParentAnchor: chaintypes.BlockId{Hash: decodeHash32(w.AnchorBlockHash), Index: w.AnchorBlockIndex},
		}
		for _, t := range w.Transactions {
			mb.Txs = append(mb.Txs, t.toTx())
		}
		out = append(out, mb)
	}
	return out, nil
}
