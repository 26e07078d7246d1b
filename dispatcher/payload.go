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

// Package dispatcher renders chainhook triggers into the wire payload
// described by spec §6 and delivers them through the predicate's
// configured action.
package dispatcher

import (
	"encoding/hex"

	"github.com/klaytn/chainhook-observer/chaintypes"
	"github.com/klaytn/chainhook-observer/predicate"
)

// BlockIdentifier is the wire form of a chaintypes.BlockId.
type BlockIdentifier struct {
	Hash  string `json:"hash"`
	Index uint64 `json:"index"`
}

// TxIdentifier is the wire form of a chaintypes.TxId.
type TxIdentifier struct {
	Hash  string `json:"hash"`
	Index uint32 `json:"index"`
}

// TransactionSummary is one entry of BlockSummary.Transactions.
type TransactionSummary struct {
	TransactionIdentifier TxIdentifier `json:"transaction_identifier"`
	Sender                string       `json:"sender,omitempty"`
	Recipients            []string     `json:"recipients,omitempty"`
	Kind                  string       `json:"kind,omitempty"`
	Payload               string       `json:"payload,omitempty"` // hex
	// Proof is the 0x-prefixed get_tx_out_proof result, BTC triggers only,
	// present only when the predicate requested it and the fetch succeeded.
	Proof *string `json:"proof,omitempty"`
}

// BlockSummary is the wire form of a chaintypes.Block carrying only the
// transactions a trigger matched.
type BlockSummary struct {
	BlockIdentifier       BlockIdentifier      `json:"block_identifier"`
	ParentBlockIdentifier BlockIdentifier      `json:"parent_block_identifier"`
	Timestamp             uint64               `json:"timestamp"`
	Metadata              interface{}          `json:"metadata,omitempty"`
	Transactions          []TransactionSummary `json:"transactions"`
}

// ChainhookRef identifies which registered predicate produced a payload.
type ChainhookRef struct {
	UUID      string               `json:"uuid"`
	Predicate predicate.Predicate `json:"predicate"`
}

// Payload is the full chainhook wire artifact (spec §6).
type Payload struct {
	Apply     []BlockSummary `json:"apply"`
	Rollback  []BlockSummary `json:"rollback"`
	Chainhook ChainhookRef   `json:"chainhook"`
}

func txSummary(tx chaintypes.Tx, proof *string) TransactionSummary {
	return TransactionSummary{
		TransactionIdentifier: TxIdentifier{Hash: tx.Id.Hash.String(), Index: tx.Id.Index},
		Sender:                tx.Sender,
		Recipients:            tx.Recipients,
		Kind:                  tx.Kind,
		Payload:               hex.EncodeToString(tx.Payload),
		Proof:                 proof,
	}
}

// buildSummaries groups a flat (Tx,Block) list by block, preserving the
// input order's first-seen block ordering, and renders each block with
// only the transactions that matched.
func buildSummaries(entries []predicate.TxInBlock, proofOf func(chaintypes.Tx, chaintypes.Block) *string) []BlockSummary {
	if len(entries) == 0 {
		return nil
	}
	var order []chaintypes.BlockId
	grouped := make(map[chaintypes.BlockId]*BlockSummary)
	for _, e := range entries {
		id := e.Block.Id
		bs, ok := grouped[id]
		if !ok {
			bs = &BlockSummary{
				BlockIdentifier:       BlockIdentifier{Hash: id.Hash.String(), Index: id.Index},
				ParentBlockIdentifier: BlockIdentifier{Hash: e.Block.ParentId.Hash.String(), Index: e.Block.ParentId.Index},
				Timestamp:             e.Block.Timestamp,
				Metadata:              e.Block.Metadata,
			}
			grouped[id] = bs
			order = append(order, id)
		}
		bs.Transactions = append(bs.Transactions, txSummary(e.Tx, proofOf(e.Tx, e.Block)))
	}
	out := make([]BlockSummary, 0, len(order))
	for _, id := range order {
		out = append(out, *grouped[id])
	}
	return out
}

// BuildPayload renders trig into the wire artifact, fetching BTC proofs
// through proofOf (which is expected to memoize across the whole batch,
// see proofCache).
func BuildPayload(trig predicate.Trigger, proofOf func(chaintypes.Tx, chaintypes.Block) *string) Payload {
	return Payload{
		Apply:    buildSummaries(trig.Apply, proofOf),
		Rollback: buildSummaries(trig.Rollback, proofOf),
		Chainhook: ChainhookRef{
			UUID:      trig.Predicate.UUID,
			Predicate: trig.Predicate,
		},
	}
}
