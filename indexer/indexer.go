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

// Package indexer aggregates one block pool per chain plus the STX
// microblock buffer behind the three handlers the observer orchestrator
// drives. See spec §4.3.
package indexer

import (
	"github.com/pkg/errors"

	"github.com/klaytn/chainhook-observer/blockpool"
	"github.com/klaytn/chainhook-observer/chaintypes"
	"github.com/klaytn/chainhook-observer/log"
	"github.com/klaytn/chainhook-observer/microblock"
)

var logger = log.NewModuleLogger(log.Indexer)

// Normalizer turns node-specific raw payloads into the canonical records
// the pools operate on. Its implementation (JSON parsing per upstream
// node) is explicitly out of this spec's scope (spec §1); the indexer only
// depends on this contract.
type Normalizer interface {
	NormalizeBTCBlock(raw []byte) (chaintypes.Block, error)
	NormalizeSTXBlock(raw []byte) (chaintypes.Block, error)
	NormalizeSTXMicroblocks(raw []byte) ([]chaintypes.Microblock, error)
}

// Indexer owns the BTC and STX block pools and the STX microblock buffer.
// It is not internally synchronized: the Observer Orchestrator (spec §4.8)
// guarantees single-writer access.
type Indexer struct {
	normalizer Normalizer

	BTC *blockpool.Pool
	STX *blockpool.Pool
	MB  *microblock.Buffer
}

// New creates an indexer with the given per-chain finality depths.
func New(normalizer Normalizer, btcConfirmedDepth, stxConfirmedDepth uint64) *Indexer {
	return &Indexer{
		normalizer: normalizer,
		BTC:        blockpool.New(chaintypes.BTC, btcConfirmedDepth),
		STX:        blockpool.New(chaintypes.STX, stxConfirmedDepth),
		MB:         microblock.New(),
	}
}

// HandleBTCBlock normalizes and inserts a raw BTC block. A nil event with
// a nil error means the block was accepted but did not move the tip.
func (ix *Indexer) HandleBTCBlock(raw []byte) (chaintypes.ChainEvent, error) {
	block, err := ix.normalizer.NormalizeBTCBlock(raw)
	if err != nil {
		logger.Warn("dropping malformed btc block", "err", err)
		return nil, errors.Wrap(blockpool.ErrMalformed, err.Error())
	}
	event, err := ix.BTC.Insert(block)
	if err != nil {
		logger.Info("btc block did not advance tip", "block", block.Id, "err", err)
		return nil, err
	}
	return event, nil
}

// HandleSTXBlock normalizes and inserts a raw STX anchor block, advancing
// the microblock buffer's active trail when the tip moves.
func (ix *Indexer) HandleSTXBlock(raw []byte) (chaintypes.ChainEvent, error) {
	block, err := ix.normalizer.NormalizeSTXBlock(raw)
	if err != nil {
		logger.Warn("dropping malformed stx block", "err", err)
		return nil, errors.Wrap(blockpool.ErrMalformed, err.Error())
	}
	event, err := ix.STX.Insert(block)
	if err != nil {
		logger.Info("stx block did not advance tip", "block", block.Id, "err", err)
		return nil, err
	}
	if event != nil {
		if tip, ok := ix.STX.Tip(); ok {
			ix.MB.AdvanceTip(tip)
		}
	}
	return event, nil
}

// HandleSTXMicroblocks normalizes and inserts a raw STX microblock trail.
// Every accepted, non-duplicate microblock anchored at the current tip
// yields its own event (spec §4.2's one-event-per-microblock contract), in
// trail order, all returned from this one call; microblocks anchored
// elsewhere are buffered and yield no event.
func (ix *Indexer) HandleSTXMicroblocks(raw []byte) ([]chaintypes.ChainEvent, error) {
	mbs, err := ix.normalizer.NormalizeSTXMicroblocks(raw)
	if err != nil {
		logger.Warn("dropping malformed stx microblocks", "err", err)
		return nil, errors.Wrap(blockpool.ErrMalformed, err.Error())
	}
	var events []chaintypes.ChainEvent
	for _, mb := range mbs {
		if event := ix.MB.InsertMicroblock(mb); event != nil {
			events = append(events, event)
		}
	}
	return events, nil
}
