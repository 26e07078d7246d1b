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

// Package microblock accumulates STX microblock trails between anchor
// blocks. See spec §4.2.
package microblock

import (
	"github.com/klaytn/chainhook-observer/chaintypes"
	"github.com/klaytn/chainhook-observer/log"
)

var logger = log.NewModuleLogger(log.Microblock)

// trail is the ordered, deduplicated microblock sequence held for a single
// anchor block.
type trail struct {
	byID  map[chaintypes.Hash32]struct{}
	items []chaintypes.Microblock
}

// Buffer holds microblock trails keyed by the anchor block they trail,
// plus a finalized archive of trails whose anchor has since been
// confirmed by a child anchor (kept for replay, per spec §4.2).
type Buffer struct {
	currentTip *chaintypes.BlockId
	pending    map[chaintypes.BlockId]*trail
	finalized  map[chaintypes.BlockId]*trail
}

// New creates an empty microblock buffer.
func New() *Buffer {
	return &Buffer{
		pending:   make(map[chaintypes.BlockId]*trail),
		finalized: make(map[chaintypes.BlockId]*trail),
	}
}

// InsertMicroblock buffers m. If m's ParentAnchor matches the current STX
// tip, it is appended in seq order and an UpdatedWithMicroblocks event is
// produced immediately; otherwise it is held until the tip catches up to
// its anchor, per spec §4.2.
func (b *Buffer) InsertMicroblock(m chaintypes.Microblock) chaintypes.ChainEvent {
	t, ok := b.pending[m.ParentAnchor]
	if !ok {
		t = &trail{byID: make(map[chaintypes.Hash32]struct{})}
		b.pending[m.ParentAnchor] = t
	}
	if _, dup := t.byID[m.Id]; dup {
		return nil
	}
	t.byID[m.Id] = struct{}{}
	t.items = insertBySeq(t.items, m)

	if b.currentTip == nil || m.ParentAnchor != *b.currentTip {
		logger.Debug("buffering microblock ahead of tip", "anchor", m.ParentAnchor, "seq", m.Seq)
		return nil
	}
	return chaintypes.UpdatedWithMicroblocks{Applied: []chaintypes.Microblock{m}}
}

// insertBySeq inserts m into items, keeping items sorted by Seq.
func insertBySeq(items []chaintypes.Microblock, m chaintypes.Microblock) []chaintypes.Microblock {
	i := 0
	for ; i < len(items); i++ {
		if items[i].Seq > m.Seq {
			break
		}
	}
	items = append(items, chaintypes.Microblock{})
	copy(items[i+1:], items[i:])
	items[i] = m
	return items
}

// AdvanceTip is called by the indexer whenever a new STX anchor block is
// confirmed: the trail for the previous tip is archived (kept for replay)
// and the trail for the new tip, if any microblocks arrived ahead of it, is
// primed as the active pending trail.
func (b *Buffer) AdvanceTip(newTip chaintypes.BlockId) {
	if b.currentTip != nil {
		if t, ok := b.pending[*b.currentTip]; ok {
			b.finalized[*b.currentTip] = t
			delete(b.pending, *b.currentTip)
		}
	}
	b.currentTip = &newTip
	if _, ok := b.pending[newTip]; !ok {
		b.pending[newTip] = &trail{byID: make(map[chaintypes.Hash32]struct{})}
	}
}

// Trail returns the microblocks accumulated for the given anchor, whether
// still pending or already finalized.
func (b *Buffer) Trail(anchor chaintypes.BlockId) []chaintypes.Microblock {
	if t, ok := b.pending[anchor]; ok {
		return append([]chaintypes.Microblock(nil), t.items...)
	}
	if t, ok := b.finalized[anchor]; ok {
		return append([]chaintypes.Microblock(nil), t.items...)
	}
	return nil
}
