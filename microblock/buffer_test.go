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

package microblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klaytn/chainhook-observer/chaintypes"
)

func anchor(idx uint64) chaintypes.BlockId {
	var h chaintypes.Hash32
	h[0] = byte(idx)
	return chaintypes.BlockId{Hash: h, Index: idx}
}

func mb(anchorId chaintypes.BlockId, seq uint32) chaintypes.Microblock {
	var h chaintypes.Hash32
	h[0] = byte(seq + 1)
	h[1] = byte(anchorId.Index)
	return chaintypes.Microblock{ParentAnchor: anchorId, Seq: seq, Id: h}
}

func TestInsertMicroblockAheadOfTipIsBufferedNotEmitted(t *testing.T) {
	b := New()
	ev := b.InsertMicroblock(mb(anchor(1), 0))
	assert.Nil(t, ev)
	assert.Len(t, b.Trail(anchor(1)), 1)
}

func TestInsertMicroblockAtCurrentTipEmitsUpdate(t *testing.T) {
	b := New()
	b.AdvanceTip(anchor(1))

	ev := b.InsertMicroblock(mb(anchor(1), 0))
	require.NotNil(t, ev)
	updated, ok := ev.(chaintypes.UpdatedWithMicroblocks)
	require.True(t, ok)
	assert.Len(t, updated.Applied, 1)
}

func TestInsertMicroblockDuplicateIsIgnored(t *testing.T) {
	b := New()
	b.AdvanceTip(anchor(1))
	m := mb(anchor(1), 0)

	ev1 := b.InsertMicroblock(m)
	require.NotNil(t, ev1)
	ev2 := b.InsertMicroblock(m)
	assert.Nil(t, ev2)
	assert.Len(t, b.Trail(anchor(1)), 1)
}

func TestTrailIsOrderedBySequenceRegardlessOfInsertOrder(t *testing.T) {
	b := New()
	b.InsertMicroblock(mb(anchor(1), 2))
	b.InsertMicroblock(mb(anchor(1), 0))
	b.InsertMicroblock(mb(anchor(1), 1))

	trail := b.Trail(anchor(1))
	require.Len(t, trail, 3)
	assert.Equal(t, uint32(0), trail[0].Seq)
	assert.Equal(t, uint32(1), trail[1].Seq)
	assert.Equal(t, uint32(2), trail[2].Seq)
}

func TestAdvanceTipArchivesPreviousTrailAndPrimesNewOne(t *testing.T) {
	b := New()
	b.AdvanceTip(anchor(1))
	b.InsertMicroblock(mb(anchor(1), 0))

	b.AdvanceTip(anchor(2))

	assert.Len(t, b.Trail(anchor(1)), 1, "previous anchor's trail is retained for replay")

	ev := b.InsertMicroblock(mb(anchor(2), 0))
	assert.NotNil(t, ev, "new tip's trail accepts microblocks immediately")
}

func TestTrailUnknownAnchorReturnsNil(t *testing.T) {
	b := New()
	assert.Nil(t, b.Trail(anchor(99)))
}
