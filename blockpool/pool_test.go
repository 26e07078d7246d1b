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

package blockpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klaytn/chainhook-observer/chaintypes"
)

func hashOf(label string) chaintypes.Hash32 {
	var h chaintypes.Hash32
	copy(h[:], label)
	return h
}

func blockAt(label string, index uint64, parentLabel string, parentIndex uint64) chaintypes.Block {
	return chaintypes.Block{
		Id:       chaintypes.BlockId{Hash: hashOf(label), Index: index},
		ParentId: chaintypes.BlockId{Hash: hashOf(parentLabel), Index: parentIndex},
	}
}

func TestInOrderExtension(t *testing.T) {
	p := New(chaintypes.BTC, DefaultConfirmedDepth)

	a1 := blockAt("A1", 1, "genesis", 0)
	ev, err := p.Insert(a1)
	require.NoError(t, err)
	require.IsType(t, chaintypes.UpdatedWithBlocks{}, ev)
	assert.Equal(t, []chaintypes.Block{a1}, ev.(chaintypes.UpdatedWithBlocks).Applied)

	b1 := blockAt("B1", 2, "A1", 1)
	ev, err = p.Insert(b1)
	require.NoError(t, err)
	assert.Equal(t, []chaintypes.Block{b1}, ev.(chaintypes.UpdatedWithBlocks).Applied)

	c1 := blockAt("C1", 3, "B1", 2)
	ev, err = p.Insert(c1)
	require.NoError(t, err)
	assert.Equal(t, []chaintypes.Block{c1}, ev.(chaintypes.UpdatedWithBlocks).Applied)

	tip, ok := p.Tip()
	require.True(t, ok)
	assert.Equal(t, c1.Id, tip)
}

func TestSimpleReorg(t *testing.T) {
	p := New(chaintypes.BTC, DefaultConfirmedDepth)

	a1 := blockAt("A1", 1, "genesis", 0)
	b1 := blockAt("B1", 2, "A1", 1)
	b2 := blockAt("B2", 2, "A1", 1)
	c1 := blockAt("C1", 3, "B1", 2)
	c2 := blockAt("C2", 3, "B2", 2)

	_, err := p.Insert(a1)
	require.NoError(t, err)
	_, err = p.Insert(b1)
	require.NoError(t, err)

	ev, err := p.Insert(b2)
	require.NoError(t, err)
	reorg := ev.(chaintypes.UpdatedWithReorg)
	assert.Equal(t, []chaintypes.Block{b1}, reorg.RolledBack)
	assert.Equal(t, []chaintypes.Block{b2}, reorg.Applied)

	ev, err = p.Insert(c1)
	require.NoError(t, err)
	reorg = ev.(chaintypes.UpdatedWithReorg)
	assert.Equal(t, []chaintypes.Block{b2}, reorg.RolledBack)
	assert.Equal(t, []chaintypes.Block{b1, c1}, reorg.Applied)

	ev, err = p.Insert(c2)
	require.NoError(t, err)
	reorg = ev.(chaintypes.UpdatedWithReorg)
	assert.Equal(t, []chaintypes.Block{c1, b1}, reorg.RolledBack)
	assert.Equal(t, []chaintypes.Block{b2, c2}, reorg.Applied)

	tip, ok := p.Tip()
	require.True(t, ok)
	assert.Equal(t, c2.Id, tip)
}

func TestOutOfOrderDelivery(t *testing.T) {
	p := New(chaintypes.BTC, DefaultConfirmedDepth)

	a1 := blockAt("A1", 1, "genesis", 0)
	c1 := blockAt("C1", 3, "B1", 2)
	b1 := blockAt("B1", 2, "A1", 1)

	ev, err := p.Insert(a1)
	require.NoError(t, err)
	assert.Equal(t, []chaintypes.Block{a1}, ev.(chaintypes.UpdatedWithBlocks).Applied)

	ev, err = p.Insert(c1)
	require.NoError(t, err)
	assert.Nil(t, ev, "C1 is an orphan: its parent B1 hasn't arrived yet")

	ev, err = p.Insert(b1)
	require.NoError(t, err)
	assert.Equal(t, []chaintypes.Block{b1, c1}, ev.(chaintypes.UpdatedWithBlocks).Applied)

	tip, ok := p.Tip()
	require.True(t, ok)
	assert.Equal(t, c1.Id, tip)
}

func TestDuplicateInsertIsNoOp(t *testing.T) {
	p := New(chaintypes.BTC, DefaultConfirmedDepth)
	a1 := blockAt("A1", 1, "genesis", 0)

	_, err := p.Insert(a1)
	require.NoError(t, err)

	ev, err := p.Insert(a1)
	require.NoError(t, err)
	assert.Nil(t, ev)

	tip, _ := p.Tip()
	assert.Equal(t, a1.Id, tip)
}

func TestMalformedParentIndexRejected(t *testing.T) {
	p := New(chaintypes.BTC, DefaultConfirmedDepth)
	a1 := blockAt("A1", 1, "genesis", 0)
	_, err := p.Insert(a1)
	require.NoError(t, err)

	bad := blockAt("B1", 5, "A1", 1) // does not extend A1 by exactly one
	_, err = p.Insert(bad)
	assert.ErrorIs(t, err, ErrMalformed)

	_, ok := p.Get(bad.Id)
	assert.False(t, ok, "malformed blocks are not stored")
}

func TestMalformedParentIndexRejectedBeforeParentArrives(t *testing.T) {
	p := New(chaintypes.BTC, DefaultConfirmedDepth)

	bad := blockAt("B1", 5, "A1", 1) // self-inconsistent height relation, parent not yet known
	_, err := p.Insert(bad)
	assert.ErrorIs(t, err, ErrMalformed)

	_, ok := p.Get(bad.Id)
	assert.False(t, ok, "malformed orphan blocks are not stored")
}

func TestBelowFinalityHorizonDoesNotWinTip(t *testing.T) {
	p := New(chaintypes.BTC, 2)

	chain := []chaintypes.Block{
		blockAt("A1", 1, "genesis", 0),
		blockAt("B1", 2, "A1", 1),
		blockAt("C1", 3, "B1", 2),
		blockAt("D1", 4, "C1", 3),
		blockAt("E1", 5, "D1", 4),
	}
	for _, b := range chain {
		_, err := p.Insert(b)
		require.NoError(t, err)
	}
	tip, _ := p.Tip()
	assert.EqualValues(t, 5, tip.Index)

	stale := blockAt("stale", 2, "A1", 1)
	ev, err := p.Insert(stale)
	assert.ErrorIs(t, err, ErrBelowFinalityHorizon)
	assert.Nil(t, ev)

	newTip, _ := p.Tip()
	assert.Equal(t, tip, newTip, "tip must not move for a below-horizon insert")
}

func TestPruneConfirmedRemembersFinalizedIds(t *testing.T) {
	p := New(chaintypes.BTC, 2)
	blocks := []chaintypes.Block{
		blockAt("A1", 1, "genesis", 0),
		blockAt("B1", 2, "A1", 1),
		blockAt("C1", 3, "B1", 2),
		blockAt("D1", 4, "C1", 3),
	}
	for _, b := range blocks {
		_, err := p.Insert(b)
		require.NoError(t, err)
	}

	p.PruneConfirmed(2)

	_, ok := p.Get(blocks[0].Id)
	assert.False(t, ok, "A1 is below the finality boundary and should be pruned")
	assert.True(t, p.Finalized(blocks[0].Id))

	_, ok = p.Get(blocks[3].Id)
	assert.True(t, ok, "D1 is the tip and must survive pruning")
}
