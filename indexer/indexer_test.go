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

package indexer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/klaytn/chainhook-observer/blockpool"
	"github.com/klaytn/chainhook-observer/chaintypes"
)

// fakeNormalizer decodes a tiny JSON shape directly into chaintypes so
// tests can exercise the indexer without a real node-wire normalizer.
type fakeNormalizer struct{}

type wireBlock struct {
	Hash       string `json:"hash"`
	Index      uint64 `json:"index"`
	ParentHash string `json:"parent_hash"`
	ParentIdx  uint64 `json:"parent_index"`
}

func toBlock(w wireBlock) chaintypes.Block {
	var h, ph chaintypes.Hash32
	copy(h[:], w.Hash)
	copy(ph[:], w.ParentHash)
	return chaintypes.Block{
		Id:       chaintypes.BlockId{Hash: h, Index: w.Index},
		ParentId: chaintypes.BlockId{Hash: ph, Index: w.ParentIdx},
	}
}

func (fakeNormalizer) NormalizeBTCBlock(raw []byte) (chaintypes.Block, error) {
	var w wireBlock
	if err := json.Unmarshal(raw, &w); err != nil {
		return chaintypes.Block{}, err
	}
	return toBlock(w), nil
}

func (fakeNormalizer) NormalizeSTXBlock(raw []byte) (chaintypes.Block, error) {
	var w wireBlock
	if err := json.Unmarshal(raw, &w); err != nil {
		return chaintypes.Block{}, err
	}
	return toBlock(w), nil
}

func (fakeNormalizer) NormalizeSTXMicroblocks(raw []byte) ([]chaintypes.Microblock, error) {
	return nil, nil
}

func TestHandleBTCBlockAdvancesTip(t *testing.T) {
	ix := New(fakeNormalizer{}, blockpool.DefaultConfirmedDepth, blockpool.DefaultConfirmedDepth)

	raw := []byte(`{"hash":"A1","index":1,"parent_hash":"genesis","parent_index":0}`)
	event, err := ix.HandleBTCBlock(raw)
	require.NoError(t, err)
	require.IsType(t, chaintypes.UpdatedWithBlocks{}, event)

	tip, ok := ix.BTC.Tip()
	require.True(t, ok)
	require.EqualValues(t, 1, tip.Index)
}

func TestHandleBTCBlockMalformedJSON(t *testing.T) {
	ix := New(fakeNormalizer{}, blockpool.DefaultConfirmedDepth, blockpool.DefaultConfirmedDepth)
	_, err := ix.HandleBTCBlock([]byte(`not json`))
	require.Error(t, err)
}
