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

package predicate

import (
	"github.com/klaytn/chainhook-observer/chaintypes"
)

// TxInBlock pairs a matched transaction with the block it was found in.
type TxInBlock struct {
	Tx    chaintypes.Tx
	Block chaintypes.Block
}

// Trigger is the result of matching one predicate against one chain event
// (spec §4.5).
type Trigger struct {
	Predicate Predicate
	Apply     []TxInBlock
	Rollback  []TxInBlock
}

// eventRange reduces a ChainEvent to the inclusive block-height range it
// spans, so ScopeMatcher.InRange can short-circuit predicates whose scope
// does not intersect it at all without scanning every transaction.
func eventRange(ev chaintypes.ChainEvent) (start, end uint64, ok bool) {
	switch e := ev.(type) {
	case chaintypes.UpdatedWithBlocks:
		return collectRange(e.Applied)
	case chaintypes.UpdatedWithReorg:
		lo1, hi1, ok1 := collectRange(e.Applied)
		lo2, hi2, ok2 := collectRange(e.RolledBack)
		switch {
		case ok1 && ok2:
			if lo2 < lo1 {
				lo1 = lo2
			}
			if hi2 > hi1 {
				hi1 = hi2
			}
			return lo1, hi1, true
		case ok1:
			return lo1, hi1, true
		case ok2:
			return lo2, hi2, true
		default:
			return 0, 0, false
		}
	default:
		return 0, 0, false
	}
}

func collectRange(blocks []chaintypes.Block) (uint64, uint64, bool) {
	if len(blocks) == 0 {
		return 0, 0, false
	}
	lo, hi := blocks[0].Id.Index, blocks[0].Id.Index
	for _, b := range blocks[1:] {
		if b.Id.Index < lo {
			lo = b.Id.Index
		}
		if b.Id.Index > hi {
			hi = b.Id.Index
		}
	}
	return lo, hi, true
}

// scopeIntersects reports whether p's matcher (when it is a ScopeMatcher)
// intersects [start, end]. Any other matcher always intersects; a
// ScopeMatcher nested inside AllOf/AnyOf is not inspected here.
func scopeIntersects(m Matcher, start, end uint64, haveRange bool) bool {
	if !haveRange {
		return true
	}
	if s, ok := m.(ScopeMatcher); ok {
		return s.InRange(start, end)
	}
	return true
}

// Evaluate matches every predicate in predicates against ev and returns one
// Trigger per predicate that matched at least one transaction (spec §4.5).
// Evaluate is pure: it never mutates ev, predicates, or any Tx/Block value.
func Evaluate(ev chaintypes.ChainEvent, predicates []Predicate) []Trigger {
	start, end, haveRange := eventRange(ev)

	var applyBlocks, rollbackBlocks []chaintypes.Block
	switch e := ev.(type) {
	case chaintypes.UpdatedWithBlocks:
		applyBlocks = e.Applied
	case chaintypes.UpdatedWithReorg:
		applyBlocks = e.Applied
		rollbackBlocks = e.RolledBack
	case chaintypes.UpdatedWithMicroblocks:
		applyBlocks = microblocksAsBlocks(e.Applied)
	default:
		return nil
	}

	var triggers []Trigger
	for _, p := range predicates {
		if !scopeIntersects(p.Matcher, start, end, haveRange) {
			continue
		}
		t := Trigger{Predicate: p}
		for _, b := range applyBlocks {
			for _, tx := range b.Transactions {
				if p.Matcher.Match(tx, b) {
					t.Apply = append(t.Apply, TxInBlock{Tx: tx, Block: b})
				}
			}
		}
		for _, b := range rollbackBlocks {
			for _, tx := range b.Transactions {
				if p.Matcher.Match(tx, b) {
					t.Rollback = append(t.Rollback, TxInBlock{Tx: tx, Block: b})
				}
			}
		}
		if len(t.Apply) > 0 || len(t.Rollback) > 0 {
			triggers = append(triggers, t)
		}
	}
	return triggers
}

// microblocksAsBlocks adapts a STX microblock batch into synthetic blocks
// sharing the microblock's parent anchor height, so matchers written
// against (Tx, Block) can evaluate microblock transactions unmodified.
func microblocksAsBlocks(mbs []chaintypes.Microblock) []chaintypes.Block {
	out := make([]chaintypes.Block, 0, len(mbs))
	for _, mb := range mbs {
		out = append(out, chaintypes.Block{
			Id:           chaintypes.BlockId{Hash: mb.Id, Index: mb.ParentAnchor.Index},
			ParentId:     mb.ParentAnchor,
			Transactions: mb.Txs,
		})
	}
	return out
}
