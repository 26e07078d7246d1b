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

// Package blockpool buffers recently reported blocks for one chain, links
// them into a tree by ParentId, and tracks the canonical tip. It never
// trusts block hashes for graph edges; ParentId is the only authoritative
// link. See spec §4.1.
package blockpool

import (
	"errors"

	lru "github.com/hashicorp/golang-lru"

	"github.com/klaytn/chainhook-observer/chaintypes"
	"github.com/klaytn/chainhook-observer/log"
)

// DefaultConfirmedDepth is the default finality horizon for both chains.
const DefaultConfirmedDepth = 7

// orphanGCHorizon bounds how many arrivals an unconnected subtree root may
// sit in the pool before it is dropped and logged (spec §4.1 invariant 1:
// "unresolved orphans older than a GC horizon are dropped and logged").
const orphanGCHorizon = 10000

var (
	// ErrMalformed is returned when a block's ParentId.Index+1 differs from
	// its Id.Index, whether or not the parent is held in the pool.
	ErrMalformed = errors.New("blockpool: malformed block")
	// ErrNotConnected is returned when the old and new tip candidates do
	// not share a common ancestor within the pool.
	ErrNotConnected = errors.New("blockpool: tip candidates not connected")
	// ErrBelowFinalityHorizon is returned when the inserted block arrived
	// at or below the current finality horizon and therefore cannot affect
	// the canonical tip.
	ErrBelowFinalityHorizon = errors.New("blockpool: block below finality horizon")
)

var logger = log.NewModuleLogger(log.BlockPool)

// Pool is a fork-aware buffer of blocks for a single chain. It is not
// internally synchronized: spec §4.3/§5 make the owning Indexer (and in
// turn the single-writer Observer Orchestrator) responsible for
// serializing all access.
type Pool struct {
	chain          chaintypes.Chain
	confirmedDepth uint64

	blocks   map[chaintypes.BlockId]*chaintypes.Block
	children map[chaintypes.BlockId][]chaintypes.BlockId

	canonicalTip    *chaintypes.BlockId
	establishedRoot *chaintypes.BlockId

	arrivalSeq uint64

	// finalized remembers ids that were pruned off the canonical chain so
	// that queries can still tell "once confirmed, now pruned" apart from
	// "never seen". Bounded LRU: spec's Non-goals exclude persistence, this
	// is a best-effort memory, not a source of truth.
	finalized *lru.Cache
}

// New creates an empty pool for the given chain with the given finality
// depth (spec §3 "confirmed_depth").
func New(chain chaintypes.Chain, confirmedDepth uint64) *Pool {
	cache, err := lru.New(4096)
	if err != nil {
		// lru.New only fails on a non-positive size, which is a
		// programmer error, not a runtime condition.
		panic(err)
	}
	return &Pool{
		chain:          chain,
		confirmedDepth: confirmedDepth,
		blocks:         make(map[chaintypes.BlockId]*chaintypes.Block),
		children:       make(map[chaintypes.BlockId][]chaintypes.BlockId),
		finalized:      cache,
	}
}

// Tip returns the current canonical tip, if any.
func (p *Pool) Tip() (chaintypes.BlockId, bool) {
	if p.canonicalTip == nil {
		return chaintypes.BlockId{}, false
	}
	return *p.canonicalTip, true
}

// Get returns the block with the given id, if still held in the pool.
func (p *Pool) Get(id chaintypes.BlockId) (*chaintypes.Block, bool) {
	b, ok := p.blocks[id]
	return b, ok
}

// Finalized reports whether id was once on the canonical chain and has
// since been pruned by PruneConfirmed. It is a best-effort, bounded memory,
// not an authoritative ledger (spec's persistence Non-goal).
func (p *Pool) Finalized(id chaintypes.BlockId) bool {
	_, ok := p.finalized.Get(id)
	return ok
}

// Insert buffers a newly reported block and recomputes the canonical tip.
// It is idempotent on block.Id: re-inserting a known block is a silent
// no-op. See spec §4.1 for the full tip-selection algorithm and §8 for the
// concrete scenarios this implementation is built to satisfy.
func (p *Pool) Insert(b chaintypes.Block) (chaintypes.ChainEvent, error) {
	if _, exists := p.blocks[b.Id]; exists {
		return nil, nil
	}
	if b.ParentId.Index+1 != b.Id.Index {
		logger.Warn("rejecting malformed block", "chain", p.chain, "block", b.Id, "parent", b.ParentId)
		return nil, ErrMalformed
	}

	p.arrivalSeq++
	stored := b
	stored.SetArrival(p.arrivalSeq)
	p.blocks[stored.Id] = &stored
	p.children[stored.ParentId] = append(p.children[stored.ParentId], stored.Id)

	belowHorizon := p.canonicalTip != nil && stored.Id.Index+p.confirmedDepth <= p.canonicalTip.Index
	if belowHorizon {
		logger.Info("block arrived below finality horizon", "chain", p.chain, "block", stored.Id, "tip", *p.canonicalTip)
	}

	p.gcStaleOrphans()

	newTip, found := p.selectTip()
	if !found {
		if belowHorizon {
			return nil, ErrBelowFinalityHorizon
		}
		return nil, nil
	}
	if p.canonicalTip != nil && newTip == *p.canonicalTip {
		if belowHorizon {
			return nil, ErrBelowFinalityHorizon
		}
		return nil, nil
	}

	event, err := p.advanceTip(newTip)
	if err != nil {
		if belowHorizon {
			return nil, ErrBelowFinalityHorizon
		}
		return nil, err
	}
	p.PruneConfirmed(p.confirmedDepth)
	return event, nil
}

// rootOf walks b's ParentId chain back to the block whose parent is not
// held in the pool and returns that block's id: the root of b's connected
// component.
func (p *Pool) rootOf(id chaintypes.BlockId) chaintypes.BlockId {
	for {
		b, ok := p.blocks[id]
		if !ok {
			return id
		}
		if _, parentPresent := p.blocks[b.ParentId]; !parentPresent {
			return id
		}
		id = b.ParentId
	}
}

// selectTip implements spec §4.1 steps 1-2: the leaf with the highest
// index among connected candidates, ties broken in favor of the most
// recently arrived block (confirmed by the reorg sequence in scenario 2,
// §8 — see DESIGN.md's Open Question resolution).
func (p *Pool) selectTip() (chaintypes.BlockId, bool) {
	var (
		best      chaintypes.BlockId
		bestFound bool
		bestIdx   uint64
		bestSeq   uint64
	)
	for id, b := range p.blocks {
		if len(p.children[id]) > 0 {
			continue // not a leaf
		}
		if p.establishedRoot != nil && p.rootOf(id) != *p.establishedRoot {
			continue // different, not-yet-connected subtree
		}
		if p.canonicalTip != nil && id.Index+p.confirmedDepth <= p.canonicalTip.Index {
			continue // cannot win: below finality horizon
		}
		if !bestFound || b.Id.Index > bestIdx || (b.Id.Index == bestIdx && b.Arrival() > bestSeq) {
			best = id
			bestFound = true
			bestIdx = b.Id.Index
			bestSeq = b.Arrival()
		}
	}
	return best, bestFound
}

// advanceTip computes the delta event between the current tip and newTip
// and moves the canonical tip. See spec §4.1 steps 4-6.
func (p *Pool) advanceTip(newTip chaintypes.BlockId) (chaintypes.ChainEvent, error) {
	if p.canonicalTip == nil {
		applied, err := p.pathExclusive(chaintypes.BlockId{}, newTip, true)
		if err != nil {
			return nil, err
		}
		root := p.rootOf(newTip)
		p.establishedRoot = &root
		p.canonicalTip = &newTip
		return chaintypes.UpdatedWithBlocks{Applied: applied}, nil
	}

	oldTip := *p.canonicalTip
	lca, ok := p.lowestCommonAncestor(oldTip, newTip)
	if !ok {
		return nil, ErrNotConnected
	}

	if lca == oldTip {
		applied, err := p.pathExclusive(oldTip, newTip, false)
		if err != nil {
			return nil, err
		}
		p.canonicalTip = &newTip
		return chaintypes.UpdatedWithBlocks{Applied: applied}, nil
	}

	rolledBack, err := p.pathFromDownTo(oldTip, lca)
	if err != nil {
		return nil, err
	}
	applied, err := p.pathExclusive(lca, newTip, false)
	if err != nil {
		return nil, err
	}
	p.canonicalTip = &newTip
	return chaintypes.UpdatedWithReorg{RolledBack: rolledBack, Applied: applied}, nil
}

// lowestCommonAncestor walks both chains back via ParentId until they meet.
func (p *Pool) lowestCommonAncestor(a, b chaintypes.BlockId) (chaintypes.BlockId, bool) {
	seen := make(map[chaintypes.BlockId]struct{})
	cur := a
	for {
		seen[cur] = struct{}{}
		blk, ok := p.blocks[cur]
		if !ok {
			break
		}
		cur = blk.ParentId
	}
	cur = b
	for {
		if _, ok := seen[cur]; ok {
			return cur, true
		}
		blk, ok := p.blocks[cur]
		if !ok {
			return chaintypes.BlockId{}, false
		}
		cur = blk.ParentId
	}
}

// pathExclusive returns blocks strictly after `from` up to and including
// `to`, oldest first. If fromIsNone is true, the path starts at `to`'s
// subtree root instead.
func (p *Pool) pathExclusive(from chaintypes.BlockId, to chaintypes.BlockId, fromIsNone bool) ([]chaintypes.Block, error) {
	var rev []chaintypes.Block
	cur := to
	for {
		if !fromIsNone && cur == from {
			break
		}
		blk, ok := p.blocks[cur]
		if !ok {
			if fromIsNone {
				break
			}
			return nil, ErrNotConnected
		}
		rev = append(rev, *blk)
		if fromIsNone {
			if _, parentPresent := p.blocks[blk.ParentId]; !parentPresent {
				break
			}
		}
		cur = blk.ParentId
	}
	out := make([]chaintypes.Block, len(rev))
	for i, blk := range rev {
		out[len(rev)-1-i] = blk
	}
	return out, nil
}

// pathFromDownTo returns blocks from `from` back down to (exclusive) `to`,
// newest first — the rollback order spec §3 requires.
func (p *Pool) pathFromDownTo(from, to chaintypes.BlockId) ([]chaintypes.Block, error) {
	var out []chaintypes.Block
	cur := from
	for cur != to {
		blk, ok := p.blocks[cur]
		if !ok {
			return nil, ErrNotConnected
		}
		out = append(out, *blk)
		cur = blk.ParentId
	}
	return out, nil
}

// CanonicalChain returns the canonical chain from the tip back to the
// earliest retained ancestor, newest first.
func (p *Pool) CanonicalChain() []chaintypes.BlockId {
	if p.canonicalTip == nil {
		return nil
	}
	var out []chaintypes.BlockId
	cur := *p.canonicalTip
	for {
		out = append(out, cur)
		blk, ok := p.blocks[cur]
		if !ok {
			break
		}
		if _, parentPresent := p.blocks[blk.ParentId]; !parentPresent {
			break
		}
		cur = blk.ParentId
	}
	return out
}

// PruneConfirmed removes canonical blocks deeper than depth below the tip
// (recording their ids as finalized) and drops non-canonical subtrees whose
// fork point has already been finalized away. See spec §4.1.
func (p *Pool) PruneConfirmed(depth uint64) {
	if p.canonicalTip == nil || p.canonicalTip.Index < depth {
		return
	}
	boundary := p.canonicalTip.Index - depth

	canonical := make(map[chaintypes.BlockId]struct{})
	for _, id := range p.CanonicalChain() {
		canonical[id] = struct{}{}
	}

	for id := range canonical {
		blk := p.blocks[id]
		if blk.Id.Index < boundary {
			p.finalized.Add(id, struct{}{})
			delete(p.blocks, id)
			delete(p.children, id)
		}
	}
	if root := p.lowestSurvivingCanonicalAncestor(); root != nil {
		p.establishedRoot = root
	}

	for id, blk := range p.blocks {
		if _, ok := canonical[id]; ok {
			continue
		}
		forkPoint, ok := p.nearestCanonicalAncestor(blk.ParentId, canonical)
		if ok && forkPoint.Index < boundary {
			delete(p.blocks, id)
			delete(p.children, id)
		}
	}
	for parent, kids := range p.children {
		filtered := kids[:0]
		for _, k := range kids {
			if _, ok := p.blocks[k]; ok {
				filtered = append(filtered, k)
			}
		}
		if len(filtered) == 0 {
			delete(p.children, parent)
		} else {
			p.children[parent] = filtered
		}
	}
}

func (p *Pool) lowestSurvivingCanonicalAncestor() *chaintypes.BlockId {
	chain := p.CanonicalChain()
	if len(chain) == 0 {
		return nil
	}
	id := chain[len(chain)-1]
	return &id
}

func (p *Pool) nearestCanonicalAncestor(id chaintypes.BlockId, canonical map[chaintypes.BlockId]struct{}) (chaintypes.BlockId, bool) {
	for {
		if _, ok := canonical[id]; ok {
			return id, true
		}
		blk, ok := p.blocks[id]
		if !ok {
			return chaintypes.BlockId{}, false
		}
		id = blk.ParentId
	}
}

// gcStaleOrphans drops disconnected subtree roots that have sat in the pool
// for longer than orphanGCHorizon arrivals without their ancestor arriving.
func (p *Pool) gcStaleOrphans() {
	if p.establishedRoot == nil {
		return
	}
	for id, blk := range p.blocks {
		if p.rootOf(id) == *p.establishedRoot {
			continue
		}
		if len(p.children[id]) > 0 {
			continue // visit leaves only; each leaf's whole subtree is dropped from its root below
		}
		root := p.rootOf(id)
		rootBlk, ok := p.blocks[root]
		if !ok {
			continue
		}
		if p.arrivalSeq-rootBlk.Arrival() > orphanGCHorizon {
			logger.Info("dropping stale orphan subtree", "chain", p.chain, "root", root)
			p.dropSubtree(root)
		}
	}
}

func (p *Pool) dropSubtree(root chaintypes.BlockId) {
	queue := []chaintypes.BlockId{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		queue = append(queue, p.children[id]...)
		delete(p.blocks, id)
		delete(p.children, id)
	}
}
