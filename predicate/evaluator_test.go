package predicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klaytn/chainhook-observer/chaintypes"
)

func hashFor(b byte) chaintypes.Hash32 {
	var h chaintypes.Hash32
	h[0] = b
	return h
}

func blockWithTx(index uint64, txHash chaintypes.Hash32) chaintypes.Block {
	return chaintypes.Block{
		Id: chaintypes.BlockId{Hash: hashFor(byte(index)), Index: index},
		Transactions: []chaintypes.Tx{
			{Id: chaintypes.TxId{Hash: txHash}},
		},
	}
}

func TestEvaluateMatchesApplySide(t *testing.T) {
	target := hashFor(0xAA)
	ev := chaintypes.UpdatedWithBlocks{Applied: []chaintypes.Block{blockWithTx(10, target)}}
	p := Predicate{UUID: "p1", Matcher: TxidMatcher{Expected: target}, Action: InProcessAction{}}

	triggers := Evaluate(ev, []Predicate{p})
	require.Len(t, triggers, 1)
	assert.Len(t, triggers[0].Apply, 1)
	assert.Empty(t, triggers[0].Rollback)
}

func TestEvaluateNoMatchYieldsNoTrigger(t *testing.T) {
	ev := chaintypes.UpdatedWithBlocks{Applied: []chaintypes.Block{blockWithTx(10, hashFor(0x01))}}
	p := Predicate{UUID: "p1", Matcher: TxidMatcher{Expected: hashFor(0x02)}, Action: InProcessAction{}}

	triggers := Evaluate(ev, []Predicate{p})
	assert.Empty(t, triggers)
}

func TestEvaluateReorgPopulatesBothSides(t *testing.T) {
	target := hashFor(0xBB)
	ev := chaintypes.UpdatedWithReorg{
		RolledBack: []chaintypes.Block{blockWithTx(11, target)},
		Applied:    []chaintypes.Block{blockWithTx(11, target)},
	}
	p := Predicate{UUID: "p1", Matcher: TxidMatcher{Expected: target}, Action: InProcessAction{}}

	triggers := Evaluate(ev, []Predicate{p})
	require.Len(t, triggers, 1)
	assert.Len(t, triggers[0].Apply, 1)
	assert.Len(t, triggers[0].Rollback, 1)
}

func TestEvaluateScopeOutsideRangeSkipsPredicate(t *testing.T) {
	target := hashFor(0xCC)
	ev := chaintypes.UpdatedWithBlocks{Applied: []chaintypes.Block{blockWithTx(5, target)}}
	start := uint64(100)
	p := Predicate{
		UUID: "p1",
		Matcher: ScopeMatcher{
			Inner:      TxidMatcher{Expected: target},
			StartBlock: start,
		},
		Action: InProcessAction{},
	}

	triggers := Evaluate(ev, []Predicate{p})
	assert.Empty(t, triggers, "scope starting at 100 must not match a block-5 event")
}

func TestEvaluateScopeInsideRangeStillMatches(t *testing.T) {
	target := hashFor(0xDD)
	ev := chaintypes.UpdatedWithBlocks{Applied: []chaintypes.Block{blockWithTx(5, target)}}
	p := Predicate{
		UUID: "p1",
		Matcher: ScopeMatcher{
			Inner:      TxidMatcher{Expected: target},
			StartBlock: 0,
		},
		Action: InProcessAction{},
	}

	triggers := Evaluate(ev, []Predicate{p})
	require.Len(t, triggers, 1)
	assert.Len(t, triggers[0].Apply, 1)
}

func TestEvaluateMicroblocksAdaptedToBlocks(t *testing.T) {
	target := hashFor(0xEE)
	ev := chaintypes.UpdatedWithMicroblocks{
		Applied: []chaintypes.Microblock{
			{
				ParentAnchor: chaintypes.BlockId{Index: 42},
				Seq:          0,
				Txs:          []chaintypes.Tx{{Id: chaintypes.TxId{Hash: target}}},
			},
		},
	}
	p := Predicate{UUID: "p1", Matcher: TxidMatcher{Expected: target}, Action: InProcessAction{}}

	triggers := Evaluate(ev, []Predicate{p})
	require.Len(t, triggers, 1)
	assert.Len(t, triggers[0].Apply, 1)
}
