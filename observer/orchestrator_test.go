package observer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klaytn/chainhook-observer/blockpool"
	"github.com/klaytn/chainhook-observer/chaintypes"
	"github.com/klaytn/chainhook-observer/dispatcher"
	"github.com/klaytn/chainhook-observer/event"
	"github.com/klaytn/chainhook-observer/indexer"
	"github.com/klaytn/chainhook-observer/obsevent"
	"github.com/klaytn/chainhook-observer/occurrence"
	"github.com/klaytn/chainhook-observer/predicate"
)

type wireBlock struct {
	Hash       string `json:"hash"`
	Index      uint64 `json:"index"`
	ParentHash string `json:"parent_hash"`
	ParentIdx  uint64 `json:"parent_index"`
}

type fakeNormalizer struct{}

func toBlock(w wireBlock) chaintypes.Block {
	var h, ph chaintypes.Hash32
	copy(h[:], w.Hash)
	copy(ph[:], w.ParentHash)
	return chaintypes.Block{
		Id:       chaintypes.BlockId{Hash: h, Index: w.Index},
		ParentId: chaintypes.BlockId{Hash: ph, Index: w.ParentIdx},
		Transactions: []chaintypes.Tx{
			{Id: chaintypes.TxId{Hash: h}},
		},
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

func newTestOrchestrator(t *testing.T, hooksEnabled bool) (*Orchestrator, *event.Feed, chan obsevent.Event) {
	t.Helper()
	ix := indexer.New(fakeNormalizer{}, blockpool.DefaultConfirmedDepth, blockpool.DefaultConfirmedDepth)
	store := predicate.NewStore(nil)
	tracker := occurrence.New()
	disp := dispatcher.New(nil, nil, nil, false, nil)
	outbox := &event.Feed{}
	o := New(ix, store, tracker, disp, outbox, hooksEnabled, nil)

	ch := make(chan obsevent.Event, 32)
	outbox.Subscribe(ch)
	o.Start()
	t.Cleanup(o.Stop)
	return o, outbox, ch
}

func drainUntil(t *testing.T, ch chan obsevent.Event, want func(obsevent.Event) bool) obsevent.Event {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-ch:
			if want(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("timed out waiting for expected outbox event")
		}
	}
}

func TestPropagateBtcEventAdvancesTipAndEmitsEvent(t *testing.T) {
	o, _, ch := newTestOrchestrator(t, false)

	raw := []byte(`{"hash":"A1","index":1,"parent_hash":"genesis","parent_index":0}`)
	err := o.Submit(context.Background(), Command{Kind: CmdPropagateBtcEvent, Raw: raw})
	require.NoError(t, err)

	drainUntil(t, ch, func(ev obsevent.Event) bool {
		_, ok := ev.(obsevent.BtcChainEvent)
		return ok
	})

	tip, ok := o.ix.BTC.Tip()
	require.True(t, ok)
	assert.EqualValues(t, 1, tip.Index)
}

func TestPropagateMalformedBlockReturnsError(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, false)
	err := o.Submit(context.Background(), Command{Kind: CmdPropagateBtcEvent, Raw: []byte(`not json`)})
	assert.Error(t, err)
}

func TestRegisterThenTriggerThenExpire(t *testing.T) {
	o, _, ch := newTestOrchestrator(t, true)

	var target chaintypes.Hash32
	copy(target[:], "A1")
	limit := uint64(1)
	p := predicate.Predicate{
		UUID:                  "p1",
		Chain:                 chaintypes.BTC,
		Matcher:               predicate.TxidMatcher{Expected: target},
		Action:                predicate.InProcessAction{},
		ExpireAfterOccurrence: &limit,
	}
	require.NoError(t, o.Submit(context.Background(), Command{Kind: CmdRegister, Predicate: p, Owner: predicate.AnonymousTenant}))
	drainUntil(t, ch, func(ev obsevent.Event) bool {
		_, ok := ev.(obsevent.HookRegistered)
		return ok
	})

	raw := []byte(`{"hash":"A1","index":1,"parent_hash":"genesis","parent_index":0}`)
	require.NoError(t, o.Submit(context.Background(), Command{Kind: CmdPropagateBtcEvent, Raw: raw}))

	drainUntil(t, ch, func(ev obsevent.Event) bool {
		triggered, ok := ev.(obsevent.HooksTriggered)
		return ok && triggered.Count == 1
	})
	drainUntil(t, ch, func(ev obsevent.Event) bool {
		deregistered, ok := ev.(obsevent.HookDeregistered)
		return ok && deregistered.UUID == "p1"
	})

	_, ok := o.store.OwnerOf("p1")
	assert.False(t, ok, "predicate must be gone after reaching expire_after_occurrence")
}

func TestDeregisterBtcUnknownUUIDIsANoOp(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, false)
	err := o.Submit(context.Background(), Command{Kind: CmdDeregisterBtc, UUID: "ghost"})
	assert.NoError(t, err)
}

func TestStatusReportsTip(t *testing.T) {
	o, _, ch := newTestOrchestrator(t, false)

	s := o.Status()
	assert.Nil(t, s.BTCTip)

	raw := []byte(`{"hash":"A1","index":1,"parent_hash":"genesis","parent_index":0}`)
	require.NoError(t, o.Submit(context.Background(), Command{Kind: CmdPropagateBtcEvent, Raw: raw}))
	drainUntil(t, ch, func(ev obsevent.Event) bool {
		_, ok := ev.(obsevent.BtcChainEvent)
		return ok
	})

	s = o.Status()
	require.NotNil(t, s.BTCTip)
	assert.Equal(t, uint64(1), s.CommandsProcessed)
}
