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

package observer

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/klaytn/chainhook-observer/chaintypes"
	"github.com/klaytn/chainhook-observer/dispatcher"
	"github.com/klaytn/chainhook-observer/event"
	"github.com/klaytn/chainhook-observer/indexer"
	"github.com/klaytn/chainhook-observer/log"
	"github.com/klaytn/chainhook-observer/obsevent"
	"github.com/klaytn/chainhook-observer/occurrence"
	"github.com/klaytn/chainhook-observer/predicate"
)

var logger = log.NewModuleLogger(log.Observer)

// ErrClosed is returned by Submit after the orchestrator has terminated.
var ErrClosed = errors.New("observer: orchestrator is terminated")

// inboxDepth is generous enough that the ingestion HTTP handlers (spec §6)
// rarely block on a slow command; it is not a correctness requirement,
// only a throughput cushion (spec §5 commands are still FIFO).
const inboxDepth = 256

// Orchestrator is C8: the single task with exclusive write access to the
// indexer, predicate store and occurrence tracker (spec §4.8, §5).
type Orchestrator struct {
	inbox  chan Command
	outbox *event.Feed
	done   chan struct{}
	wg     sync.WaitGroup
	closed int32

	ix      *indexer.Indexer
	store   *predicate.Store
	tracker *occurrence.Tracker
	disp    *dispatcher.Dispatcher

	hooksEnabled  bool
	eventHandlers []EventHandler

	commandsProcessed uint64
}

// New builds an Orchestrator. outbox must be non-nil; callers subscribe to
// it before Start to avoid missing early events.
func New(ix *indexer.Indexer, store *predicate.Store, tracker *occurrence.Tracker, disp *dispatcher.Dispatcher, outbox *event.Feed, hooksEnabled bool, eventHandlers []EventHandler) *Orchestrator {
	return &Orchestrator{
		inbox:         make(chan Command, inboxDepth),
		outbox:        outbox,
		done:          make(chan struct{}),
		ix:            ix,
		store:         store,
		tracker:       tracker,
		disp:          disp,
		hooksEnabled:  hooksEnabled,
		eventHandlers: eventHandlers,
	}
}

// LoadInitialPredicates registers preds under the anonymous tenant before
// Start is called, mirroring the original observer's pre-registration of
// `config.initial_predicates` (SPEC_FULL.md §12.1). Call before Start.
func (o *Orchestrator) LoadInitialPredicates(preds []predicate.Predicate) error {
	for _, p := range preds {
		if err := o.store.Register(predicate.AnonymousTenant, p); err != nil {
			return errors.Wrapf(err, "initial predicate %s", p.UUID)
		}
	}
	return nil
}

// Start launches the command loop in a background goroutine.
func (o *Orchestrator) Start() {
	o.wg.Add(1)
	go o.run()
}

// Stop submits Terminate and waits for the loop to exit.
func (o *Orchestrator) Stop() {
	_ = o.Submit(context.Background(), Command{Kind: CmdTerminate})
	o.wg.Wait()
}

// Submit enqueues cmd and blocks until the orchestrator has processed it
// or ctx is done. Safe for concurrent use by multiple HTTP handlers.
func (o *Orchestrator) Submit(ctx context.Context, cmd Command) error {
	if atomic.LoadInt32(&o.closed) != 0 {
		return ErrClosed
	}
	cmd.reply = make(chan Result, 1)
	select {
	case o.inbox <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-o.done:
		return ErrClosed
	}
	select {
	case res := <-cmd.reply:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) run() {
	defer o.wg.Done()
	for cmd := range o.inbox {
		// Counted before handle, which sends the reply Submit waits on.
		atomic.AddUint64(&o.commandsProcessed, 1)
		terminal := o.handle(cmd)
		if terminal {
			atomic.StoreInt32(&o.closed, 1)
			close(o.done)
			return
		}
	}
}

func (o *Orchestrator) handle(cmd Command) (terminal bool) {
	switch cmd.Kind {
	case CmdPropagateBtcEvent:
		o.forward(chaintypes.BTC, cmd.Raw)
		ev, err := o.ix.HandleBTCBlock(cmd.Raw)
		o.finishPropagate(chaintypes.BTC, ev, err, cmd.reply)

	case CmdPropagateStxEvent:
		o.forward(chaintypes.STX, cmd.Raw)
		ev, err := o.ix.HandleSTXBlock(cmd.Raw)
		o.finishPropagate(chaintypes.STX, ev, err, cmd.reply)

	case CmdPropagateStxMicroblocks:
		o.forward(chaintypes.STX, cmd.Raw)
		events, err := o.ix.HandleSTXMicroblocks(cmd.Raw)
		if err != nil {
			cmd.reply <- Result{Err: err}
			break
		}
		for _, ev := range events {
			o.processEvent(chaintypes.STX, ev)
		}
		cmd.reply <- Result{}

	case CmdNotifyBtcTxProxied:
		o.outbox.Send(obsevent.NotifyBtcTxProxied{})
		cmd.reply <- Result{}

	case CmdRegister:
		err := o.store.Register(cmd.Owner, cmd.Predicate)
		if err == nil {
			o.outbox.Send(obsevent.HookRegistered{UUID: cmd.Predicate.UUID, Chain: cmd.Predicate.Chain})
		}
		cmd.reply <- Result{Err: err}

	case CmdDeregisterBtc, CmdDeregisterStx:
		if owner, ok := o.store.OwnerOf(cmd.UUID); ok && owner != cmd.Owner {
			cmd.reply <- Result{} // another tenant's predicate: left in place
			break
		}
		chain := chaintypes.STX
		if cmd.Kind == CmdDeregisterBtc {
			chain = chaintypes.BTC
		}
		o.deregister(chain, cmd.UUID, cmd.reply)

	case CmdTerminate:
		o.outbox.Send(obsevent.Terminate{})
		cmd.reply <- Result{}
		return true
	}
	return false
}

func (o *Orchestrator) forward(chain chaintypes.Chain, raw []byte) {
	for _, h := range o.eventHandlers {
		h.Forward(context.Background(), chain, raw)
	}
}

func (o *Orchestrator) finishPropagate(chain chaintypes.Chain, ev chaintypes.ChainEvent, err error, reply chan<- Result) {
	if err != nil {
		reply <- Result{Err: err}
		return
	}
	if ev != nil {
		o.processEvent(chain, ev)
	}
	reply <- Result{}
}

func (o *Orchestrator) deregister(chain chaintypes.Chain, uuid string, reply chan<- Result) {
	var removed predicate.Predicate
	var ok bool
	if chain == chaintypes.BTC {
		removed, ok = o.store.DeregisterBTC(uuid)
	} else {
		removed, ok = o.store.DeregisterSTX(uuid)
	}
	if ok {
		o.tracker.Forget(uuid)
		o.outbox.Send(obsevent.HookDeregistered{UUID: removed.UUID, Chain: removed.Chain})
	}
	reply <- Result{}
}

// processEvent runs C5 -> C6 -> C7 for ev and emits the ChainEvent outbox
// notice, per spec §4.8 step 2.
func (o *Orchestrator) processEvent(chain chaintypes.Chain, ev chaintypes.ChainEvent) {
	if chain == chaintypes.BTC {
		o.outbox.Send(obsevent.BtcChainEvent{Event: ev})
	} else {
		o.outbox.Send(obsevent.StxChainEvent{Event: ev})
	}
	if !o.hooksEnabled {
		return
	}

	snapshot := o.store.SnapshotForChain(chain)
	triggers := predicate.Evaluate(ev, snapshot)
	o.outbox.Send(obsevent.HooksTriggered{Count: len(triggers)})

	// One shared proof cache for every trigger this event produced, so a
	// tx matched by several predicates is proven at most once (spec §8
	// testable property 5).
	o.disp.DispatchBatch(context.Background(), triggers)

	for _, t := range triggers {
		_, expired := o.tracker.RecordAndCheckExpiry(t.Predicate.UUID, t.Predicate.ExpireAfterOccurrence)
		if !expired {
			continue
		}
		o.deregister(chain, t.Predicate.UUID, discardReply())
	}
}

// discardReply returns a buffered reply channel whose eventual value
// nobody reads, for internal deregistrations triggered by occurrence
// expiry rather than an operator request.
func discardReply() chan Result {
	return make(chan Result, 1)
}
