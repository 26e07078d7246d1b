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

package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/Shopify/sarama"
	"github.com/rcrowley/go-metrics"

	"github.com/klaytn/chainhook-observer/chaintypes"
	"github.com/klaytn/chainhook-observer/predicate"
)

// Metrics are the dispatcher's go-metrics counters (spec §9).
type Metrics struct {
	ProofFailures metrics.Counter
	Deliveries    metrics.Counter
	HTTPFailures  metrics.Counter
}

// NewMetrics registers the dispatcher's counters under r.
func NewMetrics(r metrics.Registry) *Metrics {
	m := &Metrics{
		ProofFailures: metrics.NewCounter(),
		Deliveries:    metrics.NewCounter(),
		HTTPFailures:  metrics.NewCounter(),
	}
	r.Register("dispatcher/proof_failures", m.ProofFailures)
	r.Register("dispatcher/deliveries", m.Deliveries)
	r.Register("dispatcher/http_failures", m.HTTPFailures)
	return m
}

// Dispatcher renders and delivers triggers (C6). One instance is shared by
// the orchestrator across every command.
type Dispatcher struct {
	httpClient  *http.Client
	proofClient ProofClient
	outbox      Outbox
	embedded    bool
	metrics     *Metrics

	mu             sync.Mutex
	kafkaProducers map[string]sarama.SyncProducer
	newKafkaProducer func(brokers []string) (sarama.SyncProducer, error)
}

// New builds a Dispatcher. proofClient may be nil when BTC proof requests
// are never expected (embedded callers that don't set include_proof).
// embedded selects whether FileAction actually writes (spec §4.6 step 2).
func New(httpClient *http.Client, proofClient ProofClient, outbox Outbox, embedded bool, m *Metrics) *Dispatcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: httpDeliveryTimeout}
	}
	if m == nil {
		m = NewMetrics(metrics.NewRegistry())
	}
	return &Dispatcher{
		httpClient:       httpClient,
		proofClient:      proofClient,
		outbox:           outbox,
		embedded:         embedded,
		metrics:          m,
		kafkaProducers:   make(map[string]sarama.SyncProducer),
		newKafkaProducer: defaultKafkaProducer,
	}
}

func defaultKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	return sarama.NewSyncProducer(brokers, cfg)
}

// Dispatch renders trig and delivers it through its predicate's action
// (spec §4.6). It never returns an error the caller must act on; errors
// are logged and counted only, per step 3's "never aborts command
// processing". Its proof cache covers only trig itself; callers
// dispatching every trigger produced by one ChainEvent must use
// DispatchBatch instead so a shared tx falls under one cache.
func (d *Dispatcher) Dispatch(ctx context.Context, trig predicate.Trigger) {
	d.dispatch(ctx, trig, newProofCache(d.proofClient, d.metrics.ProofFailures))
}

// DispatchBatch dispatches every trigger produced by evaluating a single
// ChainEvent against the predicate store, sharing one proof cache across
// all of them. This guarantees at most one get_tx_out_proof call per
// (txid, block) pair for the whole event, even when multiple predicates
// match the same tx (spec §8 testable property 5).
func (d *Dispatcher) DispatchBatch(ctx context.Context, trigs []predicate.Trigger) {
	cache := newProofCache(d.proofClient, d.metrics.ProofFailures)
	for _, trig := range trigs {
		d.dispatch(ctx, trig, cache)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, trig predicate.Trigger, cache *proofCache) {
	var proofOf func(chaintypes.Tx, chaintypes.Block) *string
	if trig.Predicate.Chain == chaintypes.BTC && trig.Predicate.IncludeProof {
		proofOf = func(tx chaintypes.Tx, block chaintypes.Block) *string {
			return cache.fetch(ctx, tx, block)
		}
	} else {
		proofOf = func(chaintypes.Tx, chaintypes.Block) *string { return nil }
	}

	payload := BuildPayload(trig, proofOf)
	body, err := json.Marshal(payload)
	if err != nil {
		dispatcherLogger.Error("payload marshal failed", "uuid", trig.Predicate.UUID, "err", err)
		return
	}

	sink, err := d.resolveSink(trig.Predicate.Action)
	if err != nil {
		dispatcherLogger.Error("unresolvable action", "uuid", trig.Predicate.UUID, "err", err)
		return
	}
	if err := sink.Deliver(ctx, trig.Predicate.Chain, body); err != nil {
		if _, ok := trig.Predicate.Action.(predicate.HTTPAction); ok {
			d.metrics.HTTPFailures.Inc(1)
		}
	}
	d.metrics.Deliveries.Inc(1)
}

func (d *Dispatcher) resolveSink(action predicate.Action) (Sink, error) {
	switch a := action.(type) {
	case predicate.HTTPAction:
		return newHTTPSink(d.httpClient, a.URL, a.Headers, a.AuthHeader), nil
	case predicate.FileAction:
		return newFileSink(a.Path, d.embedded), nil
	case predicate.InProcessAction:
		return &inProcessSink{outbox: d.outbox}, nil
	case predicate.KafkaAction:
		producer, err := d.kafkaProducerFor(a.Brokers)
		if err != nil {
			return nil, err
		}
		return newKafkaSink(producer, a.Topic), nil
	default:
		return nil, fmt.Errorf("dispatcher: unknown action kind %T", action)
	}
}

func (d *Dispatcher) kafkaProducerFor(brokers []string) (sarama.SyncProducer, error) {
	key := kafkaBrokerKey(brokers)
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.kafkaProducers[key]; ok {
		return p, nil
	}
	p, err := d.newKafkaProducer(brokers)
	if err != nil {
		return nil, err
	}
	d.kafkaProducers[key] = p
	return p, nil
}

// Close releases every open Kafka producer.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var first error
	for _, p := range d.kafkaProducers {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
