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
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/Shopify/sarama"

	"github.com/klaytn/chainhook-observer/chaintypes"
	"github.com/klaytn/chainhook-observer/obsevent"
)

// httpDeliveryTimeout bounds a single HTTP delivery attempt end to end
// (spec §4.6/§5).
const httpDeliveryTimeout = 30 * time.Second

// Sink delivers a single rendered payload somewhere. Implementations
// never return an error the dispatcher need act on beyond logging (spec
// §4.6 step 3: "the dispatcher never aborts command processing").
type Sink interface {
	Deliver(ctx context.Context, chain chaintypes.Chain, payload []byte) error
}

// httpSink posts payload to a fixed URL (Action kind HTTP).
type httpSink struct {
	client     *http.Client
	url        string
	headers    map[string]string
	authHeader string
}

func newHTTPSink(client *http.Client, url string, headers map[string]string, auth string) *httpSink {
	if client == nil {
		client = &http.Client{Timeout: httpDeliveryTimeout}
	}
	return &httpSink{client: client, url: url, headers: headers, authHeader: auth}
}

func (s *httpSink) Deliver(ctx context.Context, _ chaintypes.Chain, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, httpDeliveryTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	if s.authHeader != "" {
		req.Header.Set("Authorization", s.authHeader)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		dispatcherLogger.Warn("http delivery failed", "url", s.url, "err", err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		dispatcherLogger.Warn("http delivery non-2xx", "url", s.url, "status", resp.StatusCode)
	}
	return nil
}

// fileSink appends payload as a newline-delimited JSON record, only
// meaningful in embedded mode (spec §4.6 step 2).
type fileSink struct {
	mu       sync.Mutex
	path     string
	embedded bool
}

func newFileSink(path string, embedded bool) *fileSink {
	return &fileSink{path: path, embedded: embedded}
}

func (s *fileSink) Deliver(_ context.Context, _ chaintypes.Chain, payload []byte) error {
	if !s.embedded {
		dispatcherLogger.Info("ignoring file action in server mode", "path", s.path)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		dispatcherLogger.Warn("file delivery failed to open", "path", s.path, "err", err)
		return err
	}
	defer f.Close()
	if _, err := f.Write(append(payload, '\n')); err != nil {
		dispatcherLogger.Warn("file delivery write failed", "path", s.path, "err", err)
		return err
	}
	return nil
}

// inProcessSink pushes a BtcChainhookTriggered/StxChainhookTriggered event
// onto the outbox instead of delivering externally.
type inProcessSink struct {
	outbox Outbox
}

// Outbox is the minimal interface the dispatcher needs from the event
// package's Feed: post a value, best-effort.
type Outbox interface {
	Send(value interface{}) int
}

func (s *inProcessSink) Deliver(_ context.Context, chain chaintypes.Chain, payload []byte) error {
	if s.outbox == nil {
		return nil
	}
	if chain == chaintypes.BTC {
		s.outbox.Send(obsevent.BtcChainhookTriggered{Payload: payload})
	} else {
		s.outbox.Send(obsevent.StxChainhookTriggered{Payload: payload})
	}
	return nil
}

// kafkaSink publishes payload to a topic, one sarama.SyncProducer per
// distinct broker list (SPEC_FULL.md §12.3).
type kafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

func newKafkaSink(producer sarama.SyncProducer, topic string) *kafkaSink {
	return &kafkaSink{producer: producer, topic: topic}
}

func (s *kafkaSink) Deliver(_ context.Context, _ chaintypes.Chain, payload []byte) error {
	_, _, err := s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		dispatcherLogger.Warn("kafka delivery failed", "topic", s.topic, "err", err)
	}
	return err
}

func kafkaBrokerKey(brokers []string) string {
	return fmt.Sprintf("%v", brokers)
}
