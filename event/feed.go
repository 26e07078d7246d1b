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

// Package event implements a minimal multi-subscriber fan-out primitive,
// the shape this codebase's other packages refer to as
// "github.com/klaytn/klaytn/event" (SubscribeChainEvent(ch) Subscription).
// Its source was not present in the retrieved reference files; it is
// written fresh to match every call site already using it.
package event

import (
	"reflect"
	"sync"
)

// Subscription represents a stream of events. Unsubscribe cancels the
// subscription; afterwards no more values are delivered to its channel.
type Subscription interface {
	Unsubscribe()
	Err() <-chan error
}

// Feed implements one-to-many delivery: a value passed to Send is
// delivered, best-effort and non-blocking, to every subscribed channel.
// All channels registered through Subscribe must carry the same element
// type; the first Subscribe call fixes it. The zero value is ready to use.
type Feed struct {
	mu    sync.Mutex
	typ   reflect.Type
	subs  map[*feedSub]struct{}
}

type feedSub struct {
	feed *Feed
	ch   reflect.Value
	errc chan error
	once sync.Once
}

// Subscribe adds channel to the feed. channel must be a writable channel.
func (f *Feed) Subscribe(channel interface{}) Subscription {
	chanVal := reflect.ValueOf(channel)
	chanTyp := chanVal.Type()
	if chanTyp.Kind() != reflect.Chan || chanTyp.ChanDir()&reflect.SendDir == 0 {
		panic("event: Subscribe argument does not have sendable channel type")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.typ == nil {
		f.typ = chanTyp.Elem()
	} else if f.typ != chanTyp.Elem() {
		panic("event: Subscribe channel of wrong element type")
	}
	if f.subs == nil {
		f.subs = make(map[*feedSub]struct{})
	}
	sub := &feedSub{feed: f, ch: chanVal, errc: make(chan error, 1)}
	f.subs[sub] = struct{}{}
	return sub
}

func (sub *feedSub) Unsubscribe() {
	sub.once.Do(func() {
		sub.feed.mu.Lock()
		delete(sub.feed.subs, sub)
		sub.feed.mu.Unlock()
		close(sub.errc)
	})
}

func (sub *feedSub) Err() <-chan error {
	return sub.errc
}

// Send delivers value to every currently subscribed channel. Delivery is
// non-blocking: a subscriber whose channel is full at the moment of Send
// does not receive this value and does not block the sender. It returns
// the number of subscribers the value was actually delivered to.
func (f *Feed) Send(value interface{}) (nsent int) {
	rv := reflect.ValueOf(value)

	f.mu.Lock()
	if f.typ == nil {
		f.typ = rv.Type()
	} else if !rv.Type().AssignableTo(f.typ) {
		f.mu.Unlock()
		panic("event: Send called with a value not assignable to the feed's element type")
	}
	targets := make([]reflect.Value, 0, len(f.subs))
	for sub := range f.subs {
		targets = append(targets, sub.ch)
	}
	f.mu.Unlock()

	for _, ch := range targets {
		ok, _, _ := reflect.Select([]reflect.SelectCase{
			{Dir: reflect.SelectSend, Chan: ch, Send: rv},
			{Dir: reflect.SelectDefault},
		})
		if ok == 0 {
			nsent++
		}
	}
	return nsent
}
