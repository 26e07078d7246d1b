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

package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fooEvent struct{ N int }

func TestSendDeliversToSubscriber(t *testing.T) {
	var f Feed
	ch := make(chan fooEvent, 1)
	sub := f.Subscribe(ch)
	defer sub.Unsubscribe()

	n := f.Send(fooEvent{N: 1})
	assert.Equal(t, 1, n)
	assert.Equal(t, fooEvent{N: 1}, <-ch)
}

func TestSendFansOutToMultipleSubscribers(t *testing.T) {
	var f Feed
	ch1 := make(chan fooEvent, 1)
	ch2 := make(chan fooEvent, 1)
	sub1 := f.Subscribe(ch1)
	sub2 := f.Subscribe(ch2)
	defer sub1.Unsubscribe()
	defer sub2.Unsubscribe()

	n := f.Send(fooEvent{N: 7})
	assert.Equal(t, 2, n)
	assert.Equal(t, fooEvent{N: 7}, <-ch1)
	assert.Equal(t, fooEvent{N: 7}, <-ch2)
}

func TestSendDoesNotBlockOnFullChannel(t *testing.T) {
	var f Feed
	ch := make(chan fooEvent, 1)
	sub := f.Subscribe(ch)
	defer sub.Unsubscribe()

	ch <- fooEvent{N: 0}
	n := f.Send(fooEvent{N: 1})
	assert.Equal(t, 0, n, "full channel is skipped rather than blocking the sender")
	assert.Equal(t, fooEvent{N: 0}, <-ch)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	var f Feed
	ch := make(chan fooEvent, 1)
	sub := f.Subscribe(ch)
	sub.Unsubscribe()

	n := f.Send(fooEvent{N: 5})
	assert.Equal(t, 0, n)
	select {
	case v := <-ch:
		t.Fatalf("unexpected delivery after Unsubscribe: %v", v)
	default:
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	var f Feed
	ch := make(chan fooEvent, 1)
	sub := f.Subscribe(ch)
	sub.Unsubscribe()
	assert.NotPanics(t, sub.Unsubscribe)

	_, ok := <-sub.Err()
	assert.False(t, ok, "Err channel is closed once Unsubscribe completes")
}

func TestSendAcceptsConcreteValueAssignableToInterfaceElementType(t *testing.T) {
	var f Feed
	ch := make(chan interface{ isFoo() }, 1)
	sub := f.Subscribe(ch)
	defer sub.Unsubscribe()

	n := f.Send(fooStruct{})
	require.Equal(t, 1, n, "a concrete struct assignable to the channel's interface element type must be delivered")
	received := <-ch
	_, ok := received.(fooStruct)
	assert.True(t, ok)
}

type fooStruct struct{}

func (fooStruct) isFoo() {}

func TestSubscribePanicsOnNonChannelArgument(t *testing.T) {
	var f Feed
	assert.Panics(t, func() { f.Subscribe(42) })
}

func TestSubscribePanicsOnReceiveOnlyChannel(t *testing.T) {
	var f Feed
	ch := make(chan fooEvent, 1)
	var recvOnly <-chan fooEvent = ch
	assert.Panics(t, func() { f.Subscribe(recvOnly) })
}

func TestSubscribePanicsOnMismatchedElementType(t *testing.T) {
	var f Feed
	f.Subscribe(make(chan fooEvent, 1))

	type barEvent struct{ N int }
	assert.Panics(t, func() { f.Subscribe(make(chan barEvent, 1)) })
}
