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

// ActionKind discriminates the Action variants a predicate can request.
type ActionKind int

const (
	ActionHTTP ActionKind = iota
	ActionFile
	ActionInProcess
	// ActionKafka is a supplemented sink beyond spec.md's HTTP/File/
	// InProcess trio (SPEC_FULL.md §12.3), publishing triggered payloads
	// to a Kafka topic.
	ActionKafka
)

// Action is the tagged union of side effects a matched trigger can cause.
type Action interface {
	Kind() ActionKind
}

// HTTPAction posts the rendered artifact to URL.
type HTTPAction struct {
	URL     string
	Headers map[string]string
	// AuthHeader, if non-empty, is added as an Authorization header value.
	AuthHeader string
}

func (HTTPAction) Kind() ActionKind { return ActionHTTP }

// FileAction appends the rendered artifact to a local file. Meaningful
// only in embedded mode; ignored (with a notice) in server mode (spec
// §4.6).
type FileAction struct {
	Path string
}

func (FileAction) Kind() ActionKind { return ActionFile }

// InProcessAction pushes the rendered artifact onto the observer's event
// outbox instead of delivering it externally.
type InProcessAction struct{}

func (InProcessAction) Kind() ActionKind { return ActionInProcess }

// KafkaAction publishes the rendered artifact to a Kafka topic.
type KafkaAction struct {
	Brokers []string
	Topic   string
}

func (KafkaAction) Kind() ActionKind { return ActionKafka }
