// Copyright 2024-2026 Aiku AI

package main

import (
	"sync"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/mxconsole/pkg/handler"
	"github.com/aiku/mxconsole/pkg/roomstate"
)

// timelineTap remembers the latest displayable event of every room and
// optionally forwards each event to onEvent.
type timelineTap struct {
	mu      sync.Mutex
	last    map[id.RoomID]*event.Event
	onEvent func(roomID id.RoomID, evt *event.Event, state *roomstate.RoomState)
}

var _ handler.TimelineObserver = (*timelineTap)(nil)

func newTimelineTap() *timelineTap {
	return &timelineTap{last: make(map[id.RoomID]*event.Event)}
}

func (t *timelineTap) ObserveTimeline(roomID id.RoomID, evt *event.Event, state *roomstate.RoomState) {
	t.mu.Lock()
	t.last[roomID] = evt
	onEvent := t.onEvent
	t.mu.Unlock()
	if onEvent != nil {
		onEvent(roomID, evt, state)
	}
}

func (t *timelineTap) setOnEvent(fn func(roomID id.RoomID, evt *event.Event, state *roomstate.RoomState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEvent = fn
}

func (t *timelineTap) lastEvent(roomID id.RoomID) (*event.Event, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	evt, ok := t.last[roomID]
	return evt, ok
}
