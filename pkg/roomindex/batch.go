// Copyright 2024-2026 Aiku AI

package roomindex

import (
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/mxconsole/pkg/roomstate"
)

// RoomUpdate carries the events received for one room in a sync batch.
type RoomUpdate struct {
	RoomID id.RoomID
	// Left is set when the account is no longer in the room.
	Left     bool
	State    []*event.Event
	Timeline []*event.Event
}

// Batch is one sync response, reduced to what the index and the session
// layer consume.
type Batch struct {
	NextBatch   string
	Rooms       []RoomUpdate
	Presence    []*event.Event
	AccountData []*event.Event
}

// TimelineEntry is one timeline event of an applied batch, paired with the
// room state as it was just before the event.
type TimelineEntry struct {
	RoomID id.RoomID
	Event  *event.Event
	Before *roomstate.RoomState
}
