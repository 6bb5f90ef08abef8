// Copyright 2024-2026 Aiku AI

package mxclient

import (
	"maps"
	"slices"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/mxconsole/pkg/handler"
	"github.com/aiku/mxconsole/pkg/roomindex"
)

// convertSync reduces a sync response to a batch. Rooms are emitted in room
// ID order and every room event gets its room ID stamped.
func convertSync(resp *mautrix.RespSync) *handler.SyncBatch {
	batch := &handler.SyncBatch{
		NextBatch:   resp.NextBatch,
		Presence:    resp.Presence.Events,
		AccountData: resp.AccountData.Events,
	}
	for _, roomID := range slices.Sorted(maps.Keys(resp.Rooms.Join)) {
		room := resp.Rooms.Join[roomID]
		if room == nil {
			continue
		}
		batch.Rooms = append(batch.Rooms, roomindex.RoomUpdate{
			RoomID:   roomID,
			State:    stampRoom(roomID, room.State.Events),
			Timeline: stampRoom(roomID, room.Timeline.Events),
		})
	}
	for _, roomID := range slices.Sorted(maps.Keys(resp.Rooms.Invite)) {
		room := resp.Rooms.Invite[roomID]
		if room == nil {
			continue
		}
		batch.Rooms = append(batch.Rooms, roomindex.RoomUpdate{
			RoomID: roomID,
			State:  stampRoom(roomID, room.State.Events),
		})
	}
	for _, roomID := range slices.Sorted(maps.Keys(resp.Rooms.Leave)) {
		batch.Rooms = append(batch.Rooms, roomindex.RoomUpdate{RoomID: roomID, Left: true})
	}
	return batch
}

func stampRoom(roomID id.RoomID, events []*event.Event) []*event.Event {
	for _, evt := range events {
		if evt != nil && evt.RoomID == "" {
			evt.RoomID = roomID
		}
	}
	return events
}
