// Copyright 2024-2026 Aiku AI

package roomindex

import (
	"maunium.net/go/mautrix/id"

	"github.com/aiku/mxconsole/pkg/roomstate"
)

// FindDirectRoom returns the room whose active membership (joined or invited)
// is exactly {self, other}. Rooms flagged as direct chats win over plain
// two-member rooms; remaining ties go to the smallest room ID so the result
// does not depend on the order of rooms.
func FindDirectRoom(rooms []*roomstate.RoomState, self, other id.UserID) (*roomstate.RoomState, bool) {
	if self == "" || other == "" || self == other {
		return nil, false
	}
	var best *roomstate.RoomState
	for _, room := range rooms {
		if !isPairRoom(room, self, other) {
			continue
		}
		if best == nil || betterDirect(room, best) {
			best = room
		}
	}
	return best, best != nil
}

// OtherMember returns the counterpart of self in a room with exactly two
// active members.
func OtherMember(room *roomstate.RoomState, self id.UserID) (id.UserID, bool) {
	active := room.ActiveMembers()
	if len(active) != 2 {
		return "", false
	}
	switch self {
	case active[0]:
		return active[1], true
	case active[1]:
		return active[0], true
	}
	return "", false
}

func isPairRoom(room *roomstate.RoomState, self, other id.UserID) bool {
	if room == nil {
		return false
	}
	found, ok := OtherMember(room, self)
	return ok && found == other
}

func betterDirect(a, b *roomstate.RoomState) bool {
	if a.IsDirect != b.IsDirect {
		return a.IsDirect
	}
	return a.RoomID < b.RoomID
}
