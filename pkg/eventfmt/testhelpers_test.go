// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package eventfmt

import (
	"encoding/json"
	"testing"

	"go.mau.fi/util/ptr"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/mxconsole/pkg/roomstate"
)

const (
	alice = id.UserID("@alice:example.com")
	bob   = id.UserID("@bob:example.com")
	carol = id.UserID("@carol:example.com")
)

func msgEvent(sender id.UserID, content *event.MessageEventContent) *event.Event {
	return &event.Event{
		ID:        "$msg",
		Type:      event.EventMessage,
		Sender:    sender,
		Timestamp: 1700000000000,
		Content:   event.Content{Parsed: content},
	}
}

func textEvent(sender id.UserID, body string) *event.Event {
	return msgEvent(sender, &event.MessageEventContent{MsgType: event.MsgText, Body: body})
}

func stateEvent(evtType event.Type, sender id.UserID, stateKey string, content any) *event.Event {
	return &event.Event{
		ID:       "$state",
		Type:     evtType,
		Sender:   sender,
		StateKey: ptr.Ptr(stateKey),
		Content:  event.Content{Parsed: content},
	}
}

func memberEvent(sender, target id.UserID, content, prev *event.MemberEventContent) *event.Event {
	evt := stateEvent(event.StateMember, sender, string(target), content)
	if prev != nil {
		evt.Unsigned.PrevContent = &event.Content{Parsed: prev}
	}
	return evt
}

// rawEvent decodes a full event from JSON so that content goes through the
// raw parsing path.
func rawEvent(t *testing.T, data string) *event.Event {
	t.Helper()
	var evt event.Event
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	return &evt
}

// testState returns a room state with alice (room name "Alice"), bob (global
// name only) and carol (no names at all).
func testState() *roomstate.RoomState {
	state := roomstate.New("!room:example.com")
	state.Members[alice] = roomstate.Member{UserID: alice, Membership: event.MembershipJoin, DisplayName: "Alice", AvatarURL: "mxc://example.com/alice"}
	state.Members[bob] = roomstate.Member{UserID: bob, Membership: event.MembershipJoin}
	state.Members[carol] = roomstate.Member{UserID: carol, Membership: event.MembershipJoin}
	return state.WithProfiles(map[id.UserID]roomstate.Profile{
		bob: {DisplayName: "Bobby", AvatarURL: "mxc://example.com/bob"},
	})
}
