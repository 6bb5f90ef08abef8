// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package eventfmt_test

import (
	"fmt"

	"maunium.net/go/mautrix/event"

	"github.com/aiku/mxconsole/pkg/eventfmt"
	"github.com/aiku/mxconsole/pkg/roomstate"
)

func ExampleFormat() {
	state := roomstate.New("!room:example.com")
	state.Members["@alice:example.com"] = roomstate.Member{
		UserID:      "@alice:example.com",
		Membership:  event.MembershipJoin,
		DisplayName: "Alice",
	}
	evt := &event.Event{
		Type:   event.EventMessage,
		Sender: "@alice:example.com",
		Content: event.Content{Parsed: &event.MessageEventContent{
			MsgType: event.MsgEmote,
			Body:    "waves",
		}},
	}

	fmt.Println(eventfmt.Format(evt, state, eventfmt.Options{}))
	// Output: * Alice waves
}
