// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package eventfmt turns Matrix timeline events into the strings a client
// displays.
//
// [Classify] sorts an event into exactly one [Classification]: [Ordinary],
// [Emote], [Attachment] or [Unsupported]. [Format] resolves the sender's
// display name against the room state as of just before the event and
// renders the classification, either as a full line or in subtitle mode for
// conversation list previews.
//
// Everything in this package is a pure function of its arguments and safe
// for concurrent use.
//
// # Sub-packages
//
//   - plainfmt strips Matrix HTML down to plain text.
package eventfmt
