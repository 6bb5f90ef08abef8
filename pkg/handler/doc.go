// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package handler coordinates a single Matrix session and exposes the
// translation API used by the presentation layer.
//
// A Handler owns the session status and serializes the pause, resume, logout
// and forced resync transitions. The protocol client, the persistent store,
// the room store and the media cache are injected as interfaces so the
// coordinator can be exercised without a homeserver.
//
// Translation calls (DisplayText, SenderDisplayName, PowerLevel and friends)
// only read the snapshots they are given and may be called from any goroutine.
package handler
