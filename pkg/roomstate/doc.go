// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package roomstate holds immutable snapshots of Matrix room state and the
// read-only queries made against them: member display name and avatar
// resolution, and power level evaluation.
//
// A [RoomState] is never mutated once handed out. [RoomState.Apply] returns a
// new snapshot with a state event applied, so a caller can keep the state
// "as of just before" an event while the index moves on.
package roomstate
