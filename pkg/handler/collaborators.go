// Copyright 2024-2026 Aiku AI

package handler

import (
	"context"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/aiku/mxconsole/pkg/roomindex"
	"github.com/aiku/mxconsole/pkg/roomstate"
)

// SyncBatch is one sync response as delivered by the protocol client.
type SyncBatch = roomindex.Batch

// ProtocolClient is the Matrix client the handler drives.
type ProtocolClient interface {
	Login(ctx context.Context, creds Credentials) (*Session, error)
	// OpenStore opens (creating if needed) the persistent sync store.
	OpenStore(ctx context.Context) error
	// StartSync starts syncing and streams one batch per sync response.
	// The channel is closed when syncing stops.
	StartSync(ctx context.Context) (<-chan *SyncBatch, error)
	// StopSync stops a running sync and waits for it to exit.
	StopSync()
	Logout(ctx context.Context) error
	Store() Store
}

// Store is the persistent sync store of the protocol client.
type Store interface {
	// Invalidate drops all sync data.
	Invalidate(ctx context.Context) error
	// ResetSync forgets the sync position so the next sync is an initial
	// one. Everything else is kept.
	ResetSync(ctx context.Context) error
	// SaveSyncPosition persists the next_batch token of a batch that has
	// been applied. The protocol client never persists a position itself.
	SaveSyncPosition(ctx context.Context, userID id.UserID, token string) error
	Size(ctx context.Context) (int64, error)
	// Valid reports whether the store still holds usable sync data.
	Valid(ctx context.Context) bool
}

// TimelineEntry is a timeline event with the room state just before it.
type TimelineEntry = roomindex.TimelineEntry

// RoomStore holds the known rooms. It is fed by sync batches.
type RoomStore interface {
	// Apply merges batch and returns its timeline events in order, each with
	// the room state it must be rendered against.
	Apply(batch *SyncBatch) []TimelineEntry
	Room(roomID id.RoomID) (*roomstate.RoomState, bool)
	ListRooms() []*roomstate.RoomState
	Reset()
}

// MediaCache is the on-disk cache of downloaded media.
type MediaCache interface {
	Size() (int64, error)
}

// NotificationConfig supplies the notification keywords.
type NotificationConfig interface {
	// LoadKeywords returns the current keyword list, re-reading its source
	// where there is one.
	LoadKeywords() ([]string, error)
}

// Notification is raised for a message that matched a keyword.
type Notification struct {
	RoomID     id.RoomID
	EventID    id.EventID
	Sender     id.UserID
	SenderName string
	Keyword    string
	Text       string
}

// Notifier delivers in-app notifications to the presentation layer. Notify
// runs on the sync goroutine; it must not call Logout, PauseInBackground,
// Resume, ForceInitialSync or Close, which wait for that goroutine to exit.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// TimelineObserver receives every displayable timeline event of an applied
// sync batch, together with the room state as it was just before the event.
// The same restriction on session transitions as for Notifier applies.
type TimelineObserver interface {
	ObserveTimeline(roomID id.RoomID, evt *event.Event, state *roomstate.RoomState)
}

// TimelineObserverFunc adapts a function to the TimelineObserver interface.
type TimelineObserverFunc func(roomID id.RoomID, evt *event.Event, state *roomstate.RoomState)

func (f TimelineObserverFunc) ObserveTimeline(roomID id.RoomID, evt *event.Event, state *roomstate.RoomState) {
	f(roomID, evt, state)
}

var _ RoomStore = (*roomindex.Index)(nil)
