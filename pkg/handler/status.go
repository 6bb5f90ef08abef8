// Copyright 2024-2026 Aiku AI

package handler

// Status is the lifecycle state of the session.
type Status int

// Session states, in the order a normal startup goes through them.
const (
	StatusLoggedOut Status = iota
	StatusLogged
	StatusStoreDataReady
	StatusServerSyncDone
)

func (s Status) String() string {
	switch s {
	case StatusLoggedOut:
		return "logged_out"
	case StatusLogged:
		return "logged"
	case StatusStoreDataReady:
		return "store_data_ready"
	case StatusServerSyncDone:
		return "server_sync_done"
	default:
		return "unknown"
	}
}
