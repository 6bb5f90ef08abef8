// Copyright 2024-2026 Aiku AI

// Package roomindex keeps the client-side view of the rooms the account
// belongs to. Sync batches are applied to an Index, which publishes immutable
// roomstate snapshots that readers may hold without locking.
package roomindex
