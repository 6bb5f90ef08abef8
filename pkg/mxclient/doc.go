// Copyright 2024-2026 Aiku AI

// Package mxclient is the Matrix protocol client used by the handler. It
// wraps a mautrix client, keeps the sync token and filter in SQLite, and
// measures the on-disk media cache.
package mxclient
