// Copyright 2024-2026 Aiku AI

package handler

import "sync"

var shared struct {
	sync.Mutex
	h *Handler
}

// Init creates the process-wide handler. It fails with ErrAlreadyInitialized
// if one exists; call Teardown first to replace it.
func Init(p Params) (*Handler, error) {
	shared.Lock()
	defer shared.Unlock()
	if shared.h != nil {
		return nil, ErrAlreadyInitialized
	}
	shared.h = New(p)
	return shared.h, nil
}

// Shared returns the process-wide handler, or nil before Init.
func Shared() *Handler {
	shared.Lock()
	defer shared.Unlock()
	return shared.h
}

// Teardown stops the process-wide handler and forgets it. The session itself
// is kept; call Logout first to end it.
func Teardown() {
	shared.Lock()
	h := shared.h
	shared.h = nil
	shared.Unlock()
	if h != nil {
		h.Close()
	}
}
