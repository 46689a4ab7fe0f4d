package models

import "errors"

// ErrNoMessage is returned when a queue has no visible messages
var ErrNoMessage = errors.New("no messages in queue")

// ErrNotFound is returned when a requested record does not exist or sits
// outside the caller's RBAC scope (indistinguishable to the caller)
var ErrNotFound = errors.New("not found")

// ErrConflict is returned on an optimistic-concurrency failure
var ErrConflict = errors.New("conflict")
