// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the scheduler to distinguish between different failure
// scenarios. ErrStale in particular carries the compare-and-set result
// every status mutation relies on: the row existed but its status was
// no longer the expected one, so the write was discarded.
package repository

import "errors"

// ErrPassageNotFound indicates that a passage was not located in the DB.
var ErrPassageNotFound = errors.New("passage not found")

// ErrStreamNotFound indicates that a stream was not located in the DB.
var ErrStreamNotFound = errors.New("stream not found")

// ErrSubscriptionNotFound indicates an unknown subscription endpoint.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// ErrGroupNotFound indicates that a group was not located in the DB.
var ErrGroupNotFound = errors.New("group not found")

// ErrApparatusNotFound indicates that an apparatus was not located in the DB.
var ErrApparatusNotFound = errors.New("apparatus not found")

// ErrStale is returned by conditional status updates when zero rows
// matched the expected prior status. The caller lost a race against a
// concurrent transition; the write must be dropped, never retried
// blindly, because the next scheduler tick re-evaluates from scratch.
var ErrStale = errors.New("stale status precondition")
