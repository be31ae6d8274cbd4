package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Operation is the write kind a queued mutation performs.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// EntityKind is the category of data a mutation targets, used to route to a
// remote endpoint.
type EntityKind string

const (
	EntityKindSchedule   EntityKind = "schedule"
	EntityKindLineup     EntityKind = "lineup"
	EntityKindAssignment EntityKind = "assignment"
)

// ParseOperation validates a stored operation string.
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OperationCreate, OperationUpdate, OperationDelete:
		return Operation(s), nil
	}
	return "", fmt.Errorf("unknown operation %q", s)
}

// ParseEntityKind validates a stored entity kind string.
func ParseEntityKind(s string) (EntityKind, error) {
	switch EntityKind(s) {
	case EntityKindSchedule, EntityKindLineup, EntityKindAssignment:
		return EntityKind(s), nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// MutationQueueItem is one pending write awaiting delivery to the remote
// system. Items are append-only and removed on a terminal outcome. The ID is
// assigned by the store and increases monotonically with insertion order. The
// payload is an opaque serializable value owned by the caller; the client
// request id lets the remote side deduplicate a redelivered mutation.
type MutationQueueItem struct {
	ID              int64           `json:"id"`
	Operation       Operation       `json:"operation"`
	EntityKind      EntityKind      `json:"entityKind"`
	EntityID        string          `json:"entityId"`
	Payload         json.RawMessage `json:"payload"`
	ClientRequestID string          `json:"clientRequestId"`
	EnqueuedAt      time.Time       `json:"enqueuedAt"`
	RetryCount      int             `json:"retryCount"`
}
