package core

import (
	"github.com/google/uuid"
)

// ID is a generic, time-ordered identifier for things that are not
// datasets themselves (dispatcher messages, requests, queue tickets).
// DatasetId is a distinct, deterministic string type (see domain/dataset)
// and is never constructed with NewID.
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered,
// sortable generation, falling back to v4 if v7 fails.
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

func (id ID) String() string {
	return string(id)
}

func (id ID) IsEmpty() bool {
	return id == ""
}

// MessageID identifies one Work Dispatcher message as it moves through
// the profile fanout, the datasets topic, and the failed_profile queue.
type MessageID ID

func NewMessageID() MessageID       { return MessageID(NewID()) }
func (id MessageID) String() string { return ID(id).String() }
