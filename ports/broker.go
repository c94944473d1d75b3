package ports

import (
	"context"

	"datamart/domain/core"
	"datamart/domain/dataset"
)

// Priority is the profile-fanout exchange's priority level (0-3, per §4.9).
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 1
	PriorityHigh   Priority = 2
	PriorityUrgent Priority = 3
)

// ProfileMessage is the discoverer→dispatcher handoff (§6 "Discoverer→
// Profiler message").
type ProfileMessage struct {
	ID          core.MessageID           `json:"id"`
	DatasetID   dataset.Id               `json:"dataset_id"`
	Descriptor  dataset.DatasetDescriptor `json:"descriptor"`
	CSVPath     string                    `json:"csv_path,omitempty"`
	Priority    Priority                  `json:"-"`
}

// DatasetEvent is broadcast on the "datasets" topic exchange after a
// profile is successfully written (routing key = DatasetId).
type DatasetEvent struct {
	ID      dataset.Id       `json:"id"`
	Profile *dataset.Profile `json:"profile"`
}

// Broker is the message-mediated handoff between the Discovery Loop and
// the Work Dispatcher (C9): a profile fanout exchange bound to a priority
// queue, a datasets topic exchange for downstream subscribers, and a
// failed_profile queue for messages whose profiling threw.
type Broker interface {
	// PublishProfile enqueues a discovered dataset for profiling.
	PublishProfile(ctx context.Context, msg ProfileMessage) error

	// ConsumeProfile blocks until a profile message is available or ctx
	// is canceled. Prefetch is 1: each call returns at most one message.
	ConsumeProfile(ctx context.Context) (ProfileMessage, error)

	// PublishDatasetEvent fans out a successfully profiled dataset to
	// downstream subscribers (e.g. on-demand search waiters).
	PublishDatasetEvent(ctx context.Context, event DatasetEvent)

	// SubscribeDatasetEvents registers a channel that receives the
	// DatasetEvents published after the call; an event may be dropped
	// for a subscriber whose channel is full. The channel is closed on
	// Unsubscribe.
	SubscribeDatasetEvents(ctx context.Context) (<-chan DatasetEvent, func())

	// PublishFailed moves a message whose profiling failed to the
	// failed_profile queue, verbatim.
	PublishFailed(ctx context.Context, msg ProfileMessage)
}
