package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSpawn   EventType = "spawn"
	EventApply   EventType = "apply"
	EventResolve EventType = "resolve"
	EventFail    EventType = "fail"
	EventBlock   EventType = "block"
)

// NodeEvent describes a lifecycle transition of a node or promise.
type NodeEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	NodeID    string    `json:"node_id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Operator  string    `json:"operator,omitempty"`

	// Duration is the recipe run time. Set on resolve and fail events.
	Duration time.Duration `json:"duration,omitempty"`

	// Err is the failure or blocking cause. Set on fail and block events.
	Err error `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability. Nil callbacks
// are skipped. Hooks run synchronously on the resolving goroutine and must
// not call back into the experiment.
type LifecycleHooks struct {
	OnSpawn   func(context.Context, *NodeEvent)
	OnApply   func(context.Context, *NodeEvent)
	OnResolve func(context.Context, *NodeEvent)
	OnFail    func(context.Context, *NodeEvent)
	OnBlock   func(context.Context, *NodeEvent)
}
