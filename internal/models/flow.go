package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// FlowStatus is the terminal (or pending) state of a recorded flow.
type FlowStatus string

const (
	StatusWaiting   FlowStatus = "waiting"
	StatusDelivered FlowStatus = "delivered"
	StatusExhausted FlowStatus = "exhausted"
	StatusTimedOut  FlowStatus = "timed_out"
	StatusFailed    FlowStatus = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s FlowStatus) Valid() bool {
	switch s {
	case StatusWaiting, StatusDelivered, StatusExhausted, StatusTimedOut, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether a flow in status s has finished.
func (s FlowStatus) Terminal() bool {
	return s.Valid() && s != StatusWaiting
}

var _ Model = (*Flow)(nil)

// Flow is one run of the loopback listener.
type Flow struct {
	id          string
	sequence    int
	port        int
	status      FlowStatus
	callbackURL string
	errMsg      string
	createdAt   time.Time
	updatedAt   time.Time
	completedAt *time.Time
	deletedAt   *time.Time
}

// NewFlow creates a waiting flow for the given port.
func NewFlow(sequence, port int) *Flow {
	now := time.Now().UTC()
	return &Flow{
		sequence:  sequence,
		port:      port,
		status:    StatusWaiting,
		createdAt: now,
		updatedAt: now,
	}
}

// RestoreFlow rebuilds a flow from stored columns.
func RestoreFlow(id string, sequence, port int, status FlowStatus, callbackURL, errMsg string, createdAt, updatedAt time.Time, completedAt, deletedAt *time.Time) *Flow {
	return &Flow{
		id:          id,
		sequence:    sequence,
		port:        port,
		status:      status,
		callbackURL: callbackURL,
		errMsg:      errMsg,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
		completedAt: completedAt,
		deletedAt:   deletedAt,
	}
}

func (f *Flow) ID() string              { return f.id }
func (f *Flow) SetID(id string)         { f.id = id }
func (f *Flow) Sequence() int           { return f.sequence }
func (f *Flow) SetSequence(seq int)     { f.sequence = seq }
func (f *Flow) Port() int               { return f.port }
func (f *Flow) Status() FlowStatus      { return f.status }
func (f *Flow) CallbackURL() string     { return f.callbackURL }
func (f *Flow) Error() string           { return f.errMsg }
func (f *Flow) CreatedAt() time.Time    { return f.createdAt }
func (f *Flow) UpdatedAt() time.Time    { return f.updatedAt }
func (f *Flow) CompletedAt() *time.Time { return f.completedAt }
func (f *Flow) DeletedAt() *time.Time   { return f.deletedAt }
func (f *Flow) IsDeleted() bool         { return f.deletedAt != nil }

// Complete moves the flow to a terminal status. callbackURL should already be redacted.
func (f *Flow) Complete(status FlowStatus, callbackURL string, err error) {
	now := time.Now().UTC()
	f.status = status
	f.callbackURL = callbackURL
	if err != nil {
		f.errMsg = err.Error()
	}
	f.completedAt = &now
	f.updatedAt = now
}

// Duration is how long the flow waited, or zero while it is still waiting.
func (f *Flow) Duration() time.Duration {
	if f.completedAt == nil {
		return 0
	}
	return f.completedAt.Sub(f.createdAt)
}

// Validate checks if the flow's data is valid
func (f *Flow) Validate() error {
	if f.id == "" {
		return fmt.Errorf("flow ID is required")
	}
	if f.port < 1 || f.port > 65535 {
		return fmt.Errorf("flow port %d is out of range", f.port)
	}
	if !f.status.Valid() {
		return fmt.Errorf("unknown flow status %q", f.status)
	}
	if f.status.Terminal() && f.completedAt == nil {
		return fmt.Errorf("flow in status %s must have a completion time", f.status)
	}
	return nil
}

type flowJSON struct {
	ID          string     `json:"id"`
	Sequence    int        `json:"sequence"`
	Port        int        `json:"port"`
	Status      FlowStatus `json:"status"`
	CallbackURL string     `json:"callback_url,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// MarshalJSON implements [json.Marshaler].
func (f *Flow) MarshalJSON() ([]byte, error) {
	return json.Marshal(flowJSON{
		ID:          f.id,
		Sequence:    f.sequence,
		Port:        f.port,
		Status:      f.status,
		CallbackURL: f.callbackURL,
		Error:       f.errMsg,
		CreatedAt:   f.createdAt,
		CompletedAt: f.completedAt,
	})
}
