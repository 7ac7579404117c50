// Package events defines the process lifecycle notifications published while watching processes.
package events

import (
	"time"

	"github.com/dukex/concordctl/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic is the single topic all process events are published to.
const Topic = "concord.process.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ProcessStatusChangedEvent EventType = "process.status.changed"
	ProcessFinishedEvent      EventType = "process.finished"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	InstanceID uuid.UUID `json:"instance_id"`
}

func newBaseEvent(id string, eventType EventType, instanceID uuid.UUID) BaseEvent {
	return BaseEvent{
		ID:         id,
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		InstanceID: instanceID,
	}
}

// ProcessStatusChanged is published every time a watched process moves to a new status.
type ProcessStatusChanged struct {
	BaseEvent

	From  models.ProcessStatus `json:"from,omitempty"`
	To    models.ProcessStatus `json:"to"`
	Color models.StatusColor   `json:"color"`
}

func NewProcessStatusChanged(id string, instanceID uuid.UUID, from, to models.ProcessStatus) ProcessStatusChanged {
	return ProcessStatusChanged{
		BaseEvent: newBaseEvent(id, ProcessStatusChangedEvent, instanceID),
		From:      from,
		To:        to,
		Color:     models.ColorFor(to),
	}
}

func (e ProcessStatusChanged) GetType() EventType {
	return ProcessStatusChangedEvent
}

// ProcessFinished is published once, when a watched process reaches a final status.
type ProcessFinished struct {
	BaseEvent

	Status    models.ProcessStatus `json:"status"`
	LastError any                  `json:"last_error,omitempty"`
}

func NewProcessFinished(id string, entry *models.ProcessEntry) ProcessFinished {
	event := ProcessFinished{
		BaseEvent: newBaseEvent(id, ProcessFinishedEvent, entry.InstanceID),
		Status:    entry.Status,
	}

	if lastError, ok := entry.LastError(); ok {
		event.LastError = lastError
	}

	return event
}

func (e ProcessFinished) GetType() EventType {
	return ProcessFinishedEvent
}
