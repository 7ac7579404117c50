package models

import (
	"errors"
	"fmt"
	"strings"
)

// ProcessStatus represents the lifecycle state of a process instance.
type ProcessStatus string

const (
	ProcessStatusPreparing ProcessStatus = "PREPARING"
	ProcessStatusEnqueued  ProcessStatus = "ENQUEUED"
	ProcessStatusStarting  ProcessStatus = "STARTING"
	ProcessStatusRunning   ProcessStatus = "RUNNING"
	ProcessStatusSuspended ProcessStatus = "SUSPENDED"
	ProcessStatusResuming  ProcessStatus = "RESUMING"
	ProcessStatusFinished  ProcessStatus = "FINISHED"
	ProcessStatusFailed    ProcessStatus = "FAILED"
	ProcessStatusCancelled ProcessStatus = "CANCELLED"
	ProcessStatusTimedOut  ProcessStatus = "TIMED_OUT"
)

// ErrInvalidProcessStatus is returned when a value is outside the known status set.
var ErrInvalidProcessStatus = errors.New("invalid process status")

// ProcessStatuses lists every known status in lifecycle order.
func ProcessStatuses() []ProcessStatus {
	return []ProcessStatus{
		ProcessStatusPreparing,
		ProcessStatusEnqueued,
		ProcessStatusStarting,
		ProcessStatusRunning,
		ProcessStatusSuspended,
		ProcessStatusResuming,
		ProcessStatusFinished,
		ProcessStatusFailed,
		ProcessStatusCancelled,
		ProcessStatusTimedOut,
	}
}

// ParseProcessStatus converts user input (case-insensitive) into a ProcessStatus.
func ParseProcessStatus(s string) (ProcessStatus, error) {
	candidate := ProcessStatus(strings.ToUpper(strings.TrimSpace(s)))

	for _, status := range ProcessStatuses() {
		if status == candidate {
			return status, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidProcessStatus, s)
}

// StatusColor is the presentation category of a status.
type StatusColor string

const (
	StatusColorBlue  StatusColor = "blue"
	StatusColorGreen StatusColor = "green"
	StatusColorRed   StatusColor = "red"
	StatusColorGrey  StatusColor = "grey"
)

// IsFinal reports whether the status is terminal. Final statuses never transition further.
func IsFinal(s ProcessStatus) bool {
	return s == ProcessStatusFinished ||
		s == ProcessStatusFailed ||
		s == ProcessStatusCancelled ||
		s == ProcessStatusTimedOut
}

// HasState reports whether the process has been assigned a runtime slot and
// therefore has inspectable execution state.
func HasState(s ProcessStatus) bool {
	return s != ProcessStatusPreparing
}

// CanBeCancelled reports whether a cancel request is meaningful for the status.
func CanBeCancelled(s ProcessStatus) bool {
	return s == ProcessStatusEnqueued ||
		s == ProcessStatusRunning ||
		s == ProcessStatusSuspended
}

// ColorFor maps a status to its presentation color. Unknown statuses are grey.
func ColorFor(s ProcessStatus) StatusColor {
	switch s {
	case ProcessStatusPreparing, ProcessStatusRunning, ProcessStatusStarting, ProcessStatusSuspended:
		return StatusColorBlue
	case ProcessStatusFinished:
		return StatusColorGreen
	case ProcessStatusCancelled, ProcessStatusFailed, ProcessStatusTimedOut:
		return StatusColorRed
	case ProcessStatusEnqueued, ProcessStatusResuming:
		return StatusColorGrey
	default:
		return StatusColorGrey
	}
}

func (s ProcessStatus) IsFinal() bool {
	return IsFinal(s)
}

func (s ProcessStatus) HasState() bool {
	return HasState(s)
}

func (s ProcessStatus) CanBeCancelled() bool {
	return CanBeCancelled(s)
}

func (s ProcessStatus) Color() StatusColor {
	return ColorFor(s)
}

func (s ProcessStatus) String() string {
	return string(s)
}
