package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsFinal(t *testing.T) {
	t.Parallel()

	final := map[ProcessStatus]bool{
		ProcessStatusFinished:  true,
		ProcessStatusFailed:    true,
		ProcessStatusCancelled: true,
		ProcessStatusTimedOut:  true,
	}

	for _, status := range ProcessStatuses() {
		assert.Equal(t, final[status], IsFinal(status), status)
		assert.Equal(t, IsFinal(status), IsFinal(status), "repeated call for %s", status)
	}

	assert.False(t, IsFinal(ProcessStatus("ARCHIVED")))
}

func TestHasState(t *testing.T) {
	t.Parallel()

	for _, status := range ProcessStatuses() {
		assert.Equal(t, status != ProcessStatusPreparing, HasState(status), status)
	}
}

func TestCanBeCancelled(t *testing.T) {
	t.Parallel()

	cancellable := map[ProcessStatus]bool{
		ProcessStatusEnqueued:  true,
		ProcessStatusRunning:   true,
		ProcessStatusSuspended: true,
	}

	for _, status := range ProcessStatuses() {
		assert.Equal(t, cancellable[status], CanBeCancelled(status), status)
	}
}

func TestColorFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   ProcessStatus
		expected StatusColor
	}{
		{ProcessStatusPreparing, StatusColorBlue},
		{ProcessStatusStarting, StatusColorBlue},
		{ProcessStatusRunning, StatusColorBlue},
		{ProcessStatusSuspended, StatusColorBlue},
		{ProcessStatusFinished, StatusColorGreen},
		{ProcessStatusFailed, StatusColorRed},
		{ProcessStatusCancelled, StatusColorRed},
		{ProcessStatusTimedOut, StatusColorRed},
		{ProcessStatusEnqueued, StatusColorGrey},
		{ProcessStatusResuming, StatusColorGrey},
		{ProcessStatus("SOMETHING_NEW"), StatusColorGrey},
		{ProcessStatus(""), StatusColorGrey},
	}

	for _, testCase := range tests {
		t.Run(string(testCase.status), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, ColorFor(testCase.status))
			assert.Equal(t, testCase.expected, testCase.status.Color())
		})
	}
}

func TestParseProcessStatus(t *testing.T) {
	t.Parallel()

	status, err := ParseProcessStatus(" running ")
	require.NoError(t, err)
	assert.Equal(t, ProcessStatusRunning, status)

	status, err = ParseProcessStatus("TIMED_OUT")
	require.NoError(t, err)
	assert.Equal(t, ProcessStatusTimedOut, status)

	_, err = ParseProcessStatus("done")
	require.ErrorIs(t, err, ErrInvalidProcessStatus)
}
