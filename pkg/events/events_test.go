package events

import (
	"encoding/json"
	"testing"

	"github.com/dukex/concordctl/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProcessStatusChanged(t *testing.T) {
	t.Parallel()

	instanceID := uuid.New()
	event := NewProcessStatusChanged("evt-1", instanceID, models.ProcessStatusRunning, models.ProcessStatusTimedOut)

	assert.Equal(t, ProcessStatusChangedEvent, event.GetType())
	assert.Equal(t, ProcessStatusChangedEvent, event.Type)
	assert.Equal(t, models.StatusColorRed, event.Color)
	assert.False(t, event.Timestamp.IsZero())

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "process.status.changed", decoded["type"])
	assert.Equal(t, instanceID.String(), decoded["instance_id"])
	assert.Equal(t, "RUNNING", decoded["from"])
	assert.Equal(t, "TIMED_OUT", decoded["to"])
	assert.Equal(t, "red", decoded["color"])
}

func TestNewProcessFinished(t *testing.T) {
	t.Parallel()

	type testCase struct {
		name      string
		entry     *models.ProcessEntry
		lastError any
	}

	testCases := []testCase{
		{
			name:  "successful process has no error",
			entry: &models.ProcessEntry{InstanceID: uuid.New(), Status: models.ProcessStatusFinished},
		},
		{
			name: "failed process carries its last error",
			entry: &models.ProcessEntry{
				InstanceID: uuid.New(),
				Status:     models.ProcessStatusFailed,
				Meta: map[string]any{
					"out": map[string]any{"lastError": map[string]any{"message": "boom"}},
				},
			},
			lastError: map[string]any{"message": "boom"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			event := NewProcessFinished("evt", tc.entry)

			assert.Equal(t, ProcessFinishedEvent, event.GetType())
			assert.Equal(t, tc.entry.InstanceID, event.InstanceID)
			assert.Equal(t, tc.entry.Status, event.Status)
			assert.Equal(t, tc.lastError, event.LastError)
		})
	}
}
