package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dukex/concordctl/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func samplePage() *models.PaginatedProcessEntries {
	next := 50

	return &models.PaginatedProcessEntries{
		Items: []models.ProcessEntry{
			{
				InstanceID:  uuid.MustParse("0b1f6a1e-8c1d-4e53-9f8e-5c6a4f0f6f11"),
				Status:      models.ProcessStatusRunning,
				Kind:        models.ProcessKindDefault,
				OrgName:     "Default",
				ProjectName: "billing",
				Initiator:   "admin",
			},
		},
		Next: &next,
	}
}

func TestNewPrinter_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := newPrinter(&bytes.Buffer{}, "xml")
	require.Error(t, err)
}

func TestPrinter_PageTable(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	p, err := newPrinter(&out, outputTable)
	require.NoError(t, err)
	require.NoError(t, p.page(samplePage()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 2)

	assert.Contains(t, lines[0], "INSTANCE ID")
	assert.Contains(t, lines[1], "0b1f6a1e-8c1d-4e53-9f8e-5c6a4f0f6f11")
	assert.Contains(t, lines[1], "Default/billing")
	assert.Contains(t, lines[1], "RUNNING")
	assert.Contains(t, out.String(), "next offset: 50")
}

func TestPrinter_PageJSON(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	p, err := newPrinter(&out, outputJSON)
	require.NoError(t, err)
	require.NoError(t, p.page(samplePage()))

	var decoded models.PaginatedProcessEntries
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded.Items, 1)
	assert.Equal(t, models.ProcessStatusRunning, decoded.Items[0].Status)
	require.NotNil(t, decoded.Next)
	assert.Equal(t, 50, *decoded.Next)
	assert.Nil(t, decoded.Prev)
}

func TestPrinter_ProcessYAML(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	p, err := newPrinter(&out, outputYAML)
	require.NoError(t, err)

	entry := samplePage().Items[0]
	require.NoError(t, p.process(&entry))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "RUNNING", decoded["status"])
	assert.Equal(t, "0b1f6a1e-8c1d-4e53-9f8e-5c6a4f0f6f11", decoded["instanceId"])
	assert.Equal(t, "billing", decoded["projectName"])
}

func TestPrinter_ProcessTable(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	p, err := newPrinter(&out, outputTable)
	require.NoError(t, err)

	entry := models.ProcessEntry{
		InstanceID: uuid.New(),
		Status:     models.ProcessStatusFailed,
		Meta:       map[string]any{"out": map[string]any{"lastError": "task failed"}},
	}
	require.NoError(t, p.process(&entry))

	assert.Contains(t, out.String(), "FAILED")
	assert.Contains(t, out.String(), "Last error:")
	assert.Contains(t, out.String(), "task failed")
}
