// Package models defines the process records and query types exchanged with the orchestration backend.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProcessKind distinguishes regular processes from handler sub-processes.
type ProcessKind string

const (
	ProcessKindDefault        ProcessKind = "DEFAULT"
	ProcessKindFailureHandler ProcessKind = "FAILURE_HANDLER"
	ProcessKindCancelHandler  ProcessKind = "CANCEL_HANDLER"
	ProcessKindTimeoutHandler ProcessKind = "TIMEOUT_HANDLER"
)

// ProcessDataInclude names an optional nested collection the backend can populate.
type ProcessDataInclude string

const (
	IncludeCheckpoints ProcessDataInclude = "checkpoints"
	IncludeHistory     ProcessDataInclude = "history"
	IncludeChildrenIDs ProcessDataInclude = "childrenIds"
)

// ParseIncludes converts raw include names, rejecting any the backend does not know.
func ParseIncludes(values []string) ([]ProcessDataInclude, error) {
	var include []ProcessDataInclude

	for _, value := range values {
		switch i := ProcessDataInclude(value); i {
		case IncludeCheckpoints, IncludeHistory, IncludeChildrenIDs:
			include = append(include, i)
		default:
			return nil, fmt.Errorf("unknown include %q", value)
		}
	}

	return include, nil
}

// Timestamp accepts both RFC 3339 and the backend's "+0000" offset layout.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw == "" {
		return nil
	}

	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed

			return nil
		}
	}

	return fmt.Errorf("unsupported timestamp format %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}

	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t Timestamp) MarshalYAML() (any, error) {
	if t.IsZero() {
		return nil, nil
	}

	return t.UTC().Format(time.RFC3339Nano), nil
}

// ProcessCheckpointEntry is a named resumable point recorded during execution.
type ProcessCheckpointEntry struct {
	ID        string    `json:"id"        yaml:"id"`
	Name      string    `json:"name"      yaml:"name"`
	CreatedAt Timestamp `json:"createdAt" yaml:"createdAt"`
}

type ProcessHistoryPayload struct {
	CheckpointID string `json:"checkpointId,omitempty" yaml:"checkpointId,omitempty"`
}

// ProcessHistoryEntry records a single status change.
type ProcessHistoryEntry struct {
	ID         uuid.UUID              `json:"id"                yaml:"id"`
	Payload    *ProcessHistoryPayload `json:"payload,omitempty" yaml:"payload,omitempty"`
	Status     ProcessStatus          `json:"status"            yaml:"status"`
	ChangeDate Timestamp              `json:"changeDate"        yaml:"changeDate"`
}

// ProcessEntry is a read-only snapshot of a process as returned by the backend.
type ProcessEntry struct {
	InstanceID       uuid.UUID                `json:"instanceId"                 yaml:"instanceId"`
	ParentInstanceID *uuid.UUID               `json:"parentInstanceId,omitempty" yaml:"parentInstanceId,omitempty"`
	Status           ProcessStatus            `json:"status"                     yaml:"status"`
	Kind             ProcessKind              `json:"kind"                       yaml:"kind"`
	OrgName          string                   `json:"orgName,omitempty"          yaml:"orgName,omitempty"`
	ProjectName      string                   `json:"projectName,omitempty"      yaml:"projectName,omitempty"`
	RepoName         string                   `json:"repoName,omitempty"         yaml:"repoName,omitempty"`
	RepoURL          string                   `json:"repoUrl,omitempty"          yaml:"repoUrl,omitempty"`
	RepoPath         string                   `json:"repoPath,omitempty"         yaml:"repoPath,omitempty"`
	CommitID         string                   `json:"commitId,omitempty"         yaml:"commitId,omitempty"`
	CommitMsg        string                   `json:"commitMsg,omitempty"        yaml:"commitMsg,omitempty"`
	Initiator        string                   `json:"initiator"                  yaml:"initiator"`
	CreatedAt        Timestamp                `json:"createdAt"                  yaml:"createdAt"`
	LastUpdatedAt    Timestamp                `json:"lastUpdatedAt"              yaml:"lastUpdatedAt"`
	Handlers         []string                 `json:"handlers,omitempty"         yaml:"handlers,omitempty"`
	Meta             map[string]any           `json:"meta,omitempty"             yaml:"meta,omitempty"`
	Tags             []string                 `json:"tags,omitempty"             yaml:"tags,omitempty"`
	Checkpoints      []ProcessCheckpointEntry `json:"checkpoints,omitempty"      yaml:"checkpoints,omitempty"`
	StatusHistory    []ProcessHistoryEntry    `json:"statusHistory,omitempty"    yaml:"statusHistory,omitempty"`
	ChildrenIDs      []uuid.UUID              `json:"childrenIds,omitempty"      yaml:"childrenIds,omitempty"`
	Disabled         bool                     `json:"disabled"                   yaml:"disabled"`
}

// LastError returns meta.out.lastError, the error recorded by a failed process.
func (p *ProcessEntry) LastError() (any, bool) {
	out, ok := p.Meta["out"].(map[string]any)
	if !ok {
		return nil, false
	}

	lastError, ok := out["lastError"]
	if !ok || lastError == nil {
		return nil, false
	}

	return lastError, true
}

// StartProcessRequest carries the form fields of a start request.
type StartProcessRequest struct {
	Org            string `json:"org"                      validate:"required"`
	Project        string `json:"project"                  validate:"required"`
	Repo           string `json:"repo"                     validate:"required"`
	EntryPoint     string `json:"entryPoint,omitempty"`
	ActiveProfiles string `json:"activeProfiles,omitempty"`
}

type StartProcessResponse struct {
	OK         bool      `json:"ok"`
	InstanceID uuid.UUID `json:"instanceId"`
}
