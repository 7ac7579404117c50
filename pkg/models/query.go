package models

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

const (
	// DefaultLimit is the page size used when a query does not set one.
	DefaultLimit = 50

	// MaxLimit is the largest page size a query may ask for.
	MaxLimit = 10000

	// MaxOffset bounds the offset so that offset+limit+1 fits in an int.
	MaxOffset = 1 << 30
)

// ErrLimitTooLarge is returned by ParseLimit for page sizes above MaxLimit.
var ErrLimitTooLarge = errors.New("limit too large")

// ProcessListQuery filters the process list. Zero values leave a field unconstrained.
type ProcessListQuery struct {
	OrgID            *uuid.UUID
	OrgName          string
	ProjectID        *uuid.UUID
	ProjectName      string
	AfterCreatedAt   string
	BeforeCreatedAt  string
	Tags             []string
	Status           ProcessStatus
	Initiator        string
	ParentInstanceID *uuid.UUID
	Include          []ProcessDataInclude

	// Meta holds free-form metadata filters, sent as meta.<key>=<value>.
	Meta map[string]string

	// Limit is the page size; nil means DefaultLimit and negatives count as zero.
	Limit  *int `validate:"omitempty,max=10000"`
	Offset int  `validate:"min=0,max=1073741824"`
}

// PaginatedProcessEntries is one page of the process list.
// Next and Prev are offsets to replay, nil when no page exists in that direction.
type PaginatedProcessEntries struct {
	Items []ProcessEntry `json:"items"          yaml:"items"`
	Next  *int           `json:"next,omitempty" yaml:"next,omitempty"`
	Prev  *int           `json:"prev,omitempty" yaml:"prev,omitempty"`
}

// ParseLimit coerces loosely typed input (form values, JSON numbers, numeric
// strings) into a page size. Negative values clamp to zero.
func ParseLimit(v any) (int, error) {
	limit, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("invalid limit %v: %w", v, err)
	}

	if limit > MaxLimit {
		return 0, fmt.Errorf("%w: %d exceeds %d", ErrLimitTooLarge, limit, MaxLimit)
	}

	return max(limit, 0), nil
}

// EffectiveLimit returns the normalized page size of the query.
func (q ProcessListQuery) EffectiveLimit() int {
	if q.Limit == nil {
		return DefaultLimit
	}

	return max(*q.Limit, 0)
}

// WithLimit returns a copy of the query using the given page size.
func (q ProcessListQuery) WithLimit(limit int) ProcessListQuery {
	q.Limit = &limit

	return q
}

// Values serializes the query into backend query parameters. Unset fields are omitted.
func (q ProcessListQuery) Values() url.Values {
	values := url.Values{}

	setUUID := func(key string, id *uuid.UUID) {
		if id != nil {
			values.Set(key, id.String())
		}
	}

	setString := func(key, value string) {
		if value != "" {
			values.Set(key, value)
		}
	}

	setUUID("orgId", q.OrgID)
	setString("orgName", q.OrgName)
	setUUID("projectId", q.ProjectID)
	setString("projectName", q.ProjectName)
	setString("afterCreatedAt", q.AfterCreatedAt)
	setString("beforeCreatedAt", q.BeforeCreatedAt)
	setString("status", string(q.Status))
	setString("initiator", q.Initiator)
	setUUID("parentInstanceId", q.ParentInstanceID)

	for _, tag := range q.Tags {
		values.Add("tags", tag)
	}

	for _, include := range q.Include {
		values.Add("include", string(include))
	}

	for key, value := range q.Meta {
		values.Set("meta."+key, value)
	}

	if q.Limit != nil {
		values.Set("limit", strconv.Itoa(*q.Limit))
	}

	if q.Offset != 0 {
		values.Set("offset", strconv.Itoa(q.Offset))
	}

	return values
}
