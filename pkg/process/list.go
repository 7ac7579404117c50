package process

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukex/concordctl/pkg/client"
	"github.com/dukex/concordctl/pkg/models"
	"github.com/dukex/concordctl/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

// List returns one page of processes matching query.
//
// One row more than the page size is requested. When it comes back the row is
// dropped and Next is set to the following offset. Prev is offset-limit whenever
// offset is non-zero and is not clamped, so it can be negative when offset < limit.
func (s *Service) List(ctx context.Context, query models.ProcessListQuery) (page *models.PaginatedProcessEntries, err error) {
	if err := s.validate.Struct(query); err != nil {
		return nil, &Error{Op: "List", Err: fmt.Errorf("%w: %w", ErrInvalidRequest, err)}
	}

	limit := query.EffectiveLimit()
	offset := query.Offset

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "process.List",
		attribute.Int(otelhelper.PageLimitKey, limit),
		attribute.Int(otelhelper.PageOffsetKey, offset),
	)
	defer func() {
		otelhelper.End(span, err)
	}()

	var entries []models.ProcessEntry

	err = s.backend.Do(ctx, client.Request{
		Method:    http.MethodGet,
		Path:      listPath,
		Query:     query.WithLimit(limit + 1).Values(),
		Operation: "process.list",
	}, &entries)
	if err != nil {
		return nil, err
	}

	hasMore := limit > 0 && len(entries) > limit

	// With limit 0 the backend may still return its sentinel row.
	if len(entries) > limit {
		entries = entries[:limit]
	}

	if entries == nil {
		entries = []models.ProcessEntry{}
	}

	page = &models.PaginatedProcessEntries{Items: entries}

	if hasMore {
		next := offset + limit
		page.Next = &next
	}

	if offset != 0 {
		prev := offset - limit
		page.Prev = &prev
	}

	s.metrics.ObservePage(len(entries))

	s.logger.DebugContext(ctx, "Listed processes",
		"limit", limit,
		"offset", offset,
		"items", len(entries),
		"has_more", hasMore,
	)

	return page, nil
}
