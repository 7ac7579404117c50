// Package web provides HTTP request and response types for the process gateway.
package web

import "github.com/dukex/concordctl/pkg/models"

// ProcessResponse is a process record enriched with its status classification.
type ProcessResponse struct {
	models.ProcessEntry

	Color       models.StatusColor `json:"color"`
	Final       bool               `json:"final"`
	Cancellable bool               `json:"cancellable"`
	HasState    bool               `json:"hasState"`
}

// ProcessPageResponse is one page of the process list.
type ProcessPageResponse struct {
	Items []ProcessResponse `json:"items"`
	Next  *int              `json:"next,omitempty"`
	Prev  *int              `json:"prev,omitempty"`
}

// TransformProcessResponse classifies entry for presentation.
func TransformProcessResponse(entry models.ProcessEntry) ProcessResponse {
	return ProcessResponse{
		ProcessEntry: entry,
		Color:        entry.Status.Color(),
		Final:        entry.Status.IsFinal(),
		Cancellable:  entry.Status.CanBeCancelled(),
		HasState:     entry.Status.HasState(),
	}
}

func TransformProcessPage(page *models.PaginatedProcessEntries) ProcessPageResponse {
	items := make([]ProcessResponse, 0, len(page.Items))
	for _, entry := range page.Items {
		items = append(items, TransformProcessResponse(entry))
	}

	return ProcessPageResponse{
		Items: items,
		Next:  page.Next,
		Prev:  page.Prev,
	}
}
