package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dukex/concordctl/pkg/models"
	"gopkg.in/yaml.v3"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var statusColors = map[models.StatusColor]lipgloss.Color{
	models.StatusColorBlue:  lipgloss.Color("12"),
	models.StatusColorGreen: lipgloss.Color("10"),
	models.StatusColorRed:   lipgloss.Color("9"),
	models.StatusColorGrey:  lipgloss.Color("8"),
}

type printer struct {
	out      io.Writer
	format   string
	renderer *lipgloss.Renderer
}

func newPrinter(out io.Writer, format string) (*printer, error) {
	switch format {
	case outputTable, outputJSON, outputYAML:
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}

	return &printer{
		out:      out,
		format:   format,
		renderer: lipgloss.NewRenderer(out),
	}, nil
}

// status renders s in its presentation color. Colors are dropped when out is not a terminal.
func (p *printer) status(s models.ProcessStatus) string {
	return p.renderer.NewStyle().Foreground(statusColors[s.Color()]).Render(string(s))
}

func (p *printer) encode(v any) error {
	switch p.format {
	case outputJSON:
		encoder := json.NewEncoder(p.out)
		encoder.SetIndent("", "  ")

		return encoder.Encode(v)
	case outputYAML:
		encoder := yaml.NewEncoder(p.out)
		encoder.SetIndent(2)

		if err := encoder.Encode(v); err != nil {
			return err
		}

		return encoder.Close()
	}

	return fmt.Errorf("unsupported output format %q", p.format)
}

func (p *printer) page(page *models.PaginatedProcessEntries) error {
	if p.format != outputTable {
		return p.encode(page)
	}

	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "INSTANCE ID\tKIND\tPROJECT\tINITIATOR\tCREATED\tSTATUS")

	for _, entry := range page.Items {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			entry.InstanceID,
			entry.Kind,
			orDash(projectPath(entry)),
			orDash(entry.Initiator),
			formatTime(entry.CreatedAt),
			p.status(entry.Status),
		)
	}

	if err := w.Flush(); err != nil {
		return err
	}

	if page.Next != nil || page.Prev != nil {
		_, _ = fmt.Fprintf(p.out, "\nprev offset: %s  next offset: %s\n", formatOffset(page.Prev), formatOffset(page.Next))
	}

	return nil
}

func (p *printer) process(entry *models.ProcessEntry) error {
	if p.format != outputTable {
		return p.encode(entry)
	}

	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)

	row := func(label, value string) {
		_, _ = fmt.Fprintf(w, "%s:\t%s\n", label, value)
	}

	row("Instance ID", entry.InstanceID.String())

	if entry.ParentInstanceID != nil {
		row("Parent", entry.ParentInstanceID.String())
	}

	row("Status", p.status(entry.Status))
	row("Kind", string(entry.Kind))
	row("Project", orDash(projectPath(*entry)))
	row("Repository", orDash(entry.RepoName))
	row("Initiator", orDash(entry.Initiator))
	row("Created", formatTime(entry.CreatedAt))
	row("Updated", formatTime(entry.LastUpdatedAt))
	row("Disabled", strconv.FormatBool(entry.Disabled))

	if lastError, ok := entry.LastError(); ok {
		row("Last error", fmt.Sprint(lastError))
	}

	for _, checkpoint := range entry.Checkpoints {
		row("Checkpoint", checkpoint.Name+" ("+formatTime(checkpoint.CreatedAt)+")")
	}

	for _, change := range entry.StatusHistory {
		row("History", formatTime(change.ChangeDate)+" "+p.status(change.Status))
	}

	for _, child := range entry.ChildrenIDs {
		row("Child", child.String())
	}

	return w.Flush()
}

func projectPath(entry models.ProcessEntry) string {
	if entry.OrgName == "" {
		return entry.ProjectName
	}

	if entry.ProjectName == "" {
		return entry.OrgName
	}

	return entry.OrgName + "/" + entry.ProjectName
}

func formatTime(t models.Timestamp) string {
	if t.IsZero() {
		return "-"
	}

	return t.Local().Format(time.DateTime)
}

func formatOffset(offset *int) string {
	if offset == nil {
		return "-"
	}

	return strconv.Itoa(*offset)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
