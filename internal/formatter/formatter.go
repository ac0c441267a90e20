// package formatter renders flow history in various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/desertthunder/loopauth/internal/models"
	"github.com/desertthunder/loopauth/internal/shared"
)

// Format selects an output renderer.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

const timeLayout = "2006-01-02 15:04:05"

// Render dispatches to the renderer for format.
func Render(flows []*models.Flow, format Format) ([]byte, error) {
	switch format {
	case FormatText, "":
		return ExportToText(flows)
	case FormatCSV:
		return ExportToCSV(flows)
	case FormatJSON:
		return ExportToJSON(flows)
	case FormatMarkdown:
		return ExportToMarkdown(flows)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// ExportToCSV converts flows to CSV format with columns: Sequence, ID, Port, Status, Created, Duration, URL, Error
func ExportToCSV(flows []*models.Flow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "ID", "Port", "Status", "Created", "Duration", "URL", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, flow := range flows {
		record := []string{
			strconv.Itoa(flow.Sequence()),
			flow.ID(),
			strconv.Itoa(flow.Port()),
			string(flow.Status()),
			flow.CreatedAt().UTC().Format(time.RFC3339),
			FormatDuration(flow.Duration()),
			flow.CallbackURL(),
			flow.Error(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts flows to a Markdown table
func ExportToMarkdown(flows []*models.Flow) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Flow History\n\n")
	buf.WriteString(fmt.Sprintf("**Flows**: %d\n\n", len(flows)))

	if len(flows) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Port | Status | Created | Duration | URL |\n")
	buf.WriteString("|---|------|--------|---------|----------|-----|\n")
	for _, flow := range flows {
		buf.WriteString(fmt.Sprintf("| %d | %d | %s | %s | %s | %s |\n",
			flow.Sequence(), flow.Port(), flow.Status(), flow.CreatedAt().Local().Format(timeLayout),
			FormatDuration(flow.Duration()), markdownCell(flow.CallbackURL())))
	}

	return buf.Bytes(), nil
}

// ExportToText converts flows to plain text format
func ExportToText(flows []*models.Flow) ([]byte, error) {
	var buf bytes.Buffer

	if len(flows) == 0 {
		buf.WriteString("No flows recorded\n")
		return buf.Bytes(), nil
	}

	buf.WriteString(fmt.Sprintf("Flows: %d\n\n", len(flows)))

	for _, flow := range flows {
		buf.WriteString(fmt.Sprintf("#%d  %-9s  port %d  %s  %s\n",
			flow.Sequence(), flow.Status(), flow.Port(), flow.CreatedAt().Local().Format(timeLayout), FormatDuration(flow.Duration())))
		if flow.CallbackURL() != "" {
			buf.WriteString(fmt.Sprintf("    url:   %s\n", flow.CallbackURL()))
		}
		if flow.Error() != "" {
			buf.WriteString(fmt.Sprintf("    error: %s\n", flow.Error()))
		}
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts flows to an indented JSON array
func ExportToJSON(flows []*models.Flow) ([]byte, error) {
	if flows == nil {
		flows = []*models.Flow{}
	}
	return shared.MarshalJSON(flows, true)
}

// WriteExport renders flows and writes them to path
func WriteExport(flows []*models.Flow, format Format, path string) error {
	data, err := Render(flows, format)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	return nil
}

// FormatDuration formats d as "1m05s", or "-" when zero
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

func markdownCell(s string) string {
	if s == "" {
		return "-"
	}
	return "`" + s + "`"
}
