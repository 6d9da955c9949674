// Package export serializes batch results for machine consumption.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/forksync/forksync/domain"
)

// resultRecord is the JSON shape of one batch result.
type resultRecord struct {
	Name     string            `json:"name"`
	Path     string            `json:"path"`
	Success  bool              `json:"success"`
	Message  string            `json:"message"`
	Details  map[string]string `json:"details,omitempty"`
	Duration string            `json:"duration"`
	Error    string            `json:"error,omitempty"`
}

// WriteJSON writes the results as an indented JSON array.
func WriteJSON(w io.Writer, results []domain.BatchResult) error {
	records := make([]resultRecord, 0, len(results))
	for _, r := range results {
		rec := resultRecord{
			Name:     r.Name,
			Path:     r.Path,
			Success:  r.Success,
			Message:  r.Message,
			Details:  r.Details,
			Duration: r.Duration.Round(time.Millisecond).String(),
		}
		if r.Err != nil {
			rec.Error = r.Err.Error()
		}
		records = append(records, rec)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}

// WriteCSV writes the results as CSV with a header row. Details are
// flattened into "key=value" pairs in a single column, sorted by key.
func WriteCSV(w io.Writer, results []domain.BatchResult) error {
	cw := csv.NewWriter(w)
	header := []string{"name", "path", "success", "message", "duration", "details", "error"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range results {
		errMsg := ""
		if r.Err != nil {
			errMsg = r.Err.Error()
		}
		row := []string{
			r.Name,
			r.Path,
			strconv.FormatBool(r.Success),
			r.Message,
			r.Duration.Round(time.Millisecond).String(),
			flattenDetails(r.Details),
			errMsg,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %q: %w", r.Name, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func flattenDetails(details map[string]string) string {
	if len(details) == 0 {
		return ""
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for i, k := range keys {
		if i > 0 {
			out += ";"
		}
		out += k + "=" + details[k]
	}
	return out
}
