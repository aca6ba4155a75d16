package store

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// FormatTable writes audit records as a formatted table to the provided
// writer. Returns the number of records formatted.
func FormatTable(w io.Writer, records []*Record, instanceName string) int {
	if len(records) == 0 {
		fmt.Fprintf(w, "No audit records found for instance '%s'\n", instanceName)
		return 0
	}

	fmt.Fprintf(w, "Audit records for instance '%s':\n\n", instanceName)

	fmt.Fprintf(w, "%-10s %-8s %-14s %-24s %-8s %s\n",
		"ID", "CMD", "AUTHOR", "WHERE", "AGE", "ARGS")
	fmt.Fprintf(w, "%-10s %-8s %-14s %-24s %-8s %s\n",
		"----------", "--------", "--------------", "------------------------", "--------", "----------------------------------------")

	for _, r := range records {
		fmt.Fprintf(w, "%-10s %-8s %-14s %-24s %-8s %s\n",
			formatID(r.ID),
			formatField(r.Command, 8),
			formatField(r.Author, 14),
			formatField(r.Guild+"@"+r.Channel, 24),
			formatAge(r.InvokedAtMs),
			formatArgs(r.Args),
		)
	}

	countMsg := "record"
	if len(records) != 1 {
		countMsg = "records"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(records), countMsg)

	return len(records)
}

// FormatJSONL writes records as line-delimited JSON (JSONL) to the provided
// writer. Ideal for streaming and processing with tools like jq.
func FormatJSONL(w io.Writer, records []*Record) error {
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal record to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", string(data)); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// formatID truncates a record ID to its first 8 characters for compact display.
func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatField truncates a value to width characters for table display.
// Empty values return "-".
func formatField(value string, width int) string {
	if value == "" {
		return "-"
	}
	if len(value) > width {
		return value[:width-3] + "..."
	}
	return value
}

// formatArgs joins arguments for table display, truncated to 40 characters.
func formatArgs(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	joined := strings.Join(args, " ")
	if len(joined) > 40 {
		return joined[:37] + "..."
	}
	return joined
}

// formatAge renders how long ago a record was written, e.g. "5m" or "2h".
func formatAge(invokedAtMs int64) string {
	if invokedAtMs <= 0 {
		return "-"
	}

	age := time.Since(time.UnixMilli(invokedAtMs))
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd", int(age.Hours()/24))
	}
}
