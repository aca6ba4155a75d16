// Package filter narrows audit record listings.
package filter

import (
	"path/filepath"

	"github.com/mbyx/hilda/internal/store"
)

// Criteria defines filtering criteria for audit records.
// All filters are ANDed together - a record must match ALL criteria to pass.
type Criteria struct {
	SinceTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	UntilTimestampMs int64  // Unix timestamp in milliseconds, 0 = no filter
	CommandGlob      string // Glob pattern for the command name, empty = no filter
	Author           string // Exact match for the invoking author, empty = no filter
	Channel          string // Exact match for the channel name, empty = no filter
}

// Matches returns true if the record matches all filter criteria.
// Empty/zero criteria values are treated as "match all" for that criterion.
func (c *Criteria) Matches(r *store.Record) bool {
	if c.SinceTimestampMs > 0 && r.InvokedAtMs < c.SinceTimestampMs {
		return false
	}
	if c.UntilTimestampMs > 0 && r.InvokedAtMs > c.UntilTimestampMs {
		return false
	}

	if c.CommandGlob != "" {
		matched, err := filepath.Match(c.CommandGlob, r.Command)
		if err != nil || !matched {
			return false
		}
	}

	if c.Author != "" && r.Author != c.Author {
		return false
	}
	if c.Channel != "" && r.Channel != c.Channel {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.SinceTimestampMs > 0 ||
		c.UntilTimestampMs > 0 ||
		c.CommandGlob != "" ||
		c.Author != "" ||
		c.Channel != ""
}

// Apply returns the records matching the criteria, preserving order.
func (c *Criteria) Apply(records []*store.Record) []*store.Record {
	if !c.HasFilters() {
		return records
	}
	var out []*store.Record
	for _, r := range records {
		if c.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}
