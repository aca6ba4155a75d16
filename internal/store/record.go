// Package store persists an audit trail of executed commands in Redis.
// Every record is stored as a namespaced hash plus a time-ordered index,
// and published to an events channel so other tooling can follow along.
// All keys and channels are namespaced by instance name so multiple hilda
// instances can share one Redis server.
package store

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Record is one executed command: who ran what, where, with which
// arguments. Records are immutable once written.
type Record struct {
	ID          string   `json:"id"`            // UUID
	Command     string   `json:"command"`       // command name, e.g. "mv"
	Author      string   `json:"author"`        // display name of the invoking user
	Guild       string   `json:"guild"`         // guild name the command ran in
	Channel     string   `json:"channel"`       // channel name the command ran in
	Args        []string `json:"args"`          // raw arguments after the command name
	InvokedAtMs int64    `json:"invoked_at_ms"` // Unix timestamp in milliseconds
}

// Validate checks if the Record has valid field values.
func (r *Record) Validate() error {
	if _, err := uuid.Parse(r.ID); err != nil {
		return fmt.Errorf("invalid record ID: not a valid UUID")
	}
	if r.Command == "" {
		return fmt.Errorf("command cannot be empty")
	}
	if r.Author == "" {
		return fmt.Errorf("author cannot be empty")
	}
	if r.InvokedAtMs <= 0 {
		return fmt.Errorf("invalid invoked_at_ms: must be > 0, got %d", r.InvokedAtMs)
	}
	return nil
}

// recordToHash converts a Record to a Redis hash. The args array is
// JSON-encoded into a single field.
func recordToHash(r *Record) (map[string]interface{}, error) {
	argsJSON, err := json.Marshal(r.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal args: %w", err)
	}

	return map[string]interface{}{
		"id":            r.ID,
		"command":       r.Command,
		"author":        r.Author,
		"guild":         r.Guild,
		"channel":       r.Channel,
		"args":          string(argsJSON),
		"invoked_at_ms": r.InvokedAtMs,
	}, nil
}

// hashToRecord converts a Redis hash back to a Record.
func hashToRecord(hash map[string]string) (*Record, error) {
	invokedAt, err := strconv.ParseInt(hash["invoked_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid invoked_at_ms field: %w", err)
	}

	var args []string
	if argsJSON := hash["args"]; argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return nil, fmt.Errorf("failed to unmarshal args: %w", err)
		}
	}
	if args == nil {
		args = []string{}
	}

	return &Record{
		ID:          hash["id"],
		Command:     hash["command"],
		Author:      hash["author"],
		Guild:       hash["guild"],
		Channel:     hash["channel"],
		Args:        args,
		InvokedAtMs: invokedAt,
	}, nil
}
