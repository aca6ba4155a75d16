// Package audit announces executed commands to a guild's audit channel
// and persists them to the audit store.
//
// The announcement text comes from the sheet, keyed by command name. A
// command without a sheet entry simply produces no announcement; that is a
// configuration choice, not an error. Likewise a guild without an audit
// channel gets no announcements.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mbyx/hilda/internal/platform"
	"github.com/mbyx/hilda/internal/sheet"
	"github.com/mbyx/hilda/internal/store"
)

// Writer sends audit announcements and records command invocations.
type Writer struct {
	sheet       *sheet.Sheet
	messenger   platform.Messenger
	directory   platform.Directory
	store       *store.Client // nil disables persistence
	channelName string
}

// NewWriter creates an audit writer. channelName is the name of the
// channel announcements go to ("audit" by default); st may be nil when no
// Redis store is configured.
func NewWriter(s *sheet.Sheet, m platform.Messenger, d platform.Directory, st *store.Client, channelName string) *Writer {
	return &Writer{
		sheet:       s,
		messenger:   m,
		directory:   d,
		store:       st,
		channelName: channelName,
	}
}

// Entry describes one command invocation. Amt, NewChannel and Members
// carry the caller's defaults ("all", "" and "everyone") when the command
// was invoked without them.
type Entry struct {
	Command       string
	Author        string
	AuthorMention string
	Guild         platform.GuildRef
	Channel       *platform.Channel
	Args          []string
	Amt           string
	NewChannel    string
	Members       string
}

// Write persists the entry and, when the guild has an audit channel and
// the sheet has a template for the command, announces it there.
func (w *Writer) Write(ctx context.Context, e Entry) error {
	if w.store != nil {
		record := &store.Record{
			ID:          uuid.New().String(),
			Command:     e.Command,
			Author:      e.Author,
			Guild:       e.Guild.Name,
			Channel:     e.Channel.Name,
			Args:        e.Args,
			InvokedAtMs: time.Now().UnixMilli(),
		}
		if err := w.store.CreateRecord(ctx, record); err != nil {
			return fmt.Errorf("failed to record command: %w", err)
		}
	}

	auditCh, err := w.auditChannel(ctx, e.Guild)
	if err != nil {
		return err
	}
	if auditCh == nil {
		return nil
	}

	body, err := w.sheet.Get(e.Command)
	if err != nil {
		if sheet.IsTemplateNotFound(err) {
			// No format text for this command; skip the announcement.
			return nil
		}
		return err
	}

	msg := sheet.Render(body, sheet.Values{
		"author":      e.AuthorMention,
		"guild":       e.Guild.Name,
		"channel":     e.Channel.Mention(),
		"amt":         e.Amt,
		"new_channel": e.NewChannel,
		"members":     e.Members,
	})
	if _, err := w.messenger.Send(ctx, auditCh.ID, msg); err != nil {
		return fmt.Errorf("failed to send audit message: %w", err)
	}
	return nil
}

// auditChannel finds the guild's audit channel by name, or nil when the
// guild has none.
func (w *Writer) auditChannel(ctx context.Context, guild platform.GuildRef) (*platform.Channel, error) {
	channels, err := w.directory.ChannelsOf(ctx, guild.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels of guild %q: %w", guild.Name, err)
	}
	for _, ch := range channels {
		if ch.Name == w.channelName {
			return ch, nil
		}
	}
	return nil, nil
}
