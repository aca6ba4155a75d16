package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mbyx/hilda/internal/address"
	"github.com/mbyx/hilda/internal/archive"
	"github.com/mbyx/hilda/internal/platform"
)

// bobbin creates a new thread and moves the last amt messages into it,
// formatted through the sheet. Without a count the whole channel moves.
func (b *Bot) bobbin(ctx context.Context, inv *Invocation) error {
	amt, rest := splitAmt(inv.Args)
	if len(rest) == 0 {
		return fmt.Errorf("usage: %sbobbin [amt] <thread name>", b.prefix)
	}
	name := strings.Join(rest, " ")

	thread, err := b.messenger.CreateThread(ctx, inv.Channel.ID, name)
	if err != nil {
		return fmt.Errorf("failed to create thread %q: %w", name, err)
	}

	msgs, err := b.messenger.Purge(ctx, inv.Channel.ID, amt, nil)
	if err != nil {
		return fmt.Errorf("failed to purge channel: %w", err)
	}
	platform.SortOldestFirst(msgs)

	for _, msg := range msgs {
		text, err := b.formatMessage(msg, inv.Channel, true)
		if err != nil {
			return err
		}
		if _, err := b.messenger.Send(ctx, thread.ID, text); err != nil {
			return fmt.Errorf("failed to repost message to thread: %w", err)
		}
	}
	return nil
}

// pin pins the last amt messages of the channel, oldest first.
func (b *Bot) pin(ctx context.Context, inv *Invocation) error {
	amt, _ := splitAmt(inv.Args)

	msgs, err := b.messenger.History(ctx, inv.Channel.ID, amt)
	if err != nil {
		return fmt.Errorf("failed to fetch history: %w", err)
	}
	platform.SortOldestFirst(msgs)

	for _, msg := range msgs {
		if err := b.messenger.Pin(ctx, inv.Channel.ID, msg.ID); err != nil {
			return fmt.Errorf("failed to pin message: %w", err)
		}
	}
	return nil
}

// cp copies the last amt messages to another channel, possibly in a
// different guild, formatted through the sheet.
func (b *Bot) cp(ctx context.Context, inv *Invocation) error {
	amt, rest := splitAmt(inv.Args)
	if len(rest) == 0 {
		return fmt.Errorf("usage: %scp [amt] <channel>", b.prefix)
	}

	target, err := address.Resolve(ctx, rest[0], inv.Guild, b.directory)
	if err != nil {
		return err
	}

	msgs, err := b.messenger.History(ctx, inv.Channel.ID, amt)
	if err != nil {
		return fmt.Errorf("failed to fetch history: %w", err)
	}
	platform.SortOldestFirst(msgs)

	return b.repost(ctx, msgs, inv.Channel, target)
}

// mv moves the last amt messages to another channel: a cp whose source
// messages are deleted as they are fetched.
func (b *Bot) mv(ctx context.Context, inv *Invocation) error {
	amt, rest := splitAmt(inv.Args)
	if len(rest) == 0 {
		return fmt.Errorf("usage: %smv [amt] <channel>", b.prefix)
	}

	target, err := address.Resolve(ctx, rest[0], inv.Guild, b.directory)
	if err != nil {
		return err
	}

	msgs, err := b.messenger.Purge(ctx, inv.Channel.ID, amt, nil)
	if err != nil {
		return fmt.Errorf("failed to purge channel: %w", err)
	}
	platform.SortOldestFirst(msgs)

	return b.repost(ctx, msgs, inv.Channel, target)
}

func (b *Bot) repost(ctx context.Context, msgs []*platform.Message, source, target *platform.Channel) error {
	for _, msg := range msgs {
		text, err := b.formatMessage(msg, source, true)
		if err != nil {
			return err
		}
		if _, err := b.messenger.Send(ctx, target.ID, text); err != nil {
			return fmt.Errorf("failed to send to %s: %w", target.Path(), err)
		}
	}
	return nil
}

// save writes the last amt messages to a backup file and uploads it back
// to the channel. Only available when hilda runs locally, since the file
// lands on hilda's own filesystem.
func (b *Bot) save(ctx context.Context, inv *Invocation) error {
	if !b.runningLocally {
		return fmt.Errorf("save only works when hilda is running locally")
	}

	amt, _ := splitAmt(inv.Args)
	msgs, err := b.messenger.History(ctx, inv.Channel.ID, amt)
	if err != nil {
		return fmt.Errorf("failed to fetch history: %w", err)
	}
	platform.SortOldestFirst(msgs)

	entries := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		// Plain form: mentions would render as raw IDs in a text file.
		text, err := b.formatMessage(msg, inv.Channel, false)
		if err != nil {
			return err
		}
		entries = append(entries, text)
	}

	name := archive.BackupName(inv.Guild.Name, inv.Channel.Name, time.Now())
	path, err := archive.Write(b.backupDir, name, entries)
	if err != nil {
		return err
	}

	if err := b.messenger.SendFile(ctx, inv.Channel.ID, path); err != nil {
		return fmt.Errorf("failed to upload backup: %w", err)
	}
	return nil
}

// rm deletes the last amt messages written by the named members (all
// authors when none are named), after a reaction-confirmation prompt.
func (b *Bot) rm(ctx context.Context, inv *Invocation) error {
	amt, members := splitAmt(inv.Args)

	prompt, err := b.messenger.Send(ctx, inv.Channel.ID, "React to this message to proceed.")
	if err != nil {
		return fmt.Errorf("failed to send confirmation prompt: %w", err)
	}

	if err := b.messenger.AwaitReaction(ctx, inv.Channel.ID, prompt.ID, b.confirmTimeout); err != nil {
		if editErr := b.messenger.Edit(ctx, inv.Channel.ID, prompt.ID, "Timed out. Please try again."); editErr != nil {
			return fmt.Errorf("failed to edit timed-out prompt: %w", editErr)
		}
		return nil
	}

	if err := b.messenger.Delete(ctx, inv.Channel.ID, prompt.ID); err != nil {
		return fmt.Errorf("failed to delete confirmation prompt: %w", err)
	}

	var filter platform.MessageFilter
	if len(members) > 0 {
		filter = func(msg *platform.Message) bool {
			for _, member := range members {
				if msg.Author == member {
					return true
				}
			}
			return false
		}
	}

	if _, err := b.messenger.Purge(ctx, inv.Channel.ID, amt, filter); err != nil {
		return fmt.Errorf("failed to purge channel: %w", err)
	}
	return nil
}
