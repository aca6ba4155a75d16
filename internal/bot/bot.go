// Package bot wires hilda's commands to a chat platform. It parses
// prefixed command messages, deletes the invoking message, writes the
// audit entry, and dispatches to the command's handler.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/mbyx/hilda/internal/address"
	"github.com/mbyx/hilda/internal/audit"
	"github.com/mbyx/hilda/internal/platform"
	"github.com/mbyx/hilda/internal/sheet"
)

// MessageTemplate is the sheet template every command formats messages
// with when reposting them.
const MessageTemplate = "msg"

// BuiltinCommands is the closed set of command names hilda answers to.
// Template names in the sheet are keyed one-to-one to these.
var BuiltinCommands = []string{"bobbin", "cp", "mv", "pin", "rm", "save"}

// Handler runs one command invocation.
type Handler func(ctx context.Context, inv *Invocation) error

// Invocation carries the context of a single command: the triggering
// message, where it happened, and the arguments after the command name.
type Invocation struct {
	Message *platform.Message
	Channel *platform.Channel
	Guild   platform.GuildRef
	Args    []string
}

// Options configures a Bot.
type Options struct {
	Prefix         string // command prefix, default "!"
	Sheet          *sheet.Sheet
	Messenger      platform.Messenger
	Directory      platform.Directory
	Audit          *audit.Writer
	RunningLocally bool   // enables the save command
	BackupDir      string // where save writes backups, default "."
	ConfirmTimeout time.Duration
}

// Bot dispatches chat commands. Construct with New; the zero value is not
// usable.
type Bot struct {
	prefix         string
	sheet          *sheet.Sheet
	messenger      platform.Messenger
	directory      platform.Directory
	audit          *audit.Writer
	runningLocally bool
	backupDir      string
	confirmTimeout time.Duration
	commands       map[string]Handler
}

// New creates a bot with all built-in commands registered.
func New(opts Options) *Bot {
	b := &Bot{
		prefix:         opts.Prefix,
		sheet:          opts.Sheet,
		messenger:      opts.Messenger,
		directory:      opts.Directory,
		audit:          opts.Audit,
		runningLocally: opts.RunningLocally,
		backupDir:      opts.BackupDir,
		confirmTimeout: opts.ConfirmTimeout,
		commands:       make(map[string]Handler),
	}
	if b.prefix == "" {
		b.prefix = "!"
	}
	if b.backupDir == "" {
		b.backupDir = "."
	}
	if b.confirmTimeout == 0 {
		b.confirmTimeout = 10 * time.Second
	}

	b.commands["bobbin"] = b.bobbin
	b.commands["cp"] = b.cp
	b.commands["mv"] = b.mv
	b.commands["pin"] = b.pin
	b.commands["rm"] = b.rm
	b.commands["save"] = b.save
	return b
}

// HandleMessage processes one incoming message. Non-command messages and
// unknown command names are ignored. Command failures are logged and
// reported back to the invoking channel; they never propagate.
func (b *Bot) HandleMessage(ctx context.Context, msg *platform.Message) {
	if !strings.HasPrefix(msg.Content, b.prefix) || len(msg.Content) <= len(b.prefix) {
		return
	}

	fields := strings.Fields(msg.Content)
	name := strings.TrimPrefix(fields[0], b.prefix)
	handler, ok := b.commands[name]
	if !ok {
		return
	}

	channel, err := b.directory.Channel(ctx, msg.ChannelID)
	if err != nil {
		log.Printf("[Bot] Cannot resolve channel %s for command %s: %v", msg.ChannelID, name, err)
		return
	}

	inv := &Invocation{
		Message: msg,
		Channel: channel,
		Guild:   platform.GuildRef{ID: channel.GuildID, Name: channel.GuildName},
		Args:    fields[1:],
	}

	// The invoking message is housekeeping noise; remove it before acting.
	if err := b.messenger.Delete(ctx, channel.ID, msg.ID); err != nil {
		log.Printf("[Bot] Failed to delete invoking message: %v", err)
	}

	if err := b.audit.Write(ctx, b.auditEntry(name, inv)); err != nil {
		log.Printf("[Bot] Failed to audit command %s: %v", name, err)
	}

	if err := handler(ctx, inv); err != nil {
		log.Printf("[Bot] Command %s raised: %v", name, err)
		if _, sendErr := b.messenger.Send(ctx, channel.ID, userMessage(err)); sendErr != nil {
			log.Printf("[Bot] Failed to report command error: %v", sendErr)
		}
	}
}

// auditEntry builds the audit entry for a command, applying the
// placeholder defaults: amt is "all" when the whole channel is affected,
// members is "everyone" when no member was named.
func (b *Bot) auditEntry(name string, inv *Invocation) audit.Entry {
	amt, rest := splitAmt(inv.Args)
	amtStr := "all"
	if amt > 0 {
		amtStr = strconv.Itoa(amt)
	}

	newChannel := ""
	members := "everyone"
	if len(rest) > 0 {
		newChannel = rest[0]
		members = strings.Join(rest, " ")
	}

	return audit.Entry{
		Command:       name,
		Author:        inv.Message.Author,
		AuthorMention: inv.Message.AuthorMention,
		Guild:         inv.Guild,
		Channel:       inv.Channel,
		Args:          inv.Args,
		Amt:           amtStr,
		NewChannel:    newChannel,
		Members:       members,
	}
}

// splitAmt peels an optional leading message count off the arguments.
// A missing or unparsable count means 0, "the whole channel".
func splitAmt(args []string) (int, []string) {
	if len(args) == 0 {
		return 0, args
	}
	amt, err := strconv.Atoi(args[0])
	if err != nil || amt < 0 {
		return 0, args
	}
	return amt, args[1:]
}

// userMessage turns a command error into the text reported back to the
// invoking user.
func userMessage(err error) string {
	var addrErr *address.AddressError
	if errors.As(err, &addrErr) {
		return fmt.Sprintf("Channel not found: %s", addrErr.Raw)
	}
	return fmt.Sprintf("Error: %v", err)
}
