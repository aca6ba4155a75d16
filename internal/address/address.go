// Package address parses and resolves Guild@Channel references.
//
// A composite address refers to a channel either in the current guild
// ("general") or in another guild hilda is also present in
// ("ServerB@random"). Resolution is a two-stage fallback: first a lookup
// relative to the current guild, then, only when the address carries an
// explicit guild qualifier, a lookup of that guild followed by a scan of
// its channels.
package address

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mbyx/hilda/internal/platform"
)

// Stage identifies which resolution stage an address failed at.
type Stage string

const (
	// StageLocal is the lookup relative to the current guild.
	StageLocal Stage = "local"

	// StageCross is the cross-guild fallback.
	StageCross Stage = "cross-guild"
)

// Address is a parsed composite address. Guild is empty and Qualified is
// false for a bare channel name, which addresses the current guild.
type Address struct {
	Guild     string
	Channel   string
	Qualified bool // raw input contained an '@'
}

// Parse splits a raw address on '@'. With no '@' the whole string is the
// channel name. With one or more, the first two segments are the guild and
// channel; anything after a second '@' is ignored, since names cannot
// contain '@' and there is no escaping.
func Parse(raw string) Address {
	if !strings.Contains(raw, "@") {
		return Address{Channel: raw}
	}
	parts := strings.SplitN(raw, "@", 3)
	return Address{Guild: parts[0], Channel: parts[1], Qualified: true}
}

// String returns the canonical textual form of the address.
func (a Address) String() string {
	if !a.Qualified {
		return a.Channel
	}
	return a.Guild + "@" + a.Channel
}

// Resolve turns a raw address into a channel reference.
//
// The local attempt passes the full raw string to the current guild's
// channel lookup; the platform can sometimes resolve a qualified path
// relative to "here", for example when the qualifier names the guild the
// command ran in. Only when that fails and the address carries an explicit
// guild does resolution fall through to finding the named guild and
// scanning its channels for an exact, case-sensitive name match (first
// match wins). At most two directory lookups happen per call; a failed
// lookup is terminal, with no retries.
func Resolve(ctx context.Context, raw string, current platform.GuildRef, dir platform.Directory) (*platform.Channel, error) {
	addr := Parse(raw)

	ch, err := dir.FindChannel(ctx, current.ID, raw)
	if err == nil {
		return ch, nil
	}
	if !addr.Qualified {
		return nil, &AddressError{Raw: raw, Stage: StageLocal, Err: err}
	}

	guild, err := dir.FindGuild(ctx, addr.Guild)
	if err != nil {
		return nil, &AddressError{Raw: raw, Stage: StageCross, Err: err}
	}

	channels, err := dir.ChannelsOf(ctx, guild.ID)
	if err != nil {
		return nil, &AddressError{Raw: raw, Stage: StageCross, Err: err}
	}
	for _, ch := range channels {
		if ch.Name == addr.Channel {
			return ch, nil
		}
	}

	return nil, &AddressError{
		Raw:   raw,
		Stage: StageCross,
		Err:   fmt.Errorf("no channel named %q in guild %q", addr.Channel, addr.Guild),
	}
}

// AddressError reports a resolution failure with the original input and
// the stage it failed at. Never fatal: the bot surfaces it to the invoking
// user as a command failure.
type AddressError struct {
	Raw   string
	Stage Stage
	Err   error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("cannot resolve channel %q (%s lookup): %v", e.Raw, e.Stage, e.Err)
}

func (e *AddressError) Unwrap() error {
	return e.Err
}

// IsAddressError checks if an error is an AddressError.
func IsAddressError(err error) bool {
	var addrErr *AddressError
	return errors.As(err, &addrErr)
}
