// Package proto defines the wire-level vocabulary of the chat protocol:
// the validated identifier types, the tagged Command/Target variants, and
// the line parser that turns a raw byte string into one of them.
package proto

import "fmt"

// Nick is a validated nickname: 1-9 ASCII characters, first alphabetic,
// remaining alphanumeric.
type Nick string

// ErrInvalidNick reports a malformed nickname.
var ErrInvalidNick = fmt.Errorf("erroneous nickname")

// ParseNick validates s as a Nick.
func ParseNick(s string) (Nick, error) {
	if !isValidNick(s) {
		return "", ErrInvalidNick
	}
	return Nick(s), nil
}

func isValidNick(s string) bool {
	if len(s) == 0 || len(s) > 9 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if i == 0 {
			if !isAlpha(c) {
				return false
			}
			continue
		}
		if !isAlpha(c) && !isDigit(c) {
			return false
		}
	}
	return true
}

// Channel is a validated channel name: 1-200 ASCII characters, first '#',
// remaining alphanumeric.
type Channel string

// ErrNoSuchChannel reports a malformed channel name.
var ErrNoSuchChannel = fmt.Errorf("no such channel")

// ParseChannel validates s as a Channel.
func ParseChannel(s string) (Channel, error) {
	if !isValidChannel(s) {
		return "", ErrNoSuchChannel
	}
	return Channel(s), nil
}

func isValidChannel(s string) bool {
	if len(s) == 0 || len(s) > 200 {
		return false
	}
	if s[0] != '#' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !isAlpha(c) && !isDigit(c) {
			return false
		}
	}
	return true
}

// PluginName is a validated plugin command prefix: 1-19 ASCII characters,
// first '/', remaining alphanumeric.
type PluginName string

// ErrNoSuchPlugin reports a malformed plugin name.
var ErrNoSuchPlugin = fmt.Errorf("no such plugin")

// ParsePluginName validates s as a PluginName.
func ParsePluginName(s string) (PluginName, error) {
	if !isValidPluginName(s) {
		return "", ErrNoSuchPlugin
	}
	return PluginName(s), nil
}

func isValidPluginName(s string) bool {
	if len(s) == 0 || len(s) > 19 {
		return false
	}
	if s[0] != '/' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !isAlpha(c) && !isDigit(c) {
			return false
		}
	}
	return true
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Target is either a Channel or a Nick, the addressee of a PRIVMSG or a
// plugin reply. Classification happens once, at parse time, based on the
// leading byte; it is not re-validated afterwards.
type Target struct {
	channel Channel
	user    Nick
	isChan  bool
}

// TargetChannel builds a Target addressed at a channel.
func TargetChannel(c Channel) Target {
	return Target{channel: c, isChan: true}
}

// TargetUser builds a Target addressed at a user.
func TargetUser(n Nick) Target {
	return Target{user: n}
}

// ParseTarget classifies a raw string as a channel (if it begins with '#')
// or a user, without validating it any further.
func ParseTarget(raw string) Target {
	if len(raw) > 0 && raw[0] == '#' {
		return TargetChannel(Channel(raw))
	}
	return TargetUser(Nick(raw))
}

// IsChannel reports whether the target is a channel.
func (t Target) IsChannel() bool {
	return t.isChan
}

// Channel returns the channel value. Only meaningful if IsChannel is true.
func (t Target) Channel() Channel {
	return t.channel
}

// User returns the user value. Only meaningful if IsChannel is false.
func (t Target) User() Nick {
	return t.user
}

// String renders the target the way it appears on the wire.
func (t Target) String() string {
	if t.isChan {
		return string(t.channel)
	}
	return string(t.user)
}
