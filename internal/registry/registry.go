// Package registry implements the process-wide, concurrency-safe table of
// active nicknames, their writers, and channel membership.
//
// Grounded on sparques-hamirc/irc/server.go's Server (a *sync.Mutex guarding
// Users/Channels maps) and irc/channel.go's Channel (its own *sync.Mutex),
// generalized into the three-map shape spec.md §3 calls for and split out
// of the connection/session type entirely, since the spec treats the
// registry as its own component.
package registry

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sparques/iris-server/internal/proto"
	"github.com/sparques/iris-server/internal/wire"
)

// Writer is a serialized, line-at-a-time handle to a client's connection.
// Implementations must serialize concurrent WriteLine calls themselves so
// that no line is interleaved mid-line with another.
type Writer interface {
	WriteLine(line string) error
}

// ErrNickCollision is returned by AddUser when the nick is already taken.
var ErrNickCollision = fmt.Errorf("nick-collision")

// ErrNoSuchNick is returned by operations addressed at an unregistered nick.
var ErrNoSuchNick = fmt.Errorf("no-such-nick")

// ErrNoSuchChannel is returned by WriteToChannel for a channel with no
// membership entry.
var ErrNoSuchChannel = fmt.Errorf("no-such-channel")

// Registry is the shared user/channel table. The zero value is not usable;
// construct with New. Safe for concurrent use by many goroutines.
type Registry struct {
	mu sync.Mutex

	writers         map[proto.Nick]Writer
	usersPerChannel map[proto.Channel]map[proto.Nick]struct{}
	channelsPerUser map[proto.Nick]map[proto.Channel]struct{}

	log *logrus.Logger
}

// New constructs an empty Registry.
func New(log *logrus.Logger) *Registry {
	return &Registry{
		writers:         make(map[proto.Nick]Writer),
		usersPerChannel: make(map[proto.Channel]map[proto.Nick]struct{}),
		channelsPerUser: make(map[proto.Nick]map[proto.Channel]struct{}),
		log:             log,
	}
}

// AddUser registers nick with the given writer. Fails with
// ErrNickCollision if nick is already registered.
func (r *Registry) AddUser(nick proto.Nick, w Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.writers[nick]; exists {
		return ErrNickCollision
	}
	r.writers[nick] = w
	r.log.WithField("nick", nick).Debug("registry: user added")
	return nil
}

// RemoveUser idempotently removes nick: drops its writer, removes it from
// every channel it belonged to, and clears its channel membership entry.
func (r *Registry) RemoveUser(nick proto.Nick) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeUserLocked(nick)
}

func (r *Registry) removeUserLocked(nick proto.Nick) {
	for ch := range r.channelsPerUser[nick] {
		if members := r.usersPerChannel[ch]; members != nil {
			delete(members, nick)
			if len(members) == 0 {
				delete(r.usersPerChannel, ch)
			}
		}
	}
	delete(r.channelsPerUser, nick)
	delete(r.writers, nick)
	r.log.WithField("nick", nick).Debug("registry: user removed")
}

// AddUserToChannel requires nick be registered and updates both sides of
// the membership mapping. A no-op if nick is already a member of channel.
func (r *Registry) AddUserToChannel(nick proto.Nick, channel proto.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.writers[nick]; !exists {
		return ErrNoSuchNick
	}

	members := r.usersPerChannel[channel]
	if members == nil {
		members = make(map[proto.Nick]struct{})
		r.usersPerChannel[channel] = members
	}
	members[nick] = struct{}{}

	channels := r.channelsPerUser[nick]
	if channels == nil {
		channels = make(map[proto.Channel]struct{})
		r.channelsPerUser[nick] = channels
	}
	channels[channel] = struct{}{}

	return nil
}

// RemoveUserFromChannel requires nick be registered and removes it from
// both sides of the membership mapping. A no-op if the pair is absent.
func (r *Registry) RemoveUserFromChannel(nick proto.Nick, channel proto.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.writers[nick]; !exists {
		return ErrNoSuchNick
	}

	if members := r.usersPerChannel[channel]; members != nil {
		delete(members, nick)
		if len(members) == 0 {
			delete(r.usersPerChannel, channel)
		}
	}
	if channels := r.channelsPerUser[nick]; channels != nil {
		delete(channels, channel)
		if len(channels) == 0 {
			delete(r.channelsPerUser, nick)
		}
	}
	return nil
}

// WriteToUser looks up nick's writer and writes the formatted reply to it.
// The registry lock is held for the full lookup-and-write, per spec.md §5:
// a write is part of the registry operation, not a follow-up step performed
// after releasing the lock.
func (r *Registry) WriteToUser(nick proto.Nick, reply wire.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, exists := r.writers[nick]
	if !exists {
		return ErrNoSuchNick
	}
	return w.WriteLine(wire.Format(reply))
}

// WriteRawToUser looks up nick's writer and writes line verbatim (no
// formatting applied), for callers that already have a wire-ready string —
// e.g. the plugin host's own plain-text error lines (spec.md §4.4 steps
// 1 and 3), which are not instances of any Reply variant. Lock held for the
// full lookup-and-write, as in WriteToUser.
func (r *Registry) WriteRawToUser(nick proto.Nick, line string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, exists := r.writers[nick]
	if !exists {
		return ErrNoSuchNick
	}
	return w.WriteLine(line)
}

// WriteToChannel writes reply to every current member of channel. Fails
// with ErrNoSuchChannel if the channel has no membership entry. Per-member
// write failures are collected; the first one observed is returned after
// every member has been attempted. The registry lock is held across the
// whole broadcast (snapshot and every member write), per spec.md §5 and
// sparques-hamirc/irc/server.go's joinChannel, which holds s.Lock() across
// its entire broadcast loop: otherwise two concurrent broadcasts to
// overlapping membership could interleave their per-member deliveries.
func (r *Registry) WriteToChannel(channel proto.Channel, reply wire.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.usersPerChannel[channel]
	if members == nil {
		return ErrNoSuchChannel
	}

	line := wire.Format(reply)
	var firstErr error
	for n := range members {
		w := r.writers[n]
		if w == nil {
			continue
		}
		if err := w.WriteLine(line); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("write to %s: %w", n, err)
		}
	}
	return firstErr
}

// Write dispatches on target's variant to WriteToUser or WriteToChannel.
func (r *Registry) Write(target proto.Target, reply wire.Reply) error {
	if target.IsChannel() {
		return r.WriteToChannel(target.Channel(), reply)
	}
	return r.WriteToUser(target.User(), reply)
}

// WriteToUsersChannel broadcasts reply to every channel nick belongs to.
// A no-op if nick belongs to none.
func (r *Registry) WriteToUsersChannel(nick proto.Nick, reply wire.Reply) {
	r.mu.Lock()
	channels := make([]proto.Channel, 0, len(r.channelsPerUser[nick]))
	for ch := range r.channelsPerUser[nick] {
		channels = append(channels, ch)
	}
	r.mu.Unlock()

	for _, ch := range channels {
		if err := r.WriteToChannel(ch, reply); err != nil {
			r.log.WithFields(logrus.Fields{"channel": ch, "nick": nick}).
				WithError(err).Warn("registry: broadcast to user's channel failed")
		}
	}
}
