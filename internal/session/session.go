// Package session implements the per-connection protocol state machine:
// Fresh -> Nicked -> Initialised -> Quit.
//
// Grounded on sparques-hamirc/irc/commands.go's cmdSet dispatch-table idiom,
// generalized into a single dispatch on (state, command): Handle switches on
// the session's state, then on the command's kind, and performs that
// transition's registry calls and replies directly.
package session

import (
	"github.com/sirupsen/logrus"

	"github.com/sparques/iris-server/internal/proto"
	"github.com/sparques/iris-server/internal/registry"
	"github.com/sparques/iris-server/internal/wire"
)

// Status tags which state a Session is in.
type Status int

// Session states.
const (
	StatusFresh Status = iota
	StatusNicked
	StatusInitialised
	StatusQuit
)

// PluginDispatcher is invoked for a Plugin command issued while
// Initialised. It must not block the caller — implementations run the
// plugin handler on a detached worker (see internal/pluginhost).
type PluginDispatcher interface {
	Dispatch(sender proto.Nick, realName string, cmd proto.Command)
}

// Session holds the state of one connection and drives it through legal
// transitions. It is not safe for concurrent use; exactly one goroutine
// (the connection worker) should own a Session.
type Session struct {
	status   Status
	nick     proto.Nick
	realName string
	writer   registry.Writer

	reg    *registry.Registry
	plugin PluginDispatcher
	log    *logrus.Logger
}

// New creates a Fresh session. writer is the connection's writer, captured
// now because the registry only knows about it from AddUser onward.
func New(reg *registry.Registry, plugin PluginDispatcher, log *logrus.Logger, writer registry.Writer) *Session {
	return &Session{
		status: StatusFresh,
		writer: writer,
		reg:    reg,
		plugin: plugin,
		log:    log,
	}
}

// Status returns the session's current state.
func (s *Session) Status() Status { return s.status }

// Nick returns the session's registered nick, or "" if none yet.
func (s *Session) Nick() proto.Nick { return s.nick }

// replyDirect writes reply to the session's writer: the registry (once a
// nick is registered) or, in Fresh state, the writer captured at
// construction time.
func (s *Session) replyDirect(reply wire.Reply) {
	if s.nick != "" {
		if err := s.reg.WriteToUser(s.nick, reply); err != nil {
			s.log.WithField("nick", s.nick).WithError(err).Warn("session: write to self failed")
		}
		return
	}
	if err := s.writer.WriteLine(wire.Format(reply)); err != nil {
		s.log.WithError(err).Warn("session: write to fresh connection failed")
	}
}

// HandleParseError reports a parse failure (bad identifier, unknown
// command, missing parameter) to the client without advancing state, per
// spec.md §4.3's error policy.
func (s *Session) HandleParseError(code proto.ErrorCode) {
	s.replyDirect(wire.Error(code))
}

// Handle applies cmd to the session's current state, performing whatever
// registry mutation and/or reply the (state, command) transition table
// calls for. Any (state, command) pair not covered by the table is
// silently dropped: no reply, no transition.
func (s *Session) Handle(cmd proto.Command) {
	switch s.status {
	case StatusFresh:
		s.handleFresh(cmd)
	case StatusNicked:
		s.handleNicked(cmd)
	case StatusInitialised:
		s.handleInitialised(cmd)
	case StatusQuit:
		// Terminal; nothing left to dispatch.
	}
}

func (s *Session) handleFresh(cmd proto.Command) {
	if cmd.Kind != proto.KindNick {
		return
	}
	if err := s.reg.AddUser(cmd.Nick, s.writer); err != nil {
		// Registration-phase registry failure terminates the session.
		s.replyDirect(wire.Error(proto.ErrNicknameInUse))
		s.status = StatusQuit
		return
	}
	s.nick = cmd.Nick
	s.status = StatusNicked
}

func (s *Session) handleNicked(cmd proto.Command) {
	if cmd.Kind != proto.KindUser {
		return
	}
	s.status = StatusInitialised
	s.replyDirect(wire.Welcome(s.nick, "Hi "+cmd.RealName+", welcome to IRC"))
	s.realName = cmd.RealName
}

func (s *Session) handleInitialised(cmd proto.Command) {
	switch cmd.Kind {
	case proto.KindPing:
		s.replyDirect(wire.Pong(cmd.Origin))

	case proto.KindPrivMsg:
		reply := wire.PrivMsg(cmd.Target, cmd.Text, s.nick)
		if err := s.reg.Write(cmd.Target, reply); err != nil {
			s.replyDirect(wire.Error(proto.ErrNoSuchNick))
		}

	case proto.KindJoin:
		if err := s.reg.AddUserToChannel(s.nick, cmd.Channel); err != nil {
			s.replyDirect(wire.Error(proto.ErrNoSuchChan))
			return
		}
		if err := s.reg.WriteToChannel(cmd.Channel, wire.Join(cmd.Channel, s.nick)); err != nil {
			s.log.WithField("channel", cmd.Channel).WithError(err).Debug("session: join broadcast")
		}

	case proto.KindPart:
		if err := s.reg.RemoveUserFromChannel(s.nick, cmd.Channel); err != nil {
			s.replyDirect(wire.Error(proto.ErrNoSuchChan))
			return
		}
		if err := s.reg.WriteToChannel(cmd.Channel, wire.Part(cmd.Channel, s.nick)); err != nil {
			s.log.WithField("channel", cmd.Channel).WithError(err).Debug("session: part broadcast")
		}

	case proto.KindQuit:
		s.reg.WriteToUsersChannel(s.nick, wire.Quit(cmd.QuitMessage, cmd.HasQuitMessage, s.nick))
		s.reg.RemoveUser(s.nick)
		s.status = StatusQuit

	case proto.KindPlugin:
		if s.plugin != nil {
			s.plugin.Dispatch(s.nick, s.realName, cmd)
		}
	}
}

// HandleConnectionLost is called when the reader reports EOF or an I/O
// error. If the session owns a registered nick, it is removed from the
// registry. The session transitions to Quit.
func (s *Session) HandleConnectionLost() {
	if s.nick != "" {
		s.reg.RemoveUser(s.nick)
	}
	s.status = StatusQuit
}
