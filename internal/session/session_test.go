package session

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/sparques/iris-server/internal/proto"
	"github.com/sparques/iris-server/internal/registry"
)

type fakeWriter struct {
	mu    sync.Mutex
	lines []string
}

func (w *fakeWriter) WriteLine(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines = append(w.lines, line)
	return nil
}

func (w *fakeWriter) snapshot() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.lines))
	copy(out, w.lines)
	return out
}

type fakeDispatcher struct {
	calls []proto.Command
}

func (d *fakeDispatcher) Dispatch(sender proto.Nick, realName string, cmd proto.Command) {
	d.calls = append(d.calls, cmd)
}

func newTestEnv() (*registry.Registry, *logrus.Logger) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return registry.New(log), log
}

func TestRegistrationAndWelcome(t *testing.T) {
	reg, log := newTestEnv()
	w := &fakeWriter{}
	s := New(reg, nil, log, w)

	s.Handle(proto.Command{Kind: proto.KindNick, Nick: "wiz"})
	if s.Status() != StatusNicked {
		t.Fatalf("status after NICK = %v, wanted Nicked", s.Status())
	}

	s.Handle(proto.Command{Kind: proto.KindUser, RealName: "Ronnie Reagan"})
	if s.Status() != StatusInitialised {
		t.Fatalf("status after USER = %v, wanted Initialised", s.Status())
	}

	lines := w.snapshot()
	if len(lines) != 1 || lines[0] != ":iris-server 001 wiz :Hi Ronnie Reagan, welcome to IRC\r\n" {
		t.Errorf("welcome lines = %v", lines)
	}
}

func TestBadNicknameStaysFresh(t *testing.T) {
	reg, log := newTestEnv()
	w := &fakeWriter{}
	s := New(reg, nil, log, w)

	// Fresh state silently drops anything but NICK/connection-loss; a
	// malformed NICK is a parser-level rejection, exercised here via
	// HandleParseError since Parse itself would have produced the error.
	s.HandleParseError(proto.ErrErroneousNick)
	if s.Status() != StatusFresh {
		t.Fatalf("status after bad nickname = %v, wanted Fresh", s.Status())
	}

	lines := w.snapshot()
	if len(lines) != 1 || lines[0] != ":iris-server 432 :Erroneus nickname\r\n" {
		t.Errorf("lines = %v", lines)
	}
}

func TestNickCollisionTerminatesSession(t *testing.T) {
	reg, log := newTestEnv()
	_ = reg.AddUser("wiz", &fakeWriter{})

	w2 := &fakeWriter{}
	s := New(reg, nil, log, w2)
	s.Handle(proto.Command{Kind: proto.KindNick, Nick: "wiz"})

	if s.Status() != StatusQuit {
		t.Fatalf("status after colliding NICK = %v, wanted Quit", s.Status())
	}
}

func TestJoinSelfNotification(t *testing.T) {
	reg, log := newTestEnv()
	w := &fakeWriter{}
	s := initialisedSession(t, reg, log, w, "wiz")

	s.Handle(proto.Command{Kind: proto.KindJoin, Channel: "#channel"})

	// lines[0] is the welcome from registration.
	lines := w.snapshot()
	if len(lines) != 2 || lines[1] != ":wiz JOIN #channel\r\n" {
		t.Errorf("join lines = %v", lines)
	}
}

func TestPartSilencesBroadcast(t *testing.T) {
	reg, log := newTestEnv()
	w := &fakeWriter{}
	s := initialisedSession(t, reg, log, w, "wiz")
	s.Handle(proto.Command{Kind: proto.KindJoin, Channel: "#channel"})

	s.Handle(proto.Command{Kind: proto.KindPart, Channel: "#channel"})
	s.Handle(proto.Command{Kind: proto.KindPrivMsg, Target: proto.TargetChannel("#channel"), Text: "hello"})
	s.Handle(proto.Command{Kind: proto.KindPing, Origin: "me"})

	lines := w.snapshot()
	// welcome, join, no part broadcast (no members left), an error for the
	// PRIVMSG to the now-empty channel instead of a broadcast, then pong.
	last := lines[len(lines)-1]
	if last != "PONG :me\r\n" {
		t.Errorf("last line = %q, wanted PONG", last)
	}
	for _, l := range lines[:len(lines)-1] {
		if l == ":wiz PRIVMSG #channel :hello\r\n" {
			t.Errorf("unexpected broadcast line survived part: %v", lines)
		}
	}
}

func TestPrivMsgToMissingNickKeepsSessionAlive(t *testing.T) {
	reg, log := newTestEnv()
	w := &fakeWriter{}
	s := initialisedSession(t, reg, log, w, "wiz")

	s.Handle(proto.Command{Kind: proto.KindPrivMsg, Target: proto.TargetUser("ghost"), Text: "hi"})

	if s.Status() != StatusInitialised {
		t.Fatalf("status after PRIVMSG to missing nick = %v, wanted Initialised", s.Status())
	}
	// lines[0] is the welcome from registration.
	lines := w.snapshot()
	if len(lines) != 2 || lines[1] != ":iris-server 401 :No such nick/channel\r\n" {
		t.Errorf("lines = %v", lines)
	}
}

func TestQuitBroadcastsThenRemoves(t *testing.T) {
	reg, log := newTestEnv()
	wa := &fakeWriter{}
	a := initialisedSession(t, reg, log, wa, "a")
	a.Handle(proto.Command{Kind: proto.KindJoin, Channel: "#channel"})

	wb := &fakeWriter{}
	b := initialisedSession(t, reg, log, wb, "b")
	b.Handle(proto.Command{Kind: proto.KindJoin, Channel: "#channel"})

	a.Handle(proto.Command{Kind: proto.KindQuit, QuitMessage: "bye", HasQuitMessage: true})

	if a.Status() != StatusQuit {
		t.Fatalf("status after QUIT = %v, wanted Quit", a.Status())
	}

	lines := wb.snapshot()
	found := false
	for _, l := range lines {
		if l == ":a QUIT :bye\r\n" {
			found = true
		}
	}
	if !found {
		t.Errorf("b did not observe a's quit broadcast: %v", lines)
	}

	if err := reg.AddUserToChannel("a", "#channel"); err != registry.ErrNoSuchNick {
		t.Errorf("a should have been removed from the registry, got %v", err)
	}
}

func TestPluginDispatchedToDispatcher(t *testing.T) {
	reg, log := newTestEnv()
	w := &fakeWriter{}
	disp := &fakeDispatcher{}
	s := New(reg, disp, log, w)
	s.Handle(proto.Command{Kind: proto.KindNick, Nick: "wiz"})
	s.Handle(proto.Command{Kind: proto.KindUser, RealName: "Ronnie Reagan"})

	s.Handle(proto.Command{Kind: proto.KindPlugin, PluginName: "/example", PluginArgs: []string{"hi"}})

	if len(disp.calls) != 1 || disp.calls[0].PluginName != "/example" {
		t.Errorf("dispatcher calls = %v", disp.calls)
	}
}

func TestConnectionLostRemovesRegisteredNick(t *testing.T) {
	reg, log := newTestEnv()
	w := &fakeWriter{}
	s := initialisedSession(t, reg, log, w, "wiz")

	s.HandleConnectionLost()

	if s.Status() != StatusQuit {
		t.Fatalf("status after connection lost = %v, wanted Quit", s.Status())
	}
	if err := reg.AddUser("wiz", &fakeWriter{}); err != nil {
		t.Errorf("nick should be free after connection loss, AddUser returned %v", err)
	}
}

func initialisedSession(t *testing.T, reg *registry.Registry, log *logrus.Logger, w registry.Writer, nick proto.Nick) *Session {
	t.Helper()
	s := New(reg, nil, log, w)
	s.Handle(proto.Command{Kind: proto.KindNick, Nick: nick})
	s.Handle(proto.Command{Kind: proto.KindUser, RealName: "Real Name"})
	if s.Status() != StatusInitialised {
		t.Fatalf("setup: status = %v, wanted Initialised", s.Status())
	}
	return s
}
