package ircd

import (
	"net"

	"github.com/sirupsen/logrus"

	"github.com/sparques/iris-server/internal/pluginhost"
	"github.com/sparques/iris-server/internal/proto"
	"github.com/sparques/iris-server/internal/registry"
	"github.com/sparques/iris-server/internal/session"
)

// Server owns the shared registry and plugin host and accepts connections
// on a single TCP listener, spawning one worker goroutine per connection.
type Server struct {
	reg    *registry.Registry
	plugin *pluginhost.Dispatcher
	log    *logrus.Logger
}

// New constructs a Server. pluginPaths are loaded once, at construction
// time, per spec.md §4.4's startup lifecycle.
func New(pluginPaths []string, log *logrus.Logger) *Server {
	reg := registry.New(log)
	table := pluginhost.Load(pluginPaths, log)
	dispatcher := pluginhost.NewDispatcher(table, reg, log)

	return &Server{
		reg:    reg,
		plugin: dispatcher,
		log:    log,
	}
}

// Serve accepts connections on addr until the listener is closed or
// Accept returns a fatal error. It never returns nil on a bind failure.
func (s *Server) Serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	s.log.WithField("addr", addr).Info("ircd: listening")
	return s.serveListener(ln)
}

// serveListener runs the accept loop over an already-bound listener, so
// tests can bind an ephemeral port themselves and learn its address before
// the server starts accepting.
func (s *Server) serveListener(ln net.Listener) error {
	for {
		nc, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConnection(nc)
	}
}

func (s *Server) handleConnection(nc net.Conn) {
	defer nc.Close()

	c := newConn(nc)
	sess := session.New(s.reg, s.plugin, s.log, c)

	log := s.log.WithField("remote_addr", nc.RemoteAddr().String())
	log.Info("ircd: connection accepted")

	for sess.Status() != session.StatusQuit {
		line, err := c.ReadLine()
		if line != "" {
			s.dispatchLine(sess, line, log)
		}
		if err != nil {
			sess.HandleConnectionLost()
			log.Debug("ircd: connection closed")
			return
		}
	}
}

func (s *Server) dispatchLine(sess *session.Session, line string, log *logrus.Entry) {
	cmd, err := proto.Parse(line)
	if err != nil {
		if perr, ok := err.(*proto.ParseError); ok {
			sess.HandleParseError(perr.Code)
		}
		return
	}
	log.WithField("nick", sess.Nick()).Debug("ircd: command dispatched")
	sess.Handle(cmd)
}
