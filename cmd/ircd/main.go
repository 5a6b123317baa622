// Command ircd runs the iris-server chat daemon.
//
// Grounded on sparques-hamirc/main.go's shape (parse flags, construct the
// server, wire signal-triggered shutdown, Serve), with spf13/pflag swapped
// in for stdlib flag to get a repeatable --plugins flag, and logrus swapped
// in for the bare log package (see SPEC_FULL.md §4.7).
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/sparques/iris-server/internal/ircd"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		plugins  []string
		logLevel string
	)
	pflag.StringArrayVar(&plugins, "plugins", nil, "path to a plugin module (repeatable)")
	pflag.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pflag.Parse()

	ipAddress := "127.0.0.1"
	port := "6991"
	if args := pflag.Args(); len(args) > 0 {
		ipAddress = args[0]
		if len(args) > 1 {
			port = args[1]
		}
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --log-level %q: %s\n", logLevel, err)
		return 1
	}
	log.SetLevel(level)

	srv := ircd.New(plugins, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(fmt.Sprintf("%s:%s", ipAddress, port))
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.WithError(err).Error("ircd: fatal error, exiting")
		return 1
	case s := <-sig:
		log.WithField("signal", s).Info("ircd: shutting down")
		return 0
	}
}
