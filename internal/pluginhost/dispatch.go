package pluginhost

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sparques/iris-server/internal/proto"
	"github.com/sparques/iris-server/internal/registry"
	"github.com/sparques/iris-server/internal/wire"
)

// Dispatcher runs plugin commands on detached worker goroutines so a slow
// or blocking plugin handler cannot stall the connection that invoked it.
//
// Each dispatch is a plain, untracked goroutine: the handler panic is
// caught by invoke's own recover(), which is the entirety of spec.md §7's
// "handler panics" handling. An earlier version launched these through
// sourcegraph/conc's pool.Go, but nothing in the dispatch path ever calls
// Wait() on the pool, so its panic-catch/re-propagate machinery never ran —
// invoke's recover() always intercepted the panic first. That made the
// dependency decorative, so it was dropped in favor of this plain form.
type Dispatcher struct {
	table *Table
	reg   *registry.Registry
	log   *logrus.Logger
}

// NewDispatcher builds a Dispatcher over an already-loaded plugin Table.
func NewDispatcher(table *Table, reg *registry.Registry, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		table: table,
		reg:   reg,
		log:   log,
	}
}

// Dispatch spawns a detached worker to execute cmd's plugin handler and
// route its reply back through the registry. It returns immediately.
func (d *Dispatcher) Dispatch(sender proto.Nick, realName string, cmd proto.Command) {
	name := cmd.PluginName
	args := cmd.PluginArgs

	go d.run(sender, realName, name, args)
}

func (d *Dispatcher) run(sender proto.Nick, realName string, name proto.PluginName, args []string) {
	abi, ok := d.table.Lookup(name)
	if !ok {
		d.sendPlain(sender, fmt.Sprintf("Plugin %s not found", name))
		return
	}

	reply, err := d.invoke(abi, sender, realName, name, args)
	if err != nil {
		d.sendPlain(sender, fmt.Sprintf("Plugin (Name: %s) Exception: %s", name, err))
		return
	}
	if reply == nil {
		return
	}

	// Best-effort: a failed delivery of a plugin's own reply is not
	// reported back to the sender (spec.md §4.4 step 5).
	if err := d.reg.Write(reply.Target, wire.Plugin(reply.Target, reply.Text)); err != nil {
		d.log.WithFields(logrus.Fields{"plugin": name, "sender": sender}).
			WithError(err).Debug("pluginhost: best-effort reply delivery failed")
	}
}

// invoke calls the plugin handler, converting a panic into the same
// failure-string path a returned error would take.
func (d *Dispatcher) invoke(abi ABI, sender proto.Nick, realName string, name proto.PluginName, args []string) (reply *Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return abi.Handler(sender, realName, name, args)
}

func (d *Dispatcher) sendPlain(sender proto.Nick, text string) {
	if err := d.reg.WriteRawToUser(sender, text+"\r\n"); err != nil {
		d.log.WithField("sender", sender).WithError(err).Warn("pluginhost: failed to deliver plugin error to sender")
	}
}
