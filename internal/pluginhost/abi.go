// Package pluginhost loads ABI-stable plugin modules and dispatches
// user-issued plugin commands to them on detached worker goroutines.
//
// The ABI is realized with Go's standard library "plugin" package: each
// configured path is a shared object exporting three symbols (Init,
// PlName, Handler) matching the function types below — the concrete,
// same-process form of spec.md §6's "stable C-compatible entry table with
// three function pointers". See DESIGN.md for why this was chosen over an
// out-of-process RPC design (cf. the reference-only dullgiulio-pingo and
// reginald plugin hosts in _examples/other_examples).
package pluginhost

import "github.com/sparques/iris-server/internal/proto"

// Reply is the optional success value a plugin Handler may return: a
// target to address, and the text to send it.
type Reply struct {
	Target proto.Target
	Text   string
}

// InitFunc is the "init()" ABI entry point: invoked once at load time.
type InitFunc func()

// PlNameFunc is the "pl_name() -> PluginName" ABI entry point: returns the
// plugin's command prefix.
type PlNameFunc func() string

// HandlerFunc is the "handler(sender, real_name, msg) -> Result<Option<Reply>, string>"
// ABI entry point, invoked once per client PLUGIN command addressed at
// this plugin.
type HandlerFunc func(sender proto.Nick, realName string, pluginName proto.PluginName, args []string) (*Reply, error)

// ABI is the resolved set of entry points for one loaded plugin.
type ABI struct {
	Init    InitFunc
	PlName  PlNameFunc
	Handler HandlerFunc
}
