package pluginhost

import (
	"fmt"
	"plugin"

	"github.com/sirupsen/logrus"

	"github.com/sparques/iris-server/internal/proto"
)

// loadedPlugin pairs a plugin's resolved ABI with its validated name.
type loadedPlugin struct {
	name proto.PluginName
	abi  ABI
}

// Table maps plugin name to loaded plugin, shared read-only between
// connection workers and plugin workers once Load returns: it is mutated
// only at startup. It is a plain Go map and keeps no order; plugins are
// only ever looked up by name.
type Table struct {
	byName map[proto.PluginName]loadedPlugin
}

// Load opens each path in order and indexes surviving plugins by name.
// A path that fails to open, or whose symbols don't match the expected
// signatures, is logged as a warning and skipped rather than aborting
// startup. If two loaded plugins report the same name, the later one in
// the argument list wins and the earlier is dropped with a warning.
func Load(paths []string, log *logrus.Logger) *Table {
	t := &Table{byName: make(map[proto.PluginName]loadedPlugin)}

	for _, path := range paths {
		lp, err := openOne(path)
		if err != nil {
			log.WithField("path", path).WithError(err).Warn("pluginhost: failed to load plugin, skipping")
			continue
		}

		if existing, ok := t.byName[lp.name]; ok {
			log.WithFields(logrus.Fields{
				"plugin": lp.name,
				"path":   path,
			}).Warnf("pluginhost: plugin name %q already loaded, replacing earlier load", existing.name)
		}

		lp.abi.Init()
		t.byName[lp.name] = lp
		log.WithFields(logrus.Fields{"plugin": lp.name, "path": path}).Info("pluginhost: plugin loaded")
	}

	return t
}

func openOne(path string) (loadedPlugin, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return loadedPlugin{}, fmt.Errorf("open: %w", err)
	}

	initSym, err := p.Lookup("Init")
	if err != nil {
		return loadedPlugin{}, fmt.Errorf("lookup Init: %w", err)
	}
	initFn, ok := initSym.(func())
	if !ok {
		return loadedPlugin{}, fmt.Errorf("Init has wrong signature")
	}

	nameSym, err := p.Lookup("PlName")
	if err != nil {
		return loadedPlugin{}, fmt.Errorf("lookup PlName: %w", err)
	}
	nameFn, ok := nameSym.(func() string)
	if !ok {
		return loadedPlugin{}, fmt.Errorf("PlName has wrong signature")
	}

	handlerSym, err := p.Lookup("Handler")
	if err != nil {
		return loadedPlugin{}, fmt.Errorf("lookup Handler: %w", err)
	}
	handlerFn, ok := handlerSym.(func(proto.Nick, string, proto.PluginName, []string) (*Reply, error))
	if !ok {
		return loadedPlugin{}, fmt.Errorf("Handler has wrong signature")
	}

	rawName := nameFn()
	name, err := proto.ParsePluginName(rawName)
	if err != nil {
		return loadedPlugin{}, fmt.Errorf("invalid plugin name %q: %w", rawName, err)
	}

	return loadedPlugin{
		name: name,
		abi:  ABI{Init: initFn, PlName: nameFn, Handler: handlerFn},
	}, nil
}

// NewTableForTesting builds a Table directly from a map of plugin name to
// ABI, bypassing Load/plugin.Open. Exported for other packages' tests that
// need to exercise plugin dispatch without a compiled .so, which a test
// binary cannot produce.
func NewTableForTesting(plugins map[proto.PluginName]ABI) *Table {
	t := &Table{byName: make(map[proto.PluginName]loadedPlugin)}
	for name, abi := range plugins {
		t.byName[name] = loadedPlugin{name: name, abi: abi}
	}
	return t
}

// Lookup returns the ABI registered under name, or false if none is loaded.
func (t *Table) Lookup(name proto.PluginName) (ABI, bool) {
	lp, ok := t.byName[name]
	return lp.abi, ok
}
