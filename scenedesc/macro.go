package scenedesc

import "github.com/lumenray/lumenray/internal/rlog"

// MacroTable resolves `define` statements against command-line `-D
// k=v` overrides, grounded on scene_parser.cpp's `_parse_define`:
// overrides always win, and a warning is logged whenever a local
// definition is shadowed by one or redefines an earlier local one.
type MacroTable struct {
	overrides map[string]string
	locals    map[string]string
}

// NewMacroTable seeds a table with the command-line `-D k=v`
// overrides, which take precedence over every in-file `define`.
func NewMacroTable(overrides map[string]string) *MacroTable {
	m := &MacroTable{overrides: make(map[string]string), locals: make(map[string]string)}
	for k, v := range overrides {
		m.overrides[k] = v
	}
	return m
}

// Define registers an in-file macro. If the name is already
// overridden on the command line, the override wins and a warning is
// logged; if the name was already defined locally, the new value
// replaces it and a warning is logged.
func (m *MacroTable) Define(name, value string) {
	if _, shadowed := m.overrides[name]; shadowed {
		rlog.Get().Warn("macro '" + name + "' is shadowed by a command-line definition and will be ignored")
		return
	}
	if _, exists := m.locals[name]; exists {
		rlog.Get().Warn("redefinition of macro '" + name + "'")
	}
	m.locals[name] = value
}

// Lookup resolves a macro name, command-line overrides first.
func (m *MacroTable) Lookup(name string) (string, bool) {
	if v, ok := m.overrides[name]; ok {
		return v, true
	}
	v, ok := m.locals[name]
	return v, ok
}
