// Copyright 2025 EngFlow Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package env holds the per-compilation-unit state shared by the
// preprocessor and the lexer: include search paths, macro definitions,
// and the code-generation flags and options surfaced to the rest of the
// compiler through the ICompilerOption-style accessors.
package env

import (
	"strings"

	"github.com/sdv-oss/idlc/internal/collections"
	"github.com/sdv-oss/idlc/internal/idl/ierrors"
	"github.com/sdv-oss/idlc/internal/idl/macro"
)

// recognizedOptions is the closed set of option names the environment
// accepts through SetOption/GetOption, mirroring the reference
// compiler's ICompilerOption surface.
var recognizedOptions = map[string]struct{}{
	"out_dir":     {},
	"dev_env_dir": {},
	"filename":    {},
	"file_path":   {},
	"code_gen":    {},
	"ps_lib_name": {},
}

// Flags is the front end's extension-flag surface: each toggle switches
// one optional IDL-4.2 extension on or off, independently of the others.
// Every flag defaults to true (DefaultFlags); -strict on the command
// line turns all seven off at once for a bare-grammar build.
type Flags struct {
	InterfaceType         bool // interface_id, interface_t extension keywords
	ExceptionType         bool // exception_id extension keyword
	PointerType           bool // pointer, null extension keywords
	UnicodeChar           bool // char16, char32, u8string, u16string, u32string extension keywords
	CaseSensitive         bool // reserved words require exact case to classify as keywords
	ContextNames          bool // named #context declarations
	MultiDimensionalArray bool // array declarators with more than one dimension
}

// DefaultFlags returns every extension enabled.
func DefaultFlags() Flags {
	return Flags{
		InterfaceType:         true,
		ExceptionType:         true,
		PointerType:           true,
		UnicodeChar:           true,
		CaseSensitive:         true,
		ContextNames:          true,
		MultiDimensionalArray: true,
	}
}

// Environment is the mutable state threaded through preprocessing of one
// or more related files: include directories, macro definitions, and
// named options/flags set from the command line.
type Environment struct {
	includeDirs []string
	macros      *macro.Store

	options  map[string][]string
	flags    map[string]bool
	extFlags Flags

	resolveConst bool
	noProxyStub  bool
}

// New returns an Environment with the default extension flags.
func New() *Environment {
	return &Environment{
		macros:   macro.NewStore(),
		options:  make(map[string][]string),
		flags:    make(map[string]bool),
		extFlags: DefaultFlags(),
	}
}

// Clone returns an independent copy of e, for compiling a sibling file
// without the two compilations' macro tables interfering with one
// another. Included files are compiled with their includer's own
// Environment, not a clone.
func (e *Environment) Clone() *Environment {
	clone := &Environment{
		includeDirs:  append([]string(nil), e.includeDirs...),
		macros:       e.macros.Clone(),
		options:      make(map[string][]string, len(e.options)),
		flags:        make(map[string]bool, len(e.flags)),
		extFlags:     e.extFlags,
		resolveConst: e.resolveConst,
		noProxyStub:  e.noProxyStub,
	}
	for k, v := range e.options {
		clone.options[k] = append([]string(nil), v...)
	}
	for k, v := range e.flags {
		clone.flags[k] = v
	}
	return clone
}

// SetExtensionFlags replaces the environment's extension-flag set.
func (e *Environment) SetExtensionFlags(f Flags) { e.extFlags = f }

// ExtensionFlags returns the environment's current extension-flag set.
func (e *Environment) ExtensionFlags() Flags { return e.extFlags }

// Macros returns the macro store backing this environment.
func (e *Environment) Macros() *macro.Store { return e.macros }

// AddIncludeDir appends dir to the local include-search path, in the
// order directories should be tried. Repeating a directory already on
// the path is a no-op, since search order for the first occurrence
// already determines where it would be found.
func (e *Environment) AddIncludeDir(dir string) {
	if collections.ToSet(e.includeDirs).Contains(dir) {
		return
	}
	e.includeDirs = append(e.includeDirs, dir)
}

// IncludeDirs returns the configured include-search path, in search
// order.
func (e *Environment) IncludeDirs() []string {
	return append([]string(nil), e.includeDirs...)
}

// DefineFromCLI parses a "-D"-style definition of the form NAME,
// NAME=VALUE, or NAME(params)=VALUE and installs it as an object-like or
// function-like macro respectively.
func (e *Environment) DefineFromCLI(definition string) error {
	def, err := parseCLIMacro(definition)
	if err != nil {
		return err
	}
	return e.macros.Define(def)
}

func parseCLIMacro(definition string) (macro.Definition, error) {
	name := definition
	value := ""
	if eq := strings.IndexByte(definition, '='); eq >= 0 {
		name, value = definition[:eq], definition[eq+1:]
	}

	var params []string
	functionLike := false
	variadic := false
	if lp := strings.IndexByte(name, '('); lp >= 0 {
		if !strings.HasSuffix(name, ")") {
			return macro.Definition{}, ierrors.New(ierrors.KindLex, ierrors.NoPosition, "malformed macro parameter list in %q", definition)
		}
		functionLike = true
		paramList := name[lp+1 : len(name)-1]
		name = name[:lp]
		if strings.TrimSpace(paramList) != "" {
			for _, p := range strings.Split(paramList, ",") {
				p = strings.TrimSpace(p)
				if p == "..." {
					variadic = true
				}
				params = append(params, p)
			}
		}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return macro.Definition{}, ierrors.New(ierrors.KindLex, ierrors.NoPosition, "empty macro name in %q", definition)
	}

	body := []string{"1"}
	if value != "" {
		body = strings.Fields(value)
	}

	return macro.Definition{
		Name:         name,
		FunctionLike: functionLike,
		Params:       params,
		Variadic:     variadic,
		Body:         body,
	}, nil
}

// RemoveDefinition undefines a macro by name. It is a no-op if the macro
// is not defined.
func (e *Environment) RemoveDefinition(name string) { e.macros.Undef(name) }

// Defined reports whether name is currently a defined macro.
func (e *Environment) Defined(name string) bool { return e.macros.Defined(name) }

// SetFlag toggles a boolean code-generation flag (e.g. suppressing a
// category of generated code for one backend).
func (e *Environment) SetFlag(name string, value bool) { e.flags[name] = value }

// Flag returns a boolean flag's current value, defaulting to false.
func (e *Environment) Flag(name string) bool { return e.flags[name] }

// SetResolveConst toggles whether constant expressions should be folded
// at compile time rather than exported verbatim to the generated code.
func (e *Environment) SetResolveConst(v bool) { e.resolveConst = v }

// ResolveConst reports whether constant expressions should be resolved.
func (e *Environment) ResolveConst() bool { return e.resolveConst }

// SetNoProxyStub toggles suppression of proxy/stub code generation.
func (e *Environment) SetNoProxyStub(v bool) { e.noProxyStub = v }

// NoProxyStub reports whether proxy/stub generation is suppressed.
func (e *Environment) NoProxyStub() bool { return e.noProxyStub }

// SetOption appends a value to a named, multi-valued option. Setting an
// option outside recognizedOptions is rejected with a usage error,
// resolving the front end's open question about unknown options in
// favor of rejecting rather than silently ignoring them.
func (e *Environment) SetOption(name, value string) error {
	if _, ok := recognizedOptions[name]; !ok {
		return ierrors.New(ierrors.KindInternal, ierrors.NoPosition, "unrecognized option %q", name)
	}
	e.options[name] = append(e.options[name], value)
	return nil
}

// GetOption returns the first value of a named option, or "" if unset.
func (e *Environment) GetOption(name string) string {
	if vs := e.options[name]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// GetOptionN returns the value at index of a named, multi-valued option.
func (e *Environment) GetOptionN(name string, index int) string {
	vs := e.options[name]
	if index < 0 || index >= len(vs) {
		return ""
	}
	return vs[index]
}

// GetOptionCount returns how many values are set for a named option.
func (e *Environment) GetOptionCount(name string) int { return len(e.options[name]) }
