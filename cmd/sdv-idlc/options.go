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

package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// stringList collects repeated occurrences of a flag (e.g. -I, -D) into
// an ordered slice, matching the reference compiler's ability to pass
// multiple include directories and macro definitions on one command
// line.
type stringList struct{ values []string }

func (s *stringList) String() string { return strings.Join(s.values, ",") }
func (s *stringList) Set(v string) error {
	s.values = append(s.values, v)
	return nil
}

// extensionFlag is one toggleable extension-flag pair on the command
// line: --name and --no-name both write into the same bool, letting
// either spelling win depending on which was given last.
type extensionFlag struct {
	name   string
	help   string
	target *bool
}

// extensionFlagSet is the full set of paired --X/--no-X extension flags
// sdv-idlc accepts, each defaulting to enabled.
type extensionFlagSet struct {
	interfaceType         bool
	exceptionType         bool
	pointerType           bool
	unicodeChar           bool
	caseSensitive         bool
	contextNames          bool
	multiDimensionalArray bool
}

func newExtensionFlagSet() extensionFlagSet {
	return extensionFlagSet{
		interfaceType:         true,
		exceptionType:         true,
		pointerType:           true,
		unicodeChar:           true,
		caseSensitive:         true,
		contextNames:          true,
		multiDimensionalArray: true,
	}
}

func (ext *extensionFlagSet) register(fs *flag.FlagSet) {
	pairs := []extensionFlag{
		{"interface_type", "accept the interface_id/interface_t extension keywords", &ext.interfaceType},
		{"exception_type", "accept the exception_id extension keyword", &ext.exceptionType},
		{"pointer_type", "accept the pointer/null extension keywords", &ext.pointerType},
		{"unicode_char", "accept the char16/char32/u8string/u16string/u32string extension keywords", &ext.unicodeChar},
		{"case_sensitive", "require exact case for reserved words", &ext.caseSensitive},
		{"context_names", "accept named #context declarations", &ext.contextNames},
		{"multi_dimensional_array", "accept array declarators with more than one dimension", &ext.multiDimensionalArray},
	}
	for _, p := range pairs {
		target := p.target
		fs.BoolFunc(p.name, p.help, func(s string) error {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			*target = v
			return nil
		})
		fs.BoolFunc("no-"+p.name, "disable -"+p.name, func(s string) error {
			v, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			*target = !v
			return nil
		})
	}
}

// disableAll forces every extension off, for -strict.
func (ext *extensionFlagSet) disableAll() {
	*ext = extensionFlagSet{}
}

// cliOptions holds every flag sdv-idlc accepts, parsed once in main.
type cliOptions struct {
	includeDirs  stringList
	defines      stringList
	outDir       string
	resolveConst bool
	noProxyStub  bool
	psLibName    string
	strict       bool
	silent       bool
	verbose      bool
	showVersion  bool
	extensions   extensionFlagSet
}

func parseCLIOptions(fs *flag.FlagSet, args []string) (*cliOptions, []string, error) {
	opts := &cliOptions{extensions: newExtensionFlagSet()}
	fs.Var(&opts.includeDirs, "I", "add a directory to the include search path (repeatable)")
	fs.Var(&opts.defines, "D", "define a macro as NAME, NAME=VALUE, or NAME(params)=VALUE (repeatable)")
	fs.StringVar(&opts.outDir, "O", ".", "output directory for generated files")
	fs.BoolVar(&opts.resolveConst, "resolve_const", false, "fold constant expressions at compile time instead of exporting them verbatim")
	fs.BoolVar(&opts.noProxyStub, "no_ps", false, "suppress proxy/stub code generation")
	fs.StringVar(&opts.psLibName, "ps_lib_name", "", "target name for the generated proxy/stub cmake library")
	fs.BoolVar(&opts.strict, "strict", false, "disable every extension flag, for a bare IDL-4.2 build")
	fs.BoolVar(&opts.silent, "s", false, "suppress non-error output")
	fs.BoolVar(&opts.silent, "silent", false, "suppress non-error output")
	fs.BoolVar(&opts.verbose, "v", false, "enable verbose logging")
	fs.BoolVar(&opts.verbose, "verbose", false, "enable verbose logging")
	fs.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	opts.extensions.register(fs)

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if opts.silent && opts.verbose {
		return nil, nil, fmt.Errorf("-silent and -verbose are mutually exclusive")
	}
	if opts.strict {
		opts.extensions.disableAll()
	}
	return opts, fs.Args(), nil
}
