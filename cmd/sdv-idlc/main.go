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

// Command sdv-idlc is the front end of the IDL-4.2 compiler: it locates
// IDL sources (expanding any glob patterns on the command line), resolves
// their #include graph, expands macros, evaluates conditional
// compilation, and hands the resulting token stream to a counting sink.
// Code generation itself lives downstream of this front end and is out
// of scope here.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sdv-oss/idlc/internal/collections"
	"github.com/sdv-oss/idlc/internal/idl/env"
	"github.com/sdv-oss/idlc/internal/idl/frontend"
	"github.com/sdv-oss/idlc/internal/idl/sink"
)

const version = "sdv-idlc 1.0.0"

func main() {
	logger := log.New(os.Stderr, "sdv-idlc: ", 0)
	if err := run(os.Args[1:], logger); err != nil {
		logger.Fatal(err)
	}
}

func run(args []string, logger *log.Logger) error {
	fs := flag.NewFlagSet("sdv-idlc", flag.ContinueOnError)
	opts, positional, err := parseCLIOptions(fs, args)
	if err != nil {
		return err
	}

	if opts.showVersion {
		fmt.Println(version)
		return nil
	}
	if len(positional) == 0 {
		fs.Usage()
		return fmt.Errorf("at least one IDL file or glob pattern is required")
	}

	files, err := expandFilePatterns(positional)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no IDL files matched %v", positional)
	}

	e := buildEnvironment(opts)

	for _, file := range files {
		if opts.verbose {
			logger.Printf("compiling %s", file)
		}
		out := sink.NewCountingSink(logger)
		if err := frontend.Compile(file, e.Clone(), out); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		if !opts.silent {
			logger.Printf("%s: %d tokens", file, out.Total)
		}
	}
	return nil
}

// expandFilePatterns resolves every positional argument as a doublestar
// glob against the working directory, preserving arguments that are
// already literal existing paths even if they contain no wildcard.
func expandFilePatterns(patterns []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			if _, statErr := os.Stat(pattern); statErr == nil {
				matches = []string{pattern}
			}
		}
		fresh := collections.FilterSlice(matches, func(m string) bool {
			if seen[m] {
				return false
			}
			seen[m] = true
			return true
		})
		files = append(files, fresh...)
	}
	return files, nil
}

func buildEnvironment(opts *cliOptions) *env.Environment {
	e := env.New()
	for _, dir := range opts.includeDirs.values {
		e.AddIncludeDir(dir)
	}
	for _, d := range opts.defines.values {
		if err := e.DefineFromCLI(d); err != nil {
			log.Printf("ignoring invalid -D %q: %v", d, err)
		}
	}
	e.SetResolveConst(opts.resolveConst)
	e.SetNoProxyStub(opts.noProxyStub)
	e.SetExtensionFlags(env.Flags{
		InterfaceType:         opts.extensions.interfaceType,
		ExceptionType:         opts.extensions.exceptionType,
		PointerType:           opts.extensions.pointerType,
		UnicodeChar:           opts.extensions.unicodeChar,
		CaseSensitive:         opts.extensions.caseSensitive,
		ContextNames:          opts.extensions.contextNames,
		MultiDimensionalArray: opts.extensions.multiDimensionalArray,
	})
	if opts.psLibName != "" {
		_ = e.SetOption("ps_lib_name", opts.psLibName)
	}
	_ = e.SetOption("out_dir", opts.outDir)
	return e
}
