// Command lox is the REPL / file-runner front end for the core compiler
// and VM (spec §6): it owns argument parsing and I/O, and hands whole
// source buffers to vm.Interpret.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"loxvm/internal/chunk"
	"loxvm/internal/compiler"
	"loxvm/internal/value"
	"loxvm/internal/vm"
)

func main() {
	trace := false
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "-trace" {
		trace = true
		args = args[1:]
	}

	switch len(args) {
	case 0:
		repl(trace)
	case 1:
		runFile(args[0], trace)
	default:
		fmt.Fprintln(os.Stderr, "Usage: lox [-trace] [path]")
		os.Exit(64)
	}
}

func repl(trace bool) {
	machine := vm.New()
	defer machine.Free()

	interactive := isatty.IsTerminal(os.Stdin.Fd())
	scanner := bufio.NewScanner(os.Stdin)

	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := scanner.Text()
		if trace {
			traceCompile(line)
		}
		machine.Interpret(line)
	}
}

func runFile(path string, trace bool) {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not open file \"%s\".\n", path)
		os.Exit(74)
	}

	if trace {
		traceCompile(string(source))
	}

	machine := vm.New()
	defer machine.Free()

	switch machine.Interpret(string(source)) {
	case vm.InterpretCompileError:
		os.Exit(65)
	case vm.InterpretRuntimeError:
		os.Exit(70)
	}
}

// traceCompile exercises the out-of-scope-but-contract-bound disassembler
// interface (spec §6) by compiling source into a throwaway chunk and
// printing it, without affecting the real interpretation pass. Strings
// compiled here are never interned against the real VM's table since the
// chunk is discarded immediately after printing.
func traceCompile(source string) {
	c := chunk.New()
	if compiler.CompileTo(source, c, uninternedStrings{}, os.Stderr) {
		c.Disassemble("trace")
	}
}

type uninternedStrings struct{}

func (uninternedStrings) Intern(chars string) *value.ObjString {
	return value.NewObjString(chars)
}
