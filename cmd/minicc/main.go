package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tinyrange/minicc/internal/compiler"
)

const usage = "usage: minicc [-o out.s] [-m x86_64|arm] [-T] <file.c>"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var outPath string
	var srcPath string
	var opts compiler.Options
	// Minimal arg parsing supporting flags anywhere
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-o" && i+1 < len(args):
			outPath = args[i+1]
			i++
		case a == "-m" && i+1 < len(args):
			opts.Arch = args[i+1]
			i++
		case a == "-T":
			opts.DumpAST = stderr
		case len(a) > 0 && a[0] == '-':
			fmt.Fprintf(stderr, "unknown flag %s\n%s\n", a, usage)
			return 2
		case srcPath == "":
			srcPath = a
		}
	}
	if srcPath == "" {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	data, err := os.ReadFile(srcPath)
	if err != nil {
		fmt.Fprintf(stderr, "read error: %v\n", err)
		return 1
	}

	// Nothing is written unless the whole file compiles.
	var asm strings.Builder
	if err := compiler.Compile(string(data), &asm, opts); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", srcPath, err)
		return 1
	}

	if outPath == "" {
		fmt.Fprint(stdout, asm.String())
		return 0
	}
	if err := os.WriteFile(outPath, []byte(asm.String()), 0644); err != nil {
		fmt.Fprintf(stderr, "write error: %v\n", err)
		return 1
	}
	return 0
}
