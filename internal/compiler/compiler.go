// Package compiler ties the parser, generator and a backend together
// into a single pass over one translation unit.
package compiler

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tinyrange/minicc/internal/ast"
	"github.com/tinyrange/minicc/internal/codegen"
	"github.com/tinyrange/minicc/internal/codegen/arm"
	"github.com/tinyrange/minicc/internal/codegen/x86_64"
	"github.com/tinyrange/minicc/internal/parser"
	"github.com/tinyrange/minicc/internal/unit"
)

// DefaultArch is used when Options.Arch is empty.
const DefaultArch = "x86_64"

type Options struct {
	Arch string
	// DumpAST, when set, receives each function's tree before it is
	// generated.
	DumpAST io.Writer
}

type backendFunc func(w io.Writer, ctx *unit.Context) codegen.Backend

var backends = map[string]backendFunc{
	"x86_64": func(w io.Writer, ctx *unit.Context) codegen.Backend { return x86_64.New(w, ctx) },
	"arm":    func(w io.Writer, ctx *unit.Context) codegen.Backend { return arm.New(w, ctx) },
}

var aliases = map[string]string{
	"amd64":  "x86_64",
	"x86-64": "x86_64",
	"armv6":  "arm",
}

// Arches lists the target names Compile accepts, aliases excluded.
func Arches() []string {
	var out []string
	for name := range backends {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func lookup(arch string) (backendFunc, error) {
	if arch == "" {
		arch = DefaultArch
	}
	arch = strings.ToLower(arch)
	if canon, ok := aliases[arch]; ok {
		arch = canon
	}
	fn, ok := backends[arch]
	if !ok {
		return nil, fmt.Errorf("unknown target %q (want one of %s)", arch, strings.Join(Arches(), ", "))
	}
	return fn, nil
}

// Compile translates src into assembly for opts.Arch and writes it to
// w. Each call compiles with fresh state. On error the output written
// so far is incomplete.
func Compile(src string, w io.Writer, opts Options) error {
	newBackend, err := lookup(opts.Arch)
	if err != nil {
		return err
	}
	ctx := unit.New()
	gen := codegen.New(newBackend(w, ctx), ctx)
	p := parser.New(src, ctx)

	gen.Begin()
	for {
		fn, err := p.NextFunction()
		if err != nil {
			return err
		}
		if fn == nil {
			break
		}
		if opts.DumpAST != nil {
			ast.Dump(opts.DumpAST, fn, ctx.Syms)
		}
		if err := gen.Generate(fn); err != nil {
			return err
		}
		ctx.Syms.FreeLocals()
	}
	return gen.Finish()
}
