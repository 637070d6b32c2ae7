// Package unit holds the state shared by every stage while one
// translation unit is compiled.
package unit

import (
	"errors"
	"fmt"

	"github.com/tinyrange/minicc/internal/symtab"
)

// Error is a compilation error tied to a source line.
type Error struct {
	Line int
	Msg  string
	Err  error // underlying error, if any
}

func (e *Error) Error() string { return fmt.Sprintf("%s on line %d", e.Msg, e.Line) }
func (e *Error) Unwrap() error { return e.Err }

// Context is passed to the parser, generator and backends in place of
// process-wide globals. One context compiles one translation unit.
type Context struct {
	Syms *symtab.Table
	Line int
	// FuncID is the slot of the function being parsed or generated.
	FuncID int

	strings []StringLit
	labels  int
}

func New() *Context {
	return &Context{Syms: symtab.New(), Line: 1, FuncID: -1}
}

// NewLabel returns a label id never handed out before.
func (c *Context) NewLabel() int {
	c.labels++
	return c.labels
}

// Labels reports how many labels have been allocated so far.
func (c *Context) Labels() int { return c.labels }

// AddString interns a string literal and returns the label of its data.
func (c *Context) AddString(s string) int {
	label := c.NewLabel()
	c.strings = append(c.strings, StringLit{Label: label, Value: s})
	return label
}

// StringLit is a string literal and the label its bytes are emitted at.
type StringLit struct {
	Label int
	Value string
}

// Strings returns the string literals in the order they were added.
func (c *Context) Strings() []StringLit {
	return c.strings
}

func (c *Context) Errorf(format string, args ...any) error {
	return &Error{Line: c.Line, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches the current line to err unless it already has one.
func (c *Context) Wrap(err error) error {
	if err == nil {
		return nil
	}
	var ue *Error
	if errors.As(err, &ue) {
		return err
	}
	return &Error{Line: c.Line, Msg: err.Error(), Err: err}
}
