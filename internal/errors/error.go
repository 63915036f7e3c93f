package errors

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Category groups codes by the layer that raises them.
type Category string

const (
	CategoryDiff     Category = "diff"
	CategoryPatch    Category = "patch"
	CategoryProtocol Category = "protocol"
	CategoryConfig   Category = "config"
	CategoryCLI      Category = "cli"
)

// Location is a position in an input file. Column 0 means unknown.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l *Location) String() string {
	switch {
	case l == nil:
		return ""
	case l.Column > 0:
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	default:
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
}

// Error is a coded error. Code, Category, Message and Detail come from the
// registry; the rest is filled in where the error is raised.
type Error struct {
	Code     string
	Category Category
	Message  string
	Detail   string

	// Location and Context describe where in an input file the error is.
	// Context holds source lines starting at line ContextStart.
	Location     *Location
	Context      []string
	ContextStart int

	// Suggestion is a hint on how to fix the problem.
	Suggestion string

	// Wrapped is the cause.
	Wrapped error
}

// Error returns "CODE: Message" followed by the cause, if any.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, New("E102")) tests for a code anywhere in the chain.
func (e *Error) Is(target error) bool {
	var t *Error
	return errors.As(target, &t) && t.Code != "" && t.Code == e.Code
}

// contextRadius is the number of source lines kept on each side of a
// location.
const contextRadius = 2

// WithLocation records where the error is. When file can be read, the
// lines around line are kept for Format.
func (e *Error) WithLocation(file string, line, column int) *Error {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context, e.ContextStart = sourceLines(file, line, contextRadius)
	return e
}

func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetail replaces the registered explanation.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// sourceLines returns up to radius lines on both sides of line and the
// number of the first returned line.
func sourceLines(path string, line, radius int) ([]string, int) {
	data, err := os.ReadFile(path)
	if err != nil || line < 1 {
		return nil, 0
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if line > len(lines) {
		return nil, 0
	}
	lo := max(line-radius, 1)
	hi := min(line+radius, len(lines))
	return lines[lo-1 : hi], lo
}

// New returns a fresh error for a registered code. Unknown codes still
// produce an error, with a generic message.
func New(code string) *Error {
	t, ok := Lookup(code)
	if !ok {
		return &Error{Code: code, Message: "Unknown error"}
	}
	return &Error{Code: code, Category: t.Category, Message: t.Message, Detail: t.Detail}
}

// FromError returns err itself when it is already coded, err wrapped in
// code otherwise, and nil for a nil err.
func FromError(err error, code string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return New(code).Wrap(err)
}

// FromPanic converts a recovered value. Coded errors pass through; other
// errors are wrapped and anything else becomes the detail.
func FromPanic(r any, code string) *Error {
	if err, ok := r.(error); ok {
		return FromError(err, code)
	}
	return New(code).WithDetail(fmt.Sprint(r))
}
