// Package diagnostics holds the coded compiler messages produced by every
// stage of the pipeline. A compilation fails iff at least one message with
// error severity was recorded; warnings are reported but never block.
package diagnostics

import (
	"fmt"
	"strings"

	"github.com/funvibe/jiffle/internal/token"
)

type ErrorCode string

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Lexer / parser
const (
	ErrL001 ErrorCode = "L001" // illegal character
	ErrP001 ErrorCode = "P001" // unexpected token
	ErrP002 ErrorCode = "P002" // no prefix parse function
	ErrP003 ErrorCode = "P003" // header block after body
	ErrP004 ErrorCode = "P004" // malformed header entry
	ErrP005 ErrorCode = "P005" // invalid assignment target
	ErrP006 ErrorCode = "P006" // generic syntax error
)

// Scoping
const (
	ErrS001 ErrorCode = "S001" // variable used before being assigned
	ErrS002 ErrorCode = "S002" // duplicate declaration
	ErrS003 ErrorCode = "S003" // reading a destination image
	ErrS004 ErrorCode = "S004" // writing a source image
	ErrS005 ErrorCode = "S005" // assignment to loop variable
	ErrS006 ErrorCode = "S006" // assignment to constant
	ErrS007 ErrorCode = "S007" // source image in init block
	ErrS008 ErrorCode = "S008" // image variable on init block LHS
	ErrS009 ErrorCode = "S009" // image position on non-image / destination
	ErrS010 ErrorCode = "S010" // image declared with conflicting roles
	WarnS101 ErrorCode = "S101" // image declared but not used
)

// Type checking
const (
	ErrT001 ErrorCode = "T001" // invalid operation for list variable
	ErrT002 ErrorCode = "T002" // list used as boolean condition
	ErrT003 ErrorCode = "T003" // undefined function
	ErrT004 ErrorCode = "T004" // wrong number of arguments
	ErrT005 ErrorCode = "T005" // list argument to scalar function
	ErrT006 ErrorCode = "T006" // scalar argument to list function
	ErrT007 ErrorCode = "T007" // list assigned to scalar variable
	ErrT008 ErrorCode = "T008" // scalar assigned to list variable
	ErrT009 ErrorCode = "T009" // invalid assignment op with destination image
	ErrT010 ErrorCode = "T010" // image write inside an expression
	ErrT011 ErrorCode = "T011" // unknown option
	ErrT012 ErrorCode = "T012" // invalid option value
	ErrT013 ErrorCode = "T013" // expected scalar value
	ErrT014 ErrorCode = "T014" // expected list value
)

// Lowering
const (
	ErrC001 ErrorCode = "C001" // break / breakif outside loop
	ErrC002 ErrorCode = "C002" // more than one header block of a kind
	ErrC003 ErrorCode = "C003" // indirect evaluator needs exactly one destination
)

var templates = map[ErrorCode]string{
	ErrL001: "illegal character %s",
	ErrP001: "expected %s, got %s",
	ErrP002: "unexpected %s",
	ErrP003: "%s block must appear before any statement",
	ErrP004: "%s",
	ErrP005: "invalid assignment target %s",
	ErrP006: "%s",

	ErrS001:  "variable used before being assigned a value: %s",
	ErrS002:  "duplicate variable declaration: %s",
	ErrS003:  "cannot read a value from a destination image: %s",
	ErrS004:  "cannot assign a value to a non-destination image: %s",
	ErrS005:  "cannot assign a new value to a loop variable: %s",
	ErrS006:  "cannot assign a value to a constant: %s",
	ErrS007:  "source images cannot be referenced in an init block: %s",
	ErrS008:  "a value cannot be assigned to an image var in the init block: %s",
	ErrS009:  "image position cannot be specified for %s",
	ErrS010:  "image %s declared with conflicting roles",
	WarnS101: "image variable is defined but not used: %s",

	ErrT001: "invalid operation for list variable: %s",
	ErrT002: "list used as boolean condition",
	ErrT003: "call to undefined function: %s",
	ErrT004: "wrong number of arguments for %s: got %d",
	ErrT005: "list argument cannot be used with function %s",
	ErrT006: "function %s requires a list argument",
	ErrT007: "cannot assign a list to a scalar variable: %s",
	ErrT008: "cannot assign a scalar to a list variable: %s",
	ErrT009: "invalid assignment op with destination image: %s",
	ErrT010: "destination image %s can only be assigned in a statement",
	ErrT011: "unknown option: %s",
	ErrT012: "invalid value (%s) for option %s",
	ErrT013: "expected a scalar value: %s",
	ErrT014: "expected a list value: %s",

	ErrC001: "%s statement outside of a loop",
	ErrC002: "script has more than one %s block",
	ErrC003: "indirect evaluator requires exactly one destination image, got %d",
}

// DiagnosticError is one compiler message tied to a source token.
type DiagnosticError struct {
	Code     ErrorCode
	Severity Severity
	Token    token.Token
	File     string
	Args     []interface{}
	Hint     string // optional suggestion, e.g. a close function name
}

func NewError(code ErrorCode, tok token.Token, args ...interface{}) *DiagnosticError {
	return &DiagnosticError{Code: code, Severity: SeverityError, Token: tok, Args: args}
}

func NewWarning(code ErrorCode, tok token.Token, args ...interface{}) *DiagnosticError {
	return &DiagnosticError{Code: code, Severity: SeverityWarning, Token: tok, Args: args}
}

// WithHint attaches a suggestion and returns the receiver for chaining.
func (e *DiagnosticError) WithHint(hint string) *DiagnosticError {
	e.Hint = hint
	return e
}

// Message renders the code template without position information.
func (e *DiagnosticError) Message() string {
	tmpl, ok := templates[e.Code]
	if !ok {
		return fmt.Sprint(e.Args...)
	}
	return fmt.Sprintf(tmpl, e.Args...)
}

func (e *DiagnosticError) Error() string {
	var b strings.Builder
	if e.File != "" {
		b.WriteString(e.File)
		b.WriteString(":")
	}
	fmt.Fprintf(&b, "%d:%d: %s %s: %s", e.Token.Line, e.Token.Column, e.Severity, e.Code, e.Message())
	if e.Hint != "" {
		b.WriteString(" (")
		b.WriteString(e.Hint)
		b.WriteString(")")
	}
	return b.String()
}

func (e *DiagnosticError) IsError() bool { return e.Severity == SeverityError }

// HasErrors reports whether any message in list has error severity.
func HasErrors(list []*DiagnosticError) bool {
	for _, d := range list {
		if d.IsError() {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity messages.
func Errors(list []*DiagnosticError) []*DiagnosticError {
	var out []*DiagnosticError
	for _, d := range list {
		if d.IsError() {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns only the warning-severity messages.
func Warnings(list []*DiagnosticError) []*DiagnosticError {
	var out []*DiagnosticError
	for _, d := range list {
		if !d.IsError() {
			out = append(out, d)
		}
	}
	return out
}

// Format renders a list one message per line.
func Format(list []*DiagnosticError) string {
	var b strings.Builder
	for _, d := range list {
		b.WriteString(d.Error())
		b.WriteString("\n")
	}
	return b.String()
}
