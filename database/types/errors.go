//revive:disable-next-line:var-naming // Package name "types" avoids circular imports.
package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the fatal kinds a statement can abort with.
// These can be used with errors.Is() for programmatic error checking.
var (
	// ErrMalformedSpec matches every *SpecError.
	ErrMalformedSpec = errors.New("malformed specification")

	// ErrHalted matches every *HaltError.
	ErrHalted = errors.New("shady sql query, halted")

	// ErrQueryFailed matches every *QueryError.
	ErrQueryFailed = errors.New("query failed")

	// ErrUnknownTable matches every *SchemaError.
	ErrUnknownTable = errors.New("unknown table")

	// ErrReleased is returned once a builder has aborted and released its connector.
	ErrReleased = errors.New("builder connector already released")
)

// SpecError reports a malformed builder call: a bad table spec, values without
// column names, a non-numeric limit and the like. File and Line point at the
// caller of the builder method.
type SpecError struct {
	Op      string
	Message string
	File    string
	Line    int
}

func (e *SpecError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s (at %s:%d)", e.Op, e.Message, e.File, e.Line)
}

// Is makes errors.Is(err, ErrMalformedSpec) hold.
func (e *SpecError) Is(target error) bool {
	return target == ErrMalformedSpec
}

// HaltError is the deliberately terse abort raised when input looks like an
// injection attempt. It carries nothing but a code identifying the check.
type HaltError struct {
	Code int
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("%s (code %d)", ErrHalted.Error(), e.Code)
}

// Is makes errors.Is(err, ErrHalted) hold.
func (e *HaltError) Is(target error) bool {
	return target == ErrHalted
}

// Halt codes.
const (
	HaltWhereColumn = 884
	HaltAlias       = 885
)

// QueryError wraps a connector failure with the statement and call site that triggered it.
type QueryError struct {
	Op   string
	SQL  string
	File string
	Line int
	Err  error
}

func (e *QueryError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v (at %s:%d)", e.Op, e.Err, e.File, e.Line)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrQueryFailed) hold.
func (e *QueryError) Is(target error) bool {
	return target == ErrQueryFailed
}

// SchemaError is returned by Connector.ListColumns for tables it cannot find.
type SchemaError struct {
	Table string
	Err   error
}

func (e *SchemaError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unknown table %q", e.Table)
	}
	return fmt.Sprintf("unknown table %q: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrUnknownTable) hold.
func (e *SchemaError) Is(target error) bool {
	return target == ErrUnknownTable
}
