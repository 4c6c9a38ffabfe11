// Package errors provides structured error handling for the lattice engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindBuild indicates a build-time widget error.
	KindBuild
	// KindContract indicates misuse of the framework detected at build time.
	KindContract
	// KindRebuild indicates the rebuild fixpoint did not converge.
	KindRebuild
	// KindLayout indicates a layout feedback loop that did not settle.
	KindLayout
	// KindResource indicates atlas or texture exhaustion.
	KindResource
	// KindDevice indicates a graphics device failure.
	KindDevice
	// KindAsync indicates a background task failure.
	KindAsync
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindConfig indicates an invalid configuration.
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindBuild:
		return "build"
	case KindContract:
		return "contract"
	case KindRebuild:
		return "rebuild"
	case KindLayout:
		return "layout"
	case KindResource:
		return "resource"
	case KindDevice:
		return "device"
	case KindAsync:
		return "async"
	case KindPanic:
		return "panic"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Sentinel errors wrapped by EngineError and ContractError.
var (
	ErrNonConvergentRebuild = errors.New("rebuild did not converge")
	ErrLayoutNonConvergence = errors.New("layout did not converge")
	ErrResourceExhausted    = errors.New("resource exhausted")
	ErrDeviceLost           = errors.New("graphics device lost")
	ErrTaskCancelled        = errors.New("task cancelled")
	ErrQueueFull            = errors.New("queue full")
	ErrQueueClosed          = errors.New("queue closed")
	ErrDuplicateKey         = errors.New("duplicate sibling key")
	ErrWriteDuringRead      = errors.New("state cell written while being read")
	ErrDisposed             = errors.New("use after dispose")
	ErrHookOrder            = errors.New("hooks called in a different order")
)

// Is reports whether any error in err's chain matches target.
// It re-exports the standard library function so callers need a single import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}

// EngineError represents a structured error raised by the engine.
type EngineError struct {
	// Op is the operation that failed (e.g., "core.FlushBuild").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Node identifies the tree node involved, if any.
	Node string
	// Frame is the frame number in which the error occurred.
	Frame uint64
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *EngineError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s [%s] node=%s: %v", e.Op, e.Kind, e.Node, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "engine.HandleEvent").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ContractError reports misuse of the framework, such as duplicate sibling
// keys or writing a cell while it is being read. It is raised with panic
// during build and returned from the build pass.
type ContractError struct {
	// Rule is the violated rule sentinel (ErrDuplicateKey, ErrWriteDuringRead, ...).
	Rule error
	// Detail describes the offending widget or cell.
	Detail string
}

func (e *ContractError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("contract violation: %v", e.Rule)
	}
	return fmt.Sprintf("contract violation: %v: %s", e.Rule, e.Detail)
}

func (e *ContractError) Unwrap() error {
	return e.Rule
}

// BuildError represents a failure during widget build.
type BuildError struct {
	// Widget is the type name of the widget that failed.
	Widget string
	// Node identifies the node being built.
	Node string
	// Recovered is the panic value (nil for regular errors).
	Recovered any
	// Err is the underlying error (nil for panics).
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *BuildError) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("panic in %s.Build(): %v", e.Widget, e.Recovered)
	}
	if e.Err != nil {
		return fmt.Sprintf("error in %s.Build(): %v", e.Widget, e.Err)
	}
	return fmt.Sprintf("unknown error in %s.Build()", e.Widget)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// ErrorHandler receives errors reported by the engine.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *EngineError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
	// HandleBuildError is called when a widget build fails.
	HandleBuildError(err *BuildError)
}
