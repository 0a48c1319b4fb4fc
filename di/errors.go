package di

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrRegistryNotReady is returned when installation starts before the startup
	// phase (Setup or Registry.Populate) has completed.
	ErrRegistryNotReady = errors.New("di: registry not populated")

	// ErrNilContext is returned when Install, InjectSubtree or Dispose receive a nil
	// context, including a nil pointer of a Context type.
	ErrNilContext = errors.New("di: nil scope context")

	// ErrNilScope is returned when Install receives a nil scope.
	ErrNilScope = errors.New("di: nil scope")

	// ErrScopeClosed is returned when a closed scope is used.
	ErrScopeClosed = errors.New("di: scope closed")

	// ErrScopeNotInstalled is returned by InjectSubtree for a context that has no scope yet.
	ErrScopeNotInstalled = errors.New("di: context has no installed scope")
)

// ResolutionError reports a binder parameter the active scope chain could not resolve.
//
// It names the declaring type, the marked method and the parameter type, and unwraps
// to the container's error.
type ResolutionError struct {
	DeclaringType string
	Method        string
	ParamType     string
	Cause         error
}

// NewResolutionError is called by generated binders.
func NewResolutionError(declaringType, method, paramType string, cause error) *ResolutionError {
	return &ResolutionError{DeclaringType: declaringType, Method: method, ParamType: paramType, Cause: cause}
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	// Example: di: cannot inject arena.Player.Construct: unresolved parameter arena.Announcer: ...
	msg := "di: cannot inject " + e.DeclaringType + "." + e.Method + ": unresolved parameter " + e.ParamType
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the container error.
func (e *ResolutionError) Unwrap() error { return e.Cause }

// InvokeError wraps a non-nil error returned by a marked method.
type InvokeError struct {
	DeclaringType string
	Method        string
	Cause         error
}

// NewInvokeError is called by generated binders.
func NewInvokeError(declaringType, method string, cause error) *InvokeError {
	return &InvokeError{DeclaringType: declaringType, Method: method, Cause: cause}
}

// Error implements the error interface.
func (e *InvokeError) Error() string {
	return "di: " + e.DeclaringType + "." + e.Method + " failed: " + e.Cause.Error()
}

// Unwrap returns the method's error.
func (e *InvokeError) Unwrap() error { return e.Cause }

// BinderPanicError is returned when a binder panics, usually from inside a marked method.
type BinderPanicError struct {
	Node  string
	Value any
}

// Error implements the error interface.
func (e *BinderPanicError) Error() string {
	return "di: binder panicked on node " + strconv.Quote(e.Node) + ": " + fmt.Sprint(e.Value)
}

// ProvideError reports a failed bindings declaration for a scope.
type ProvideError struct {
	Scope string
	Cause error
}

// Error implements the error interface.
func (e *ProvideError) Error() string {
	return "di: bindings for scope " + strconv.Quote(e.Scope) + ": " + e.Cause.Error()
}

// Unwrap returns the underlying declaration error.
func (e *ProvideError) Unwrap() error { return e.Cause }
