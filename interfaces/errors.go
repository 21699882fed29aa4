package interfaces

import (
	"errors"
	"fmt"
)

// FaultKind classifies the faults surfaced to RPC callers.
type FaultKind int

const (
	// FaultNotSupported is raised when the requested negotiation algorithm is not registered.
	FaultNotSupported FaultKind = iota + 1

	// FaultInvalidArgs is raised for malformed or mistyped arguments, and for session
	// paths that do not resolve to a session owned by the caller.
	FaultInvalidArgs

	// FaultIsLocked is raised when an operation needs an unlocked item.
	FaultIsLocked
)

// D-Bus error names of the fault kinds. The HTTP binding reuses them so clients of
// either transport see the same names.
const (
	NotSupportedErrorName = "org.freedesktop.DBus.Error.NotSupported"
	InvalidArgsErrorName  = "org.freedesktop.DBus.Error.InvalidArgs"
	IsLockedErrorName     = "org.freedesktop.Secret.Error.IsLocked"
)

// Name returns the wire error name of the fault kind.
func (k FaultKind) Name() string {
	switch k {
	case FaultNotSupported:
		return NotSupportedErrorName
	case FaultInvalidArgs:
		return InvalidArgsErrorName
	case FaultIsLocked:
		return IsLockedErrorName
	default:
		return "org.freedesktop.DBus.Error.Failed"
	}
}

// String returns a short name for logs and metric labels.
func (k FaultKind) String() string {
	switch k {
	case FaultNotSupported:
		return "not_supported"
	case FaultInvalidArgs:
		return "invalid_args"
	case FaultIsLocked:
		return "is_locked"
	default:
		return "unknown"
	}
}

// FaultKindFromName maps a wire error name back to its kind.
func FaultKindFromName(name string) (FaultKind, bool) {
	switch name {
	case NotSupportedErrorName:
		return FaultNotSupported, true
	case InvalidArgsErrorName:
		return FaultInvalidArgs, true
	case IsLockedErrorName:
		return FaultIsLocked, true
	default:
		return 0, false
	}
}

// Fault is an error surfaced verbatim to the RPC caller. Faults are terminal for
// the triggering call and are never retried.
type Fault struct {
	Kind    FaultKind
	Message string
}

// Error returns the human-readable message.
func (f *Fault) Error() string {
	if f.Message == "" {
		return f.Kind.Name()
	}
	return f.Message
}

// Is matches any fault of the same kind, so callers can test with the sentinels:
//
//	errors.Is(err, interfaces.ErrIsLocked)
func (f *Fault) Is(target error) bool {
	var other *Fault
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == f.Kind
}

var (
	// ErrNotSupported matches every NotSupported fault.
	ErrNotSupported = &Fault{Kind: FaultNotSupported}

	// ErrInvalidArgs matches every InvalidArgs fault.
	ErrInvalidArgs = &Fault{Kind: FaultInvalidArgs}

	// ErrIsLocked matches every IsLocked fault.
	ErrIsLocked = &Fault{Kind: FaultIsLocked}
)

// NotSupported creates a NotSupported fault.
func NotSupported(format string, args ...any) error {
	return &Fault{Kind: FaultNotSupported, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgs creates an InvalidArgs fault.
func InvalidArgs(format string, args ...any) error {
	return &Fault{Kind: FaultInvalidArgs, Message: fmt.Sprintf(format, args...)}
}

// IsLocked creates an IsLocked fault.
func IsLocked(format string, args ...any) error {
	return &Fault{Kind: FaultIsLocked, Message: fmt.Sprintf(format, args...)}
}

// AsFault extracts the fault from an error chain.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
