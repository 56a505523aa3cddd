// Package faults defines the closed set of failure kinds raised by the
// scraping and query layers. Components raise a specifically kinded fault;
// only the session protocol translates kinds into user-facing signals.
package faults

import (
	"errors"
	"fmt"
)

// Kind enumerates the failure categories the rest of the system dispatches on.
type Kind int

const (
	// KindUnknown covers unexpected failures (network errors, bugs). These are
	// caught at the protocol boundary and surfaced as generic error signals.
	KindUnknown Kind = iota

	// KindTabNotFound means no active tab matches the target domain or URL
	// shape. Recoverable by the user switching tabs; surfaced as info.
	KindTabNotFound

	// KindNotLoggedIn means the required session cookie is absent. Surfaced
	// as info prompting the user to log in.
	KindNotLoggedIn

	// KindAppStructureChanged means a fixed assumption about the target app's
	// markup, bundle format, or API envelope no longer holds. Not recoverable
	// without maintenance; surfaced as an error with diagnostic detail.
	KindAppStructureChanged
)

// String returns the stable name of the kind, matching the signal names the
// UI dispatches on.
func (k Kind) String() string {
	switch k {
	case KindTabNotFound:
		return "TabNotFoundError"
	case KindNotLoggedIn:
		return "TwitterNotLoggedInError"
	case KindAppStructureChanged:
		return "TwitterWebAppBreakingChangeError"
	default:
		return "UnknownError"
	}
}

// Fault is a tagged failure. It carries a kind for boundary dispatch and a
// message with diagnostic detail, and optionally wraps a lower-level cause.
type Fault struct {
	Knd   Kind
	Msg   string
	Cause error
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Knd, f.Msg, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Knd, f.Msg)
}

func (f *Fault) Unwrap() error { return f.Cause }

// New creates a fault of the given kind.
func New(kind Kind, format string, args ...any) *Fault {
	return &Fault{Knd: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a fault of the given kind around an underlying cause. If the
// cause is already a Fault its kind wins; faults propagate unchanged through
// layers that only add context.
func Wrap(kind Kind, cause error, format string, args ...any) *Fault {
	if f := asFault(cause); f != nil {
		return &Fault{Knd: f.Knd, Msg: fmt.Sprintf(format, args...), Cause: cause}
	}
	return &Fault{Knd: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// TabNotFound is shorthand for New(KindTabNotFound, ...).
func TabNotFound(format string, args ...any) *Fault {
	return New(KindTabNotFound, format, args...)
}

// NotLoggedIn is shorthand for New(KindNotLoggedIn, ...).
func NotLoggedIn(format string, args ...any) *Fault {
	return New(KindNotLoggedIn, format, args...)
}

// AppStructureChanged is shorthand for New(KindAppStructureChanged, ...).
func AppStructureChanged(format string, args ...any) *Fault {
	return New(KindAppStructureChanged, format, args...)
}

// KindOf reports the kind of err, unwrapping as needed. Non-fault errors
// (and nil) report KindUnknown.
func KindOf(err error) Kind {
	if f := asFault(err); f != nil {
		return f.Knd
	}
	return KindUnknown
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func asFault(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return nil
}
