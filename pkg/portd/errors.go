// Package portd implements the L3 address-and-route reconciliation core: it
// drives kernel interface/address state to match a CONFIG store, projects
// directly-connected routes back into CONFIG, and reconciles the two on
// daemon startup.
package portd

import (
	"errors"
	"fmt"
)

// Sentinel errors for the reconciliation core's error taxonomy. Every
// operation below returns one of these (or a typed error unwrapping to one)
// rather than a bare string, so the engine can centralize log-and-continue
// handling without string matching.
var (
	// ErrBadPrefix is returned by the prefix codec when an address/length pair
	// cannot be parsed for its family.
	ErrBadPrefix = errors.New("bad prefix")

	// ErrNoSuchInterface is returned when an interface name does not resolve
	// to a kernel interface index.
	ErrNoSuchInterface = errors.New("no such interface")

	// ErrKernelIO is returned when a routing-socket send or receive fails.
	// Callers log and rely on the next reconciliation pass to retry.
	ErrKernelIO = errors.New("kernel channel i/o error")

	// ErrBufferFull is reserved for parity with the §7 taxonomy; the
	// hand-rolled message buffer it described is gone now that netlink.go
	// builds requests through vishvananda/netlink, so no path returns it.
	ErrBufferFull = errors.New("netlink message buffer full")

	// ErrNoVRF is returned when CONFIG has no VRF yet to host a connected
	// route. The kernel-side address change still proceeds.
	ErrNoVRF = errors.New("no vrf information yet")

	// ErrRouteNotFound is returned when DeleteConnectedRoute finds no
	// matching row. The kernel operation has already succeeded, so this is
	// idempotent from the caller's point of view.
	ErrRouteNotFound = errors.New("connected route not found")

	// ErrDuplicateSecondary names the case where the same address appears
	// twice in a desired secondary-address set. The first occurrence wins;
	// AddressSetDiff reports each repeat through its onDuplicate callback
	// and the reconciliation path only logs it, so no path returns this value.
	ErrDuplicateSecondary = errors.New("duplicate address in secondary list")

	// ErrBadArgument is returned for malformed operation arguments, e.g. an
	// admin-status string other than "up"/"down".
	ErrBadArgument = errors.New("bad argument")
)

// PrefixError carries the offending text alongside ErrBadPrefix.
type PrefixError struct {
	Family Family
	Text   string
	Reason string
}

func (e *PrefixError) Error() string {
	return fmt.Sprintf("bad prefix %q for family %s: %s", e.Text, e.Family, e.Reason)
}

func (e *PrefixError) Unwrap() error { return ErrBadPrefix }

func newPrefixError(family Family, text, reason string) *PrefixError {
	return &PrefixError{Family: family, Text: text, Reason: reason}
}

// InterfaceError names the interface that failed to resolve.
type InterfaceError struct {
	Name string
}

func (e *InterfaceError) Error() string {
	return fmt.Sprintf("no such interface: %s", e.Name)
}

func (e *InterfaceError) Unwrap() error { return ErrNoSuchInterface }

// KernelIOError wraps the underlying syscall failure with the operation that
// triggered it.
type KernelIOError struct {
	Op  string
	Err error
}

func (e *KernelIOError) Error() string {
	return fmt.Sprintf("kernel channel: %s: %v", e.Op, e.Err)
}

func (e *KernelIOError) Unwrap() error { return ErrKernelIO }

func newKernelIOError(op string, err error) *KernelIOError {
	return &KernelIOError{Op: op, Err: err}
}
