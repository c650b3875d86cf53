package portd

import (
	"github.com/newtron-network/portd/pkg/util"
)

const (
	columnIP4Secondary = "ip4_address_secondary"
	columnIP6Secondary = "ip6_address_secondary"
)

// addressSetter is the slice of KernelChannel that address reconciliation
// depends on. Narrowing to an interface here keeps ReconfigEngine and
// StartupReconciler testable against a fake without a live routing socket.
type addressSetter interface {
	SetAddress(op AddrOp, ifname string, addrText string, family Family, secondary bool) error
}

// ReconfigEngine diffs a PortState against the CONFIG port row it mirrors
// and issues kernel operations plus connected-route updates. One engine is
// shared by every port; it holds no per-port state of its own.
type ReconfigEngine struct {
	kernel addressSetter
	routes *ConnectedRouteWriter
}

// NewReconfigEngine constructs an engine over the given kernel channel and
// connected-route writer.
func NewReconfigEngine(kernel addressSetter, routes *ConnectedRouteWriter) *ReconfigEngine {
	return &ReconfigEngine{kernel: kernel, routes: routes}
}

// reconcilePrimary implements the four-way primary-address transition table:
// both set and differing (replace), state empty and CONFIG set (add),
// CONFIG empty and state set (remove), both empty (no-op).
//
// Comparison is raw string equality — canonicalisation is not performed
// before comparing, so a cosmetically different but semantically identical
// string is treated as a change. This is a deliberate fidelity choice (see
// design notes on address comparison), not an oversight.
func (e *ReconfigEngine) reconcilePrimary(txn Txn, state *PortState, row PortRow, family Family, configAddr string) {
	current, hasCurrent := state.Primary(family)

	switch {
	case configAddr != "" && hasCurrent && configAddr != current:
		e.delPrimary(txn, state, row.Name, family, current)
		state.SetPrimary(family, configAddr)
		e.addPrimary(txn, state, row.Name, family, configAddr)

	case configAddr != "" && !hasCurrent:
		state.SetPrimary(family, configAddr)
		e.addPrimary(txn, state, row.Name, family, configAddr)

	case configAddr == "" && hasCurrent:
		e.delPrimary(txn, state, row.Name, family, current)
		state.SetPrimary(family, "")

	default:
		// both set and equal, or both empty: no-op
	}
}

func (e *ReconfigEngine) addPrimary(txn Txn, state *PortState, portName string, family Family, addr string) {
	if err := e.kernel.SetAddress(AddrAdd, portName, addr, family, false); err != nil {
		util.WithField("port", portName).Warnf("add primary %s failed: %v", addr, err)
	}
	if err := e.routes.AddConnectedRoute(txn, portName, addr, family); err != nil {
		util.WithField("port", portName).Debugf("connected route not written for %s: %v", addr, err)
	}
}

func (e *ReconfigEngine) delPrimary(txn Txn, state *PortState, portName string, family Family, addr string) {
	if err := e.kernel.SetAddress(AddrDel, portName, addr, family, false); err != nil {
		util.WithField("port", portName).Warnf("delete primary %s failed: %v", addr, err)
	}
	if err := e.routes.DeleteConnectedRoute(txn, portName, addr, family); err != nil {
		util.WithField("port", portName).Debugf("connected route not removed for %s: %v", addr, err)
	}
}

// reconcileSecondary diffs the secondary-address set for one family, DEL
// before ADD, and never touches connected routes. The caller is expected to
// have already gated this on the column-modified signal;
// ReconfigureIfModified below makes that check.
func (e *ReconfigEngine) reconcileSecondary(state *PortState, row PortRow, family Family, column string, desired []string) {
	current := state.SecondarySet(family)

	onRemove := func(addr string) {
		if err := e.kernel.SetAddress(AddrDel, row.Name, addr, family, true); err != nil {
			util.WithField("port", row.Name).Warnf("delete secondary %s failed: %v", addr, err)
		}
	}
	onAdd := func(addr string) {
		if err := e.kernel.SetAddress(AddrAdd, row.Name, addr, family, true); err != nil {
			util.WithField("port", row.Name).Warnf("add secondary %s failed: %v", addr, err)
		}
	}
	onDuplicate := func(addr string) {
		util.WithField("port", row.Name).Warnf("duplicate address in secondary list: %s", addr)
	}

	AddressSetDiff(desired, current, onRemove, onAdd, onDuplicate)
}

// ReconfigureIfModified is the entry point the host main loop calls: it only
// runs the secondary-address diff when the corresponding column was
// reported modified for this pass, per the column-modified signal contract.
// Primary-address handling always runs — there is no column gate for it in
// the source.
func (e *ReconfigEngine) ReconfigureIfModified(txn Txn, cfg ConfigReader, state *PortState, row PortRow) {
	e.reconcilePrimary(txn, state, row, FamilyV4, row.IP4Address)
	e.reconcilePrimary(txn, state, row, FamilyV6, row.IP6Address)

	if cfg.ColumnModified(row.Name, columnIP4Secondary) {
		e.reconcileSecondary(state, row, FamilyV4, columnIP4Secondary, row.IP4AddressSecondary)
	}
	if cfg.ColumnModified(row.Name, columnIP6Secondary) {
		e.reconcileSecondary(state, row, FamilyV6, columnIP6Secondary, row.IP6AddressSecondary)
	}

	state.InternalVLANID = row.InternalVLANID
}
