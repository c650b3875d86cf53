package portd

import (
	"github.com/newtron-network/portd/pkg/util"
)

// ConnectedRouteWriter projects primary-address changes into connected-route
// CONFIG rows: one route row plus its single nexthop row, keyed by
// (prefix, source=connected, nexthop-port).
type ConnectedRouteWriter struct {
	cfg ConfigReader
}

// NewConnectedRouteWriter constructs a writer over the given CONFIG reader.
func NewConnectedRouteWriter(cfg ConfigReader) *ConnectedRouteWriter {
	return &ConnectedRouteWriter{cfg: cfg}
}

func familyString(family Family) string {
	if family == FamilyV4 {
		return "ipv4"
	}
	return "ipv6"
}

// AddConnectedRoute inserts one route row (and its nexthop) for portName's
// primary address addrText. Looks up the first VRF; if CONFIG has none yet,
// logs and returns ErrNoVRF — the kernel-side address change still proceeds
// in the caller.
func (w *ConnectedRouteWriter) AddConnectedRoute(txn Txn, portName, addrText string, family Family) error {
	vrf, ok, err := w.cfg.FirstVRF()
	if err != nil {
		return err
	}
	if !ok {
		util.WithField("port", portName).Warn("add connected route: no vrf information yet")
		return ErrNoVRF
	}

	prefix, err := MaskedCanonical(family, addrText)
	if err != nil {
		util.WithField("port", portName).Warnf("add connected route: bad prefix %q: %v", addrText, err)
		return err
	}

	row := RouteRow{
		VRF:              vrf.Name,
		AddressFamily:    familyString(family),
		Prefix:           prefix,
		SubAddressFamily: routeSubFamilyUnicast,
		From:             routeFromConnected,
		Distance:         connectedRouteDistance,
		Selected:         true,
		NexthopPort:      portName,
	}
	txn.InsertRoute(row)
	txn.MarkDirty()

	util.WithField("port", portName).Infof("inserted connected route %s via %s", prefix, portName)
	return nil
}

// DeleteConnectedRoute removes the route row (and nexthop) matching
// addrText/portName/family. Returns ErrRouteNotFound if no row matches; the
// kernel operation has already succeeded by the time this is called, so that
// is idempotent from the caller's perspective.
func (w *ConnectedRouteWriter) DeleteConnectedRoute(txn Txn, portName, addrText string, family Family) error {
	vrf, ok, err := w.cfg.FirstVRF()
	if err != nil {
		return err
	}
	if !ok {
		util.WithField("port", portName).Warn("delete connected route: no vrf information yet")
		return ErrNoVRF
	}

	prefix, err := MaskedCanonical(family, addrText)
	if err != nil {
		util.WithField("port", portName).Warnf("delete connected route: bad prefix %q: %v", addrText, err)
		return err
	}

	matched := false
	for _, row := range vrf.Routes {
		if !routeFamilyMatches(row.AddressFamily, family) {
			continue
		}
		if row.Prefix != prefix {
			continue
		}
		if row.From != routeFromConnected {
			continue
		}
		if !subFamilyMatches(row.SubAddressFamily) {
			continue
		}
		if row.NexthopPort != portName {
			continue
		}
		matched = true
		break
	}

	if !matched {
		util.WithField("port", portName).Errorf("connected route not found: %s via %s", prefix, portName)
		return ErrRouteNotFound
	}

	txn.DeleteRoute(vrf.Name, prefix, familyString(family))
	txn.MarkDirty()

	util.WithField("port", portName).Infof("deleted connected route %s via %s", prefix, portName)
	return nil
}
