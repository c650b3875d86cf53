package portd

// This file defines the CONFIG contract: the schema-level shape of the port
// and route rows the core reads and writes, and the Txn interface the core
// appends operations to. The CONFIG client itself — transactions, change
// notification, column-modified tracking — is an external collaborator (see
// the store subpackage for the concrete Redis-backed realization); this file
// only states what the core depends on.

// PortRow is the CONFIG-side view of one logical port, per the schema
// dependency: name, primary/secondary v4+v6 addresses, and a hardware-config
// derived internal VLAN id.
type PortRow struct {
	Name                   string
	IP4Address             string // "" when absent
	IP6Address             string // "" when absent
	IP4AddressSecondary    []string
	IP6AddressSecondary    []string
	InternalVLANID         int // NoInternalVLAN when the hw-config key is absent or zero
}

// RouteRow is a CONFIG route row. AddressFamily is "" for legacy rows with a
// NULL family column — preserved verbatim because delete-matching treats a
// NULL family as IPv4 but never as IPv6 (see routeFamilyMatches).
type RouteRow struct {
	VRF              string
	AddressFamily    string // "ipv4", "ipv6", or "" (NULL)
	Prefix           string // canonical addr/len
	SubAddressFamily string // "unicast", or "" (NULL)
	From             string // "connected" for rows this core owns
	Distance         int
	Selected         bool
	NexthopPort      string // the single nexthop row's single port reference
}

// routeFamilyMatches implements the NULL-family matching asymmetry from the
// delete-connected-route scan: a NULL address_family is treated as IPv4 for
// legacy rows, but never matches an IPv6 lookup.
func routeFamilyMatches(rowFamily string, family Family) bool {
	if rowFamily == "" {
		return family == FamilyV4
	}
	if family == FamilyV4 {
		return rowFamily == "ipv4"
	}
	return rowFamily == "ipv6"
}

// subFamilyMatches implements "sub-family is NULL or unicast" matching on
// delete, while add always writes "unicast" — the documented asymmetry kept
// for backward compatibility with older route rows (see design notes).
func subFamilyMatches(sub string) bool {
	return sub == "" || sub == "unicast"
}

const (
	routeFromConnected      = "connected"
	routeSubFamilyUnicast   = "unicast"
	connectedRouteDistance  = 0
)

// VRFView is a single VRF's port and route rows as the core needs to see
// them: a typed snapshot rather than a live cursor, per the CONFIG-iterators
// design note — callers build one per reconciliation pass or startup run to
// get deterministic enumeration order.
type VRFView struct {
	Name   string
	Ports  []PortRow
	Routes []RouteRow
}

// ConfigReader is the read side of the CONFIG contract: first-VRF lookup (VRF
// multiplexing resolves to a single default VRF) and the column-modified
// signal the host provides for the current reconciliation pass.
type ConfigReader interface {
	// FirstVRF returns the first VRF record, or ok=false if CONFIG has no VRF
	// yet.
	FirstVRF() (VRFView, bool, error)

	// AllVRFs returns every VRF's typed snapshot, for StartupReconciler.
	AllVRFs() ([]VRFView, error)

	// ColumnModified reports whether the named column changed for port in
	// the current pass. The core only consults this for the two
	// secondary-address columns.
	ColumnModified(port, column string) bool
}

// Txn is the write side of the CONFIG contract: the core only appends
// operations and marks the transaction dirty. Commit is the host's
// responsibility.
type Txn interface {
	InsertRoute(row RouteRow)
	DeleteRoute(vrf, prefix, family string) // identifies the row to remove
	MarkDirty()
}
