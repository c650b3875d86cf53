package portd

// NoInternalVLAN is the sentinel value for PortState.InternalVLANID when the
// port's hardware config carries no (or a zero) internal_vlan_id.
const NoInternalVLAN = -1

// PortState is the in-memory mirror of one logical port's L3 address state.
// It is owned by its VRF container and keyed there by name; VRFID is a
// stable handle rather than a pointer so rebuilding the VRF map never leaves
// a dangling reference (see the back-reference design note).
//
// A PortState is created with empty secondary sets and no primary addresses.
// StartupReconciler fills it in once at startup; after that, mutation
// happens only through ReconfigEngine.ReconfigureIfModified.
type PortState struct {
	Name string
	VRFID string

	PrimaryV4 string // "" when absent
	PrimaryV6 string // "" when absent

	SecondaryV4 map[string]struct{}
	SecondaryV6 map[string]struct{}

	InternalVLANID int
}

// NewPortState creates an empty PortState for the given port under vrfID.
func NewPortState(name, vrfID string) *PortState {
	return &PortState{
		Name:           name,
		VRFID:          vrfID,
		SecondaryV4:    make(map[string]struct{}),
		SecondaryV6:    make(map[string]struct{}),
		InternalVLANID: NoInternalVLAN,
	}
}

// FindSecondaryV4 reports whether addr is in the secondary IPv4 set.
func (p *PortState) FindSecondaryV4(addr string) bool {
	_, ok := p.SecondaryV4[addr]
	return ok
}

// FindSecondaryV6 reports whether addr is in the secondary IPv6 set.
func (p *PortState) FindSecondaryV6(addr string) bool {
	_, ok := p.SecondaryV6[addr]
	return ok
}

// Contains reports whether addr is present anywhere (primary or secondary)
// for the given family.
func (p *PortState) Contains(addr string, family Family) bool {
	switch family {
	case FamilyV4:
		return p.PrimaryV4 == addr || p.FindSecondaryV4(addr)
	case FamilyV6:
		return p.PrimaryV6 == addr || p.FindSecondaryV6(addr)
	default:
		return false
	}
}

// Primary returns the primary address for family, and whether it is set.
func (p *PortState) Primary(family Family) (string, bool) {
	if family == FamilyV4 {
		return p.PrimaryV4, p.PrimaryV4 != ""
	}
	return p.PrimaryV6, p.PrimaryV6 != ""
}

// SetPrimary stores (or clears, with addr == "") the primary address for family.
func (p *PortState) SetPrimary(family Family, addr string) {
	if family == FamilyV4 {
		p.PrimaryV4 = addr
	} else {
		p.PrimaryV6 = addr
	}
}

// SecondarySet returns the mutable secondary-address set for family, used by
// AddressSetDiff as the "current" argument.
func (p *PortState) SecondarySet(family Family) map[string]struct{} {
	if family == FamilyV4 {
		return p.SecondaryV4
	}
	return p.SecondaryV6
}

// IsEmpty reports whether the port has no addresses of any kind — the state
// a PortState begins and ends its life in.
func (p *PortState) IsEmpty() bool {
	return p.PrimaryV4 == "" && p.PrimaryV6 == "" && len(p.SecondaryV4) == 0 && len(p.SecondaryV6) == 0
}
