package portd

import (
	"github.com/newtron-network/portd/pkg/util"
)

// StartupReconciler runs once, before the main event loop begins. It dumps
// kernel addresses, reads every CONFIG L3 port, computes the symmetric
// difference per interface, and issues the minimum kernel mutations to
// converge. It does not synthesize connected routes: those are created only
// through the main loop's add-primary path (see the route-republication
// design decision recorded alongside this type).
type StartupReconciler struct {
	kernel kernelDumper
	cfg    ConfigReader
}

// kernelDumper is the slice of KernelChannel that startup reconciliation
// depends on: the address-set operation plus the initial dump.
type kernelDumper interface {
	addressSetter
	DumpAddresses(family Family) (map[string]*KernelPort, error)
}

// NewStartupReconciler constructs a reconciler over the given kernel channel
// and CONFIG reader.
func NewStartupReconciler(kernel kernelDumper, cfg ConfigReader) *StartupReconciler {
	return &StartupReconciler{kernel: kernel, cfg: cfg}
}

// VRFPortStates is the per-VRF result of a startup run: the port map ready
// to hand to the main loop, pre-populated ("already-cached") with every
// port the reconciler converged.
type VRFPortStates map[string]*PortState

// Run performs the full startup sequence and returns, per VRF name, the
// PortState map the main loop's ReconfigEngine should operate on from then
// on. Ports it could not match to a CONFIG row are left out entirely — the
// daemon never re-derives state for a port CONFIG doesn't know about.
func (s *StartupReconciler) Run() (map[string]VRFPortStates, error) {
	kernelPorts, err := s.dumpKernelPorts()
	if err != nil {
		return nil, err
	}

	vrfs, err := s.cfg.AllVRFs()
	if err != nil {
		return nil, err
	}

	result := make(map[string]VRFPortStates, len(vrfs))
	matched := make(map[string]bool, len(kernelPorts))

	for _, vrf := range vrfs {
		states := make(VRFPortStates, len(vrf.Ports))
		for _, row := range vrf.Ports {
			kp, hasKernel := kernelPorts[row.Name]
			state := NewPortState(row.Name, vrf.Name)
			state.InternalVLANID = row.InternalVLANID

			if hasKernel {
				matched[row.Name] = true
				s.convergeOneInterface(kp, row, state)
			} else {
				s.convergeOneInterface(newKernelPort(row.Name), row, state)
			}

			// Insert into the VRF's port map — this marks it as
			// already-cached so the main loop's first ReconfigEngine pass
			// observes equality and emits no operations.
			states[row.Name] = state
		}
		result[vrf.Name] = states
	}

	// Kernel interfaces with no matching CONFIG port: the port was demoted
	// from L3 before the daemon came back. Delete every address and create
	// no PortState for it.
	for name, kp := range kernelPorts {
		if matched[name] {
			continue
		}
		for addr := range kp.V4 {
			s.delKernelAddr(name, addr, FamilyV4)
		}
		for addr := range kp.V6 {
			s.delKernelAddr(name, addr, FamilyV6)
		}
	}

	return result, nil
}

func (s *StartupReconciler) dumpKernelPorts() (map[string]*KernelPort, error) {
	merged := make(map[string]*KernelPort)

	v4, err := s.kernel.DumpAddresses(FamilyV4)
	if err != nil {
		return nil, err
	}
	for name, kp := range v4 {
		merged[name] = kp
	}

	v6, err := s.kernel.DumpAddresses(FamilyV6)
	if err != nil {
		return nil, err
	}
	for name, kp := range v6 {
		if existing, ok := merged[name]; ok {
			for addr := range kp.V6 {
				existing.V6[addr] = struct{}{}
			}
		} else {
			merged[name] = kp
		}
	}

	return merged, nil
}

// convergeOneInterface deletes kernel addresses absent from row and adds
// row addresses absent from the kernel, primary first (secondary=false)
// then secondary sets (secondary=true), per family, v4 before v6.
func (s *StartupReconciler) convergeOneInterface(kp *KernelPort, row PortRow, state *PortState) {
	s.convergeFamily(kp, row, state, FamilyV4)
	s.convergeFamily(kp, row, state, FamilyV6)
}

func (s *StartupReconciler) convergeFamily(kp *KernelPort, row PortRow, state *PortState, family Family) {
	var (
		primary   string
		secondary []string
		kernelSet map[string]struct{}
	)
	if family == FamilyV4 {
		primary, secondary, kernelSet = row.IP4Address, row.IP4AddressSecondary, kp.V4
	} else {
		primary, secondary, kernelSet = row.IP6Address, row.IP6AddressSecondary, kp.V6
	}

	dbSet := make(map[string]struct{}, 1+len(secondary))
	if primary != "" {
		dbSet[primary] = struct{}{}
	}
	for _, addr := range secondary {
		dbSet[addr] = struct{}{}
	}

	for addr := range kernelSet {
		if _, ok := dbSet[addr]; !ok {
			s.delKernelAddr(row.Name, addr, family)
		}
	}

	if primary != "" {
		if _, ok := kernelSet[primary]; !ok {
			s.addKernelAddr(row.Name, primary, family, false)
		}
		state.SetPrimary(family, primary)
	}
	for _, addr := range secondary {
		if _, ok := kernelSet[addr]; !ok {
			s.addKernelAddr(row.Name, addr, family, true)
		}
		state.SecondarySet(family)[addr] = struct{}{}
	}
}

func (s *StartupReconciler) delKernelAddr(port, addr string, family Family) {
	if err := s.kernel.SetAddress(AddrDel, port, addr, family, false); err != nil {
		util.WithField("port", port).Warnf("startup: delete kernel address %s failed: %v", addr, err)
	}
}

func (s *StartupReconciler) addKernelAddr(port, addr string, family Family, secondary bool) {
	if err := s.kernel.SetAddress(AddrAdd, port, addr, family, secondary); err != nil {
		util.WithField("port", port).Warnf("startup: add kernel address %s failed: %v", addr, err)
	}
}
