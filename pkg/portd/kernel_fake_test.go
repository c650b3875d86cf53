package portd

// fakeKernel is an in-memory stand-in for KernelChannel, recording every
// address operation issued against it. Shared by reconcile_test.go and
// startup_test.go.
type fakeKernel struct {
	adds    []fakeAddrOp
	dels    []fakeAddrOp
	ports   map[string]*KernelPort // for DumpAddresses
}

type fakeAddrOp struct {
	ifname    string
	addr      string
	family    Family
	secondary bool
}

func newFakeKernel() *fakeKernel {
	return &fakeKernel{ports: make(map[string]*KernelPort)}
}

func (k *fakeKernel) SetAddress(op AddrOp, ifname string, addrText string, family Family, secondary bool) error {
	rec := fakeAddrOp{ifname: ifname, addr: addrText, family: family, secondary: secondary}
	if op == AddrAdd {
		k.adds = append(k.adds, rec)
	} else {
		k.dels = append(k.dels, rec)
	}
	return nil
}

func (k *fakeKernel) DumpAddresses(family Family) (map[string]*KernelPort, error) {
	out := make(map[string]*KernelPort, len(k.ports))
	for name, kp := range k.ports {
		cp := newKernelPort(name)
		if family == FamilyV4 {
			for a := range kp.V4 {
				cp.V4[a] = struct{}{}
			}
		} else {
			for a := range kp.V6 {
				cp.V6[a] = struct{}{}
			}
		}
		out[name] = cp
	}
	return out, nil
}
