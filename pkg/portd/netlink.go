package portd

import (
	"fmt"
	"net"
	"os"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/newtron-network/portd/pkg/util"
)

const (
	ip4ForwardingPath = "/proc/sys/net/ipv4/ip_forward"
	ip6ForwardingPath = "/proc/sys/net/ipv6/conf/all/forwarding"
)

// KernelChannel owns one routing-socket handle used to issue address/link
// requests and parse dump replies. Constructed once at daemon init and
// destroyed at shutdown; ReconfigEngine and StartupReconciler hold a
// reference to it rather than owning a socket each.
type KernelChannel struct {
	handle *netlink.Handle
}

// OpenKernelChannel creates the routing-socket handle used for every
// subsequent request.
func OpenKernelChannel() (*KernelChannel, error) {
	h, err := netlink.NewHandle(unix.NETLINK_ROUTE)
	if err != nil {
		return nil, newKernelIOError("open handle", err)
	}
	return &KernelChannel{handle: h}, nil
}

// Close releases the routing-socket handle.
func (k *KernelChannel) Close() error {
	if k.handle != nil {
		k.handle.Delete()
		k.handle = nil
	}
	return nil
}

// Subscribe joins the IPv4 and IPv6 address-event multicast groups and
// streams updates on the returned channel until done is closed. The host's
// main loop owns reading from it; this core does not consume its own events.
func (k *KernelChannel) Subscribe(done <-chan struct{}) (<-chan netlink.AddrUpdate, error) {
	ch := make(chan netlink.AddrUpdate)
	if err := netlink.AddrSubscribe(ch, done); err != nil {
		return nil, newKernelIOError("addr subscribe", err)
	}
	return ch, nil
}

func (k *KernelChannel) linkByName(ifname string) (netlink.Link, error) {
	link, err := k.handle.LinkByName(ifname)
	if err != nil {
		return nil, &InterfaceError{Name: ifname}
	}
	return link, nil
}

// toIPNet converts a parsed Prefix into the *net.IPNet the netlink library's
// Addr type wants. The address bytes are used as they are (host bits kept),
// so an unmasked Prefix yields the interface address itself.
func (p Prefix) toIPNet() *net.IPNet {
	bits := p.Family.MaxPrefixLen()
	return &net.IPNet{IP: net.IP(p.Bytes), Mask: net.CIDRMask(p.PrefixLen, bits)}
}

// AddrOp distinguishes address add/delete requests.
type AddrOp int

const (
	AddrAdd AddrOp = iota
	AddrDel
)

func (o AddrOp) String() string {
	if o == AddrAdd {
		return "add"
	}
	return "del"
}

// SetAddress adds or deletes a single interface address, setting the
// IFA_F_SECONDARY flag on secondary-address requests. A failed kernel
// request returns a KernelIOError (ErrKernelIO) for the caller to log and
// retry next pass; an unknown interface or an unparsable address returns
// ErrNoSuchInterface or ErrBadPrefix before any request is sent.
func (k *KernelChannel) SetAddress(op AddrOp, ifname string, addrText string, family Family, secondary bool) error {
	link, err := k.linkByName(ifname)
	if err != nil {
		return err
	}

	p, err := ParsePrefix(family, addrText)
	if err != nil {
		return err
	}

	addr := &netlink.Addr{IPNet: p.toIPNet()}
	if secondary {
		addr.Flags |= unix.IFA_F_SECONDARY
	}

	var opErr error
	if op == AddrAdd {
		opErr = k.handle.AddrReplace(link, addr)
	} else {
		opErr = k.handle.AddrDel(link, addr)
	}
	if opErr != nil {
		util.WithField("port", ifname).Warnf("kernel address %s failed: %v", op, opErr)
		return newKernelIOError(fmt.Sprintf("addr %s", op), opErr)
	}
	return nil
}

// AddVLANInterface creates a VLAN sub-interface: a link of kind "vlan" with
// the given tag and parent.
func (k *KernelChannel) AddVLANInterface(parentIfname, vlanIfname string, vlanTag uint16) error {
	parent, err := k.linkByName(parentIfname)
	if err != nil {
		return err
	}

	vlan := &netlink.Vlan{
		LinkAttrs: netlink.LinkAttrs{
			Name:        vlanIfname,
			ParentIndex: parent.Attrs().Index,
		},
		VlanId: int(vlanTag),
	}
	if err := k.handle.LinkAdd(vlan); err != nil {
		util.WithField("port", vlanIfname).Warnf("add vlan interface failed: %v", err)
		return newKernelIOError("link add", err)
	}
	return nil
}

// DeleteLink removes an interface by name. Deliberately generic — it can
// delete any interface, not just VLANs — and is exposed under that generic
// name rather than a VLAN-specific one.
func (k *KernelChannel) DeleteLink(ifname string) error {
	link, err := k.linkByName(ifname)
	if err != nil {
		return err
	}
	if err := k.handle.LinkDel(link); err != nil {
		util.WithField("port", ifname).Warnf("delete link failed: %v", err)
		return newKernelIOError("link del", err)
	}
	return nil
}

// SetLinkAdmin brings an interface up or down. status must be the literal
// string "up" or "down"; anything else is rejected with ErrBadArgument.
func (k *KernelChannel) SetLinkAdmin(ifname string, status string) error {
	if status != "up" && status != "down" {
		return ErrBadArgument
	}
	link, err := k.linkByName(ifname)
	if err != nil {
		return err
	}

	var opErr error
	if status == "up" {
		opErr = k.handle.LinkSetUp(link)
	} else {
		opErr = k.handle.LinkSetDown(link)
	}
	if opErr != nil {
		util.WithField("port", ifname).Warnf("set link admin failed: %v", opErr)
		return newKernelIOError("link set admin", opErr)
	}
	return nil
}

// SetIPForwarding writes the ASCII digit "0" or "1" to the kernel's global
// forwarding pseudo-file for family. Errors are logged and ignored — this is
// best-effort, matching the rest of the kernel control surface.
func SetIPForwarding(family Family, enabled bool) {
	path := ip4ForwardingPath
	if family == FamilyV6 {
		path = ip6ForwardingPath
	}
	digit := "0"
	if enabled {
		digit = "1"
	}
	if err := os.WriteFile(path, []byte(digit), 0644); err != nil {
		util.WithField("path", path).Warnf("set ip forwarding failed: %v", err)
	}
}

// KernelPort is the transient per-interface record built from a dump reply.
// Owned by the StartupReconciler run that created it and discarded before
// the main loop begins.
type KernelPort struct {
	Name string
	V4   map[string]struct{}
	V6   map[string]struct{}
}

func newKernelPort(name string) *KernelPort {
	return &KernelPort{Name: name, V4: make(map[string]struct{}), V6: make(map[string]struct{})}
}

// DumpAddresses lists every non-loopback interface's addresses for family.
// IPv6 link-local addresses (scope=link) are excluded — they receive no
// storage and no secondary promotion.
func (k *KernelChannel) DumpAddresses(family Family) (map[string]*KernelPort, error) {
	nlFamily := netlink.FAMILY_V4
	if family == FamilyV6 {
		nlFamily = netlink.FAMILY_V6
	}

	links, err := k.handle.LinkList()
	if err != nil {
		return nil, newKernelIOError("link list", err)
	}

	ports := make(map[string]*KernelPort)
	for _, link := range links {
		name := link.Attrs().Name
		if name == "lo" {
			continue
		}

		addrs, err := k.handle.AddrList(link, nlFamily)
		if err != nil {
			return nil, newKernelIOError("addr list", err)
		}
		if len(addrs) == 0 {
			continue
		}

		port := newKernelPort(name)
		for _, addr := range addrs {
			if family == FamilyV6 && addr.Scope == int(unix.RT_SCOPE_LINK) {
				continue
			}
			prefixLen, _ := addr.IPNet.Mask.Size()
			addrText := fmt.Sprintf("%s/%d", addr.IP.String(), prefixLen)
			if family == FamilyV4 {
				port.V4[addrText] = struct{}{}
			} else {
				port.V6[addrText] = struct{}{}
			}
		}
		if len(port.V4) > 0 || len(port.V6) > 0 {
			ports[name] = port
		}
	}
	return ports, nil
}
