package portd

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Family identifies an address family handled by the reconciliation core.
type Family int

const (
	FamilyV4 Family = iota
	FamilyV6
)

func (f Family) String() string {
	if f == FamilyV4 {
		return "ipv4"
	}
	return "ipv6"
}

// MaxPrefixLen returns the bit width of this family's address.
func (f Family) MaxPrefixLen() int {
	if f == FamilyV4 {
		return 32
	}
	return 128
}

func (f Family) byteLen() int {
	if f == FamilyV4 {
		return 4
	}
	return 16
}

// v6MaskBits is the fixed 9-entry bit-mask table used to zero the partial
// byte of an IPv6 prefix: index it by prefixlen % 8.
var v6MaskBits = [9]byte{0x00, 0x80, 0xC0, 0xE0, 0xF0, 0xF8, 0xFC, 0xFE, 0xFF}

// Prefix is a parsed (family, address bytes, prefix length) triple. Bytes are
// always the family's natural length (4 or 16) in network byte order.
type Prefix struct {
	Family     Family
	Bytes      []byte
	PrefixLen  int
}

// ParsePrefix parses "addr" or "addr/N" for the given family. The default
// prefix length is the family maximum when no "/N" suffix is present.
// Returns a *PrefixError (wrapping ErrBadPrefix) if N exceeds the family
// maximum or the address portion fails to parse.
func ParsePrefix(family Family, text string) (Prefix, error) {
	addrPart := text
	prefixLen := family.MaxPrefixLen()

	if idx := strings.IndexByte(text, '/'); idx >= 0 {
		addrPart = text[:idx]
		lenPart := text[idx+1:]
		n, err := strconv.Atoi(lenPart)
		if err != nil {
			return Prefix{}, newPrefixError(family, text, "invalid prefix length")
		}
		prefixLen = n
	}

	if prefixLen < 0 || prefixLen > family.MaxPrefixLen() {
		return Prefix{}, newPrefixError(family, text, "prefix length out of range")
	}

	ip := net.ParseIP(addrPart)
	if ip == nil {
		return Prefix{}, newPrefixError(family, text, "invalid address")
	}

	var raw []byte
	switch family {
	case FamilyV4:
		v4 := ip.To4()
		if v4 == nil {
			return Prefix{}, newPrefixError(family, text, "not an ipv4 address")
		}
		raw = append([]byte(nil), v4...)
	case FamilyV6:
		v6 := ip.To16()
		if v6 == nil || ip.To4() != nil {
			return Prefix{}, newPrefixError(family, text, "not an ipv6 address")
		}
		raw = append([]byte(nil), v6...)
	default:
		return Prefix{}, newPrefixError(family, text, "unknown family")
	}

	return Prefix{Family: family, Bytes: raw, PrefixLen: prefixLen}, nil
}

// ApplyMask zeroes all bits at positions >= PrefixLen, in place.
func (p *Prefix) ApplyMask() {
	switch p.Family {
	case FamilyV4:
		var mask uint32
		if p.PrefixLen > 0 {
			mask = 0xFFFFFFFF << uint(32-p.PrefixLen)
		}
		v := uint32(p.Bytes[0])<<24 | uint32(p.Bytes[1])<<16 | uint32(p.Bytes[2])<<8 | uint32(p.Bytes[3])
		v &= mask
		p.Bytes[0] = byte(v >> 24)
		p.Bytes[1] = byte(v >> 16)
		p.Bytes[2] = byte(v >> 8)
		p.Bytes[3] = byte(v)
	case FamilyV6:
		wholeBytes := p.PrefixLen / 8
		rem := p.PrefixLen % 8
		if wholeBytes < 16 {
			p.Bytes[wholeBytes] &= v6MaskBits[rem]
		}
		for i := wholeBytes + 1; i < 16; i++ {
			p.Bytes[i] = 0
		}
	}
}

// Canonical renders "addr/len" using the family's standard textual form,
// from the bytes as they are: it applies no mask itself (MaskedCanonical
// masks first). The masked form is the matching key used for routes.
func (p Prefix) Canonical() string {
	ip := net.IP(p.Bytes)
	return fmt.Sprintf("%s/%d", ip.String(), p.PrefixLen)
}

// MaskedCanonical parses text, applies the mask, and returns the canonical
// prefix string in one step. This is the operation ConnectedRouteWriter uses
// to derive a route prefix from a port's primary address.
func MaskedCanonical(family Family, text string) (string, error) {
	p, err := ParsePrefix(family, text)
	if err != nil {
		return "", err
	}
	p.ApplyMask()
	return p.Canonical(), nil
}
