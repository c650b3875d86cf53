package portd

import "testing"

func TestPrefixToIPNet(t *testing.T) {
	tests := []struct {
		family    Family
		text      string
		wantIP    string
		wantOnes  int
		wantTotal int
	}{
		{FamilyV4, "10.0.0.5/24", "10.0.0.5", 24, 32},
		{FamilyV6, "2001:db8::1/64", "2001:db8::1", 64, 128},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			p, err := ParsePrefix(tt.family, tt.text)
			if err != nil {
				t.Fatalf("ParsePrefix: %v", err)
			}
			ipnet := p.toIPNet()
			if ipnet.IP.String() != tt.wantIP {
				t.Errorf("IP = %s, want %s", ipnet.IP.String(), tt.wantIP)
			}
			ones, total := ipnet.Mask.Size()
			if ones != tt.wantOnes || total != tt.wantTotal {
				t.Errorf("mask = %d/%d, want %d/%d", ones, total, tt.wantOnes, tt.wantTotal)
			}
		})
	}
}

func TestAddrOpString(t *testing.T) {
	if AddrAdd.String() != "add" {
		t.Errorf("AddrAdd.String() = %q, want add", AddrAdd.String())
	}
	if AddrDel.String() != "del" {
		t.Errorf("AddrDel.String() = %q, want del", AddrDel.String())
	}
}
