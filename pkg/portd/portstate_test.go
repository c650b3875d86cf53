package portd

import "testing"

func TestNewPortStateIsEmpty(t *testing.T) {
	s := NewPortState("Ethernet0", "default")
	if !s.IsEmpty() {
		t.Fatalf("new PortState should be empty")
	}
	if s.InternalVLANID != NoInternalVLAN {
		t.Errorf("InternalVLANID = %d, want %d", s.InternalVLANID, NoInternalVLAN)
	}
}

func TestPortStatePrimary(t *testing.T) {
	s := NewPortState("Ethernet0", "default")

	if _, ok := s.Primary(FamilyV4); ok {
		t.Errorf("expected no primary v4 on new state")
	}

	s.SetPrimary(FamilyV4, "10.0.0.1/24")
	addr, ok := s.Primary(FamilyV4)
	if !ok || addr != "10.0.0.1/24" {
		t.Errorf("Primary(v4) = %q,%v, want 10.0.0.1/24,true", addr, ok)
	}
	if s.IsEmpty() {
		t.Errorf("state with primary set should not be empty")
	}

	s.SetPrimary(FamilyV4, "")
	if _, ok := s.Primary(FamilyV4); ok {
		t.Errorf("expected primary v4 cleared")
	}
}

func TestPortStateSecondary(t *testing.T) {
	s := NewPortState("Ethernet0", "default")
	s.SecondarySet(FamilyV4)["10.0.0.2/24"] = struct{}{}

	if !s.FindSecondaryV4("10.0.0.2/24") {
		t.Errorf("expected secondary address present")
	}
	if s.FindSecondaryV4("10.0.0.3/24") {
		t.Errorf("unexpected secondary address present")
	}
	if !s.Contains("10.0.0.2/24", FamilyV4) {
		t.Errorf("Contains should report secondary addresses too")
	}
}
