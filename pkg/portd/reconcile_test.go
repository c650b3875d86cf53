package portd

import "testing"

// S1: an empty port gains a primary address — kernel gets one ADD and a
// connected route is inserted.
func TestReconcileScenarioPrimaryGained(t *testing.T) {
	kernel := newFakeKernel()
	cfg := &fakeConfig{vrf: VRFView{Name: "default"}, hasVRF: true}
	engine := NewReconfigEngine(kernel, NewConnectedRouteWriter(cfg))

	state := NewPortState("Ethernet0", "default")
	row := PortRow{Name: "Ethernet0", IP4Address: "10.0.0.5/24", InternalVLANID: NoInternalVLAN}
	txn := &fakeTxn{}

	engine.ReconfigureIfModified(txn, cfg, state, row)

	if len(kernel.adds) != 1 || kernel.adds[0].addr != "10.0.0.5/24" || kernel.adds[0].secondary {
		t.Fatalf("unexpected kernel adds: %+v", kernel.adds)
	}
	if len(kernel.dels) != 0 {
		t.Fatalf("unexpected kernel deletes: %+v", kernel.dels)
	}
	if len(txn.inserted) != 1 || txn.inserted[0].Prefix != "10.0.0.0/24" {
		t.Fatalf("unexpected route inserts: %+v", txn.inserted)
	}
	if addr, ok := state.Primary(FamilyV4); !ok || addr != "10.0.0.5/24" {
		t.Errorf("state primary = %q,%v, want 10.0.0.5/24,true", addr, ok)
	}
}

// S2: a primary address changes from one prefix length to another — old is
// deleted (and its route removed) before the new is added (and routed).
func TestReconcileScenarioPrimaryChanged(t *testing.T) {
	kernel := newFakeKernel()
	cfg := &fakeConfig{
		vrf: VRFView{Name: "default", Routes: []RouteRow{
			{VRF: "default", AddressFamily: "ipv4", Prefix: "10.0.0.0/24", SubAddressFamily: "unicast", From: "connected", NexthopPort: "Ethernet0"},
		}},
		hasVRF: true,
	}
	engine := NewReconfigEngine(kernel, NewConnectedRouteWriter(cfg))

	state := NewPortState("Ethernet0", "default")
	state.SetPrimary(FamilyV4, "10.0.0.5/24")
	row := PortRow{Name: "Ethernet0", IP4Address: "10.0.0.5/25", InternalVLANID: NoInternalVLAN}
	txn := &fakeTxn{}

	engine.ReconfigureIfModified(txn, cfg, state, row)

	if len(kernel.dels) != 1 || kernel.dels[0].addr != "10.0.0.5/24" {
		t.Fatalf("unexpected kernel deletes: %+v", kernel.dels)
	}
	if len(kernel.adds) != 1 || kernel.adds[0].addr != "10.0.0.5/25" {
		t.Fatalf("unexpected kernel adds: %+v", kernel.adds)
	}
	if len(txn.deleted) != 1 {
		t.Fatalf("expected one route delete, got %d", len(txn.deleted))
	}
	if len(txn.inserted) != 1 || txn.inserted[0].Prefix != "10.0.0.0/25" {
		t.Fatalf("unexpected route inserts: %+v", txn.inserted)
	}
	if addr, _ := state.Primary(FamilyV4); addr != "10.0.0.5/25" {
		t.Errorf("state primary = %q, want 10.0.0.5/25", addr)
	}
}

// S3: the secondary v6 set changes but primary addresses don't — kernel
// issues secondary add/remove operations, and no route mutation happens
// (secondary changes never touch connected routes).
func TestReconcileScenarioSecondaryChanged(t *testing.T) {
	kernel := newFakeKernel()
	cfg := &fakeConfig{vrf: VRFView{Name: "default"}, hasVRF: true}
	cfg.modified = map[string]map[string]bool{
		"Ethernet0": {columnIP6Secondary: true},
	}
	engine := NewReconfigEngine(kernel, NewConnectedRouteWriter(cfg))

	state := NewPortState("Ethernet0", "default")
	state.SecondarySet(FamilyV6)["2001:db8::2/64"] = struct{}{}
	row := PortRow{
		Name:                "Ethernet0",
		IP6AddressSecondary: []string{"2001:db8::3/64"},
		InternalVLANID:      NoInternalVLAN,
	}
	txn := &fakeTxn{}

	engine.ReconfigureIfModified(txn, cfg, state, row)

	if len(kernel.dels) != 1 || kernel.dels[0].addr != "2001:db8::2/64" || !kernel.dels[0].secondary {
		t.Fatalf("unexpected kernel deletes: %+v", kernel.dels)
	}
	if len(kernel.adds) != 1 || kernel.adds[0].addr != "2001:db8::3/64" || !kernel.adds[0].secondary {
		t.Fatalf("unexpected kernel adds: %+v", kernel.adds)
	}
	if len(txn.inserted) != 0 || len(txn.deleted) != 0 {
		t.Errorf("secondary-only change must not touch routes: inserts=%v deletes=%v", txn.inserted, txn.deleted)
	}
	if !state.FindSecondaryV6("2001:db8::3/64") || state.FindSecondaryV6("2001:db8::2/64") {
		t.Errorf("unexpected secondary set after reconcile: %v", state.SecondaryV6)
	}
}

// Secondary reconciliation is skipped entirely when the column was not
// reported modified for this pass.
func TestReconcileSecondarySkippedWhenNotModified(t *testing.T) {
	kernel := newFakeKernel()
	cfg := &fakeConfig{vrf: VRFView{Name: "default"}, hasVRF: true}
	engine := NewReconfigEngine(kernel, NewConnectedRouteWriter(cfg))

	state := NewPortState("Ethernet0", "default")
	state.SecondarySet(FamilyV4)["10.0.0.9/24"] = struct{}{}
	row := PortRow{Name: "Ethernet0", InternalVLANID: NoInternalVLAN} // DB now has no secondaries
	txn := &fakeTxn{}

	engine.ReconfigureIfModified(txn, cfg, state, row)

	if len(kernel.dels) != 0 || len(kernel.adds) != 0 {
		t.Fatalf("expected no kernel ops when column not modified, got dels=%v adds=%v", kernel.dels, kernel.adds)
	}
	if !state.FindSecondaryV4("10.0.0.9/24") {
		t.Errorf("state should be untouched when column not modified")
	}
}
