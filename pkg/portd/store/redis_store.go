// Package store provides the concrete CONFIG realization: a Redis-backed
// reader/writer over the PORT, VRF, and ROUTE_TABLE tables, following the
// same table|key hash layout and cursor-based SCAN convention as the
// switch's CONFIG_DB. It implements portd.ConfigReader and portd.Txn; the
// daemon's transaction semantics (commit, change notification) remain the
// host's responsibility — this only reads and stages writes.
package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/portd/pkg/portd"
	"github.com/newtron-network/portd/pkg/util"
)

const (
	tablePort  = "PORT"
	tableVRF   = "VRF"
	tableRoute = "ROUTE_TABLE"

	scanCountHint = 200
)

// Store is a Redis-backed CONFIG reader/writer for the L3 reconciliation
// core's slice of the schema: PORT, VRF, and ROUTE_TABLE.
type Store struct {
	client *redis.Client

	mu       sync.RWMutex
	modified map[string]map[string]bool // port -> column -> modified
}

// New wraps an already-dialed Redis client (pointed at the CONFIG database,
// e.g. DB 4 in the switch's db numbering convention).
func New(client *redis.Client) *Store {
	return &Store{client: client, modified: make(map[string]map[string]bool)}
}

// SetColumnModified records that column changed for port in the current
// pass. The host's change-notification plumbing is expected to call this
// before invoking ReconfigEngine — it is outside this core's scope to derive
// it itself.
func (s *Store) SetColumnModified(port, column string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.modified[port] == nil {
		s.modified[port] = make(map[string]bool)
	}
	s.modified[port][column] = true
}

// ClearColumnModified resets the modified-column tracking for a port after
// its reconciliation pass has consumed it.
func (s *Store) ClearColumnModified(port string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.modified, port)
}

// ColumnModified implements portd.ConfigReader.
func (s *Store) ColumnModified(port, column string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified[port] != nil && s.modified[port][column]
}

func (s *Store) scanKeys(ctx context.Context, table string) ([]string, error) {
	var keys []string
	var cursor uint64
	prefix := table + "|"
	for {
		batch, next, err := s.client.Scan(ctx, cursor, prefix+"*", scanCountHint).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

func parsePortRow(name string, fields map[string]string) portd.PortRow {
	row := portd.PortRow{
		Name:                name,
		IP4Address:          fields["ip4_address"],
		IP6Address:          fields["ip6_address"],
		IP4AddressSecondary: util.SplitCommaSeparated(fields["ip4_address_secondary"]),
		IP6AddressSecondary: util.SplitCommaSeparated(fields["ip6_address_secondary"]),
		InternalVLANID:      portd.NoInternalVLAN,
	}
	if v, ok := fields["internal_vlan_id"]; ok {
		if n, err := strconv.Atoi(v); err == nil && n != 0 {
			row.InternalVLANID = n
		}
	}
	return row
}

func (s *Store) loadVRFPorts(ctx context.Context, vrfName string) ([]portd.PortRow, error) {
	keys, err := s.scanKeys(ctx, tablePort)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys) // deterministic enumeration order within one pass

	var rows []portd.PortRow
	for _, key := range keys {
		name := strings.TrimPrefix(key, tablePort+"|")
		fields, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if fields["vrf_name"] != "" && fields["vrf_name"] != vrfName {
			continue
		}
		rows = append(rows, parsePortRow(name, fields))
	}
	return rows, nil
}

func (s *Store) loadVRFRoutes(ctx context.Context, vrfName string) ([]portd.RouteRow, error) {
	keys, err := s.scanKeys(ctx, tableRoute)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	var rows []portd.RouteRow
	for _, key := range keys {
		rest := strings.TrimPrefix(key, tableRoute+"|")
		parts := strings.SplitN(rest, "|", 2)
		if len(parts) != 2 || parts[0] != vrfName {
			continue
		}
		fields, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		distance, _ := strconv.Atoi(fields["distance"])
		rows = append(rows, portd.RouteRow{
			VRF:              vrfName,
			AddressFamily:    fields["address_family"],
			Prefix:           parts[1],
			SubAddressFamily: fields["sub_address_family"],
			From:             fields["from"],
			Distance:         distance,
			Selected:         fields["selected"] == "true",
			NexthopPort:      fields["nexthop_port"],
		})
	}
	return rows, nil
}

// FirstVRF implements portd.ConfigReader. VRF multiplexing resolves to a
// single default VRF; among the VRFs present, the lexicographically first
// name is chosen deterministically (the schema has no other ordering
// signal — see the grounding ledger for why this stands in for the
// original's first-in-hashtable lookup).
func (s *Store) FirstVRF() (portd.VRFView, bool, error) {
	ctx := context.Background()
	keys, err := s.scanKeys(ctx, tableVRF)
	if err != nil {
		return portd.VRFView{}, false, err
	}
	if len(keys) == 0 {
		return portd.VRFView{}, false, nil
	}
	sort.Strings(keys)
	name := strings.TrimPrefix(keys[0], tableVRF+"|")

	ports, err := s.loadVRFPorts(ctx, name)
	if err != nil {
		return portd.VRFView{}, false, err
	}
	routes, err := s.loadVRFRoutes(ctx, name)
	if err != nil {
		return portd.VRFView{}, false, err
	}
	return portd.VRFView{Name: name, Ports: ports, Routes: routes}, true, nil
}

// AllVRFs implements portd.ConfigReader.
func (s *Store) AllVRFs() ([]portd.VRFView, error) {
	ctx := context.Background()
	keys, err := s.scanKeys(ctx, tableVRF)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	views := make([]portd.VRFView, 0, len(keys))
	for _, key := range keys {
		name := strings.TrimPrefix(key, tableVRF+"|")
		ports, err := s.loadVRFPorts(ctx, name)
		if err != nil {
			return nil, err
		}
		routes, err := s.loadVRFRoutes(ctx, name)
		if err != nil {
			return nil, err
		}
		views = append(views, portd.VRFView{Name: name, Ports: ports, Routes: routes})
	}
	return views, nil
}

// Txn accumulates route insert/delete operations for one reconciliation
// call. Apply writes them to Redis; the dirty flag tells the host whether
// anything needs persisting at all.
type Txn struct {
	store *Store
	dirty bool

	inserts []portd.RouteRow
	deletes []routeKey
}

type routeKey struct {
	vrf, prefix, family string
}

// NewTxn starts a transaction against this store.
func (s *Store) NewTxn() *Txn {
	return &Txn{store: s}
}

// InsertRoute implements portd.Txn.
func (t *Txn) InsertRoute(row portd.RouteRow) {
	t.inserts = append(t.inserts, row)
}

// DeleteRoute implements portd.Txn.
func (t *Txn) DeleteRoute(vrf, prefix, family string) {
	t.deletes = append(t.deletes, routeKey{vrf: vrf, prefix: prefix, family: family})
}

// MarkDirty implements portd.Txn.
func (t *Txn) MarkDirty() {
	t.dirty = true
}

// IsDirty reports whether any operation was staged.
func (t *Txn) IsDirty() bool {
	return t.dirty
}

// Apply writes the staged route inserts and deletes to Redis. Commit
// ordering follows the core's contract: callers invoke this only after the
// corresponding kernel operation has already succeeded.
func (t *Txn) Apply(ctx context.Context) error {
	for _, row := range t.inserts {
		key := tableRoute + "|" + row.VRF + "|" + row.Prefix
		fields := map[string]interface{}{
			"address_family":     row.AddressFamily,
			"sub_address_family": row.SubAddressFamily,
			"from":               row.From,
			"distance":           strconv.Itoa(row.Distance),
			"selected":           strconv.FormatBool(row.Selected),
			"nexthop_port":       row.NexthopPort,
		}
		if err := t.store.client.HSet(ctx, key, fields).Err(); err != nil {
			return err
		}
		util.WithField("route", key).Debug("applied route insert")
	}
	for _, k := range t.deletes {
		key := tableRoute + "|" + k.vrf + "|" + k.prefix
		if err := t.store.client.Del(ctx, key).Err(); err != nil {
			return err
		}
		util.WithField("route", key).Debug("applied route delete")
	}
	return nil
}
