package core

// node_registry.go — C3 Node Registry: nodes, their capability index, and
// heartbeats. Grounded on the teacher's core/cross_chain.go registry shape
// (a mutex-guarded map plus a derived index kept consistent on every
// mutation) and on original_source/duxos_registry's node store concept.

import (
	"encoding/json"
	"regexp"
	"sync"
	"time"
)

const nodeKeyPrefix = "node:"

// NodeStatus is a node's last-observed liveness state.
type NodeStatus string

const (
	NodeUnknown NodeStatus = "unknown"
	NodeOnline  NodeStatus = "online"
	NodeOffline NodeStatus = "offline"
	NodeBusy    NodeStatus = "busy"
)

var capabilityPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Node is a registered participant. Reputation is maintained by the
// reputation engine (C4), not directly mutated here.
type Node struct {
	ID            string
	Address       string
	Capabilities  map[string]bool
	Status        NodeStatus
	Reputation    int
	LastHeartbeat time.Time
	Metadata      map[string]any
	deleted       bool
}

// Registry holds nodes and a capability -> node-id-set index that is kept
// consistent with every node's capability set on every mutation (spec §3
// invariant: "capability-index is always consistent with the union of node
// capability sets").
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	index map[string]map[string]bool
	clock Clock
	store KVStore
}

// NewRegistry builds an empty Registry with no backing store; node rows
// live only for the process lifetime.
func NewRegistry(clock Clock) *Registry {
	return &Registry{
		nodes: make(map[string]*Node),
		index: make(map[string]map[string]bool),
		clock: defaultClock(clock),
	}
}

// NewRegistryWithStore builds a Registry that mirrors every node row to
// store on mutation and rehydrates its in-memory map (and capability index)
// from store at startup (spec §6: "Persisted state layout"). The registry is
// the only component backed by a store; escrows and disputes stay in memory.
func NewRegistryWithStore(clock Clock, store KVStore) (*Registry, error) {
	r := &Registry{
		nodes: make(map[string]*Node),
		index: make(map[string]map[string]bool),
		clock: defaultClock(clock),
		store: store,
	}
	it := store.Iterator([]byte(nodeKeyPrefix))
	for it.Next() {
		var n Node
		if err := json.Unmarshal(it.Value(), &n); err != nil {
			return nil, err
		}
		node := n
		r.nodes[node.ID] = &node
		if !node.deleted {
			r.addToIndexLocked(node.ID, node.Capabilities)
		}
	}
	if err := it.Error(); err != nil {
		return nil, err
	}
	return r, it.Close()
}

// persistLocked mirrors n to the backing store, if one is configured. Called
// with r.mu held.
func (r *Registry) persistLocked(n *Node) {
	if r.store == nil {
		return
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return
	}
	_ = r.store.Set([]byte(nodeKeyPrefix+n.ID), raw)
}

// Register adds or replaces node id with the given address and
// capabilities. A node with no capabilities is valid (spec §3).
func (r *Registry) Register(id, address string, capabilities []string, metadata map[string]any) (*Node, error) {
	if id == "" {
		return nil, FieldError(KindValidation, "id", "node id required")
	}
	for _, c := range capabilities {
		if !capabilityPattern.MatchString(c) {
			return nil, FieldError(KindValidation, "capabilities", "invalid capability: "+c)
		}
	}

	capSet := make(map[string]bool, len(capabilities))
	for _, c := range capabilities {
		capSet[c] = true
	}

	n := &Node{
		ID:            id,
		Address:       address,
		Capabilities:  capSet,
		Status:        NodeUnknown,
		Reputation:    50,
		LastHeartbeat: r.clock(),
		Metadata:      metadata,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.nodes[id]; ok {
		r.removeFromIndexLocked(id, old.Capabilities)
	}
	r.nodes[id] = n
	r.addToIndexLocked(id, capSet)
	r.persistLocked(n)
	return n, nil
}

func (r *Registry) addToIndexLocked(id string, caps map[string]bool) {
	for c := range caps {
		if r.index[c] == nil {
			r.index[c] = make(map[string]bool)
		}
		r.index[c][id] = true
	}
}

func (r *Registry) removeFromIndexLocked(id string, caps map[string]bool) {
	for c := range caps {
		delete(r.index[c], id)
		if len(r.index[c]) == 0 {
			delete(r.index, c)
		}
	}
}

// Deregister soft-deletes node id (spec §3: "soft-deleted on
// deregistration") and removes it from the capability index.
func (r *Registry) Deregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	if !ok || n.deleted {
		return ErrNotFound
	}
	r.removeFromIndexLocked(id, n.Capabilities)
	n.deleted = true
	n.Status = NodeOffline
	r.persistLocked(n)
	return nil
}

// Get returns a live node by id.
func (r *Registry) Get(id string) (*Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[id]
	if !ok || n.deleted {
		return nil, ErrNotFound
	}
	return n, nil
}

// Heartbeat updates id's status and LastHeartbeat.
func (r *Registry) Heartbeat(id string, status NodeStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	if !ok || n.deleted {
		return ErrNotFound
	}
	n.Status = status
	n.LastHeartbeat = r.clock()
	r.persistLocked(n)
	return nil
}

// MatchMode selects how ListByCapabilities combines the requested set.
type MatchMode int

const (
	MatchAll MatchMode = iota
	MatchAny
)

// ListByCapabilities returns live nodes matching caps under mode.
func (r *Registry) ListByCapabilities(caps []string, mode MatchMode) []*Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(caps) == 0 {
		var out []*Node
		for _, n := range r.nodes {
			if !n.deleted {
				out = append(out, n)
			}
		}
		return out
	}

	counts := make(map[string]int)
	for _, c := range caps {
		for id := range r.index[c] {
			counts[id]++
		}
	}

	var out []*Node
	for id, count := range counts {
		n := r.nodes[id]
		if n == nil || n.deleted {
			continue
		}
		if mode == MatchAll && count != len(caps) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// SetReputation is the only mutation path reputation takes from outside the
// registry's own package — called by the reputation engine (C4) after it
// computes a clamped new value.
func (r *Registry) SetReputation(id string, value int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	if !ok || n.deleted {
		return ErrNotFound
	}
	n.Reputation = value
	r.persistLocked(n)
	return nil
}

// ActiveNodes returns every live, non-offline node — the population the
// community fund's airdrop draws from (spec §9 REDESIGN FLAGS: airdrop
// selection uses the registry's active-node list).
func (r *Registry) ActiveNodes() []*Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Node
	for _, n := range r.nodes {
		if !n.deleted && n.Status != NodeOffline {
			out = append(out, n)
		}
	}
	return out
}
