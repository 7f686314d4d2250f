package node

import (
	"errors"
	"sort"
)

// Registry errors.
var (
	ErrDuplicateID = errors.New("net id already exists")
	ErrUnknownID   = errors.New("net id does not exist")
)

// Registry is the single source of truth for which nodes exist. It is owned
// by the controller goroutine and must only be used from there.
type Registry struct {
	nodes map[ID]*Node
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[ID]*Node)}
}

// Insert registers a node under its identifier.
func (r *Registry) Insert(id ID, n *Node) error {
	if _, ok := r.nodes[id]; ok {
		return ErrDuplicateID
	}
	r.nodes[id] = n
	return nil
}

// Find returns the node registered under id, if any.
func (r *Registry) Find(id ID) (*Node, bool) {
	n, ok := r.nodes[id]
	return n, ok
}

// Remove forgets id. The caller must have stopped and joined the node
// beforehand.
func (r *Registry) Remove(id ID) error {
	if _, ok := r.nodes[id]; !ok {
		return ErrUnknownID
	}
	delete(r.nodes, id)
	return nil
}

// List returns the registered identifiers, ascending, recomputed on every
// call.
func (r *Registry) List() []ID {
	ids := make([]ID, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int {
	return len(r.nodes)
}
