package render

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Owner tags who is currently responsible for a node's lifetime.
type Owner int

const (
	OwnerNone    Owner = iota
	OwnerLayer         // attached to a live layer
	OwnerCommand       // detached and held by a history command
)

func (o Owner) String() string {
	switch o {
	case OwnerLayer:
		return "layer"
	case OwnerCommand:
		return "command"
	default:
		return "none"
	}
}

type slot struct {
	node  Node
	owner Owner
}

// Arena records, per layer id, the render node bound to that layer and
// which party owns it. Only the arena destroys nodes, so a node is
// destroyed at most once.
type Arena struct {
	slots map[uuid.UUID]*slot
	log   *zap.Logger
}

// NewArena creates an empty arena.
func NewArena(log *zap.Logger) *Arena {
	if log == nil {
		log = zap.NewNop()
	}
	return &Arena{slots: make(map[uuid.UUID]*slot), log: log}
}

// Bind registers node as owned by the live layer id. Binding over an
// existing slot destroys the node it replaces.
func (a *Arena) Bind(id uuid.UUID, node Node) {
	if node == nil {
		return
	}
	if s, ok := a.slots[id]; ok && s.node != node {
		s.node.Destroy()
	}
	a.slots[id] = &slot{node: node, owner: OwnerLayer}
}

// Swap replaces id's node with node and returns the replaced node without
// destroying it. The caller becomes responsible for the returned node.
func (a *Arena) Swap(id uuid.UUID, node Node) (Node, error) {
	s, ok := a.slots[id]
	if !ok {
		return nil, fmt.Errorf("swap %s: %w", id, ErrNoNode)
	}
	old := s.node
	s.node = node
	a.log.Debug("swap node", zap.Stringer("layer", id), zap.Stringer("owner", s.owner))
	return old, nil
}

// Node returns the node bound to id.
func (a *Arena) Node(id uuid.UUID) (Node, bool) {
	s, ok := a.slots[id]
	if !ok {
		return nil, false
	}
	return s.node, true
}

// Owner reports who owns the node bound to id.
func (a *Arena) Owner(id uuid.UUID) Owner {
	if s, ok := a.slots[id]; ok {
		return s.owner
	}
	return OwnerNone
}

// Transfer moves ownership of id's node to the given owner.
func (a *Arena) Transfer(id uuid.UUID, to Owner) error {
	s, ok := a.slots[id]
	if !ok {
		return fmt.Errorf("transfer %s to %s: %w", id, to, ErrNoNode)
	}
	a.log.Debug("transfer node",
		zap.Stringer("layer", id),
		zap.Stringer("from", s.owner),
		zap.Stringer("to", to))
	s.owner = to
	return nil
}

// Release destroys the node bound to id and forgets it.
func (a *Arena) Release(id uuid.UUID) {
	s, ok := a.slots[id]
	if !ok {
		return
	}
	delete(a.slots, id)
	s.node.Destroy()
	a.log.Debug("release node", zap.Stringer("layer", id), zap.Stringer("owner", s.owner))
}

// Len returns the number of bound nodes.
func (a *Arena) Len() int {
	return len(a.slots)
}
