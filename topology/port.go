package topology

import (
	"errors"
	"fmt"
)

var (
	// ErrTopology is returned for structural wiring violations such as
	// overlapping address ranges or dangling ports.
	ErrTopology = errors.New("topology error")

	// ErrInvalidState is returned when the topology is changed after it
	// has been frozen by instantiation, or bound twice.
	ErrInvalidState = errors.New("invalid state")
)

// PortRole tells what a port is for. Requestor ports send requests
// downstream, responder ports receive them.
type PortRole int

// Port roles.
const (
	RoleICache PortRole = iota
	RoleDCache
	RoleCacheCPUSide
	RoleCacheMemSide
	RoleBusCPUSide
	RoleBusMemSide
	RoleMemCtrl
)

var roleNames = map[PortRole]string{
	RoleICache:       "icache_port",
	RoleDCache:       "dcache_port",
	RoleCacheCPUSide: "cpu_side",
	RoleCacheMemSide: "mem_side",
	RoleBusCPUSide:   "cpu_side_ports",
	RoleBusMemSide:   "mem_side_ports",
	RoleMemCtrl:      "port",
}

func (r PortRole) String() string {
	if n, ok := roleNames[r]; ok {
		return n
	}

	return fmt.Sprintf("PortRole(%d)", int(r))
}

// IsRequestor reports whether the port sends requests towards memory.
func (r PortRole) IsRequestor() bool {
	switch r {
	case RoleICache, RoleDCache, RoleCacheMemSide, RoleBusMemSide:
		return true
	default:
		return false
	}
}

// Node is a component that owns ports.
type Node interface {
	Name() string
	Ports() []*Port
}

// Port is one end of a point-to-point link.
type Port struct {
	owner  Node
	role   PortRole
	index  int
	vector bool
	peer   *Port
}

func newPort(owner Node, role PortRole) *Port {
	return &Port{owner: owner, role: role}
}

func newVectorPort(owner Node, role PortRole, index int) *Port {
	return &Port{owner: owner, role: role, index: index, vector: true}
}

// Owner returns the component the port belongs to.
func (p *Port) Owner() Node {
	return p.owner
}

// Role returns the port role.
func (p *Port) Role() PortRole {
	return p.role
}

// Index returns the position of the port inside a vector port.
func (p *Port) Index() int {
	return p.index
}

// Peer returns the connected port, or nil.
func (p *Port) Peer() *Port {
	return p.peer
}

// Connected reports whether the port has a peer.
func (p *Port) Connected() bool {
	return p.peer != nil
}

// Name returns the full port name, e.g. "system.membus.cpu_side_ports[2]".
func (p *Port) Name() string {
	if p.vector {
		return fmt.Sprintf("%s.%s[%d]", p.owner.Name(), p.role, p.index)
	}

	return fmt.Sprintf("%s.%s", p.owner.Name(), p.role)
}

func (p *Port) String() string {
	return p.Name()
}

// Link is a connection between a requestor and a responder port.
type Link struct {
	Requestor *Port
	Responder *Port
}

func connect(a, b *Port) (Link, error) {
	if a == nil || b == nil {
		return Link{}, fmt.Errorf("%w: connecting a nil port", ErrTopology)
	}

	if a.owner == b.owner {
		return Link{}, fmt.Errorf("%w: %s and %s have the same owner",
			ErrTopology, a, b)
	}

	for _, p := range []*Port{a, b} {
		if p.peer != nil {
			return Link{}, fmt.Errorf("%w: %s is already connected to %s",
				ErrTopology, p, p.peer)
		}
	}

	if a.role.IsRequestor() == b.role.IsRequestor() {
		return Link{}, fmt.Errorf(
			"%w: %s and %s must be one requestor and one responder",
			ErrTopology, a, b)
	}

	if !a.role.IsRequestor() {
		a, b = b, a
	}

	a.peer = b
	b.peer = a

	return Link{Requestor: a, Responder: b}, nil
}
