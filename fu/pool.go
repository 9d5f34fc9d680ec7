package fu

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnresolvedOperationClass is returned when no unit of a pool serves
	// the requested operation class.
	ErrUnresolvedOperationClass = errors.New("unresolved operation class")

	// ErrDuplicateOpClass is returned when units of two different kinds
	// claim the same operation class.
	ErrDuplicateOpClass = errors.New("operation class claimed by more than one unit kind")
)

// Unit is a single functional unit.
type Unit struct {
	Kind    Kind
	Latency Latency

	classes []OpClass
	serves  map[OpClass]bool
}

// NewUnit creates a unit serving the given classes.
func NewUnit(kind Kind, lat Latency, classes ...OpClass) (*Unit, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("unit %s serves no operation class", kind)
	}

	if err := lat.Validate(); err != nil {
		return nil, fmt.Errorf("unit %s: %w", kind, err)
	}

	u := &Unit{
		Kind:    kind,
		Latency: lat,
		classes: append([]OpClass(nil), classes...),
		serves:  make(map[OpClass]bool, len(classes)),
	}
	for _, c := range classes {
		u.serves[c] = true
	}

	return u, nil
}

// Serves reports whether the unit executes the class.
func (u *Unit) Serves(c OpClass) bool {
	return u.serves[c]
}

// OpClasses returns the classes served by the unit.
func (u *Unit) OpClasses() []OpClass {
	return append([]OpClass(nil), u.classes...)
}

// OpLatency is the number of cycles an operation occupies the unit.
func (u *Unit) OpLatency() uint64 {
	return u.Latency.Op
}

// IssueLatency is the minimum number of cycles between two issues.
func (u *Unit) IssueLatency() uint64 {
	return u.Latency.Issue
}

func (u *Unit) String() string {
	return fmt.Sprintf("%s(op=%d,issue=%d)", u.Kind, u.Latency.Op, u.Latency.Issue)
}

// Pool is the ordered set of functional units of one core.
type Pool struct {
	units []*Unit
}

// NewPool creates a pool from units. Units of one kind may share classes; a
// class claimed by two different kinds is rejected.
func NewPool(units ...*Unit) (*Pool, error) {
	owner := make(map[OpClass]Kind)

	for _, u := range units {
		for _, c := range u.classes {
			k, claimed := owner[c]
			if claimed && k != u.Kind {
				return nil, fmt.Errorf("%w: %s served by %s and %s",
					ErrDuplicateOpClass, c, k, u.Kind)
			}

			owner[c] = u.Kind
		}
	}

	return &Pool{units: append([]*Unit(nil), units...)}, nil
}

// Units returns the units in pool order.
func (p *Pool) Units() []*Unit {
	return append([]*Unit(nil), p.units...)
}

// Len returns the number of units.
func (p *Pool) Len() int {
	return len(p.units)
}

// Lookup returns the first unit in pool order that serves c.
func (p *Pool) Lookup(c OpClass) (*Unit, error) {
	for _, u := range p.units {
		if u.Serves(c) {
			return u, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnresolvedOperationClass, c)
}

// Candidates returns the indices of every unit that serves c, in pool order.
func (p *Pool) Candidates(c OpClass) ([]int, error) {
	var idx []int

	for i, u := range p.units {
		if u.Serves(c) {
			idx = append(idx, i)
		}
	}

	if len(idx) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnresolvedOperationClass, c)
	}

	return idx, nil
}

// CountKind returns how many units of kind k the pool holds.
func (p *Pool) CountKind(k Kind) int {
	n := 0

	for _, u := range p.units {
		if u.Kind == k {
			n++
		}
	}

	return n
}

func (p *Pool) String() string {
	parts := make([]string, len(p.units))
	for i, u := range p.units {
		parts[i] = u.String()
	}

	return "[" + strings.Join(parts, " ") + "]"
}
