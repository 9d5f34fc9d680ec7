// Package memmap describes physical address ranges and the maps that assign
// them to memory agents.
package memmap

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrEmptyRange is returned when a range has no bytes.
	ErrEmptyRange = errors.New("address range is empty")

	// ErrRangeOverflow is returned when a range runs past the end of the
	// 64-bit address space.
	ErrRangeOverflow = errors.New("address range overflows the address space")

	// ErrOverlap is returned when a claimed range intersects a range that is
	// already owned.
	ErrOverlap = errors.New("address ranges overlap")
)

// AddressRange is a contiguous block of physical addresses starting at Base
// and spanning Size bytes.
type AddressRange struct {
	Base uint64 `json:"base" yaml:"base"`
	Size uint64 `json:"size" yaml:"size"`
}

// NewAddressRange creates a range and checks that it is not empty and does
// not wrap around.
func NewAddressRange(base, size uint64) (AddressRange, error) {
	r := AddressRange{Base: base, Size: size}
	if err := r.Validate(); err != nil {
		return AddressRange{}, err
	}

	return r, nil
}

// Validate checks that the range is not empty and does not wrap.
func (r AddressRange) Validate() error {
	if r.Size == 0 {
		return fmt.Errorf("%w: base 0x%x", ErrEmptyRange, r.Base)
	}

	if r.Base+r.Size < r.Base && r.Base+r.Size != 0 {
		return fmt.Errorf("%w: base 0x%x size 0x%x",
			ErrRangeOverflow, r.Base, r.Size)
	}

	return nil
}

// End returns the first address after the range. It is zero when the range
// reaches the top of the address space.
func (r AddressRange) End() uint64 {
	return r.Base + r.Size
}

// Last returns the highest address inside the range.
func (r AddressRange) Last() uint64 {
	return r.Base + r.Size - 1
}

// Contains reports whether addr lies in the range.
func (r AddressRange) Contains(addr uint64) bool {
	return addr >= r.Base && addr <= r.Last()
}

// Overlaps reports whether the two ranges share at least one address.
func (r AddressRange) Overlaps(o AddressRange) bool {
	return r.Base <= o.Last() && o.Base <= r.Last()
}

func (r AddressRange) String() string {
	return fmt.Sprintf("[0x%x, 0x%x]", r.Base, r.Last())
}

type entry[T any] struct {
	r     AddressRange
	owner T
}

// Map assigns disjoint address ranges to owners. The zero value is an empty
// map ready to use.
type Map[T any] struct {
	entries []entry[T]
}

// Claim gives r to owner. It fails if r is invalid or intersects a range
// that is already claimed.
func (m *Map[T]) Claim(r AddressRange, owner T) error {
	if err := r.Validate(); err != nil {
		return err
	}

	i := m.search(r.Base)
	if i > 0 && m.entries[i-1].r.Overlaps(r) {
		return fmt.Errorf("%w: %s and %s", ErrOverlap, m.entries[i-1].r, r)
	}

	if i < len(m.entries) && m.entries[i].r.Overlaps(r) {
		return fmt.Errorf("%w: %s and %s", ErrOverlap, m.entries[i].r, r)
	}

	m.entries = append(m.entries, entry[T]{})
	copy(m.entries[i+1:], m.entries[i:])
	m.entries[i] = entry[T]{r: r, owner: owner}

	return nil
}

// search returns the index of the first entry whose base is above addr.
func (m *Map[T]) search(addr uint64) int {
	return sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].r.Base > addr
	})
}

// Find returns the owner of addr.
func (m *Map[T]) Find(addr uint64) (T, bool) {
	i := m.search(addr)
	if i > 0 && m.entries[i-1].r.Contains(addr) {
		return m.entries[i-1].owner, true
	}

	var zero T

	return zero, false
}

// Covers reports whether every address of r is owned, possibly by several
// adjacent ranges.
func (m *Map[T]) Covers(r AddressRange) bool {
	if r.Validate() != nil {
		return false
	}

	addr := r.Base
	for {
		i := m.search(addr)
		if i == 0 || !m.entries[i-1].r.Contains(addr) {
			return false
		}

		owned := m.entries[i-1].r
		if owned.Last() >= r.Last() {
			return true
		}

		addr = owned.Last() + 1
	}
}

// Ranges returns the claimed ranges in ascending address order.
func (m *Map[T]) Ranges() []AddressRange {
	ranges := make([]AddressRange, len(m.entries))
	for i, e := range m.entries {
		ranges[i] = e.r
	}

	return ranges
}

// Owners returns the owners in ascending address order.
func (m *Map[T]) Owners() []T {
	owners := make([]T, len(m.entries))
	for i, e := range m.entries {
		owners[i] = e.owner
	}

	return owners
}

// Len returns the number of claimed ranges.
func (m *Map[T]) Len() int {
	return len(m.entries)
}
