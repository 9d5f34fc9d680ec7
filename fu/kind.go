package fu

import (
	"fmt"
	"strings"
)

// Kind identifies one entry of the functional-unit catalog.
type Kind int

// The unit kinds of the default catalog.
const (
	KindInt Kind = iota
	KindIntMul
	KindIntDiv
	KindMem
	KindFloatSimd
	KindMisc
	numKinds
)

var kindNames = [numKinds]string{
	KindInt:       "int",
	KindIntMul:    "int_mul",
	KindIntDiv:    "int_div",
	KindMem:       "mem",
	KindFloatSimd: "float_simd",
	KindMisc:      "misc",
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}

	return kindNames[k]
}

// Kinds returns every catalog kind in catalog order.
func Kinds() []Kind {
	kinds := make([]Kind, numKinds)
	for i := range kinds {
		kinds[i] = Kind(i)
	}

	return kinds
}

// ParseKind converts a kind name such as "float_simd" to a Kind.
func ParseKind(name string) (Kind, error) {
	n := strings.ReplaceAll(strings.ToLower(name), "-", "_")
	for i, kn := range kindNames {
		if kn == n {
			return Kind(i), nil
		}
	}

	return 0, fmt.Errorf("unknown functional unit kind %q", name)
}

// Latency is the timing pair of a functional unit, in cycles.
type Latency struct {
	Op    uint64 `json:"op_lat" yaml:"op_lat"`
	Issue uint64 `json:"issue_lat" yaml:"issue_lat"`
}

// Validate checks that both latencies are at least one cycle. No relation
// between the two is enforced.
func (l Latency) Validate() error {
	if l.Op == 0 {
		return fmt.Errorf("op_lat must be > 0")
	}

	if l.Issue == 0 {
		return fmt.Errorf("issue_lat must be > 0")
	}

	return nil
}

// Overrides replaces the catalog latency of the listed kinds.
type Overrides map[Kind]Latency

type catalogEntry struct {
	classes []OpClass
	latency Latency
}

// catalog holds the in-order core defaults for every kind.
var catalog = [numKinds]catalogEntry{
	KindInt: {
		classes: []OpClass{IntAlu},
		latency: Latency{Op: 3, Issue: 1},
	},
	KindIntMul: {
		classes: []OpClass{IntMult},
		latency: Latency{Op: 3, Issue: 1},
	},
	KindIntDiv: {
		classes: []OpClass{IntDiv},
		latency: Latency{Op: 9, Issue: 9},
	},
	KindMem: {
		classes: []OpClass{MemRead, MemWrite, FloatMemRead, FloatMemWrite},
		latency: Latency{Op: 1, Issue: 1},
	},
	KindFloatSimd: {
		classes: []OpClass{
			FloatAdd, FloatCmp, FloatCvt, FloatMult, FloatMultAcc, FloatDiv,
			FloatMisc, FloatSqrt, SimdAdd, SimdAlu, SimdMult, SimdFloatAdd,
			SimdFloatMult, SimdFloatMultAcc,
		},
		latency: Latency{Op: 6, Issue: 1},
	},
	KindMisc: {
		classes: []OpClass{IprAccess, InstPrefetch},
		latency: Latency{Op: 1, Issue: 1},
	},
}

// DefaultLatency returns the catalog latency of a kind.
func DefaultLatency(k Kind) Latency {
	return catalog[k].latency
}

// DefaultClasses returns the operation classes a kind serves by default.
func DefaultClasses(k Kind) []OpClass {
	return append([]OpClass(nil), catalog[k].classes...)
}
