// Package fu models the functional units of a core's execute stage.
//
// A Pool is an ordered list of Units. Each Unit serves a set of operation
// classes and has an operation latency (cycles from issue to result) and an
// issue latency (minimum spacing between two issues to the same unit).
// Lookups go by OpClass and return the first matching unit in pool order.
package fu

import (
	"fmt"
	"strings"
)

// OpClass tags the kind of operation an instruction performs.
type OpClass int

// The operation classes understood by the functional-unit catalog.
const (
	OpNone OpClass = iota
	IntAlu
	IntMult
	IntDiv
	MemRead
	MemWrite
	FloatMemRead
	FloatMemWrite
	FloatAdd
	FloatCmp
	FloatCvt
	FloatMult
	FloatMultAcc
	FloatDiv
	FloatMisc
	FloatSqrt
	SimdAdd
	SimdAlu
	SimdMult
	SimdFloatAdd
	SimdFloatMult
	SimdFloatMultAcc
	IprAccess
	InstPrefetch
	numOpClasses
)

var opClassNames = [numOpClasses]string{
	OpNone:           "No_OpClass",
	IntAlu:           "IntAlu",
	IntMult:          "IntMult",
	IntDiv:           "IntDiv",
	MemRead:          "MemRead",
	MemWrite:         "MemWrite",
	FloatMemRead:     "FloatMemRead",
	FloatMemWrite:    "FloatMemWrite",
	FloatAdd:         "FloatAdd",
	FloatCmp:         "FloatCmp",
	FloatCvt:         "FloatCvt",
	FloatMult:        "FloatMult",
	FloatMultAcc:     "FloatMultAcc",
	FloatDiv:         "FloatDiv",
	FloatMisc:        "FloatMisc",
	FloatSqrt:        "FloatSqrt",
	SimdAdd:          "SimdAdd",
	SimdAlu:          "SimdAlu",
	SimdMult:         "SimdMult",
	SimdFloatAdd:     "SimdFloatAdd",
	SimdFloatMult:    "SimdFloatMult",
	SimdFloatMultAcc: "SimdFloatMultAcc",
	IprAccess:        "IprAccess",
	InstPrefetch:     "InstPrefetch",
}

func (c OpClass) String() string {
	if c < 0 || c >= numOpClasses {
		return fmt.Sprintf("OpClass(%d)", int(c))
	}

	return opClassNames[c]
}

// IsMemory returns true for classes that access data memory.
func (c OpClass) IsMemory() bool {
	switch c {
	case MemRead, MemWrite, FloatMemRead, FloatMemWrite:
		return true
	default:
		return false
	}
}

// IsStore returns true for classes that write data memory.
func (c OpClass) IsStore() bool {
	return c == MemWrite || c == FloatMemWrite
}

// ParseOpClass converts a class name to an OpClass. Matching ignores case.
func ParseOpClass(name string) (OpClass, error) {
	for i, n := range opClassNames {
		if strings.EqualFold(n, name) {
			return OpClass(i), nil
		}
	}

	return OpNone, fmt.Errorf("unknown op class %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (c OpClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *OpClass) UnmarshalText(text []byte) error {
	parsed, err := ParseOpClass(string(text))
	if err != nil {
		return err
	}

	*c = parsed

	return nil
}
