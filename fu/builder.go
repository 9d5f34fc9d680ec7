package fu

import "fmt"

// DefaultFloatSimdUnits is the number of float/SIMD units in a default pool.
const DefaultFloatSimdUnits = 1

// PoolBuilder builds a Pool from the default catalog.
type PoolBuilder struct {
	floatSimdUnits int
	overrides      Overrides
	withMisc       bool
}

// NewPoolBuilder returns a builder for the default catalog: one unit each of
// int, int_mul, int_div and mem, and DefaultFloatSimdUnits float_simd units.
func NewPoolBuilder() PoolBuilder {
	return PoolBuilder{
		floatSimdUnits: DefaultFloatSimdUnits,
	}
}

// WithFloatSimdUnits sets how many float_simd units the pool holds.
func (b PoolBuilder) WithFloatSimdUnits(n int) PoolBuilder {
	b.floatSimdUnits = n
	return b
}

// WithOverride replaces the latency of every unit of kind k.
func (b PoolBuilder) WithOverride(k Kind, lat Latency) PoolBuilder {
	o := make(Overrides, len(b.overrides)+1)
	for kk, l := range b.overrides {
		o[kk] = l
	}

	o[k] = lat
	b.overrides = o

	return b
}

// WithOverrides applies every entry of o.
func (b PoolBuilder) WithOverrides(o Overrides) PoolBuilder {
	for k, lat := range o {
		b = b.WithOverride(k, lat)
	}

	return b
}

// WithMisc appends a misc unit serving IprAccess and InstPrefetch.
func (b PoolBuilder) WithMisc() PoolBuilder {
	b.withMisc = true
	return b
}

func (b PoolBuilder) latency(k Kind) Latency {
	if lat, ok := b.overrides[k]; ok {
		return lat
	}

	return DefaultLatency(k)
}

// Build creates the pool.
func (b PoolBuilder) Build() (*Pool, error) {
	if b.floatSimdUnits < 0 {
		return nil, fmt.Errorf("float_simd unit count must be >= 0, got %d",
			b.floatSimdUnits)
	}

	for k := range b.overrides {
		if k < 0 || k >= numKinds {
			return nil, fmt.Errorf("override for unknown kind %s", k)
		}
	}

	order := []Kind{KindInt, KindIntMul, KindIntDiv, KindMem}
	for i := 0; i < b.floatSimdUnits; i++ {
		order = append(order, KindFloatSimd)
	}

	if b.withMisc {
		order = append(order, KindMisc)
	}

	units := make([]*Unit, 0, len(order))
	for _, k := range order {
		u, err := NewUnit(k, b.latency(k), catalog[k].classes...)
		if err != nil {
			return nil, err
		}

		units = append(units, u)
	}

	return NewPool(units...)
}
