package fu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mctopo/fu"
)

var _ = Describe("Pool", func() {
	Describe("Default catalog", func() {
		It("should hold the catalog kinds in order", func() {
			pool, err := fu.NewPoolBuilder().WithFloatSimdUnits(3).Build()
			Expect(err).NotTo(HaveOccurred())

			kinds := []fu.Kind{}
			for _, u := range pool.Units() {
				kinds = append(kinds, u.Kind)
			}

			Expect(kinds).To(Equal([]fu.Kind{
				fu.KindInt, fu.KindIntMul, fu.KindIntDiv, fu.KindMem,
				fu.KindFloatSimd, fu.KindFloatSimd, fu.KindFloatSimd,
			}))
			Expect(pool.Len()).To(Equal(7))
		})

		It("should append a misc unit only when asked", func() {
			pool, err := fu.NewPoolBuilder().WithMisc().Build()
			Expect(err).NotTo(HaveOccurred())

			units := pool.Units()
			Expect(units[len(units)-1].Kind).To(Equal(fu.KindMisc))

			u, err := pool.Lookup(fu.IprAccess)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Kind).To(Equal(fu.KindMisc))

			plain, err := fu.NewPoolBuilder().Build()
			Expect(err).NotTo(HaveOccurred())
			_, err = plain.Lookup(fu.IprAccess)
			Expect(err).To(MatchError(fu.ErrUnresolvedOperationClass))
		})

		It("should allow a pool without float units", func() {
			pool, err := fu.NewPoolBuilder().WithFloatSimdUnits(0).Build()
			Expect(err).NotTo(HaveOccurred())
			Expect(pool.CountKind(fu.KindFloatSimd)).To(Equal(0))
		})

		It("should reject a negative float unit count", func() {
			_, err := fu.NewPoolBuilder().WithFloatSimdUnits(-1).Build()
			Expect(err).To(HaveOccurred())
		})

		It("should use the default latencies", func() {
			pool, err := fu.NewPoolBuilder().Build()
			Expect(err).NotTo(HaveOccurred())

			div, err := pool.Lookup(fu.IntDiv)
			Expect(err).NotTo(HaveOccurred())
			Expect(div.OpLatency()).To(Equal(uint64(9)))
			Expect(div.IssueLatency()).To(Equal(uint64(9)))
		})
	})

	Describe("Latency overrides", func() {
		var pool *fu.Pool

		BeforeEach(func() {
			var err error
			pool, err = fu.NewPoolBuilder().
				WithFloatSimdUnits(3).
				WithOverride(fu.KindFloatSimd, fu.Latency{Op: 3, Issue: 4}).
				Build()
			Expect(err).NotTo(HaveOccurred())
		})

		It("should apply to every float unit", func() {
			for _, u := range pool.Units() {
				if u.Kind != fu.KindFloatSimd {
					continue
				}

				Expect(u.OpLatency()).To(Equal(uint64(3)))
				Expect(u.IssueLatency()).To(Equal(uint64(4)))
			}
		})

		It("should leave the other kinds at their defaults", func() {
			for _, u := range pool.Units() {
				if u.Kind == fu.KindFloatSimd {
					continue
				}

				Expect(u.Latency).To(Equal(fu.DefaultLatency(u.Kind)))
			}
		})

		It("should not require issue latency to be below op latency", func() {
			u, err := pool.Lookup(fu.FloatSqrt)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.IssueLatency()).To(BeNumerically(">", u.OpLatency()))
		})

		It("should reject zero latencies", func() {
			_, err := fu.NewPoolBuilder().
				WithOverride(fu.KindInt, fu.Latency{Op: 0, Issue: 1}).
				Build()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Lookup", func() {
		It("should return the only unit serving a class", func() {
			pool, err := fu.NewPoolBuilder().Build()
			Expect(err).NotTo(HaveOccurred())

			u, err := pool.Lookup(fu.IntMult)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Kind).To(Equal(fu.KindIntMul))
		})

		It("should fail on a class no unit serves", func() {
			pool, err := fu.NewPoolBuilder().WithFloatSimdUnits(0).Build()
			Expect(err).NotTo(HaveOccurred())

			_, err = pool.Lookup(fu.FloatMultAcc)
			Expect(err).To(MatchError(fu.ErrUnresolvedOperationClass))

			_, err = pool.Candidates(fu.FloatMultAcc)
			Expect(err).To(MatchError(fu.ErrUnresolvedOperationClass))
		})

		It("should return the first replica and list all of them", func() {
			pool, err := fu.NewPoolBuilder().WithFloatSimdUnits(3).Build()
			Expect(err).NotTo(HaveOccurred())

			u, err := pool.Lookup(fu.FloatAdd)
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(BeIdenticalTo(pool.Units()[4]))

			idx, err := pool.Candidates(fu.FloatAdd)
			Expect(err).NotTo(HaveOccurred())
			Expect(idx).To(Equal([]int{4, 5, 6}))
		})
	})

	Describe("Custom pools", func() {
		It("should reject a class claimed by two kinds", func() {
			a, err := fu.NewUnit(fu.KindInt, fu.Latency{Op: 1, Issue: 1}, fu.IntAlu)
			Expect(err).NotTo(HaveOccurred())
			b, err := fu.NewUnit(fu.KindIntMul, fu.Latency{Op: 3, Issue: 1},
				fu.IntMult, fu.IntAlu)
			Expect(err).NotTo(HaveOccurred())

			_, err = fu.NewPool(a, b)
			Expect(err).To(MatchError(fu.ErrDuplicateOpClass))
		})

		It("should reject a unit with no classes", func() {
			_, err := fu.NewUnit(fu.KindMisc, fu.Latency{Op: 1, Issue: 1})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Names", func() {
		It("should parse kinds and classes", func() {
			k, err := fu.ParseKind("float-simd")
			Expect(err).NotTo(HaveOccurred())
			Expect(k).To(Equal(fu.KindFloatSimd))

			c, err := fu.ParseOpClass("floatmultacc")
			Expect(err).NotTo(HaveOccurred())
			Expect(c).To(Equal(fu.FloatMultAcc))

			_, err = fu.ParseOpClass("Teleport")
			Expect(err).To(HaveOccurred())
		})
	})
})
