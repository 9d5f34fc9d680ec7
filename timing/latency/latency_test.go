package latency_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mctopo/fu"
	"github.com/sarchlab/mctopo/timing/latency"
)

var _ = Describe("Scoreboard", func() {
	var (
		pool *fu.Pool
		sb   *latency.Scoreboard
	)

	build := func(floatUnits int, lat fu.Latency, window int) {
		var err error
		pool, err = fu.NewPoolBuilder().
			WithFloatSimdUnits(floatUnits).
			WithOverride(fu.KindFloatSimd, lat).
			Build()
		Expect(err).NotTo(HaveOccurred())

		sb = latency.NewScoreboard(pool, window)
	}

	Describe("issue spacing", func() {
		BeforeEach(func() {
			build(1, fu.Latency{Op: 4, Issue: 3}, 8)
		})

		It("should keep a unit busy for its issue latency", func() {
			idx, err := sb.Reserve(fu.FloatAdd, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(idx).To(Equal(4))
			Expect(sb.Dispatch(idx, 0, 0)).To(Equal(uint64(4)))

			_, err = sb.Reserve(fu.FloatMult, 1)
			Expect(err).To(MatchError(latency.ErrUnitBusy))
			_, err = sb.Reserve(fu.FloatMult, 2)
			Expect(err).To(MatchError(latency.ErrUnitBusy))

			idx, err = sb.Reserve(fu.FloatMult, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(sb.Dispatch(idx, 3, 0)).To(Equal(uint64(7)))

			Expect(sb.Stats().BusyStalls).To(Equal(uint64(2)))
		})

		It("should not block other kinds", func() {
			idx, _ := sb.Reserve(fu.FloatAdd, 0)
			sb.Dispatch(idx, 0, 0)

			idx, err := sb.Reserve(fu.IntAlu, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(pool.Units()[idx].Kind).To(Equal(fu.KindInt))
		})
	})

	Describe("replicas", func() {
		It("should issue to the first free replica", func() {
			build(3, fu.Latency{Op: 6, Issue: 6}, 8)

			var picked []int
			for cycle := uint64(0); cycle < 3; cycle++ {
				idx, err := sb.Reserve(fu.SimdFloatMultAcc, cycle)
				Expect(err).NotTo(HaveOccurred())
				sb.Dispatch(idx, cycle, 0)
				picked = append(picked, idx)
			}

			Expect(picked).To(Equal([]int{4, 5, 6}))

			_, err := sb.Reserve(fu.SimdFloatMultAcc, 3)
			Expect(err).To(MatchError(latency.ErrUnitBusy))

			idx, err := sb.Reserve(fu.SimdFloatMultAcc, 6)
			Expect(err).NotTo(HaveOccurred())
			Expect(idx).To(Equal(4))

			Expect(sb.Stats().PerUnit[4]).To(Equal(uint64(1)))
		})
	})

	Describe("in-order commit", func() {
		BeforeEach(func() {
			build(1, fu.Latency{Op: 10, Issue: 1}, 2)
		})

		It("should commit after every older operation", func() {
			idx, _ := sb.Reserve(fu.FloatDiv, 0)
			Expect(sb.Dispatch(idx, 0, 0)).To(Equal(uint64(10)))

			idx, _ = sb.Reserve(fu.IntAlu, 1)
			Expect(sb.Dispatch(idx, 1, 0)).To(Equal(uint64(10)))
			Expect(sb.InFlight()).To(Equal(2))
		})

		It("should stall when the window is full", func() {
			idx, _ := sb.Reserve(fu.FloatDiv, 0)
			sb.Dispatch(idx, 0, 0)
			idx, _ = sb.Reserve(fu.IntAlu, 1)
			sb.Dispatch(idx, 1, 0)

			_, err := sb.Reserve(fu.IntAlu, 2)
			Expect(err).To(MatchError(latency.ErrWindowFull))

			Expect(sb.Drained(9)).To(BeFalse())
			Expect(sb.DrainCycle()).To(Equal(uint64(10)))

			_, err = sb.Reserve(fu.IntAlu, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(sb.Drained(10)).To(BeTrue())
			Expect(sb.Stats().Committed).To(Equal(uint64(2)))
			Expect(sb.Stats().WindowFulls).To(Equal(uint64(1)))
		})

		It("should add extra cycles to the op latency", func() {
			idx, _ := sb.Reserve(fu.MemRead, 0)
			Expect(pool.Units()[idx].Kind).To(Equal(fu.KindMem))
			Expect(sb.Dispatch(idx, 0, 50)).To(Equal(uint64(51)))
		})
	})

	It("should fail on a class no unit serves", func() {
		build(0, fu.Latency{Op: 6, Issue: 1}, 8)

		_, err := sb.Reserve(fu.FloatAdd, 0)
		Expect(err).To(MatchError(fu.ErrUnresolvedOperationClass))
		Expect(sb.DrainCycle()).To(Equal(uint64(0)))
	})
})
