package core_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/mctopo/backend"
	"github.com/sarchlab/mctopo/fu"
	"github.com/sarchlab/mctopo/timing/cache"
	"github.com/sarchlab/mctopo/timing/core"
	"github.com/sarchlab/mctopo/workload"
)

type opList struct {
	ops  []workload.Op
	next int
	loop bool
}

func (l *opList) Next() (workload.Op, bool) {
	if l.next >= len(l.ops) {
		if !l.loop {
			return workload.Op{}, false
		}

		l.next = 0
	}

	op := l.ops[l.next]
	l.next++

	return op, true
}

type memory struct {
	latency uint64
	err     error
	reqs    int
}

func (m *memory) Access(_ cache.Request) (uint64, error) {
	m.reqs++
	return m.latency, m.err
}

func intOps(n int) []workload.Op {
	ops := make([]workload.Op, n)
	for i := range ops {
		ops[i] = workload.Op{Class: fu.IntAlu, PC: 0x1000 + uint64(i)*4}
	}

	return ops
}

var _ = Describe("Core", func() {
	var (
		engine *sim.SerialEngine
		pool   *fu.Pool
		imem   *memory
		dmem   *memory
		c      *core.Core
	)

	newCore := func(name string, id int, src core.OpSource) *core.Core {
		cc := core.NewCore(name, id, engine, 1*sim.GHz)
		cc.SetFUPool(pool)
		cc.SetInstPort(imem, 64)
		cc.SetDataPort(dmem)
		cc.Bind(1, src)

		return cc
	}

	BeforeEach(func() {
		var err error
		engine = sim.NewSerialEngine()
		pool, err = fu.NewPoolBuilder().Build()
		Expect(err).NotTo(HaveOccurred())

		imem = &memory{}
		dmem = &memory{latency: 5000}
	})

	It("should not be ready without ports and a workload", func() {
		cc := core.NewCore("cpu", 0, engine, 1*sim.GHz)
		Expect(cc.Ready()).NotTo(Succeed())

		cc.SetFUPool(pool)
		cc.SetInstPort(imem, 64)
		cc.SetDataPort(dmem)
		Expect(cc.Ready()).To(MatchError(ContainSubstring("no workload")))

		cc.Bind(1, &opList{})
		Expect(cc.Ready()).To(Succeed())
	})

	It("should exit once every operation commits", func() {
		c = newCore("cpu0", 0, &opList{ops: intOps(4)})
		run := core.NewRun(1_000_000, 1)
		c.Start(run)

		Expect(engine.Run()).To(Succeed())

		exited, tick := c.Exited()
		Expect(exited).To(BeTrue())
		// Four IntAlu ops issued at cycles 0-3, the last commits at cycle 6.
		Expect(tick).To(Equal(uint64(6000)))
		Expect(c.Stats().Instructions).To(Equal(uint64(4)))
		Expect(imem.reqs).To(Equal(1))

		ticks, cause, _, err := run.Outcome()
		Expect(err).NotTo(HaveOccurred())
		Expect(cause).To(Equal(backend.CauseWorkloadExit))
		Expect(ticks).To(Equal(uint64(6000)))
	})

	It("should add data access latency before commit", func() {
		ops := []workload.Op{{Class: fu.MemRead, PC: 0x1000, Addr: 0x8000}}
		c = newCore("cpu0", 0, &opList{ops: ops})
		run := core.NewRun(1_000_000, 1)
		c.Start(run)

		Expect(engine.Run()).To(Succeed())

		_, tick := c.Exited()
		// Mem unit op latency 1 plus 5 cycles of memory.
		Expect(tick).To(Equal(uint64(6000)))
		Expect(c.Stats().MemOps).To(Equal(uint64(1)))
	})

	It("should stop at the budget when the workload never exits", func() {
		c = newCore("cpu0", 0, &opList{ops: intOps(2), loop: true})
		run := core.NewRun(10_000, 1)
		c.Start(run)

		Expect(engine.Run()).To(Succeed())

		exited, _ := c.Exited()
		Expect(exited).To(BeFalse())
		Expect(c.Stats().Cycles).To(Equal(uint64(10)))

		ticks, cause, _, err := run.Outcome()
		Expect(err).NotTo(HaveOccurred())
		Expect(cause).To(Equal(backend.CauseBudgetExhausted))
		Expect(ticks).To(Equal(uint64(10_000)))
	})

	It("should fail the run on an unresolved operation class", func() {
		var err error
		pool, err = fu.NewPoolBuilder().WithFloatSimdUnits(0).Build()
		Expect(err).NotTo(HaveOccurred())

		ops := []workload.Op{{Class: fu.FloatMultAcc, PC: 0x1000}}
		c = newCore("cpu0", 0, &opList{ops: ops, loop: true})
		run := core.NewRun(1_000_000, 1)
		c.Start(run)

		Expect(engine.Run()).To(Succeed())

		_, _, _, err = run.Outcome()
		Expect(err).To(MatchError(fu.ErrUnresolvedOperationClass))
		Expect(err.Error()).To(ContainSubstring("cpu0"))
	})

	It("should report a fault when memory rejects an access", func() {
		dmem.err = errors.New("address 0x8000 is not mapped")

		ops := []workload.Op{{Class: fu.MemWrite, PC: 0x1000, Addr: 0x8000}}
		c = newCore("cpu0", 0, &opList{ops: ops, loop: true})
		run := core.NewRun(1_000_000, 1)
		c.Start(run)

		Expect(engine.Run()).To(Succeed())

		ticks, cause, detail, err := run.Outcome()
		Expect(err).NotTo(HaveOccurred())
		Expect(cause).To(Equal(backend.CauseFault))
		Expect(ticks).To(Equal(uint64(0)))
		Expect(detail).To(ContainSubstring("cpu0"))
	})

	It("should finish when the last of several cores exits", func() {
		short := newCore("cpu0", 0, &opList{ops: intOps(2)})
		long := newCore("cpu1", 1, &opList{ops: intOps(8)})
		run := core.NewRun(1_000_000, 2)
		short.Start(run)
		long.Start(run)

		Expect(engine.Run()).To(Succeed())

		_, shortTick := short.Exited()
		_, longTick := long.Exited()
		Expect(shortTick).To(BeNumerically("<", longTick))

		ticks, cause, _, err := run.Outcome()
		Expect(err).NotTo(HaveOccurred())
		Expect(cause).To(Equal(backend.CauseWorkloadExit))
		Expect(ticks).To(Equal(longTick))
		Expect(run.Active()).To(Equal(0))
	})
})
