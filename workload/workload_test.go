package workload_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mctopo/workload"
)

var _ = Describe("Assign", func() {
	makeWorkloads := func(n int) []*workload.Workload {
		wls := make([]*workload.Workload, n)
		for i := range wls {
			wls[i] = workload.New("multi_thread_daxpy", "1000").WithPID(100 + i)
		}

		return wls
	}

	DescribeTable("per-core binds each core exactly once",
		func(n int) {
			wls := makeWorkloads(n)

			bound, err := workload.Assign(workload.PerCore, n, wls)
			Expect(err).NotTo(HaveOccurred())
			Expect(bound).To(HaveLen(n))

			seen := map[*workload.Workload]int{}
			for i, w := range bound {
				Expect(w).To(BeIdenticalTo(wls[i]))
				seen[w]++
			}

			Expect(seen).To(HaveLen(n))
		},
		Entry("1 core", 1),
		Entry("2 cores", 2),
		Entry("4 cores", 4),
		Entry("7 cores", 7),
		Entry("16 cores", 16),
	)

	It("should reject a per-core count mismatch", func() {
		_, err := workload.Assign(workload.PerCore, 4, makeWorkloads(3))
		Expect(err).To(MatchError(workload.ErrBinding))
	})

	It("should bind one instance to every core on broadcast", func() {
		w := workload.New("multi_thread_daxpy", "1000")

		bound, err := workload.Assign(workload.Broadcast, 4,
			[]*workload.Workload{w})
		Expect(err).NotTo(HaveOccurred())
		Expect(bound).To(HaveLen(4))

		for _, b := range bound {
			Expect(b).To(BeIdenticalTo(w))
		}
	})

	It("should reject broadcast with more than one workload", func() {
		_, err := workload.Assign(workload.Broadcast, 4, makeWorkloads(2))
		Expect(err).To(MatchError(workload.ErrBinding))
	})

	It("should reject nil workloads", func() {
		_, err := workload.Assign(workload.PerCore, 1, []*workload.Workload{nil})
		Expect(err).To(MatchError(workload.ErrBinding))
	})

	It("should parse policies", func() {
		p, err := workload.ParsePolicy("Broadcast")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(workload.Broadcast))

		p, err = workload.ParsePolicy("per_core")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal(workload.PerCore))

		_, err = workload.ParsePolicy("round-robin")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Workload", func() {
	It("should put the binary in argv[0]", func() {
		w := workload.New("bin/daxpy", "1000")
		Expect(w.Argv).To(Equal([]string{"bin/daxpy", "1000"}))
		Expect(w.PID).To(BeNil())
	})

	It("should copy on WithPID", func() {
		w := workload.New("bin/daxpy")
		tagged := w.WithPID(100)

		Expect(w.PID).To(BeNil())
		Expect(*tagged.PID).To(Equal(100))
		Expect(tagged.String()).To(ContainSubstring("pid 100"))
	})
})
