package poolparty_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	poolparty "github.com/Swind/go-pool-party"
	"github.com/Swind/go-pool-party/core"
)

var _ = Describe("Global thread pool", func() {
	AfterEach(func() {
		poolparty.ShutdownGlobalThreadPool()
	})

	It("should panic when used before initialization", func() {
		Expect(func() { poolparty.GetGlobalThreadPool() }).To(Panic())
	})

	It("should keep the first pool on repeated initialization", func() {
		Expect(poolparty.InitGlobalThreadPool(2, poolparty.WithLogger(core.NewNoOpLogger()))).To(Succeed())
		first := poolparty.GetGlobalThreadPool()

		Expect(poolparty.InitGlobalThreadPool(8)).To(Succeed())

		Expect(poolparty.GetGlobalThreadPool()).To(BeIdenticalTo(first))
		Expect(first.WorkerCount()).To(Equal(2))
		Expect(first.ID()).To(Equal("global-pool"))
	})

	It("should propagate an invalid thread count", func() {
		Expect(poolparty.InitGlobalThreadPool(0)).To(MatchError(poolparty.ErrInvalidThreadCount))
		Expect(func() { poolparty.GetGlobalThreadPool() }).To(Panic())
	})

	It("should drain queued work on shutdown", func() {
		Expect(poolparty.InitGlobalThreadPool(1, poolparty.WithLogger(core.NewNoOpLogger()))).To(Succeed())

		future, err := poolparty.Submit(poolparty.GetGlobalThreadPool(), func() (int, error) { return 7, nil })
		Expect(err).NotTo(HaveOccurred())

		poolparty.ShutdownGlobalThreadPool()

		Expect(future.Ready()).To(BeTrue())
		Expect(future.Get()).To(Equal(7))
	})
})
