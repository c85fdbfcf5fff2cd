package poolparty_test

import (
	"runtime"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	poolparty "github.com/Swind/go-pool-party"
	"github.com/Swind/go-pool-party/core"
)

type trackingFactory struct {
	exited atomic.Int32
}

func (f *trackingFactory) Create(body func()) core.Joinable {
	return core.GoroutineFactory{}.Create(func() {
		defer f.exited.Add(1)
		body()
	})
}

var _ = Describe("Unreachable pool", func() {
	It("should shut down and let its workers drain the queue", func() {
		factory := &trackingFactory{}
		var handled atomic.Int32

		func() {
			pool, err := poolparty.New(2,
				poolparty.WithLogger(core.NewNoOpLogger()),
				poolparty.WithThreadFactory(factory),
			)
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 10; i++ {
				_, err := pool.Enqueue(func() { handled.Add(1) })
				Expect(err).NotTo(HaveOccurred())
			}
		}()

		Eventually(func() int32 {
			runtime.GC()
			return factory.exited.Load()
		}, 5*time.Second, 20*time.Millisecond).Should(BeEquivalentTo(2))
		Expect(handled.Load()).To(BeEquivalentTo(10))
	})
})
