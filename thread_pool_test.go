package poolparty_test

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	poolparty "github.com/Swind/go-pool-party"
	"github.com/Swind/go-pool-party/core"
)

type countingRejections struct {
	mu      sync.Mutex
	reasons []string
}

func (c *countingRejections) HandleRejectedTask(poolID string, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reasons = append(c.reasons, reason)
}

func (c *countingRejections) Reasons() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.reasons...)
}

type quietPanics struct {
	count atomic.Int32
}

func (q *quietPanics) HandlePanic(poolID string, workerID int, panicInfo any, stackTrace []byte) {
	q.count.Add(1)
}

var _ = Describe("ThreadPool", func() {
	var pool *poolparty.ThreadPool

	newPool := func(threads int, opts ...poolparty.Option) *poolparty.ThreadPool {
		opts = append([]poolparty.Option{poolparty.WithLogger(core.NewNoOpLogger())}, opts...)
		p, err := poolparty.New(threads, opts...)
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	AfterEach(func() {
		if pool != nil {
			pool.Close()
			pool = nil
		}
	})

	Describe("New", func() {
		It("should start the requested number of workers", func() {
			pool = newPool(3, poolparty.WithID("sized"))

			Expect(pool.WorkerCount()).To(Equal(3))
			Expect(pool.ID()).To(Equal("sized"))
			Expect(pool.IsShutdown()).To(BeFalse())
		})

		It("should generate an ID when none is given", func() {
			pool = newPool(1)

			Expect(pool.ID()).To(HavePrefix("pool-"))
		})

		It("should reject a non-positive thread count", func() {
			p, err := poolparty.New(0)

			Expect(p).To(BeNil())
			Expect(err).To(MatchError(poolparty.ErrInvalidThreadCount))
		})

		It("should start workers through the configured factory", func() {
			var created atomic.Int32
			factory := factoryFunc(func(body func()) core.Joinable {
				created.Add(1)
				return core.GoroutineFactory{}.Create(body)
			})

			pool = newPool(4, poolparty.WithThreadFactory(factory))

			Expect(created.Load()).To(BeEquivalentTo(4))
		})
	})

	Describe("Submit", func() {
		It("should deliver the task result through the future", func() {
			pool = newPool(2)

			future, err := poolparty.Submit(pool, func() (string, error) { return "done", nil })
			Expect(err).NotTo(HaveOccurred())

			Eventually(future.Done(), 2*time.Second).Should(BeClosed())
			Expect(future.Get()).To(Equal("done"))
		})

		It("should bind arguments with SubmitWith", func() {
			pool = newPool(1)

			future, err := poolparty.SubmitWith(pool, func(s string) (int, error) { return len(s), nil }, "party")
			Expect(err).NotTo(HaveOccurred())

			n, err := future.Get()
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(5))
		})

		It("should deliver task errors through the future only", func() {
			pool = newPool(1)
			failure := errors.New("bad input")

			future, err := poolparty.Submit(pool, func() (int, error) { return 0, failure })
			Expect(err).NotTo(HaveOccurred())

			_, err = future.Get()
			Expect(err).To(MatchError(failure))

			var execErr *poolparty.TaskExecutionError
			Expect(errors.As(err, &execErr)).To(BeTrue())
			Expect(execErr.Panicked()).To(BeFalse())
		})

		It("should isolate a panicking task", func() {
			panics := &quietPanics{}
			pool = newPool(1, poolparty.WithPanicHandler(panics))

			bad, err := poolparty.Submit(pool, func() (int, error) { panic("boom") })
			Expect(err).NotTo(HaveOccurred())
			good, err := poolparty.Submit(pool, func() (int, error) { return 2, nil })
			Expect(err).NotTo(HaveOccurred())

			Expect(good.Get()).To(Equal(2))

			_, err = bad.Get()
			var execErr *poolparty.TaskExecutionError
			Expect(errors.As(err, &execErr)).To(BeTrue())
			Expect(execErr.Panic).To(Equal("boom"))
			Eventually(panics.count.Load).Should(BeEquivalentTo(1))
			Eventually(func() int64 { return pool.Stats().Panicked }).Should(BeEquivalentTo(1))
		})

		It("should report nil submissions as rejections", func() {
			rejections := &countingRejections{}
			pool = newPool(1, poolparty.WithRejectedTaskHandler(rejections))

			future, err := pool.Enqueue(nil)
			Expect(future).To(BeNil())
			Expect(err).To(MatchError(core.ErrNilTask))

			_, err = poolparty.Submit[int](pool, nil)
			Expect(err).To(MatchError(core.ErrNilTask))

			_, err = poolparty.SubmitWith[string, int](pool, nil, "ignored")
			Expect(err).To(MatchError(core.ErrNilTask))

			Expect(rejections.Reasons()).To(Equal([]string{"nil task", "nil task", "nil task"}))
			Expect(pool.Stats().Rejected).To(BeEquivalentTo(3))
			Expect(pool.QueuedTaskCount()).To(BeZero())
		})

		It("should keep running tasks after one calls runtime.Goexit", func() {
			pool = newPool(1)

			exiting, err := pool.Enqueue(func() { runtime.Goexit() })
			Expect(err).NotTo(HaveOccurred())
			healthy, err := poolparty.Submit(pool, func() (int, error) { return 3, nil })
			Expect(err).NotTo(HaveOccurred())

			pool.Close()

			Expect(healthy.Ready()).To(BeTrue())
			Expect(healthy.Get()).To(Equal(3))
			_, err = exiting.Get()
			Expect(err).To(MatchError(core.ErrTaskExited))
			Expect(pool.Stats().Completed).To(BeEquivalentTo(1))
		})

		It("should return promptly while every worker is busy", func() {
			pool = newPool(1)
			release := make(chan struct{})
			defer close(release)

			_, err := pool.Enqueue(func() { <-release })
			Expect(err).NotTo(HaveOccurred())

			start := time.Now()
			for i := 0; i < 100; i++ {
				_, err := pool.Enqueue(func() {})
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(time.Since(start)).To(BeNumerically("<", 500*time.Millisecond))
			Expect(pool.QueuedTaskCount()).To(BeNumerically(">=", 99))
		})
	})

	Describe("Ordering", func() {
		It("should run tasks from one submitter in order on a single worker", func() {
			pool = newPool(1)

			var mu sync.Mutex
			var events []string

			a, err := poolparty.Submit(pool, func() (int, error) {
				mu.Lock()
				events = append(events, "A")
				mu.Unlock()
				return 1, nil
			})
			Expect(err).NotTo(HaveOccurred())
			b, err := poolparty.Submit(pool, func() (int, error) {
				mu.Lock()
				events = append(events, "B")
				mu.Unlock()
				return 2, nil
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(a.Get()).To(Equal(1))
			Expect(b.Get()).To(Equal(2))

			mu.Lock()
			defer mu.Unlock()
			Expect(events).To(Equal([]string{"A", "B"}))
		})
	})

	Describe("Shutdown", func() {
		It("should run every task enqueued before shutdown", func() {
			p := newPool(4)
			var handled atomic.Int32

			for i := 0; i < 50; i++ {
				_, err := p.Enqueue(func() {
					time.Sleep(5 * time.Millisecond)
					handled.Add(1)
				})
				Expect(err).NotTo(HaveOccurred())
			}
			p.Shutdown()
			p.Close()

			Expect(handled.Load()).To(BeEquivalentTo(50))
		})

		It("should reject submissions after shutdown without running them", func() {
			rejections := &countingRejections{}
			pool = newPool(2, poolparty.WithRejectedTaskHandler(rejections))
			var handled atomic.Int32

			pool.Shutdown()
			future, err := pool.Enqueue(func() { handled.Add(1) })

			Expect(future).To(BeNil())
			Expect(err).To(MatchError(poolparty.ErrPoolClosed))
			Expect(rejections.Reasons()).To(Equal([]string{"shutdown"}))

			pool.Close()
			pool = nil
			Expect(handled.Load()).To(BeZero())
		})

		It("should stay shut down across repeated calls", func() {
			pool = newPool(2)

			pool.Shutdown()
			pool.Shutdown()

			Expect(pool.IsShutdown()).To(BeTrue())
			Expect(pool.Stats().ShuttingDown).To(BeTrue())
		})

		It("should not deadlock when called from inside a task", func() {
			pool = newPool(1)

			future, err := pool.Enqueue(func() { pool.Shutdown() })
			Expect(err).NotTo(HaveOccurred())

			Eventually(future.Done(), 2*time.Second).Should(BeClosed())
			Expect(pool.IsShutdown()).To(BeTrue())
		})
	})

	Describe("Close", func() {
		It("should be safe to call twice", func() {
			p := newPool(2)
			_, _ = p.Enqueue(func() {})

			p.Close()
			p.Close()

			Expect(p.Stats().Completed).To(BeEquivalentTo(1))
		})
	})
})

type factoryFunc func(body func()) core.Joinable

func (f factoryFunc) Create(body func()) core.Joinable { return f(body) }
