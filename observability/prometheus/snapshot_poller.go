package prometheus

import (
	"context"
	"sync"
	"time"

	"github.com/Swind/go-pool-party/core"
	prom "github.com/prometheus/client_golang/prometheus"
)

// PoolSnapshotProvider provides current pool stats snapshots.
// *poolparty.ThreadPool satisfies it.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically exports pool Stats() snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	poolQueued       *prom.GaugeVec
	poolActive       *prom.GaugeVec
	poolWorkers      *prom.GaugeVec
	poolCompleted    *prom.GaugeVec
	poolPanicked     *prom.GaugeVec
	poolRejected     *prom.GaugeVec
	poolShuttingDown *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(namespace string, reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	namespace = normalizeLabel(namespace, DefaultNamespace)
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	gauge := func(name, help string) *prom.GaugeVec {
		return prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, []string{"pool"})
	}

	p := &SnapshotPoller{
		interval:         interval,
		pools:            make(map[string]PoolSnapshotProvider),
		poolQueued:       gauge("pool_queued", "Queued tasks per pool."),
		poolActive:       gauge("pool_active", "Tasks currently running per pool."),
		poolWorkers:      gauge("pool_workers", "Worker count per pool."),
		poolCompleted:    gauge("pool_completed", "Tasks that returned normally, snapshot per pool."),
		poolPanicked:     gauge("pool_panicked", "Panicked task count snapshot per pool."),
		poolRejected:     gauge("pool_rejected", "Rejected submission count snapshot per pool."),
		poolShuttingDown: gauge("pool_shutting_down", "Pool shutdown state (1=shutting down, 0=accepting)."),
	}

	for _, target := range []**prom.GaugeVec{
		&p.poolQueued,
		&p.poolActive,
		&p.poolWorkers,
		&p.poolCompleted,
		&p.poolPanicked,
		&p.poolRejected,
		&p.poolShuttingDown,
	} {
		registered, err := registerCollector(reg, *target)
		if err != nil {
			return nil, err
		}
		*target = registered
	}

	return p, nil
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// RemovePool stops exporting the named pool and deletes its series.
func (p *SnapshotPoller) RemovePool(name string) {
	if p == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	delete(p.pools, name)
	p.poolsMu.Unlock()

	for _, vec := range []*prom.GaugeVec{
		p.poolQueued,
		p.poolActive,
		p.poolWorkers,
		p.poolCompleted,
		p.poolPanicked,
		p.poolRejected,
		p.poolShuttingDown,
	} {
		vec.DeleteLabelValues(name)
	}
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	done := p.done
	p.stateMu.Unlock()

	go p.loop(pollCtx, done)
}

// Stop stops periodic polling and takes one final snapshot; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()

	p.CollectOnce()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.CollectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.CollectOnce()
		}
	}
}

// CollectOnce copies the current Stats() of every registered pool into the gauges.
func (p *SnapshotPoller) CollectOnce() {
	p.poolsMu.RLock()
	defer p.poolsMu.RUnlock()

	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolQueued.WithLabelValues(name).Set(float64(stats.Queued))
		p.poolActive.WithLabelValues(name).Set(float64(stats.Active))
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolCompleted.WithLabelValues(name).Set(float64(stats.Completed))
		p.poolPanicked.WithLabelValues(name).Set(float64(stats.Panicked))
		p.poolRejected.WithLabelValues(name).Set(float64(stats.Rejected))
		if stats.ShuttingDown {
			p.poolShuttingDown.WithLabelValues(name).Set(1)
		} else {
			p.poolShuttingDown.WithLabelValues(name).Set(0)
		}
	}
}
