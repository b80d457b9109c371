package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"costwatch/internal/domain/budget"
	"costwatch/internal/pkg/logger"
	"costwatch/internal/pkg/metrics"
	"costwatch/internal/services"
)

// Monitor drives the periodic evaluation cycle: metrics cache refresh,
// anomaly detection, then budget alert checks. Each phase is fault
// isolated so one failing phase never blocks the next phase or future
// ticks.
type Monitor struct {
	cache    *services.MetricsCache
	detector *services.AnomalyDetector
	budgets  budget.Service
	log      *logger.Logger

	interval    time.Duration
	tickTimeout time.Duration

	inFlight atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
	startMu  sync.Mutex
}

// NewMonitor creates a new monitor worker
func NewMonitor(cache *services.MetricsCache, detector *services.AnomalyDetector, budgets budget.Service, log *logger.Logger, interval, tickTimeout time.Duration) *Monitor {
	return &Monitor{
		cache:       cache,
		detector:    detector,
		budgets:     budgets,
		log:         log,
		interval:    interval,
		tickTimeout: tickTimeout,
	}
}

// Start launches the periodic loop. An initial tick runs immediately;
// subsequent ticks fire on the interval until the context is cancelled
// or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	m.startMu.Lock()
	defer m.startMu.Unlock()
	if m.done != nil {
		return
	}

	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	m.log.WithFields(map[string]interface{}{"interval": m.interval.String()}).Info("starting cost monitor")

	go func() {
		defer close(m.done)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.Tick(ctx)

		for {
			select {
			case <-ticker.C:
				m.Tick(ctx)
			case <-ctx.Done():
				m.log.Info("cost monitor stopped")
				return
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight tick to finish.
func (m *Monitor) Stop() {
	m.startMu.Lock()
	defer m.startMu.Unlock()
	if m.done == nil {
		return
	}
	m.cancel()
	<-m.done
	m.done = nil
}

// Tick runs one evaluation cycle. Overlapping ticks are skipped rather
// than queued.
func (m *Monitor) Tick(ctx context.Context) {
	if !m.inFlight.CompareAndSwap(false, true) {
		m.log.Warn("previous tick still running, skipping")
		metrics.RecordTick("skipped", 0)
		return
	}
	defer m.inFlight.Store(false)

	if m.tickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.tickTimeout)
		defer cancel()
	}

	start := time.Now()
	result := "ok"

	if err := m.cache.Refresh(ctx); err != nil {
		m.log.ErrorWithErr(err, "metrics refresh phase failed")
		metrics.RecordPhaseError("refresh")
		result = "partial"
	}

	if found, err := m.detector.Detect(ctx); err != nil {
		m.log.ErrorWithErr(err, "anomaly detection phase failed")
		metrics.RecordPhaseError("detect")
		result = "partial"
	} else if len(found) > 0 {
		m.log.WithFields(map[string]interface{}{"count": len(found)}).Info("anomalies detected")
	}

	if err := m.budgets.CheckAlerts(ctx); err != nil {
		m.log.ErrorWithErr(err, "budget alert phase failed")
		metrics.RecordPhaseError("alerts")
		result = "partial"
	}

	metrics.RecordTick(result, time.Since(start))
}
