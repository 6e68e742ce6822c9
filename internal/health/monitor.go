package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ncecere/model_pricing_extractor/internal/config"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// Status is the last observed result of a named check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Monitor periodically runs registered checks and keeps the latest status of each.
type Monitor struct {
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
	mu        sync.RWMutex
	checks    map[string]Check
	status    map[string]Status
	startOnce sync.Once
	now       func() time.Time
}

// NewMonitor constructs a monitor using the health configuration.
func NewMonitor(cfg config.HealthConfig, logger *zap.Logger) *Monitor {
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	timeout := cfg.Timeout
	if timeout <= 0 || timeout > interval {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Monitor{
		interval: interval,
		timeout:  timeout,
		logger:   logger.Named("health"),
		checks:   make(map[string]Check),
		status:   make(map[string]Status),
		now:      time.Now,
	}
}

// Register adds a named check. Nil checks are ignored.
func (m *Monitor) Register(name string, check Check) {
	if m == nil || check == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
}

// Start begins the monitoring loop until ctx is canceled.
func (m *Monitor) Start(ctx context.Context) {
	if m == nil {
		return
	}
	m.startOnce.Do(func() {
		go m.run(ctx)
	})
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CheckNow(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

// CheckNow runs every registered check concurrently and waits for them.
func (m *Monitor) CheckNow(ctx context.Context) {
	if m == nil {
		return
	}
	m.mu.RLock()
	checks := make(map[string]Check, len(m.checks))
	for name, check := range m.checks {
		checks[name] = check
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check Check) {
			defer wg.Done()
			timeoutCtx, cancel := context.WithTimeout(ctx, m.timeout)
			defer cancel()

			st := Status{Name: name, Healthy: true, CheckedAt: m.now().UTC()}
			if err := check(timeoutCtx); err != nil {
				st.Healthy = false
				st.Error = err.Error()
				m.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			}
			m.mu.Lock()
			m.status[name] = st
			m.mu.Unlock()
		}(name, check)
	}
	wg.Wait()
}

// Snapshot returns the latest statuses. Checks that have not run yet are omitted.
func (m *Monitor) Snapshot() map[string]Status {
	out := make(map[string]Status)
	if m == nil {
		return out
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for name, st := range m.status {
		out[name] = st
	}
	return out
}

// Healthy is false when any check last failed.
func (m *Monitor) Healthy() bool {
	for _, st := range m.Snapshot() {
		if !st.Healthy {
			return false
		}
	}
	return true
}
