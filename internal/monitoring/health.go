package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDown     ProbeStatus = "down"
	StatusDegraded ProbeStatus = "degraded"
)

const defaultProbeTimeout = 3 * time.Second

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string        `json:"component"`
	Status    ProbeStatus   `json:"status"`
	Details   string        `json:"details,omitempty"`
	Optional  bool          `json:"optional,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport aggregates probe results.
type HealthReport struct {
	Success bool          `json:"success"`
	Status  ProbeStatus   `json:"status"`
	Checks  []ProbeResult `json:"checks"`
}

// Check encapsulates a single dependency probe. An optional check that fails
// degrades the report without failing it.
type Check struct {
	Name     string
	Optional bool
	Run      func(ctx context.Context) ProbeResult
}

// NewCheck constructs a required health check.
func NewCheck(name string, fn func(ctx context.Context) ProbeResult) Check {
	if fn == nil {
		fn = func(context.Context) ProbeResult {
			return ProbeResult{Status: StatusDown, Details: "probe not implemented"}
		}
	}
	return Check{Name: name, Run: fn}
}

// NewOptionalCheck constructs a check whose failure only degrades readiness.
func NewOptionalCheck(name string, fn func(ctx context.Context) ProbeResult) Check {
	check := NewCheck(name, fn)
	check.Optional = true
	return check
}

// HealthManager runs readiness probes.
type HealthManager struct {
	mu      sync.RWMutex
	checks  []Check
	timeout time.Duration
}

// NewHealthManager constructs an empty health manager. Each probe is bounded by timeout.
func NewHealthManager(timeout time.Duration) *HealthManager {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &HealthManager{timeout: timeout}
}

// Register appends a readiness probe.
func (m *HealthManager) Register(check Check) {
	if check.Name == "" || check.Run == nil {
		return
	}
	m.mu.Lock()
	m.checks = append(m.checks, check)
	m.mu.Unlock()
}

// Liveness reports that the process is serving requests.
func (m *HealthManager) Liveness() HealthReport {
	return HealthReport{Success: true, Status: StatusUp, Checks: []ProbeResult{}}
}

// Readiness runs every registered probe concurrently and folds the results in
// registration order.
func (m *HealthManager) Readiness(ctx context.Context) HealthReport {
	if ctx == nil {
		ctx = context.Background()
	}
	m.mu.RLock()
	checks := append([]Check(nil), m.checks...)
	m.mu.RUnlock()

	results := make([]ProbeResult, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func(i int, check Check) {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
			defer cancel()
			results[i] = runCheck(probeCtx, check)
		}(i, check)
	}
	wg.Wait()

	return fold(results)
}

func fold(results []ProbeResult) HealthReport {
	report := HealthReport{Success: true, Status: StatusUp, Checks: results}
	for _, result := range results {
		if result.Status == StatusUp {
			continue
		}
		if result.Optional || result.Status == StatusDegraded {
			if report.Status == StatusUp {
				report.Status = StatusDegraded
			}
			if !result.Optional {
				report.Success = false
			}
			continue
		}
		report.Success = false
		report.Status = StatusDown
	}
	return report
}

func runCheck(ctx context.Context, check Check) (result ProbeResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = ProbeResult{Status: StatusDown, Details: fmt.Sprintf("probe panic: %v", r)}
		}
		result.Component = check.Name
		result.Optional = check.Optional
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}
	}()
	return check.Run(ctx)
}

// ResultFromError converts an error into a ProbeResult. Timeouts degrade instead of failing.
func ResultFromError(err error, duration time.Duration) ProbeResult {
	if duration < 0 {
		duration = 0
	}
	if err == nil {
		return ProbeResult{Status: StatusUp, Duration: duration}
	}

	status := StatusDown
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		status = StatusDegraded
	}
	return ProbeResult{Status: status, Details: err.Error(), Duration: duration}
}
