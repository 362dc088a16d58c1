package monitoring

import (
	"sort"
	"sync"
	"time"

	"github.com/charlesng35/tripmate/pkg/metrics"
)

// JobStatus summarises the run history of a background job.
type JobStatus struct {
	Job                 string    `json:"job"`
	TotalRuns           uint64    `json:"totalRuns"`
	ConsecutiveFailures uint64    `json:"consecutiveFailures"`
	LastRunAt           time.Time `json:"lastRunAt"`
	LastError           string    `json:"lastError,omitempty"`
	LastDuration        float64   `json:"lastDurationSeconds"`
}

var jobs = struct {
	sync.Mutex
	byName map[string]*JobStatus
}{byName: make(map[string]*JobStatus)}

// RecordJobRun tracks one execution of job. A nil err counts as success.
func RecordJobRun(job string, err error, duration time.Duration) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.MaintenanceRuns.WithLabelValues(job, result).Inc()

	jobs.Lock()
	defer jobs.Unlock()
	status, ok := jobs.byName[job]
	if !ok {
		status = &JobStatus{Job: job}
		jobs.byName[job] = status
	}
	status.TotalRuns++
	status.LastRunAt = time.Now().UTC()
	status.LastDuration = duration.Seconds()
	if err != nil {
		status.ConsecutiveFailures++
		status.LastError = err.Error()
		return
	}
	status.ConsecutiveFailures = 0
	status.LastError = ""
}

// Jobs returns a snapshot of every tracked job ordered by name.
func Jobs() []JobStatus {
	jobs.Lock()
	out := make([]JobStatus, 0, len(jobs.byName))
	for _, status := range jobs.byName {
		out = append(out, *status)
	}
	jobs.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

// ResetJobs forgets all job history.
func ResetJobs() {
	jobs.Lock()
	jobs.byName = make(map[string]*JobStatus)
	jobs.Unlock()
}
