package checks

import (
	"context"
	"strings"
	"time"

	"github.com/charlesng35/tripmate/internal/monitoring"
)

const defaultMaintenanceMaxAge = 6 * time.Hour

// Maintenance flags background jobs that keep failing or have stopped running.
func Maintenance(maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.NewOptionalCheck("maintenance", func(ctx context.Context) monitoring.ProbeResult {
		status := monitoring.StatusUp
		var problems []string
		now := time.Now()

		for _, job := range monitoring.Jobs() {
			if job.ConsecutiveFailures > 0 {
				status = monitoring.StatusDown
				problems = append(problems, job.Job+": "+job.LastError)
				continue
			}
			if now.Sub(job.LastRunAt) > maxAge {
				if status == monitoring.StatusUp {
					status = monitoring.StatusDegraded
				}
				problems = append(problems, job.Job+": last run "+job.LastRunAt.Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{Status: status, Details: strings.Join(problems, "; ")}
	})
}
