package monitoring_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/tripmate/internal/database/testutil"
	"github.com/charlesng35/tripmate/internal/monitoring"
	"github.com/charlesng35/tripmate/internal/monitoring/checks"
	"github.com/charlesng35/tripmate/internal/queue"
)

type fakeQueue struct{ state queue.State }

func (f fakeQueue) State() queue.State { return f.state }

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestReadinessAllUp(t *testing.T) {
	manager := monitoring.NewHealthManager(time.Second)
	manager.Register(checks.Cache(fakePinger{}))
	manager.Register(checks.Queue(fakeQueue{state: queue.StateConnected}, true))

	report := manager.Readiness(context.Background())
	require.True(t, report.Success)
	require.Equal(t, monitoring.StatusUp, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "cache", report.Checks[0].Component)
	require.Equal(t, "queue", report.Checks[1].Component)
}

func TestReadinessOptionalFailureDegrades(t *testing.T) {
	manager := monitoring.NewHealthManager(time.Second)
	manager.Register(checks.Queue(fakeQueue{state: queue.StateDisconnected}, false))
	manager.Register(checks.Cache(fakePinger{err: errors.New("connection refused")}))

	report := manager.Readiness(context.Background())
	require.True(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Status)
	require.Equal(t, monitoring.StatusDown, report.Checks[0].Status)
	require.True(t, report.Checks[0].Optional)
	require.Equal(t, "disconnected", report.Checks[0].Details)
}

func TestReadinessRequiredFailure(t *testing.T) {
	manager := monitoring.NewHealthManager(time.Second)
	manager.Register(checks.Queue(fakeQueue{state: queue.StateClosed}, true))
	manager.Register(monitoring.NewCheck("panics", func(context.Context) monitoring.ProbeResult {
		panic("boom")
	}))

	report := manager.Readiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Contains(t, report.Checks[1].Details, "boom")
}

func TestReadinessProbeTimeout(t *testing.T) {
	manager := monitoring.NewHealthManager(20 * time.Millisecond)
	manager.Register(monitoring.NewCheck("slow", func(ctx context.Context) monitoring.ProbeResult {
		<-ctx.Done()
		return monitoring.ResultFromError(ctx.Err(), 0)
	}))

	report := manager.Readiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Checks[0].Status)
}

func TestCacheCheckWithoutRedis(t *testing.T) {
	manager := monitoring.NewHealthManager(time.Second)
	manager.Register(checks.Cache(nil))

	report := manager.Readiness(context.Background())
	require.True(t, report.Success)
	require.Contains(t, report.Checks[0].Details, "database store")
}

func TestLiveness(t *testing.T) {
	report := monitoring.NewHealthManager(0).Liveness()
	require.True(t, report.Success)
	require.Empty(t, report.Checks)
}

func TestJobTrackingAndMaintenanceCheck(t *testing.T) {
	monitoring.ResetJobs()
	t.Cleanup(monitoring.ResetJobs)

	manager := monitoring.NewHealthManager(time.Second)
	manager.Register(checks.Maintenance(time.Hour))

	monitoring.RecordJobRun("cache_sweep", nil, 10*time.Millisecond)
	report := manager.Readiness(context.Background())
	require.Equal(t, monitoring.StatusUp, report.Status)

	monitoring.RecordJobRun("cache_sweep", errors.New("database is locked"), time.Millisecond)
	jobs := monitoring.Jobs()
	require.Len(t, jobs, 1)
	require.EqualValues(t, 2, jobs[0].TotalRuns)
	require.EqualValues(t, 1, jobs[0].ConsecutiveFailures)

	report = manager.Readiness(context.Background())
	require.True(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Status)
	require.Contains(t, report.Checks[0].Details, "database is locked")

	monitoring.RecordJobRun("cache_sweep", nil, time.Millisecond)
	require.Zero(t, monitoring.Jobs()[0].ConsecutiveFailures)
}

func TestDatabaseCheck(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	manager := monitoring.NewHealthManager(time.Second)
	manager.Register(checks.Database(db))
	manager.Register(checks.Database(nil))

	report := manager.Readiness(context.Background())
	require.Equal(t, monitoring.StatusUp, report.Checks[0].Status)
	require.Equal(t, monitoring.StatusDown, report.Checks[1].Status)
	require.False(t, report.Success)
}
