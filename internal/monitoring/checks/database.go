package checks

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/tripmate/internal/monitoring"
)

// Database returns a readiness probe that pings the primary store.
func Database(db *gorm.DB) monitoring.Check {
	return monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if db == nil {
			return monitoring.ResultFromError(errors.New("database not configured"), time.Since(start))
		}
		sqlDB, err := db.DB()
		if err != nil {
			return monitoring.ResultFromError(err, time.Since(start))
		}
		return monitoring.ResultFromError(sqlDB.PingContext(ctx), time.Since(start))
	})
}
