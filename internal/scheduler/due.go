package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// IsDue reports whether a source with the given cron schedule should run
// now. A source with no completed run yet is always due. The guard window
// suppresses re-runs shortly after the last one regardless of schedule.
// Sources without a schedule are left to the daily sweep.
func IsDue(schedule string, lastRun *time.Time, now time.Time, guard time.Duration) (bool, error) {
	if schedule == "" {
		return false, nil
	}

	spec, err := cron.ParseStandard(schedule)
	if err != nil {
		return false, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}

	if lastRun == nil {
		return true, nil
	}

	if guard > 0 && now.Sub(*lastRun) < guard {
		return false, nil
	}

	next := spec.Next(*lastRun)
	return !next.After(now), nil
}
