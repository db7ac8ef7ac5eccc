package jobs

import (
	"context"
	"log/slog"
	"time"
)

// Task is a unit of periodic background work. It returns the number of rows
// it touched so the runner can log something useful.
type Task func(ctx context.Context) (int64, error)

// Every runs task on each tick until ctx is cancelled. The first run happens
// after one interval, not immediately. A non-positive interval disables the job.
func Every(ctx context.Context, name string, interval time.Duration, task Task) {
	if interval <= 0 {
		slog.Warn("background job disabled", "action", name, "interval", interval.String())
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				RunOnce(ctx, name, task)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// RunOnce executes task a single time with logging.
func RunOnce(ctx context.Context, name string, task Task) {
	affected, err := task(ctx)
	if err != nil {
		slog.Error("background job failed", "action", name, "error", err)
		return
	}
	if affected > 0 {
		slog.Info("background job completed", "action", name, "affected", affected)
	}
}
