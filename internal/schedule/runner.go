package schedule

import (
	"context"
	"log/slog"
	"time"
)

// Every runs task once per period until ctx is cancelled. A task error is
// logged and followed by errBackoff before the ticker is consulted again, so
// a persistently failing task cannot spin the loop.
func Every(ctx context.Context, period, errBackoff time.Duration, task Task) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := task.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("scheduled task failed", "task", task.Name(), "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(errBackoff):
			}
		}
	}
}

// TaskFunc adapts a plain function to the Task interface.
type TaskFunc struct {
	TaskName string
	Fn       func(ctx context.Context) error
}

func (t TaskFunc) Run(ctx context.Context) error {
	return t.Fn(ctx)
}

func (t TaskFunc) Name() string {
	return t.TaskName
}
