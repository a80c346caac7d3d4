package driver

import (
	"context"
	"time"
)

const (
	DefaultZoomSettle = 2 * time.Second
	DefaultMoveUnit   = 500 * time.Millisecond
	DefaultZoomSteps  = 15
)

// Timing holds the fixed delays the harness needs after some input commands.
// The harness gives no completion signal, so these are the only
// synchronization available.
type Timing struct {
	ZoomSettle time.Duration
	MoveUnit   time.Duration
	ZoomSteps  int
}

func DefaultTiming() Timing {
	return Timing{
		ZoomSettle: DefaultZoomSettle,
		MoveUnit:   DefaultMoveUnit,
		ZoomSteps:  DefaultZoomSteps,
	}
}

// clamped treats negative values as zero. Zero is a valid setting: no wait,
// or no wheel notches.
func (t Timing) clamped() Timing {
	t.ZoomSettle = max(t.ZoomSettle, 0)
	t.MoveUnit = max(t.MoveUnit, 0)
	t.ZoomSteps = max(t.ZoomSteps, 0)
	return t
}

func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
