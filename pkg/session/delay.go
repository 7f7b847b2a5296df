package session

import (
	"context"
	"time"
)

// DefaultStartupDelay is how long the camera is given to settle after
// each startup command. chdkptp sends no acknowledgement, so this is a
// guess that has proven long enough in practice.
const DefaultStartupDelay = 2 * time.Second

// DelayPolicy controls the blind pauses used to pace the camera.
type DelayPolicy struct {
	// Startup is the pause after each startup command.
	Startup time.Duration

	// Recycle is the pause after each command re-issued after a restart.
	Recycle time.Duration

	// Sleep replaces the timer-based wait. Tests use it to record delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultDelayPolicy returns the empirically tuned delays.
func DefaultDelayPolicy() DelayPolicy {
	return DelayPolicy{
		Startup: DefaultStartupDelay,
	}
}

// Wait pauses for d, returning early with ctx.Err() on cancellation.
func (p DelayPolicy) Wait(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
