// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPollExhausted is returned by Poll when the job is still pending after
// the last allowed attempt.
var ErrPollExhausted = errors.New("poll attempts exhausted")

// Policy is a fixed polling schedule: wait InitialDelay, then check up to
// MaxAttempts times, waiting Interval after every check that is not done.
type Policy struct {
	InitialDelay time.Duration `json:"initial_delay" yaml:"initial_delay"`
	Interval     time.Duration `json:"interval" yaml:"interval"`
	MaxAttempts  int           `json:"max_attempts" yaml:"max_attempts"`
}

// Poll runs check on the policy's schedule until it reports done or fails.
// An error from check is terminal and returned as is.
func Poll(ctx context.Context, sleeper Sleeper, p Policy, check func(ctx context.Context, attempt int) (bool, error)) error {
	if sleeper == nil {
		sleeper = RealSleeper
	}
	attempts := max(p.MaxAttempts, 1)

	if err := sleeper.Sleep(ctx, p.InitialDelay); err != nil {
		return err
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		done, err := check(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if attempt == attempts {
			break
		}
		if err := sleeper.Sleep(ctx, p.Interval); err != nil {
			return err
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, ErrPollExhausted)
}
