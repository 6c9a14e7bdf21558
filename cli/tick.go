package cli

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/petalstream"
	"github.com/petal-labs/petalstream/bus"
	"github.com/petal-labs/petalstream/core"
	"github.com/petal-labs/petalstream/schedule"
)

const tickNotification = "schedule.tick"

// NewTickCmd creates the "tick" subcommand.
func NewTickCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Print the activation times of a cron schedule",
		Args:  cobra.NoArgs,
		RunE:  runTick,
	}
	cmd.Flags().String("cron", "@every 1s", "Cron expression (seconds field optional)")
	cmd.Flags().Int("count", 3, "Number of ticks to print before finishing")
	cmd.Flags().Duration("timeout", 0, "Give up after this long (0 means no limit)")
	cmd.Flags().Duration("throttle", 0, "Coalesce subscription value events within this window")
	return cmd
}

func runTick(cmd *cobra.Command, _ []string) error {
	expr, _ := cmd.Flags().GetString("cron")
	count, _ := cmd.Flags().GetInt("count")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	throttle, _ := cmd.Flags().GetDuration("throttle")

	if count <= 0 {
		return exitError(exitUsage, "--count must be positive, got %d", count)
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close(cmd.Context())

	ticks, err := schedule.New(expr, schedule.Config{Count: count, Logger: s.logger})
	if err != nil {
		return exitError(exitValidation, "invalid cron expression: %v", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	handler := s.handler
	if handler != nil && throttle > 0 {
		th := bus.NewThrottledHandler(handler, bus.ThrottleConfig{CoalesceInterval: throttle})
		defer th.Close()
		handler = th.Handle
	}

	center := bus.NewCenter(bus.CenterConfig{})
	defer center.Close()

	out := cmd.OutOrStdout()
	var printed atomic.Int64
	observer := center.AddObserver(tickNotification, func(n bus.Notification) {
		if t, ok := n.Object.(time.Time); ok {
			printed.Add(1)
			fmt.Fprintln(out, t.Format(time.RFC3339))
		}
	})
	defer observer.Cancel()

	var stream core.Publisher[time.Time] = ticks
	if handler != nil {
		stream = petalstream.Instrument(stream, "tick", handler)
	}

	finished := make(chan core.Completion, 1)
	sink := petalstream.Sink(stream, func(c core.Completion) {
		finished <- c
	}, func(t time.Time) {
		center.Post(tickNotification, t)
	})
	defer sink.Cancel()

	if err := ticks.Start(ctx); err != nil {
		return exitError(exitRuntime, "starting schedule: %v", err)
	}
	defer func() { _ = ticks.Stop(context.Background()) }()

	select {
	case c := <-finished:
		if !c.IsFinished() {
			return exitError(exitRuntime, "schedule failed: %v", c.Err)
		}
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ticks.Stop(stopCtx)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return exitError(exitTimeout, "timed out after %s with %d of %d ticks", timeout, printed.Load(), count)
		}
		return ctx.Err()
	}
	return nil
}
