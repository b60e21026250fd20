/*
Copyright © 2025 Your Name

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package handlers

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"newsbrief/internal/logger"
)

// NewSweepCmd creates the sweep command that generates due briefings for
// every enabled user, either once or on a cron schedule.
func NewSweepCmd() *cobra.Command {
	var (
		once     bool
		schedule string
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Generate briefings for all users whose generation time has arrived",
		Long: `Sweep every user with briefings enabled and generate a briefing for
each one whose period has elapsed and whose local generation time has
passed. A Redis lock keeps overlapping sweeps from doubling up, so it
is safe to run from cron on several hosts.

Examples:
  # Run as a daemon on the configured schedule (default: hourly)
  newsbrief sweep

  # Run a single sweep and exit (for external cron)
  newsbrief sweep --once

  # Override the schedule
  newsbrief sweep --schedule "*/30 * * * *"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd.Context(), once, schedule)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single sweep and exit")
	cmd.Flags().StringVar(&schedule, "schedule", "", "Cron schedule (default from config: hourly)")

	return cmd
}

func runSweep(ctx context.Context, once bool, schedule string) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if once {
		return a.worker.GenerateBriefings(ctx)
	}

	if schedule == "" {
		schedule = a.cfg.Briefing.SweepSchedule
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := a.worker.GenerateBriefings(ctx); err != nil {
			logger.Error("briefing sweep failed", err)
		}
	}); err != nil {
		return err
	}

	logger.Info("briefing sweep scheduled", "schedule", schedule)
	c.Start()

	// Block until interrupted, then let the running sweep finish.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}
