// Package statslog implements the optional periodic storage-stats logger
// (SPEC_FULL.md §4.7), grounded in the teacher's internal/worker/cron.go
// StartCronJobs. It never mutates storage; it is pure observability and has
// no effect on protocol behavior.
package statslog

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"amqpmock/internal/storage"
)

// Start registers a snapshot log on the given cron schedule and starts the
// scheduler. It returns an error if the schedule string is invalid (an empty
// string included), so main() can fail fast; main() disables the logger by
// not calling Start when the configured schedule is empty.
func Start(s *storage.Storage, schedule string) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		snap := s.Stats()
		slog.Info("storage snapshot",
			"component", "statslog",
			"exchanges", snap.Exchanges,
			"queues", snap.Queues,
			"history", snap.History,
		)
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	slog.Info("stats logger started", "component", "statslog", "schedule", schedule)
	return c, nil
}
