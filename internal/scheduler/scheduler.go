// Package scheduler provides cron-expression scheduling for recurring jobs,
// such as draining the email queue on a fixed schedule without an external
// cron caller.
package scheduler

import (
	"github.com/robfig/cron/v3"
)

// Scheduler runs jobs on cron schedules.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a scheduler using standard 5-field cron
// expressions. Panics inside jobs are recovered so one bad run cannot take
// down the process.
func NewScheduler() *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task. Returns an error for an invalid expression.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// Stop stops scheduling new runs. Jobs already in flight finish on their own.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
