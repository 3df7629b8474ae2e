package status

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule refreshes once a minute.
const DefaultSchedule = "@every 1m"

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSchedule reports whether spec would be accepted by Start. An
// empty spec is valid and means DefaultSchedule.
func ValidateSchedule(spec string) error {
	if spec == "" {
		return nil
	}
	if _, err := cronParser.Parse(spec); err != nil {
		return fmt.Errorf("invalid status schedule %q: %w", spec, err)
	}
	return nil
}

// ReportFunc receives the outcome of every scheduled refresh.
type ReportFunc func(o Outcome, err error)

// Schedule fires Refresh on a cron spec.
type Schedule struct {
	ctrl   *Controller
	spec   string
	report ReportFunc
	cron   *cron.Cron
}

// NewSchedule creates a schedule for ctrl. An empty spec uses
// DefaultSchedule. report may be nil.
func NewSchedule(ctrl *Controller, spec string, report ReportFunc) *Schedule {
	if spec == "" {
		spec = DefaultSchedule
	}
	return &Schedule{
		ctrl:   ctrl,
		spec:   spec,
		report: report,
		cron:   cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers the refresh job and starts the cron ticker. Refreshes
// run with ctx.
func (s *Schedule) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		o, err := s.ctrl.Refresh(ctx)
		slog.Debug("scheduled status refresh", "outcome", o.String(), "status", string(s.ctrl.Status()))
		if s.report != nil {
			s.report(o, err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid status schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	slog.Info("status refresh scheduled", "schedule", s.spec)
	return nil
}

// Stop stops the ticker and waits for a running refresh to finish.
func (s *Schedule) Stop() {
	<-s.cron.Stop().Done()
}
