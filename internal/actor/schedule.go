package actor

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/crumplecup/botticelli/internal/errs"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ScheduleKind discriminates the Schedule sum type.
type ScheduleKind string

const (
	ScheduleKindInterval  ScheduleKind = "interval"
	ScheduleKindCron      ScheduleKind = "cron"
	ScheduleKindImmediate ScheduleKind = "immediate"
	ScheduleKindOnDemand  ScheduleKind = "on_demand"
)

// Schedule is the closed variant an actor ticks against: a fixed interval,
// a cron expression, a single immediate run, or no autonomous scheduling
// at all (on_demand, triggered exclusively via a control message).
type Schedule struct {
	Kind     ScheduleKind
	Interval time.Duration
	CronExpr string
	Timezone string

	parsed cron.Schedule
	fired  bool
}

// NewIntervalSchedule builds a Schedule that fires every d, d >= 1s per spec.
func NewIntervalSchedule(d time.Duration) (Schedule, error) {
	if d < time.Second {
		return Schedule{}, errs.Newf(errs.Schedule, "interval schedule requires duration >= 1s, got %s", d)
	}
	return Schedule{Kind: ScheduleKindInterval, Interval: d}, nil
}

// NewCronSchedule parses expr (standard five-field cron, with optional
// leading seconds field and @every/@daily-style descriptors) against an
// optional IANA timezone name.
func NewCronSchedule(expr, timezone string) (Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return Schedule{}, errs.Wrap(errs.Schedule, err, "parse cron expression "+expr)
	}
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return Schedule{}, errs.Wrap(errs.Schedule, err, "load timezone "+timezone)
		}
	}
	return Schedule{Kind: ScheduleKindCron, CronExpr: expr, Timezone: timezone, parsed: sched}, nil
}

// NewImmediateSchedule builds a Schedule that fires exactly once, at the
// next tick after construction.
func NewImmediateSchedule() Schedule {
	return Schedule{Kind: ScheduleKindImmediate}
}

// NewOnDemandSchedule builds a Schedule with no autonomous firing; the
// actor only ever runs via an explicit Execute control message.
func NewOnDemandSchedule() Schedule {
	return Schedule{Kind: ScheduleKindOnDemand}
}

// Next computes the next run time after from. ok is false for a Schedule
// that never fires autonomously again (on_demand, or an immediate
// schedule that has already fired once).
func (s *Schedule) Next(from time.Time) (time.Time, bool) {
	switch s.Kind {
	case ScheduleKindInterval:
		return from.Add(s.Interval), true
	case ScheduleKindCron:
		loc := from.Location()
		if s.Timezone != "" {
			if tz, err := time.LoadLocation(s.Timezone); err == nil {
				loc = tz
			}
		}
		return s.parsed.Next(from.In(loc)), true
	case ScheduleKindImmediate:
		if s.fired {
			return time.Time{}, false
		}
		s.fired = true
		return from, true
	case ScheduleKindOnDemand:
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
