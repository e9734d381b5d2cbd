// Package schedule parses run intervals and computes upcoming run times.
package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var named = map[string]string{
	"minutely": "* * * * *",
	"hourly":   "@hourly",
	"daily":    "@daily",
	"weekly":   "@weekly",
	"monthly":  "@monthly",
}

// systemd-style daily calendar event, e.g. "*-*-* 02:30" or "*-*-* 02:30:15".
var calendarRe = regexp.MustCompile(`^\*-\*-\*\s+(\d{1,2}):(\d{2})(?::(\d{2}))?$`)

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule is a parsed run interval.
type Schedule struct {
	sched cron.Schedule
	Spec  string
}

// Parse accepts "minutely", "hourly", "daily", "weekly", "monthly", a cron
// expression (5 fields, or 6 with leading seconds), a cron descriptor such
// as "@every 30m", or a systemd daily time "*-*-* HH:MM[:SS]".
func Parse(spec string) (Schedule, error) {
	s := strings.TrimSpace(spec)
	expr, err := toCron(s)
	if err != nil {
		return Schedule{}, err
	}
	sched, err := parser.Parse(expr)
	if err != nil {
		return Schedule{}, fmt.Errorf("run interval %q: %w", spec, err)
	}
	return Schedule{Spec: s, sched: sched}, nil
}

func toCron(s string) (string, error) {
	if s == "" {
		return "", errors.New("run interval is empty")
	}
	if expr, ok := named[strings.ToLower(s)]; ok {
		return expr, nil
	}

	m := calendarRe.FindStringSubmatch(s)
	if m == nil {
		return s, nil
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second := 0
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}
	if hour > 23 || minute > 59 || second > 59 {
		return "", fmt.Errorf("run interval %q: time out of range", s)
	}
	return fmt.Sprintf("%d %d %d * * *", second, minute, hour), nil
}

// Next returns the first activation strictly after t.
func (s Schedule) Next(t time.Time) time.Time {
	return s.sched.Next(t)
}

// Upcoming returns the next n activations after from.
func (s Schedule) Upcoming(from time.Time, n int) []time.Time {
	out := make([]time.Time, 0, max(n, 0))
	t := from
	for i := 0; i < n; i++ {
		t = s.sched.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out
}
