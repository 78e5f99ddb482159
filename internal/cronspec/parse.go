package cronspec

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Kind is the normalized kind of a parsed schedule string.
type Kind int

const (
	KindCron Kind = iota
	KindInterval
)

// Spec is a parsed schedule string, ready to compute a next fire time
// from either a cron.Schedule or a fixed interval.
type Spec struct {
	Kind     Kind
	Raw      string
	Schedule cron.Schedule // set when Kind == KindCron
	Every    time.Duration // set when Kind == KindInterval
}

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

// Parse accepts a cron expression ("*/5 * * * *", "@hourly", "@every 5m"),
// an HH:MM interval shorthand ("02:30"), or a Go duration ("5m", "1h30m").
// Optional "cron:"/"interval:" prefixes force the corresponding branch.
func Parse(raw string) (Spec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Spec{}, fmt.Errorf("cronspec: schedule required")
	}

	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		return parseCron(strings.TrimSpace(s[len("cron:"):]))
	case strings.HasPrefix(low, "interval:"), strings.HasPrefix(low, "every:"):
		idx := strings.IndexByte(s, ':')
		return parseInterval(strings.TrimSpace(s[idx+1:]))
	case strings.ContainsAny(s, " \t\n\r") || strings.HasPrefix(s, "@"):
		return parseCron(s)
	case reHHMM.MatchString(s):
		return parseInterval(s)
	default:
		if _, err := time.ParseDuration(s); err == nil {
			return parseInterval(s)
		}
		return Spec{}, fmt.Errorf("cronspec: invalid schedule %q (use cron like '*/5 * * * *', HH:MM like '02:30', or a duration like '5m')", raw)
	}
}

func parseCron(expr string) (Spec, error) {
	if expr == "" {
		return Spec{}, fmt.Errorf("cronspec: cron expression required")
	}
	sched, err := parser.Parse(expr)
	if err != nil {
		return Spec{}, fmt.Errorf("cronspec: invalid cron expression %q: %w", expr, err)
	}
	return Spec{Kind: KindCron, Raw: expr, Schedule: sched}, nil
}

func parseInterval(v string) (Spec, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return Spec{}, fmt.Errorf("cronspec: interval required")
	}
	if reHHMM.MatchString(v) {
		d, err := parseHHMM(v)
		if err != nil {
			return Spec{}, err
		}
		return Spec{Kind: KindInterval, Raw: v, Every: d}, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return Spec{}, fmt.Errorf("cronspec: invalid interval %q (use HH:MM or a Go duration like '5m')", v)
	}
	if d <= 0 {
		return Spec{}, fmt.Errorf("cronspec: interval must be > 0")
	}
	return Spec{Kind: KindInterval, Raw: v, Every: d}, nil
}

func parseHHMM(v string) (time.Duration, error) {
	m := reHHMM.FindStringSubmatch(v)
	if len(m) != 3 {
		return 0, fmt.Errorf("cronspec: invalid HH:MM %q", v)
	}
	var hh int
	for i := 0; i < len(m[1]); i++ {
		hh = hh*10 + int(m[1][i]-'0')
	}
	mm := int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	if mm > 59 {
		return 0, fmt.Errorf("cronspec: invalid minutes in %q", v)
	}
	d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	if d <= 0 {
		return 0, fmt.Errorf("cronspec: interval must be > 0")
	}
	return d, nil
}

// NextAfter computes the next absolute fire time strictly after from.
func (s Spec) NextAfter(from time.Time) time.Time {
	if s.Kind == KindInterval {
		return from.Add(s.Every)
	}
	return s.Schedule.Next(from)
}
