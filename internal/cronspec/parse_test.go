package cronspec

import (
	"testing"
	"time"
)

func TestParse_CronExpression(t *testing.T) {
	t.Parallel()
	spec, err := Parse("*/5 * * * *")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if spec.Kind != KindCron {
		t.Fatalf("expected KindCron, got %v", spec.Kind)
	}
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	next := spec.NextAfter(from)
	if next.Minute()%5 != 0 || !next.After(from) {
		t.Fatalf("unexpected next run: %v", next)
	}
}

func TestParse_Descriptor(t *testing.T) {
	t.Parallel()
	spec, err := Parse("@hourly")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if spec.Kind != KindCron {
		t.Fatalf("expected KindCron for @hourly, got %v", spec.Kind)
	}
}

func TestParse_HHMM(t *testing.T) {
	t.Parallel()
	spec, err := Parse("02:30")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if spec.Kind != KindInterval || spec.Every != 2*time.Hour+30*time.Minute {
		t.Fatalf("unexpected spec: %+v", spec)
	}
}

func TestParse_Duration(t *testing.T) {
	t.Parallel()
	spec, err := Parse("5m")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if spec.Kind != KindInterval || spec.Every != 5*time.Minute {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if next := spec.NextAfter(from); !next.Equal(from.Add(5 * time.Minute)) {
		t.Fatalf("unexpected next: %v", next)
	}
}

func TestParse_ExplicitPrefixes(t *testing.T) {
	t.Parallel()
	if spec, err := Parse("cron:@daily"); err != nil || spec.Kind != KindCron {
		t.Fatalf("cron: prefix failed: %+v, %v", spec, err)
	}
	if spec, err := Parse("interval:10m"); err != nil || spec.Kind != KindInterval {
		t.Fatalf("interval: prefix failed: %+v, %v", spec, err)
	}
	if spec, err := Parse("every:10m"); err != nil || spec.Kind != KindInterval {
		t.Fatalf("every: prefix failed: %+v, %v", spec, err)
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()
	cases := []string{"", "not a schedule", "25:99"}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Fatalf("expected error for %q", c)
		}
	}
}

func TestParse_ZeroOrNegativeIntervalRejected(t *testing.T) {
	t.Parallel()
	if _, err := Parse("0m"); err == nil {
		t.Fatalf("expected error for zero interval")
	}
	if _, err := Parse("-5m"); err == nil {
		t.Fatalf("expected error for negative interval")
	}
}
