package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// SpecKind describes the normalized kind of a schedule string.
type SpecKind int

const (
	SpecCron SpecKind = iota
	SpecInterval
)

// ParsedSpec is a parsed schedule string.
//
// Supported forms:
//   - Cron: "0 9 * * *", "@daily", "@every 6h"
//   - Daily time: "at:09:30" (same as cron "30 9 * * *")
//   - Interval duration: "6h", "90m"
//   - Interval HH:MM: "02:30" (every 2 hours 30 minutes)
//
// Optional prefixes "cron:", "interval:" and "every:" force a form.
type ParsedSpec struct {
	Kind   SpecKind
	Cron   string
	Every  time.Duration
	Source string // "cron" | "daily" | "duration" | "hhmm"
}

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

// ParseSchedule parses and validates a schedule string.
func ParseSchedule(raw string) (ParsedSpec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ParsedSpec{}, fmt.Errorf("schedule required")
	}

	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		return cronSpec(strings.TrimSpace(s[len("cron:"):]), "cron")
	case strings.HasPrefix(low, "at:"):
		h, m, err := parseClock(strings.TrimSpace(s[len("at:"):]))
		if err != nil {
			return ParsedSpec{}, err
		}
		return cronSpec(fmt.Sprintf("%d %d * * *", m, h), "daily")
	case strings.HasPrefix(low, "interval:"):
		return intervalSpec(s[len("interval:"):])
	case strings.HasPrefix(low, "every:"):
		return intervalSpec(s[len("every:"):])
	}

	// Whitespace or a leading '@' means cron.
	if strings.ContainsAny(s, " \t\n\r") || strings.HasPrefix(s, "@") {
		return cronSpec(s, "cron")
	}

	if spec, err := intervalSpec(s); err == nil {
		return spec, nil
	}
	return ParsedSpec{}, fmt.Errorf(
		"invalid schedule %q (use cron like '0 9 * * *', at:HH:MM, HH:MM interval like '02:30', or duration like '6h')",
		raw,
	)
}

// Schedule returns the cron schedule for the spec.
func (p ParsedSpec) Schedule() (cron.Schedule, error) {
	if p.Kind == SpecInterval {
		return cron.Every(p.Every), nil
	}
	return cron.ParseStandard(p.Cron)
}

func (p ParsedSpec) String() string {
	if p.Kind == SpecInterval {
		return "every " + p.Every.String()
	}
	return p.Cron
}

func cronSpec(expr, source string) (ParsedSpec, error) {
	if expr == "" {
		return ParsedSpec{}, fmt.Errorf("cron schedule required")
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return ParsedSpec{}, fmt.Errorf("invalid cron %q: %w", expr, err)
	}
	return ParsedSpec{Kind: SpecCron, Cron: expr, Source: source}, nil
}

func intervalSpec(v string) (ParsedSpec, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return ParsedSpec{}, fmt.Errorf("interval required")
	}
	src := "duration"
	var d time.Duration
	if reHHMM.MatchString(v) {
		h, m, err := splitHHMM(v)
		if err != nil {
			return ParsedSpec{}, err
		}
		d, src = time.Duration(h)*time.Hour+time.Duration(m)*time.Minute, "hhmm"
	} else {
		var err error
		if d, err = time.ParseDuration(v); err != nil {
			return ParsedSpec{}, fmt.Errorf("invalid interval %q (use HH:MM or Go duration like '6h')", v)
		}
	}
	// cron.Every rounds down to whole seconds.
	if d < time.Second {
		return ParsedSpec{}, fmt.Errorf("interval must be >= 1s")
	}
	return ParsedSpec{Kind: SpecInterval, Every: d, Source: src}, nil
}

// splitHHMM parses "H:MM" for intervals: hours up to 999, minutes 0..59.
func splitHHMM(v string) (int, int, error) {
	m := reHHMM.FindStringSubmatch(v)
	if len(m) != 3 {
		return 0, 0, fmt.Errorf("invalid HH:MM %q", v)
	}
	hh, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if mm > 59 {
		return 0, 0, fmt.Errorf("invalid minutes in %q", v)
	}
	return hh, mm, nil
}

// parseClock parses a wall-clock "HH:MM" (00:00..23:59).
func parseClock(v string) (int, int, error) {
	h, m, err := splitHHMM(v)
	if err != nil {
		return 0, 0, err
	}
	if h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", v)
	}
	return h, m, nil
}
