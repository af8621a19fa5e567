package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Lifetime is a time.Duration that also accepts a whole-day suffix ("7d").
type Lifetime time.Duration

func (l *Lifetime) UnmarshalText(text []byte) error {
	d, err := ParseLifetime(string(text))
	if err != nil {
		return err
	}
	*l = Lifetime(d)
	return nil
}

func (l Lifetime) Duration() time.Duration { return time.Duration(l) }

func ParseLifetime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid lifetime %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid lifetime %q: %w", s, err)
	}
	return d, nil
}
