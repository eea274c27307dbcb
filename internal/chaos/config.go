package chaos

import (
	"fmt"
	"strconv"
	"strings"
)

// Config holds chaos configuration
type Config struct {
	Enabled    bool   `yaml:"enabled" env:"CHAOS_ENABLED" env-default:"false"`
	Profile    string `yaml:"profile" env:"CHAOS_PROFILE" env-description:"e.g. drop-pct=30,delay=50-250"`
	TargetOp   string `yaml:"target_op" env:"CHAOS_TARGET_OP" env-description:"write, commit or empty for all"`
	DropPct    int    `yaml:"drop_pct" env:"CHAOS_DROP_PCT" env-default:"0"`
	DelayMsMin int    `yaml:"delay_ms_min" env:"CHAOS_DELAY_MS_MIN" env-default:"0"`
	DelayMsMax int    `yaml:"delay_ms_max" env:"CHAOS_DELAY_MS_MAX" env-default:"0"`
	Seed       int64  `yaml:"seed" env:"CHAOS_SEED" env-default:"1"`
	WindowMs   int    `yaml:"window_ms" env:"CHAOS_WINDOW_MS" env-default:"0"`
}

// ParseProfile parses a profile string like "drop-pct=30,delay=50-250"
func ParseProfile(profile string) (dropPct int, delayMin int, delayMax int, err error) {
	if profile == "" {
		return 0, 0, 0, nil
	}

	for _, part := range strings.Split(profile, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "drop-pct="):
			dropPct, err = strconv.Atoi(strings.TrimPrefix(part, "drop-pct="))
			if err != nil {
				return 0, 0, 0, fmt.Errorf("invalid drop-pct: %w", err)
			}
		case strings.HasPrefix(part, "delay="):
			lo, hi, ok := strings.Cut(strings.TrimPrefix(part, "delay="), "-")
			if !ok {
				return 0, 0, 0, fmt.Errorf("invalid delay %q: want min-max", part)
			}
			if delayMin, err = strconv.Atoi(lo); err != nil {
				return 0, 0, 0, fmt.Errorf("invalid delay min: %w", err)
			}
			if delayMax, err = strconv.Atoi(hi); err != nil {
				return 0, 0, 0, fmt.Errorf("invalid delay max: %w", err)
			}
			if delayMax < delayMin {
				return 0, 0, 0, fmt.Errorf("invalid delay %q: max below min", part)
			}
		default:
			return 0, 0, 0, fmt.Errorf("unknown chaos profile entry %q", part)
		}
	}

	return dropPct, delayMin, delayMax, nil
}
