package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var bandwidthUnits = []struct {
	suffix string
	mult   float64
}{
	// Longest suffixes first so "MB" is not read as "B".
	{"KIB", 1 << 10}, {"MIB", 1 << 20}, {"GIB", 1 << 30},
	{"KB", 1 << 10}, {"MB", 1 << 20}, {"GB", 1 << 30},
	{"K", 1 << 10}, {"M", 1 << 20}, {"G", 1 << 30},
	{"B", 1},
}

// ParseBandwidth converts a limit such as "20MB", "512k", "1.5G" or
// "20MB/s" into bytes per second. Units are powers of 1024. "" and "0"
// mean unlimited and return 0.
func ParseBandwidth(s string) (int64, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.TrimSuffix(v, "/S")
	if v == "" {
		return 0, nil
	}

	mult := 1.0
	for _, u := range bandwidthUnits {
		if strings.HasSuffix(v, u.suffix) {
			mult = u.mult
			v = strings.TrimSpace(strings.TrimSuffix(v, u.suffix))
			break
		}
	}

	n, err := strconv.ParseFloat(v, 64)
	if err != nil || n < 0 || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, fmt.Errorf("invalid bandwidth %q", s)
	}
	return int64(n * mult), nil
}
