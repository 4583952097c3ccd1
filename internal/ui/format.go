package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bamsammich/fdeploy/internal/event"
	"github.com/bamsammich/fdeploy/internal/stats"
)

// FormatRate formats a bytes-per-second rate, e.g. "12.5 MiB/s".
func FormatRate(bytesPerSec float64) string {
	if bytesPerSec < 1 {
		return "0 B/s"
	}
	return stats.FormatBytes(int64(bytesPerSec)) + "/s"
}

// FormatETA formats a remaining-time estimate; "--" when unknown.
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "--"
	}
	return FormatDuration(d)
}

// FormatCount formats an integer with comma separators.
func FormatCount(n int64) string {
	s := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}

// ProgressBar renders pct (clamped to [0,1]) as a bar of width cells.
func ProgressBar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(min(max(pct, 0), 1) * float64(width))
	return strings.Repeat("▪", filled) + strings.Repeat("□", width-filled)
}

// FormatBytes wraps stats.FormatBytes for UI use.
func FormatBytes(b int64) string {
	return stats.FormatBytes(b)
}

// FormatDuration formats elapsed time to the second: "9s", "3m 07s", "1h 02m 03s".
func FormatDuration(d time.Duration) string {
	secs := int64(d.Round(time.Second) / time.Second)
	h, m, s := secs/3600, secs/60%60, secs%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

var phaseTitles = map[event.Phase]string{
	event.PhaseBuild:      "Building",
	event.PhaseConnect:    "Connecting",
	event.PhaseIndex:      "Indexing local and remote trees",
	event.PhasePlan:       "Planning",
	event.PhaseCopySafe:   "Copying online-safe files",
	event.PhaseOffline:    "Taking site offline",
	event.PhaseCopyStatic: "Copying always-overwrite files",
	event.PhaseCopy:       "Copying changed files",
	event.PhaseFileCopies: "Applying file copies",
	event.PhaseDelete:     "Deleting orphans",
	event.PhaseOnline:     "Bringing site online",
	event.PhaseDisconnect: "Disconnecting",
}

// PhaseTitle is the human-readable label for a pipeline phase.
func PhaseTitle(p event.Phase) string {
	if t, ok := phaseTitles[p]; ok {
		return t
	}
	return string(p)
}
