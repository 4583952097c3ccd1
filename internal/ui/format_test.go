package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/fdeploy/internal/event"
)

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "0 B/s", FormatRate(0))
	assert.Equal(t, "0 B/s", FormatRate(-5))
	assert.Equal(t, "512 B/s", FormatRate(512))
	assert.Equal(t, "1.5 MiB/s", FormatRate(1.5*1024*1024))
}

func TestFormatETA(t *testing.T) {
	assert.Equal(t, "--", FormatETA(0))
	assert.Equal(t, "--", FormatETA(-time.Second))
	assert.Equal(t, "1m 30s", FormatETA(90*time.Second))
}

func TestFormatCount(t *testing.T) {
	tests := map[int64]string{
		0:          "0",
		999:        "999",
		1000:       "1,000",
		48917:      "48,917",
		1234567:    "1,234,567",
		-1234:      "-1,234",
		-100:       "-100",
		1000000000: "1,000,000,000",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatCount(in), in)
	}
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "▪▪▪▪▪□□□□□", ProgressBar(0.5, 10))
	assert.Equal(t, "□□□□", ProgressBar(-1, 4))
	assert.Equal(t, "▪▪▪▪", ProgressBar(1.5, 4))
	assert.Empty(t, ProgressBar(0.5, 0))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0s", FormatDuration(0))
	assert.Equal(t, "9s", FormatDuration(9*time.Second+400*time.Millisecond))
	assert.Equal(t, "3m 07s", FormatDuration(3*time.Minute+7*time.Second))
	assert.Equal(t, "1h 02m 03s", FormatDuration(time.Hour+2*time.Minute+3*time.Second))
}

func TestPhaseTitle(t *testing.T) {
	assert.Equal(t, "Taking site offline", PhaseTitle(event.PhaseOffline))
	assert.Equal(t, "Deleting orphans", PhaseTitle(event.PhaseDelete))
	assert.Equal(t, "warmup", PhaseTitle(event.Phase("warmup")))
}
