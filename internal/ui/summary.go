package ui

import (
	"fmt"

	"github.com/bamsammich/fdeploy/internal/stats"
)

// CompletionSummary builds the final summary line from a snapshot.
// Format: done ✓  copied 12  skipped 1,204  deleted 3  size 4.2 MiB  avg 470.2 KiB/s  time 9s  retries 0  errors 0
func CompletionSummary(snap stats.Snapshot, failed bool) string {
	avgSpeed := 0.0
	if snap.Elapsed.Seconds() > 0 {
		avgSpeed = float64(snap.BytesCopied) / snap.Elapsed.Seconds()
	}

	icon := "✓"
	if failed || snap.Errors > 0 {
		icon = "✗"
	}

	s := fmt.Sprintf("done %s  copied %s  skipped %s  deleted %s",
		icon,
		FormatCount(snap.FilesCopied),
		FormatCount(snap.FilesSkipped),
		FormatCount(snap.FilesDeleted),
	)
	if snap.FoldersCreated > 0 || snap.FoldersDeleted > 0 {
		s += fmt.Sprintf("  folders +%d -%d", snap.FoldersCreated, snap.FoldersDeleted)
	}
	s += fmt.Sprintf("  size %s  avg %s  time %s  retries %d  errors %d",
		FormatBytes(snap.BytesCopied),
		FormatRate(avgSpeed),
		FormatDuration(snap.Elapsed),
		snap.Retries,
		snap.Errors,
	)
	return s
}
