package ui

import (
	"context"
	"log/slog"

	"github.com/bamsammich/fdeploy/internal/event"
)

// LogEvents writes a structured record for every event on in, then forwards
// it on the returned channel. The returned channel closes after in does.
func LogEvents(in <-chan event.Event, runID string) <-chan event.Event {
	out := make(chan event.Event, cap(in))
	go func() {
		defer close(out)
		for ev := range in {
			attrs := []slog.Attr{
				slog.String("run", runID),
				slog.String("type", ev.Type.String()),
			}
			if ev.Phase != "" {
				attrs = append(attrs, slog.String("phase", string(ev.Phase)))
			}
			if ev.Path != "" {
				attrs = append(attrs, slog.String("path", ev.Path))
			}
			if ev.Size != 0 {
				attrs = append(attrs, slog.Int64("size", ev.Size))
			}
			if ev.Attempt != 0 {
				attrs = append(attrs, slog.Int("attempt", ev.Attempt))
			}
			if ev.WorkerID != 0 {
				attrs = append(attrs, slog.Int("worker", ev.WorkerID))
			}
			if ev.Error != nil {
				attrs = append(attrs, slog.String("error", ev.Error.Error()))
			}
			slog.LogAttrs(context.Background(), slog.LevelDebug, "fdeploy.event", attrs...)
			out <- ev
		}
	}()
	return out
}
