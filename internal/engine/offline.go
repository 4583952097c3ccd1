package engine

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/bamsammich/fdeploy/internal/event"
)

// MarkerFileName is the file whose presence takes an IIS/ASP.NET Core site offline.
const MarkerFileName = "app_offline.htm"

//go:embed templates/app_offline.htm.tmpl
var offlineTemplateText string

var offlineTemplate = template.Must(template.New(MarkerFileName).Parse(offlineTemplateText))

// OfflinePage is the text shown while the site is offline. ContentHTML is
// trusted markup from the deployment settings and is inserted unescaped.
type OfflinePage struct {
	MetaTitle   string
	PageTitle   string
	ContentHTML string
}

// RenderOfflinePage renders the marker file content.
func RenderOfflinePage(p OfflinePage) ([]byte, error) {
	var buf bytes.Buffer
	err := offlineTemplate.Execute(&buf, struct {
		MetaTitle   string
		PageTitle   string
		ContentHTML template.HTML
	}{
		MetaTitle:   p.MetaTitle,
		PageTitle:   p.PageTitle,
		ContentHTML: template.HTML(p.ContentHTML), //nolint:gosec // operator-supplied markup
	})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", MarkerFileName, err)
	}
	return buf.Bytes(), nil
}

// TakeOffline uploads the marker file to the remote root, then waits delay
// for in-flight requests to drain.
func (t *Transfer) TakeOffline(page []byte, delay time.Duration) error {
	if err := t.CopyBytes(page, MarkerFileName, t.rc.Clock().Now()); err != nil {
		return err
	}
	t.rc.Emit(event.Event{Type: event.Offline, Phase: event.PhaseOffline, Path: MarkerFileName})
	slog.Info("site offline", "marker", t.remote(MarkerFileName), "delay", delay)

	if !t.rc.Sleep(delay) {
		return t.rc.Context().Err()
	}
	return nil
}

// BringOnline waits delay, then deletes the marker file.
func (t *Transfer) BringOnline(delay time.Duration) error {
	if !t.rc.Sleep(delay) {
		return t.rc.Context().Err()
	}
	if err := t.Delete(MarkerFileName, false); err != nil {
		return err
	}
	t.rc.Emit(event.Event{Type: event.Online, Phase: event.PhaseOnline, Path: MarkerFileName})
	slog.Info("site online", "marker", t.remote(MarkerFileName))
	return nil
}
