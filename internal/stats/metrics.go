package stats

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is a private Prometheus registry describing one deployment run.
// It is written once at the end of the run in node-exporter textfile format.
type Metrics struct {
	reg           *prometheus.Registry
	files         *prometheus.GaugeVec
	folders       *prometheus.GaugeVec
	bytesCopied   prometheus.Gauge
	retries       prometheus.Gauge
	errors        prometheus.Gauge
	phaseDuration *prometheus.GaugeVec
	lastRun       prometheus.Gauge
	success       prometheus.Gauge
}

// NewMetrics creates the run metrics labelled with the deployment target.
func NewMetrics(target string) *Metrics {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"target": target}
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		files: f.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "fdeploy_files",
			Help:        "Files handled by the last deployment, by operation",
			ConstLabels: labels,
		}, []string{"op"}),
		folders: f.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "fdeploy_folders",
			Help:        "Folders handled by the last deployment, by operation",
			ConstLabels: labels,
		}, []string{"op"}),
		bytesCopied: f.NewGauge(prometheus.GaugeOpts{
			Name:        "fdeploy_bytes_copied",
			Help:        "Bytes uploaded by the last deployment",
			ConstLabels: labels,
		}),
		retries: f.NewGauge(prometheus.GaugeOpts{
			Name:        "fdeploy_retries",
			Help:        "Operation retries during the last deployment",
			ConstLabels: labels,
		}),
		errors: f.NewGauge(prometheus.GaugeOpts{
			Name:        "fdeploy_errors",
			Help:        "Errors recorded by the last deployment",
			ConstLabels: labels,
		}),
		phaseDuration: f.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "fdeploy_phase_duration_seconds",
			Help:        "Wall time of each pipeline phase in the last deployment",
			ConstLabels: labels,
		}, []string{"phase"}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Name:        "fdeploy_last_run_timestamp_seconds",
			Help:        "Unix time the last deployment finished",
			ConstLabels: labels,
		}),
		success: f.NewGauge(prometheus.GaugeOpts{
			Name:        "fdeploy_last_run_success",
			Help:        "1 if the last deployment completed without cancellation",
			ConstLabels: labels,
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObservePhase records the wall time of a pipeline phase.
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	m.phaseDuration.WithLabelValues(phase).Set(d.Seconds())
}

// Record copies the final counters into the registry.
func (m *Metrics) Record(s Snapshot, ok bool, finished time.Time) {
	m.files.WithLabelValues("copied").Set(float64(s.FilesCopied))
	m.files.WithLabelValues("skipped").Set(float64(s.FilesSkipped))
	m.files.WithLabelValues("deleted").Set(float64(s.FilesDeleted))
	m.folders.WithLabelValues("created").Set(float64(s.FoldersCreated))
	m.folders.WithLabelValues("deleted").Set(float64(s.FoldersDeleted))
	m.bytesCopied.Set(float64(s.BytesCopied))
	m.retries.Set(float64(s.Retries))
	m.errors.Set(float64(s.Errors))
	m.lastRun.Set(float64(finished.Unix()))
	if ok {
		m.success.Set(1)
	} else {
		m.success.Set(0)
	}
}

// WriteTextfile writes the registry to path for the node-exporter textfile
// collector. The write is atomic (temp file plus rename).
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
