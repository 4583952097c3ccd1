package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Collector tracks deployment statistics using lock-free atomic counters.
type Collector struct {
	localEntries   atomic.Int64
	remoteEntries  atomic.Int64
	filesCopied    atomic.Int64
	filesSkipped   atomic.Int64
	filesDeleted   atomic.Int64
	foldersCreated atomic.Int64
	foldersDeleted atomic.Int64
	bytesCopied    atomic.Int64
	retries        atomic.Int64
	errors         atomic.Int64
	bytesTotal     atomic.Int64
	filesTotal     atomic.Int64
	startTime      time.Time

	// Ring buffer, written only by the presenter's Tick(), not workers.
	mu         sync.Mutex
	throughput [ringSize]int64 // bytes delta per second
	ringIdx    int
	ringCount  int // how many samples have been written (capped at ringSize)
	lastBytes  int64
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// SetTotals records the planned upload size (called once when the plan is ready).
func (c *Collector) SetTotals(files, bytes int64) {
	c.filesTotal.Store(files)
	c.bytesTotal.Store(bytes)
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	LocalEntries   int64
	RemoteEntries  int64
	FilesCopied    int64
	FilesSkipped   int64
	FilesDeleted   int64
	FoldersCreated int64
	FoldersDeleted int64
	BytesCopied    int64
	Retries        int64
	Errors         int64
	BytesTotal     int64
	FilesTotal     int64
	Elapsed        time.Duration
}

func (c *Collector) AddLocalEntries(n int64)   { c.localEntries.Add(n) }
func (c *Collector) AddRemoteEntries(n int64)  { c.remoteEntries.Add(n) }
func (c *Collector) AddFilesCopied(n int64)    { c.filesCopied.Add(n) }
func (c *Collector) AddFilesSkipped(n int64)   { c.filesSkipped.Add(n) }
func (c *Collector) AddFilesDeleted(n int64)   { c.filesDeleted.Add(n) }
func (c *Collector) AddFoldersCreated(n int64) { c.foldersCreated.Add(n) }
func (c *Collector) AddFoldersDeleted(n int64) { c.foldersDeleted.Add(n) }
func (c *Collector) AddBytesCopied(n int64)    { c.bytesCopied.Add(n) }
func (c *Collector) AddRetries(n int64)        { c.retries.Add(n) }
func (c *Collector) AddErrors(n int64)         { c.errors.Add(n) }

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		LocalEntries:   c.localEntries.Load(),
		RemoteEntries:  c.remoteEntries.Load(),
		FilesCopied:    c.filesCopied.Load(),
		FilesSkipped:   c.filesSkipped.Load(),
		FilesDeleted:   c.filesDeleted.Load(),
		FoldersCreated: c.foldersCreated.Load(),
		FoldersDeleted: c.foldersDeleted.Load(),
		BytesCopied:    c.bytesCopied.Load(),
		Retries:        c.retries.Load(),
		Errors:         c.errors.Load(),
		BytesTotal:     c.bytesTotal.Load(),
		FilesTotal:     c.filesTotal.Load(),
		Elapsed:        c.Elapsed(),
	}
}

// Tick snapshots the byte delta into the ring buffer. Called 1/sec by the presenter.
func (c *Collector) Tick() {
	currentBytes := c.bytesCopied.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = currentBytes - c.lastBytes
	c.lastBytes = currentBytes
	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average bytes/sec over the last n seconds of samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := min(seconds, c.ringCount)
	if count <= 0 {
		return 0
	}
	var sum int64
	for i := range count {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += c.throughput[idx]
	}
	return float64(sum) / float64(count)
}

// ETA estimates remaining upload time based on rolling speed and remaining bytes.
func (c *Collector) ETA() time.Duration {
	speed := c.RollingSpeed(10)
	if speed <= 0 {
		return 0
	}
	remaining := c.bytesTotal.Load() - c.bytesCopied.Load()
	if remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining)/speed) * time.Second
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"copied=%d skipped=%d deleted=%d folders+=%d folders-=%d bytes=%d retries=%d errors=%d",
		s.FilesCopied, s.FilesSkipped, s.FilesDeleted, s.FoldersCreated,
		s.FoldersDeleted, s.BytesCopied, s.Retries, s.Errors,
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
