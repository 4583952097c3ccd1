package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/fdeploy/internal/event"
	"github.com/bamsammich/fdeploy/internal/paths"
	"github.com/bamsammich/fdeploy/internal/transport"
)

var errInjected = errors.New("injected failure")

// epoch is a fixed base for test mtimes; at(n) is n seconds after it.
var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return epoch.Add(time.Duration(sec) * time.Second) }

// writeFile creates path on fs with content and mtime, creating parents.
func writeFile(t *testing.T, fs afero.Fs, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	require.NoError(t, fs.Chtimes(path, mtime, mtime))
}

// sized returns n bytes of filler.
func sized(n int) string { return strings.Repeat("x", n) }

// listTree returns every path under root on fs, relative and slash separated.
func listTree(t *testing.T, fs afero.Fs, root string) []string {
	t.Helper()
	var out []string
	err := afero.Walk(fs, root, func(p string, _ os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if rel, ok := paths.Rel(root, p); ok && rel != "" {
			out = append(out, rel)
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

// newTestRun returns a RunContext with an event sink large enough that no
// event is dropped in a test.
func newTestRun(t *testing.T) (*RunContext, chan event.Event) {
	t.Helper()
	events := make(chan event.Event, 4096)
	rc := NewRunContext(context.Background(), RunOptions{Events: events})
	t.Cleanup(rc.Cancel)
	return rc, events
}

// drain returns every event buffered in ch.
func drain(ch chan event.Event) []event.Event {
	var out []event.Event
	for {
		select {
		case e := <-ch:
			out = append(out, e)
		default:
			return out
		}
	}
}

func eventsOf(evs []event.Event, typ event.Type) []event.Event {
	var out []event.Event
	for _, e := range evs {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// faultStore wraps a Store and fails selected operations a set number of
// times before letting them through.
type faultStore struct {
	transport.Store

	mu         sync.Mutex
	writeFails map[string]int // share name -> remaining OpenWrite failures
	writes     map[string]int // share name -> OpenWrite calls
	removeErr  error          // returned by every Remove when set
	removes    int
}

func newFaultStore(inner transport.Store) *faultStore {
	return &faultStore{
		Store:      inner,
		writeFails: make(map[string]int),
		writes:     make(map[string]int),
	}
}

func (f *faultStore) failWrites(name string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeFails[paths.ToShare(name)] = n
}

func (f *faultStore) writeCalls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[paths.ToShare(name)]
}

//nolint:ireturn // implements Store interface
func (f *faultStore) OpenWrite(name string, create bool) (transport.WriteFile, error) {
	key := paths.ToShare(name)
	f.mu.Lock()
	f.writes[key]++
	if f.writeFails[key] > 0 {
		f.writeFails[key]--
		f.mu.Unlock()
		return nil, errInjected
	}
	f.mu.Unlock()
	return f.Store.OpenWrite(name, create)
}

func (f *faultStore) Remove(name string) error {
	f.mu.Lock()
	f.removes++
	err := f.removeErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.Store.Remove(name)
}

// countingConnector hands out one store per Connect and counts the calls.
type countingConnector struct {
	store transport.Store
	err   error

	mu    sync.Mutex
	calls int
}

//nolint:ireturn // implements Connector interface
func (c *countingConnector) Connect(context.Context) (transport.Store, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.store, nil
}

func (c *countingConnector) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func readAll(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	f, err := fs.Open(path)
	require.NoError(t, err)
	defer f.Close()
	b, err := io.ReadAll(f)
	require.NoError(t, err)
	return string(b)
}
