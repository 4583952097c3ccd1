package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTime(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(116444736000000000), FileTime(time.Unix(0, 0)))
	// 100ns resolution: one tick apart compares unequal, sub-tick is truncated.
	base := time.Date(2024, 1, 2, 3, 4, 5, 600, time.UTC)
	assert.Equal(t, FileTime(base)+1, FileTime(base.Add(100*time.Nanosecond)))
	assert.Equal(t, FileTime(base), FileTime(base.Add(99*time.Nanosecond)))
}

func TestFileEntryDerived(t *testing.T) {
	t.Parallel()

	e := FileEntry{RelPath: "wwwroot/js/app.js", Flags: FlagSafeCopy}
	assert.Equal(t, "app.js", e.Name())
	assert.Equal(t, "wwwroot/js", e.ParentPath())
	assert.Equal(t, 3, e.Level())
	assert.True(t, e.IsFile())
	assert.True(t, e.Flags.Has(FlagSafeCopy))
	assert.False(t, e.Flags.Has(FlagStatic))
	assert.False(t, e.Flags.Has(FlagSafeCopy|FlagStatic))
}

func TestIsDotName(t *testing.T) {
	t.Parallel()

	assert.True(t, isDotName(".git"))
	assert.False(t, isDotName("."))
	assert.False(t, isDotName(".."))
	assert.False(t, isDotName("web.config"))
}

func TestConnectionError(t *testing.T) {
	t.Parallel()

	cause := errors.New("i/o timeout")
	err := error(&ConnectionError{Reason: ErrServerUnreachable, Server: "web01", Err: cause})
	assert.ErrorIs(t, err, ErrServerUnreachable)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "server is not responding: web01")

	err = &ConnectionError{Reason: ErrShareNotFound, Server: "web01", Share: "sites"}
	assert.ErrorIs(t, err, ErrShareNotFound)
	assert.Equal(t, `network share not found on the server: \\web01\sites`, err.Error())

	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "sites", ce.Share)
}

func TestDial_Unreachable(t *testing.T) {
	t.Parallel()

	// Grab a free port, then close it so nothing is listening.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	_, err = Dial(context.Background(), SMBOpts{
		Server:         "127.0.0.1",
		Port:           port,
		Share:          "sites",
		ConnectTimeout: time.Second,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServerUnreachable)
	assert.Contains(t, err.Error(), "127.0.0.1")
}

func TestDial_HandshakeFailureClosesConnection(t *testing.T) {
	t.Parallel()

	// A listener that accepts and immediately hangs up fails negotiation.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()

	_, err = Dial(context.Background(), SMBOpts{
		Server:          "127.0.0.1",
		Port:            l.Addr().(*net.TCPAddr).Port,
		Share:           "sites",
		ConnectTimeout:  time.Second,
		ResponseTimeout: 2 * time.Second,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectFailed)
}

func TestSessionClose_NilAndTwice(t *testing.T) {
	t.Parallel()

	var s *Session
	assert.NoError(t, s.Close())

	s = &Session{timeout: time.Second}
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestDial_CancelledBeforeProbe(t *testing.T) {
	t.Parallel()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Dial(ctx, SMBOpts{
		Server:         "127.0.0.1",
		Port:           l.Addr().(*net.TCPAddr).Port,
		Share:          "sites",
		ConnectTimeout: 5 * time.Second,
	})
	require.ErrorIs(t, err, context.Canceled)
	var ce *ConnectionError
	assert.False(t, errors.As(err, &ce), "cancellation is not a connection failure")
}

func TestSessionString(t *testing.T) {
	t.Parallel()

	s := &Session{server: "web01", shareName: "Sites"}
	assert.Equal(t, `\\web01\Sites`, s.String())
}
