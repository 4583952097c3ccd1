package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hirochachacha/go-smb2"
	"github.com/jonboulle/clockwork"

	"github.com/bamsammich/fdeploy/internal/paths"
)

const (
	defaultSMBPort         = 445
	defaultConnectTimeout  = 5 * time.Second
	defaultResponseTimeout = 15 * time.Second

	fileAttributeHidden = 0x2
)

// Compile-time interface check.
var _ Store = (*Session)(nil)

// SMBOpts configures an SMB session.
type SMBOpts struct {
	Clock           clockwork.Clock // nil = real clock
	Server          string
	Share           string
	Domain          string
	User            string
	Password        string
	Port            int           // 0 = default (445)
	ConnectTimeout  time.Duration // TCP reachability probe
	ResponseTimeout time.Duration // every protocol round-trip
	MountRetries    int           // tree connect attempts, values < 1 mean 1
	MountRetryDelay time.Duration
}

// Session is an authenticated SMB session with one mounted share. Protocol
// calls are bounded by the response timeout and are never interrupted by the
// caller's context: cancellation is only observed between calls.
type Session struct {
	conn      net.Conn
	session   *smb2.Session
	share     *smb2.Share
	server    string
	shareName string
	timeout   time.Duration
	closeOnce sync.Once
}

// Dial probes the server, negotiates and authenticates a session, verifies
// the share exists (case-insensitive), and mounts it. On any failure the
// partially built session is torn down before returning a *ConnectionError.
func Dial(ctx context.Context, opts SMBOpts) (*Session, error) {
	port := opts.Port
	if port == 0 {
		port = defaultSMBPort
	}
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	responseTimeout := opts.ResponseTimeout
	if responseTimeout <= 0 {
		responseTimeout = defaultResponseTimeout
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	fail := func(reason error, share string, err error) error {
		return &ConnectionError{Reason: reason, Server: opts.Server, Share: share, Err: err}
	}

	addr := net.JoinHostPort(opts.Server, strconv.Itoa(port))
	d := net.Dialer{Timeout: connectTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fail(ErrServerUnreachable, "", err)
	}

	s := &Session{
		conn:    conn,
		server:  opts.Server,
		timeout: responseTimeout,
	}

	dialer := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     opts.User,
			Password: opts.Password,
			Domain:   opts.Domain,
		},
	}
	hctx, cancel := s.callContext()
	s.session, err = dialer.DialContext(hctx, conn)
	cancel()
	if err != nil {
		s.Close()
		reason := ErrConnectFailed
		var respErr *smb2.ResponseError
		if errors.As(err, &respErr) {
			reason = ErrAuthFailed
		}
		return nil, fail(reason, "", err)
	}
	if ctx.Err() != nil {
		s.Close()
		return nil, ctx.Err()
	}

	lctx, cancel := s.callContext()
	names, err := s.session.WithContext(lctx).ListSharenames()
	cancel()
	if err != nil {
		s.Close()
		return nil, fail(ErrShareList, "", err)
	}
	for _, n := range names {
		if strings.EqualFold(n, opts.Share) {
			s.shareName = n
			break
		}
	}
	if s.shareName == "" {
		s.Close()
		return nil, fail(ErrShareNotFound, opts.Share, nil)
	}

	attempts := max(opts.MountRetries, 1)
	for attempt := 1; ; attempt++ {
		mctx, cancel := s.callContext()
		s.share, err = s.session.WithContext(mctx).Mount(s.shareName)
		cancel()
		if err == nil {
			break
		}
		slog.Debug("tree connect failed", "share", s.shareName, "attempt", attempt, "error", err)
		if attempt >= attempts {
			s.Close()
			return nil, fail(ErrTreeConnect, s.shareName, err)
		}
		select {
		case <-ctx.Done():
			s.Close()
			return nil, ctx.Err()
		case <-clock.After(opts.MountRetryDelay):
		}
	}

	slog.Debug("smb session established", "target", s.String())
	return s, nil
}

// String names the session target as a UNC root, for logs.
func (s *Session) String() string { return `\\` + s.server + `\` + s.shareName }

// Close unmounts the share, logs off, and closes the connection. Secondary
// errors are swallowed. Close is idempotent and safe on a nil Session.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		if s.share != nil {
			ctx, cancel := s.callContext()
			_ = s.share.WithContext(ctx).Umount()
			cancel()
		}
		if s.session != nil {
			ctx, cancel := s.callContext()
			_ = s.session.WithContext(ctx).Logoff()
			cancel()
		}
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
	return nil
}

func (s *Session) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Session) fs() (*smb2.Share, context.CancelFunc) {
	ctx, cancel := s.callContext()
	return s.share.WithContext(ctx), cancel
}

func (s *Session) Stat(name string) (FileEntry, error) {
	fs, cancel := s.fs()
	defer cancel()
	info, err := fs.Stat(paths.ToShare(name))
	if err != nil {
		return FileEntry{}, err
	}
	return smbInfoToEntry(info, paths.ToShare(name)), nil
}

func (s *Session) ReadDir(name string) ([]FileEntry, error) {
	fs, cancel := s.fs()
	defer cancel()
	dir := paths.ToShare(name)
	infos, err := fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("query directory %s: %w", dir, err)
	}
	out := make([]FileEntry, 0, len(infos))
	for _, info := range infos {
		if info.Name() == "." || info.Name() == ".." {
			continue
		}
		out = append(out, smbInfoToEntry(info, paths.Join(dir, info.Name())))
	}
	return out, nil
}

func (s *Session) Mkdir(name string) error {
	fs, cancel := s.fs()
	defer cancel()
	return fs.Mkdir(paths.ToShare(name), 0o755)
}

//nolint:ireturn // implements Store interface
func (s *Session) OpenWrite(name string, create bool) (WriteFile, error) {
	flag := os.O_WRONLY | os.O_TRUNC
	if create {
		flag = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	ctx, cancel := context.WithCancel(context.Background())
	watchdog := time.AfterFunc(s.timeout, cancel)
	f, err := s.share.WithContext(ctx).OpenFile(paths.ToShare(name), flag, 0o644)
	watchdog.Stop()
	if err != nil {
		cancel()
		return nil, err
	}
	return &smbFile{f: f, cancel: cancel, timeout: s.timeout}, nil
}

func (s *Session) OpenRead(name string) (io.ReadCloser, error) {
	ctx, cancel := context.WithCancel(context.Background())
	watchdog := time.AfterFunc(s.timeout, cancel)
	f, err := s.share.WithContext(ctx).Open(paths.ToShare(name))
	watchdog.Stop()
	if err != nil {
		cancel()
		return nil, err
	}
	return &smbFile{f: f, cancel: cancel, timeout: s.timeout}, nil
}

func (s *Session) Chtimes(name string, mtime time.Time) error {
	fs, cancel := s.fs()
	defer cancel()
	return fs.Chtimes(paths.ToShare(name), mtime, mtime)
}

func (s *Session) Remove(name string) error {
	fs, cancel := s.fs()
	defer cancel()
	return fs.Remove(paths.ToShare(name))
}

// smbFile bounds every round-trip on an open handle by the response timeout.
// The handle's context lives until Close; a watchdog cancels it when a single
// call overruns, which also poisons the handle for the rest of its life.
type smbFile struct {
	f         *smb2.File
	cancel    context.CancelFunc
	timeout   time.Duration
	closeOnce sync.Once
	closeErr  error
}

func (w *smbFile) WriteAt(p []byte, off int64) (int, error) {
	t := time.AfterFunc(w.timeout, w.cancel)
	defer t.Stop()
	return w.f.WriteAt(p, off)
}

func (w *smbFile) Read(p []byte) (int, error) {
	t := time.AfterFunc(w.timeout, w.cancel)
	defer t.Stop()
	return w.f.Read(p)
}

func (w *smbFile) Close() error {
	w.closeOnce.Do(func() {
		t := time.AfterFunc(w.timeout, w.cancel)
		w.closeErr = w.f.Close()
		t.Stop()
		w.cancel()
	})
	return w.closeErr
}

func smbInfoToEntry(info os.FileInfo, fullPath string) FileEntry {
	e := FileEntry{
		FullPath: fullPath,
		ModTime:  info.ModTime(),
		IsDir:    info.IsDir(),
	}
	if !e.IsDir {
		e.Size = info.Size()
	}
	if st, ok := info.(*smb2.FileStat); ok {
		e.Hidden = st.FileAttributes&fileAttributeHidden != 0
	}
	return e
}
