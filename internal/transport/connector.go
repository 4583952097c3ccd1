package transport

import (
	"context"

	"github.com/spf13/afero"
)

// Connector opens Stores. The worker pool calls Connect once per worker so
// each worker owns a dedicated session.
type Connector interface {
	Connect(ctx context.Context) (Store, error)
}

// Compile-time interface checks.
var (
	_ Connector = SMBConnector{}
	_ Connector = LocalConnector{}
)

// SMBConnector dials a new SMB session on every Connect.
type SMBConnector struct {
	Opts SMBOpts
}

//nolint:ireturn // implements Connector interface
func (c SMBConnector) Connect(ctx context.Context) (Store, error) {
	s, err := Dial(ctx, c.Opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// LocalConnector returns a LocalStore rooted at Root on Fs.
type LocalConnector struct {
	Fs   afero.Fs
	Root string
}

//nolint:ireturn // implements Connector interface
func (c LocalConnector) Connect(context.Context) (Store, error) {
	return NewLocalStore(c.Fs, c.Root), nil
}
