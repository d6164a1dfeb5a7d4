package backend

import (
	"context"
	"fmt"

	applog "struk/internal/log"
	"struk/internal/session"
	"struk/internal/sheets"
	gsheet "struk/internal/sheets/google"
	"struk/internal/sheets/memory"
	"struk/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Default()
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentApp)}
}

// Create opens the local store, then builds the remote. A google remote
// whose OAuth client is missing is still returned; its calls fail with
// core.ErrRemoteUnauthenticated until the user signs in.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := storage.OpenSQLiteRepository(ctx, config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	res := &Result{Store: store}

	switch config.Remote {
	case GoogleRemote:
		res.Session, res.Remote = f.createGoogleRemote(ctx, config.Session)
	case FileRemote:
		remote, err := memory.NewFileBacked(config.RemoteDir)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to open file remote: %w", err)
		}
		res.Remote = remote
		f.logger.DebugContext(ctx, "Initialized file remote", applog.FieldPath, config.RemoteDir)
	case MemoryRemote:
		res.Remote = memory.New()
	case NoRemote:
	}

	res.Cleanup = func(context.Context) error {
		return store.Close()
	}
	f.logger.DebugContext(ctx, "Initialized backend",
		applog.FieldPath, config.DBPath,
		"remote", config.Remote.String())
	return res, nil
}

func (f *DefaultFactory) createGoogleRemote(ctx context.Context, opts session.Options) (*session.Session, sheets.Remote) {
	sess := session.New(opts)
	if err := sess.Init(ctx); err != nil {
		f.logger.DebugContext(ctx, "Google session not ready", applog.FieldError, err)
	}
	return sess, gsheet.New(sess)
}

// Close runs the cleanup, tolerating a nil result.
func (r *Result) Close(ctx context.Context) error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup(ctx)
}
