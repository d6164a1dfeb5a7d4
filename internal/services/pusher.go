package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"struk/internal/core"
	applog "struk/internal/log"
	"struk/internal/sheets"
)

// ErrPusherClosed is returned by Push after Close.
var ErrPusherClosed = errors.New("pusher closed")

// PusherConfig holds configuration for the pusher
type PusherConfig struct {
	// Workers bounds concurrent remote calls (default: 2)
	Workers int

	// Timeout caps a single push (default: 30s)
	Timeout time.Duration
}

// DefaultPusherConfig returns sensible defaults
func DefaultPusherConfig() PusherConfig {
	return PusherConfig{
		Workers: 2,
		Timeout: 30 * time.Second,
	}
}

// PushResult reports one finished push. Err is nil on success.
type PushResult struct {
	TxID     string
	SheetID  string
	Err      error
	Duration time.Duration
}

// PushStats counts pushes since the pusher was created.
type PushStats struct {
	Started   int64
	Succeeded int64
	Failed    int64
}

// Pusher mirrors single transactions to the remote sheet in the background.
// A failed push is reported and dropped. Nothing is retried or queued, and
// local data is never touched.
type Pusher struct {
	remote   sheets.RowAppender
	config   PusherConfig
	sem      *semaphore.Weighted
	logger   *applog.Logger
	onResult func(PushResult)

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	started   atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

// NewPusher creates a pusher. onResult may be nil; it is called from the
// push goroutine.
func NewPusher(remote sheets.RowAppender, config PusherConfig, onResult func(PushResult)) *Pusher {
	def := DefaultPusherConfig()
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	return &Pusher{
		remote:   remote,
		config:   config,
		sem:      semaphore.NewWeighted(int64(config.Workers)),
		logger:   applog.Default().WithComponent(applog.ComponentSync),
		onResult: onResult,
	}
}

// Push starts appending tx to sheetID and returns without waiting. The
// push outlives ctx's cancellation but keeps its values.
func (p *Pusher) Push(ctx context.Context, sheetID string, tx core.Transaction) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPusherClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	p.started.Add(1)
	base := context.WithoutCancel(ctx)
	tx = tx.Clone()
	go func() {
		defer p.wg.Done()
		p.run(base, sheetID, tx)
	}()
	return nil
}

func (p *Pusher) run(base context.Context, sheetID string, tx core.Transaction) {
	ctx, cancel := context.WithTimeout(base, p.config.Timeout)
	defer cancel()

	start := time.Now()
	err := p.sem.Acquire(ctx, 1)
	if err == nil {
		err = p.remote.Append(ctx, sheetID, tx)
		p.sem.Release(1)
	}
	res := PushResult{TxID: tx.ID, SheetID: sheetID, Err: err, Duration: time.Since(start)}

	if err != nil {
		p.failed.Add(1)
		fields := applog.NewFields().WithOperation(applog.OpPush).WithTx(tx.ID).WithSheet(sheetID).WithError(err)
		fields["unauthenticated"] = errors.Is(err, core.ErrRemoteUnauthenticated)
		p.logger.WarnContext(ctx, "Remote push failed", fields.ToSlice()...)
	} else {
		p.succeeded.Add(1)
		p.logger.DebugContext(ctx, "Pushed transaction",
			applog.FieldTxID, tx.ID,
			applog.FieldSheetID, sheetID,
			applog.FieldDuration, res.Duration)
	}
	if p.onResult != nil {
		p.onResult(res)
	}
}

// Stats returns current push counters
func (p *Pusher) Stats() PushStats {
	return PushStats{
		Started:   p.started.Load(),
		Succeeded: p.succeeded.Load(),
		Failed:    p.failed.Load(),
	}
}

// Close stops accepting pushes and waits for in-flight ones or ctx.
func (p *Pusher) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Pusher close timed out", "in_flight", p.started.Load()-p.succeeded.Load()-p.failed.Load())
		return ctx.Err()
	}
}
