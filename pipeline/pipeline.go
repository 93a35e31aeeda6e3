// Package pipeline records the result of every posting attempt and writes
// them to the run report.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-auction-lister/models"
)

var (
	// ErrRecorderClosed is returned when Record is called after shutdown.
	ErrRecorderClosed = errors.New("pipeline: recorder closed")
	// ErrRecorderCloseTimeout is returned when pending results could not be
	// written before the drain timeout.
	ErrRecorderCloseTimeout = errors.New("pipeline: close timed out")
)

// drainTimeout bounds how long Close waits for the writer.
var drainTimeout = 30 * time.Second

// OutputWriter defines the interface for report output.
type OutputWriter interface {
	Write(results []models.ItemResult) error
	Close() error
	Validate() error
}

// Options configures a Recorder.
type Options struct {
	BufferSize int
	BatchSize  int
}

// Recorder buffers attempt results and writes them in batches from a single
// worker so the report keeps attempt order.
type Recorder struct {
	writer    OutputWriter
	resultCh  chan models.ItemResult
	batchSize int

	wg sync.WaitGroup

	counts counts

	mu      sync.Mutex // guards closed/err/started
	closed  bool
	started bool
	err     error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once

	writerOnce sync.Once
	writerErr  error
}

// NewRecorder builds a recorder around writer.
func NewRecorder(writer OutputWriter, opts Options) *Recorder {
	if opts.BufferSize <= 0 {
		opts.BufferSize = 256
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 16
	}
	return &Recorder{
		writer:    writer,
		resultCh:  make(chan models.ItemResult, opts.BufferSize),
		batchSize: opts.BatchSize,
		counts:    newCounts(),
		shutdown:  make(chan struct{}),
	}
}

// Start launches the writer goroutine. Calling it twice is a no-op.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.started {
		return
	}
	r.started = true
	r.wg.Add(1)
	go r.worker()
}

// Record enqueues one result. Results arriving after Close are dropped.
func (r *Recorder) Record(result models.ItemResult) {
	if err := r.Enqueue(result); err != nil {
		slog.Warn("report result dropped",
			slog.String("title", result.Title),
			slog.String("status", string(result.Status)),
			slog.Any("error", err),
		)
	}
}

// Enqueue adds result to the queue or reports why it could not.
func (r *Recorder) Enqueue(result models.ItemResult) (err error) {
	closed, firstErr := r.state()
	if firstErr != nil {
		return firstErr
	}
	if closed {
		return ErrRecorderClosed
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = ErrRecorderClosed
		}
	}()

	select {
	case <-r.shutdown:
		return ErrRecorderClosed
	case r.resultCh <- result:
		r.counts.add(result.Status)
		return nil
	}
}

// Close stops accepting results and waits for pending ones to be written.
func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.signalShutdown()
	r.closeOnce.Do(func() {
		close(r.resultCh)
	})

	drained := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(drainTimeout):
		return ErrRecorderCloseTimeout
	}

	r.writerOnce.Do(func() {
		r.writerErr = r.writer.Close()
	})
	if err := r.Err(); err != nil {
		return err
	}
	return r.writerErr
}

// Err returns the first error encountered during writing.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Counts returns the number of recorded results by status.
func (r *Recorder) Counts() map[models.ItemStatus]int {
	return r.counts.snapshot()
}

// StartReporting emits periodic progress logs until Close.
func (r *Recorder) StartReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c := r.Counts()
				slog.Info("report progress",
					slog.Int("posted", c[models.StatusPosted]),
					slog.Int("retrying", c[models.StatusRetrying]),
					slog.Int("failed", c[models.StatusFailed]),
				)
			case <-r.shutdown:
				return
			}
		}
	}()
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	batch := make([]models.ItemResult, 0, r.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := r.writer.Write(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for result := range r.resultCh {
		batch = append(batch, result)
		if len(batch) >= r.batchSize {
			if err := flush(); err != nil {
				r.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		r.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (r *Recorder) setErr(err error) {
	if err == nil {
		return
	}

	r.mu.Lock()
	if r.err != nil {
		r.mu.Unlock()
		return
	}
	r.err = err
	r.closed = true
	r.mu.Unlock()

	r.signalShutdown()
	r.closeOnce.Do(func() {
		close(r.resultCh)
	})
}

func (r *Recorder) state() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed, r.err
}

func (r *Recorder) signalShutdown() {
	r.shutdownOnce.Do(func() {
		close(r.shutdown)
	})
}

type counts struct {
	mu       sync.Mutex
	byStatus map[models.ItemStatus]int
}

func newCounts() counts {
	return counts{byStatus: make(map[models.ItemStatus]int)}
}

func (c *counts) add(status models.ItemStatus) {
	c.mu.Lock()
	c.byStatus[status]++
	c.mu.Unlock()
}

func (c *counts) snapshot() map[models.ItemStatus]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[models.ItemStatus]int, len(c.byStatus))
	for k, v := range c.byStatus {
		out[k] = v
	}
	return out
}
