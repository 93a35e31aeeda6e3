// Package sequencer posts listing records one at a time, retrying failed
// attempts after a page reload and reporting progress to a Notifier.
package sequencer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-auction-lister/models"
)

// State is the externally visible sequencer state.
type State int

const (
	Idle State = iota
	Running
	Completed
	Stopped
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions happen in this run.
func (s State) Terminal() bool {
	return s == Completed || s == Stopped || s == Failed
}

// Driver performs the page work for one record.
type Driver interface {
	// PostItem drives the sell form through every step for record. Errors
	// are reported through the returned outcome.
	PostItem(ctx context.Context, record models.Record) models.Outcome
	// ReloadAndAwaitReady reloads the sell page before a retry.
	ReloadAndAwaitReady(ctx context.Context) error
}

// Notifier observes run events. Calls must not block for long.
type Notifier interface {
	OnProgress(current, total int)
	OnLog(message string, level models.LogLevel)
	OnComplete()
	OnError(message string)
}

// Relay forwards terminal messages to an external target.
type Relay interface {
	Send(ctx context.Context, message string) error
}

// ResultSink receives one result per attempt.
type ResultSink interface {
	Record(result models.ItemResult)
}

// Options configures a Sequencer. Zero delays are allowed.
type Options struct {
	InterItemDelay time.Duration
	RetryDelay     time.Duration
	Relay          Relay
	Sink           ResultSink
	Metrics        *Metrics
}

// Sequencer owns at most one listing session at a time.
type Sequencer struct {
	driver   Driver
	notifier Notifier
	opts     Options

	mu         sync.Mutex // guards everything below
	state      State
	session    *Session
	generation uint64
	last       Progress
	failure    error
	done       chan struct{}
	ctx        context.Context
}

// New builds an idle sequencer.
func New(driver Driver, notifier Notifier, opts Options) *Sequencer {
	return &Sequencer{
		driver:   driver,
		notifier: notifier,
		opts:     opts,
		state:    Idle,
	}
}

// Start begins a run over records. It fails with *InvalidStateError when a
// run is already active. ctx bounds every page operation of the run.
func (s *Sequencer) Start(ctx context.Context, records []models.Record, cfg RunConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.state == Running {
		state := s.state
		s.mu.Unlock()
		return &InvalidStateError{Op: "start", State: state}
	}
	s.generation++
	sess := newSession(s.generation, records, cfg)
	s.session = sess
	s.state = Running
	s.failure = nil
	s.done = make(chan struct{})
	s.ctx = ctx
	s.last = sess.progress(Running)
	s.mu.Unlock()

	slog.Info("listing run started",
		slog.String("run_id", sess.ID),
		slog.Int("items", len(sess.Records)),
		slog.Int("max_retries", sess.MaxRetries),
	)
	s.notifier.OnLog(fmt.Sprintf("listing run started: %d items", len(sess.Records)), models.LevelInfo)

	if len(sess.Records) == 0 {
		s.mu.Lock()
		done := s.finishLocked(Completed, nil)
		s.mu.Unlock()
		s.completed(ctx, sess)
		close(done)
		return nil
	}

	s.dispatch(sess.Generation, 0, false)
	return nil
}

// ReportOutcome folds the result of an attempt into the session. Outcomes
// from a stopped or replaced run are ignored, as are outcomes that do not
// answer the attempt currently in flight.
func (s *Sequencer) ReportOutcome(outcome models.Outcome) {
	s.mu.Lock()
	sess := s.session
	if s.state != Running || sess == nil || outcome.Run != sess.Generation {
		s.mu.Unlock()
		slog.Debug("discarding stale outcome",
			slog.Uint64("run", outcome.Run),
			slog.Int("index", outcome.Index),
		)
		return
	}

	tr := sess.apply(outcome)
	ctx := s.ctx
	var (
		failure *RunFailure
		done    chan struct{}
	)
	switch tr.step {
	case stepIgnore:
		s.mu.Unlock()
		slog.Debug("discarding unexpected outcome",
			slog.Uint64("run", outcome.Run),
			slog.Int("index", outcome.Index),
			slog.Uint64("attempt", outcome.Attempt),
		)
		return
	case stepComplete:
		done = s.finishLocked(Completed, nil)
	case stepFail:
		failure = &RunFailure{
			RunID:    sess.ID,
			Index:    tr.index,
			Title:    tr.record.Title(),
			Attempts: tr.attempt,
			Err:      outcome.Err,
		}
		done = s.finishLocked(Failed, failure)
	default:
		s.last = sess.progress(Running)
	}
	s.mu.Unlock()

	s.recordAttempt(sess, tr, outcome)

	switch tr.step {
	case stepAdvance, stepComplete:
		s.notifier.OnLog("posted: "+tr.record.Title(), models.LevelSuccess)
		s.notifier.OnProgress(tr.index+1, tr.total)
		if tr.step == stepComplete {
			s.completed(ctx, sess)
			close(done)
			return
		}
		s.dispatch(sess.Generation, s.opts.InterItemDelay, false)

	case stepRetry:
		s.opts.Metrics.IncRetries()
		slog.Warn("attempt failed, retrying",
			slog.String("run_id", sess.ID),
			slog.String("title", tr.record.Title()),
			slog.Int("retry", tr.retries),
			slog.Int("max_retries", sess.MaxRetries),
			slog.Any("error", outcome.Err),
		)
		s.notifier.OnLog(fmt.Sprintf("retry %d/%d: %s", tr.retries, sess.MaxRetries, outcome.Reason()), models.LevelInfo)
		s.dispatch(sess.Generation, s.opts.RetryDelay, true)

	case stepFail:
		msg := failure.Error()
		slog.Error("listing run failed",
			slog.String("run_id", sess.ID),
			slog.String("title", failure.Title),
			slog.Int("attempts", failure.Attempts),
			slog.Any("error", outcome.Err),
		)
		s.notifier.OnLog(msg, models.LevelError)
		if sess.Notify {
			s.relay(ctx, msg)
		}
		s.notifier.OnError(msg)
		close(done)
	}
}

// Stop ends the active run. Attempts already in flight finish on their own
// and their outcomes are discarded.
func (s *Sequencer) Stop() error {
	s.mu.Lock()
	if s.state != Running {
		state := s.state
		s.mu.Unlock()
		return &InvalidStateError{Op: "stop", State: state}
	}
	runID := s.session.ID
	done := s.finishLocked(Stopped, nil)
	s.mu.Unlock()

	slog.Info("listing run stopped", slog.String("run_id", runID))
	s.notifier.OnLog("listing run stopped", models.LevelInfo)
	close(done)
	return nil
}

// NextRecord returns the record at the current index of the active run.
func (s *Sequencer) NextRecord() (models.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.session.Index >= len(s.session.Records) {
		return models.Record{}, false
	}
	return s.session.Records[s.session.Index], true
}

// State returns the current state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the progress of the active run, or of the last run once
// it has ended.
func (s *Sequencer) Snapshot() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return s.session.progress(s.state)
	}
	p := s.last
	p.State = s.state
	return p
}

// Done is closed when the current run reaches a terminal state.
func (s *Sequencer) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

// Wait blocks until the current run ends or ctx is done. A failed run
// returns its *RunFailure.
func (s *Sequencer) Wait(ctx context.Context) (State, error) {
	select {
	case <-s.Done():
	case <-ctx.Done():
		return s.State(), ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.failure
}

// finishLocked moves the run to a terminal state and drops the session. The
// caller closes the returned channel once the terminal events are emitted.
func (s *Sequencer) finishLocked(state State, failure error) chan struct{} {
	if s.session != nil {
		s.last = s.session.progress(state)
	}
	s.state = state
	s.session = nil
	if failure != nil {
		s.failure = failure
	}
	s.opts.Metrics.IncRun(state)
	return s.done
}

func (s *Sequencer) completed(ctx context.Context, sess *Session) {
	slog.Info("listing run completed",
		slog.String("run_id", sess.ID),
		slog.Int("items", len(sess.Records)),
		slog.Int("attempts", sess.Attempts),
	)
	s.notifier.OnLog("all listings completed", models.LevelSuccess)
	s.notifier.OnComplete()
	if sess.Notify {
		s.relay(ctx, fmt.Sprintf("all listings completed\nitems: %d", len(sess.Records)))
	}
}

// relay sends msg to the external target. Failures never change run state.
func (s *Sequencer) relay(ctx context.Context, msg string) {
	if s.opts.Relay == nil {
		return
	}
	if err := s.opts.Relay.Send(context.WithoutCancel(ctx), msg); err != nil {
		slog.Warn("notification relay failed", slog.Any("error", err))
	}
}

func (s *Sequencer) recordAttempt(sess *Session, tr transition, outcome models.Outcome) {
	result := models.ItemResult{
		RunID:    sess.ID,
		Index:    tr.index,
		Title:    tr.record.Title(),
		Attempt:  tr.attempt,
		Reason:   outcome.Reason(),
		Duration: outcome.Elapsed.Seconds(),
		At:       time.Now(),
	}
	switch tr.step {
	case stepAdvance, stepComplete:
		result.Status = models.StatusPosted
		s.opts.Metrics.IncAttempt("posted")
		s.opts.Metrics.IncPosted()
	case stepRetry:
		result.Status = models.StatusRetrying
		s.opts.Metrics.IncAttempt("failed")
		s.opts.Metrics.IncError(errorTypeLabel(outcome.Err))
	case stepFail:
		result.Status = models.StatusFailed
		s.opts.Metrics.IncAttempt("failed")
		s.opts.Metrics.IncError(errorTypeLabel(outcome.Err))
	}
	if s.opts.Sink != nil {
		s.opts.Sink.Record(result)
	}
}

// dispatch schedules the next attempt of the run identified by generation.
func (s *Sequencer) dispatch(generation uint64, delay time.Duration, reload bool) {
	go s.attempt(generation, delay, reload)
}

func (s *Sequencer) attempt(generation uint64, delay time.Duration, reload bool) {
	ctx, ok := s.runContext(generation)
	if !ok {
		return
	}

	if reload {
		if err := s.driver.ReloadAndAwaitReady(ctx); err != nil {
			slog.Warn("page reload failed", slog.Any("error", err))
			s.notifier.OnLog("page reload failed: "+err.Error(), models.LevelWarn)
		}
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.abort(generation, ctx.Err())
			return
		case <-timer.C:
		}
	}

	record, index, token, ok := s.pending(generation)
	if !ok {
		return
	}

	s.notifier.OnLog("posting: "+record.Title(), models.LevelInfo)
	start := time.Now()
	outcome := s.driver.PostItem(ctx, record)
	outcome.Elapsed = time.Since(start)
	outcome.Run = generation
	outcome.Index = index
	outcome.Attempt = token
	s.opts.Metrics.ObserveDuration(outcome.Elapsed)

	if err := ctx.Err(); err != nil {
		s.abort(generation, err)
		return
	}
	s.ReportOutcome(outcome)
}

// abort stops the run when its context ends.
func (s *Sequencer) abort(generation uint64, cause error) {
	s.mu.Lock()
	if s.state != Running || s.session == nil || s.session.Generation != generation {
		s.mu.Unlock()
		return
	}
	runID := s.session.ID
	done := s.finishLocked(Stopped, nil)
	s.mu.Unlock()

	slog.Info("listing run interrupted", slog.String("run_id", runID), slog.Any("cause", cause))
	s.notifier.OnLog("listing run stopped: "+cause.Error(), models.LevelInfo)
	close(done)
}

func (s *Sequencer) runContext(generation uint64) (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running || s.session == nil || s.session.Generation != generation {
		return nil, false
	}
	return s.ctx, true
}

// pending returns the record to post next and the token its outcome must
// carry.
func (s *Sequencer) pending(generation uint64) (models.Record, int, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.session
	if s.state != Running || sess == nil || sess.Generation != generation || sess.Index >= len(sess.Records) {
		return models.Record{}, 0, 0, false
	}
	return sess.Records[sess.Index], sess.Index, sess.begin(), true
}
