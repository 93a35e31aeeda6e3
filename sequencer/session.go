package sequencer

import (
	"time"

	"github.com/aluiziolira/go-auction-lister/models"
	"github.com/google/uuid"
)

// DefaultMaxRetries is used when RunConfig.MaxRetries is not positive.
const DefaultMaxRetries = 3

// RunConfig is the per-run configuration snapshot.
type RunConfig struct {
	// MaxRetries is the number of failed attempts allowed per record before
	// the run fails.
	MaxRetries int
	// Notify relays completion and failure messages to the external target.
	Notify bool
}

// Session is the mutable state of one run. Only the Sequencer mutates it.
type Session struct {
	ID         string
	Generation uint64
	Records    []models.Record
	Index      int
	Retries    int
	MaxRetries int
	Notify     bool
	Attempts   int
	Retried    int
	StartedAt  time.Time

	issued   uint64
	inflight uint64 // token of the attempt awaiting its outcome, 0 if none
}

func newSession(generation uint64, records []models.Record, cfg RunConfig) *Session {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	owned := make([]models.Record, len(records))
	copy(owned, records)
	return &Session{
		ID:         uuid.NewString(),
		Generation: generation,
		Records:    owned,
		MaxRetries: maxRetries,
		Notify:     cfg.Notify,
		StartedAt:  time.Now(),
	}
}

// begin issues the token for a new attempt on the current record.
func (s *Session) begin() uint64 {
	s.issued++
	s.inflight = s.issued
	return s.inflight
}

type step int

const (
	stepIgnore step = iota
	stepAdvance
	stepComplete
	stepRetry
	stepFail
)

// transition describes what the session decided for one outcome.
type transition struct {
	step    step
	index   int // record the outcome applied to
	record  models.Record
	total   int
	retries int
	attempt int
	err     error
}

// apply folds one outcome into the session. Only the outcome of the attempt
// in flight on the current record counts, and only once. The index only
// moves on success and the retry count resets whenever it does.
func (s *Session) apply(o models.Outcome) transition {
	total := len(s.Records)
	if s.Index >= total || o.Attempt == 0 || o.Attempt != s.inflight || o.Index != s.Index {
		return transition{step: stepIgnore, index: s.Index, total: total}
	}
	s.inflight = 0

	s.Attempts++
	tr := transition{
		index:   s.Index,
		record:  s.Records[s.Index],
		total:   total,
		attempt: s.Retries + 1,
		err:     o.Err,
	}

	if o.OK() {
		s.Index++
		s.Retries = 0
		if s.Index == total {
			tr.step = stepComplete
		} else {
			tr.step = stepAdvance
		}
		return tr
	}

	s.Retries++
	tr.retries = s.Retries
	if isPermanent(o.Err) || s.Retries >= s.MaxRetries {
		tr.step = stepFail
		return tr
	}
	s.Retried++
	tr.step = stepRetry
	return tr
}

func (s *Session) progress(state State) Progress {
	return Progress{
		RunID:      s.ID,
		Generation: s.Generation,
		State:      state,
		Index:      s.Index,
		Total:      len(s.Records),
		Retries:    s.Retries,
		Attempts:   s.Attempts,
		Retried:    s.Retried,
		StartedAt:  s.StartedAt,
	}
}

// Progress is a read-only view of the current or last run.
type Progress struct {
	RunID      string
	Generation uint64
	State      State
	Index      int
	Total      int
	Retries    int
	Attempts   int
	Retried    int
	StartedAt  time.Time
}
