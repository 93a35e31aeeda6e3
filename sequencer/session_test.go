package sequencer

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/aluiziolira/go-auction-lister/models"
	"github.com/stretchr/testify/require"
)

// answer applies o as the outcome of a fresh attempt on the current record.
func answer(s *Session, o models.Outcome) transition {
	o.Index = s.Index
	o.Attempt = s.begin()
	return s.apply(o)
}

func TestNewSessionDefaultsMaxRetries(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{name: "zero", in: 0, want: DefaultMaxRetries},
		{name: "negative", in: -2, want: DefaultMaxRetries},
		{name: "explicit", in: 5, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(1, makeRecords("A"), RunConfig{MaxRetries: tt.in})
			if s.MaxRetries != tt.want {
				t.Errorf("MaxRetries = %d, want %d", s.MaxRetries, tt.want)
			}
		})
	}
}

func TestNewSessionOwnsRecords(t *testing.T) {
	records := makeRecords("A", "B")
	s := newSession(1, records, RunConfig{})
	records[0] = models.NewRecord([]string{models.FieldTitle}, []string{"changed"})

	if got := s.Records[0].Title(); got != "A" {
		t.Errorf("session record title = %q, want %q", got, "A")
	}
	if s.ID == "" {
		t.Error("expected a run ID")
	}
}

func TestSessionApplyFailsOnThirdFailure(t *testing.T) {
	s := newSession(1, makeRecords("A", "B"), RunConfig{MaxRetries: 3})
	boom := errors.New("boom")

	tr := answer(s, models.Failure(boom))
	require.Equal(t, stepRetry, tr.step)
	require.Equal(t, 1, tr.retries)
	require.Equal(t, 1, tr.attempt)

	tr = answer(s, models.Failure(boom))
	require.Equal(t, stepRetry, tr.step)
	require.Equal(t, 2, tr.retries)
	require.Equal(t, 2, tr.attempt)

	tr = answer(s, models.Failure(boom))
	require.Equal(t, stepFail, tr.step)
	require.Equal(t, 3, tr.retries)
	require.Equal(t, 3, tr.attempt)
	require.Equal(t, 0, tr.index)
	require.Equal(t, "A", tr.record.Title())
	require.Equal(t, 0, s.Index)
	require.Equal(t, 2, s.Retried)
}

func TestSessionApplySuccessResetsRetries(t *testing.T) {
	s := newSession(1, makeRecords("A", "B"), RunConfig{MaxRetries: 3})

	answer(s, models.Failure(errors.New("flaky")))
	require.Equal(t, 1, s.Retries)

	tr := answer(s, models.Success())
	require.Equal(t, stepAdvance, tr.step)
	require.Equal(t, 2, tr.attempt)
	require.Equal(t, 1, s.Index)
	require.Equal(t, 0, s.Retries)

	tr = answer(s, models.Success())
	require.Equal(t, stepComplete, tr.step)
	require.Equal(t, 2, s.Index)

	tr = answer(s, models.Success())
	require.Equal(t, stepIgnore, tr.step)
	require.Equal(t, 3, s.Attempts)
}

func TestSessionApplyPermanentFailure(t *testing.T) {
	s := newSession(1, makeRecords("A"), RunConfig{MaxRetries: 3})

	tr := answer(s, models.Failure(permanentErr{}))
	require.Equal(t, stepFail, tr.step)
	require.Equal(t, 1, tr.attempt)
	require.Equal(t, 0, s.Retried)
}

// TestSessionIndexCountsSuccesses drives random outcome sequences and checks
// that the index always equals the number of successes applied and that no
// record is failed more than MaxRetries times.
func TestSessionIndexCountsSuccesses(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(6)
		maxRetries := 1 + rng.Intn(4)
		titles := make([]string, n)
		for i := range titles {
			titles[i] = string(rune('A' + i))
		}
		s := newSession(uint64(iter), makeRecords(titles...), RunConfig{MaxRetries: maxRetries})

		successes := 0
		for step := 0; step < 50; step++ {
			var tr transition
			if rng.Intn(3) == 0 {
				tr = answer(s, models.Failure(errors.New("flaky")))
			} else {
				tr = answer(s, models.Success())
				if tr.step == stepAdvance || tr.step == stepComplete {
					successes++
				}
			}
			if s.Index != successes {
				t.Fatalf("iter %d: index = %d, successes = %d", iter, s.Index, successes)
			}
			if s.Index > n {
				t.Fatalf("iter %d: index %d beyond %d records", iter, s.Index, n)
			}
			if s.Retries > maxRetries {
				t.Fatalf("iter %d: retries %d beyond budget %d", iter, s.Retries, maxRetries)
			}
			if tr.step == stepFail || tr.step == stepComplete {
				break
			}
		}
	}
}

func TestSessionApplyIgnoresUnmatchedOutcome(t *testing.T) {
	s := newSession(1, makeRecords("A", "B"), RunConfig{MaxRetries: 3})

	tr := s.apply(models.Outcome{Run: 1, Index: 0})
	require.Equal(t, stepIgnore, tr.step, "no attempt in flight")

	token := s.begin()
	tr = s.apply(models.Outcome{Run: 1, Index: 1, Attempt: token})
	require.Equal(t, stepIgnore, tr.step, "wrong index")
	tr = s.apply(models.Outcome{Run: 1, Index: 0, Attempt: token + 1})
	require.Equal(t, stepIgnore, tr.step, "wrong token")
	require.Equal(t, 0, s.Attempts)

	tr = s.apply(models.Outcome{Run: 1, Index: 0, Attempt: token})
	require.Equal(t, stepAdvance, tr.step)

	tr = s.apply(models.Outcome{Run: 1, Index: 0, Attempt: token})
	require.Equal(t, stepIgnore, tr.step, "duplicate")
	tr = s.apply(models.Outcome{Run: 1, Index: 1, Attempt: token})
	require.Equal(t, stepIgnore, tr.step, "token already consumed")

	require.Equal(t, 1, s.Index)
	require.Equal(t, 1, s.Attempts)
}
