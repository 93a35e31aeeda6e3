package pipeline

import (
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aluiziolira/go-auction-lister/models"
)

type mockWriter struct {
	mu          sync.Mutex
	batches     [][]models.ItemResult
	closed      int
	writeErr    error
	validateErr error
}

func (mw *mockWriter) Write(results []models.ItemResult) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.writeErr != nil {
		return mw.writeErr
	}
	copyBatch := make([]models.ItemResult, len(results))
	copy(copyBatch, results)
	mw.batches = append(mw.batches, copyBatch)
	return nil
}

func (mw *mockWriter) Close() error {
	mw.mu.Lock()
	mw.closed++
	mw.mu.Unlock()
	return nil
}

func (mw *mockWriter) Validate() error {
	return mw.validateErr
}

func (mw *mockWriter) all() []models.ItemResult {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	var out []models.ItemResult
	for _, batch := range mw.batches {
		out = append(out, batch...)
	}
	return out
}

func (mw *mockWriter) batchSizes() []int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	sizes := make([]int, 0, len(mw.batches))
	for _, batch := range mw.batches {
		sizes = append(sizes, len(batch))
	}
	return sizes
}

type blockingWriter struct {
	blockCh chan struct{}
}

func (bw *blockingWriter) Write(results []models.ItemResult) error {
	<-bw.blockCh
	return nil
}

func (bw *blockingWriter) Close() error {
	return nil
}

func (bw *blockingWriter) Validate() error {
	return nil
}

func result(i int, status models.ItemStatus) models.ItemResult {
	return models.ItemResult{
		RunID:   "run-1",
		Index:   i,
		Title:   "Item " + strconv.Itoa(i),
		Attempt: 1,
		Status:  status,
		At:      time.Now(),
	}
}

func TestRecorderKeepsOrderAndCounts(t *testing.T) {
	writer := &mockWriter{}
	r := NewRecorder(writer, Options{BatchSize: 2})
	r.Start()

	statuses := []models.ItemStatus{
		models.StatusPosted, models.StatusRetrying, models.StatusPosted,
		models.StatusRetrying, models.StatusFailed,
	}
	for i, s := range statuses {
		r.Record(result(i, s))
	}

	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got := writer.all()
	if len(got) != len(statuses) {
		t.Fatalf("written results = %d, want %d", len(got), len(statuses))
	}
	for i, res := range got {
		if res.Index != i || res.Status != statuses[i] {
			t.Fatalf("result %d = %+v, want index %d status %s", i, res, i, statuses[i])
		}
	}

	counts := r.Counts()
	if counts[models.StatusPosted] != 2 || counts[models.StatusRetrying] != 2 || counts[models.StatusFailed] != 1 {
		t.Fatalf("counts = %v", counts)
	}
	if writer.closed != 1 {
		t.Fatalf("writer closed %d times, want 1", writer.closed)
	}
}

func TestRecorderBatchFlushThreshold(t *testing.T) {
	writer := &mockWriter{}
	r := NewRecorder(writer, Options{BatchSize: 64, BufferSize: 128})

	for i := 0; i < 65; i++ {
		if err := r.Enqueue(result(i, models.StatusPosted)); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	r.Start()

	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	sizes := writer.batchSizes()
	if len(sizes) != 2 {
		t.Fatalf("batch writes = %d, want 2", len(sizes))
	}
	if sizes[0] != 64 || sizes[1] != 1 {
		t.Fatalf("batch sizes = %v, want [64 1]", sizes)
	}
}

func TestRecorderRejectsAfterClose(t *testing.T) {
	writer := &mockWriter{}
	r := NewRecorder(writer, Options{})
	r.Start()
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if err := r.Enqueue(result(0, models.StatusPosted)); !errors.Is(err, ErrRecorderClosed) {
		t.Fatalf("expected ErrRecorderClosed, got %v", err)
	}
	r.Record(result(1, models.StatusPosted))
	if got := len(writer.all()); got != 0 {
		t.Fatalf("written results = %d, want 0", got)
	}
	if writer.closed != 1 {
		t.Fatalf("writer closed %d times, want 1", writer.closed)
	}
}

func TestRecorderWriteError(t *testing.T) {
	writer := &mockWriter{writeErr: errors.New("disk full")}
	r := NewRecorder(writer, Options{BatchSize: 1})
	r.Start()

	r.Record(result(0, models.StatusPosted))

	err := r.Close()
	if err == nil || !errors.Is(err, writer.writeErr) {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestRecorderCloseTimeout(t *testing.T) {
	writer := &blockingWriter{blockCh: make(chan struct{})}
	r := NewRecorder(writer, Options{BatchSize: 1})
	r.Start()

	r.Record(result(0, models.StatusPosted))

	previousTimeout := drainTimeout
	drainTimeout = 25 * time.Millisecond
	t.Cleanup(func() {
		drainTimeout = previousTimeout
		close(writer.blockCh)
	})

	if err := r.Close(); err == nil || !errors.Is(err, ErrRecorderCloseTimeout) {
		t.Fatalf("expected close timeout error, got %v", err)
	}
}
