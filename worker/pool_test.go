package worker

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	hvfhir "github.com/microsoft/healthvault-fhir-library-sub001"
	"github.com/microsoft/healthvault-fhir-library-sub001/convert"
	"github.com/microsoft/healthvault-fhir-library-sub001/hv"
)

var errConvert = errors.New("convert failed")

// mockConverter implements the Converter interface for testing.
type mockConverter struct {
	callCount atomic.Int32
	delay     time.Duration
	err       error
}

func (m *mockConverter) ConvertJSON(ctx context.Context, resource []byte) (hv.Thing, error) {
	m.callCount.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &hv.Weight{Kilograms: float64(len(resource))}, nil
}

const weightJSON = `{"resourceType":"Observation","code":{"coding":[{"system":"http://loinc.org","code":"29463-7"}]},"valueQuantity":{"value":70,"code":"kg"}}`

func newTestPool(conv Converter, workers int) *Pool {
	return NewPool(conv, hvfhir.WithWorkerCount(workers), hvfhir.WithLogger(zerolog.Nop()))
}

func TestPool_WorkersFromOptions(t *testing.T) {
	if got := newTestPool(&mockConverter{}, 3).Workers(); got != 3 {
		t.Errorf("Workers() = %d; want 3", got)
	}
	if got := NewPool(&mockConverter{}, hvfhir.WithLogger(zerolog.Nop())).Workers(); got != hvfhir.DefaultOptions().WorkerCount {
		t.Errorf("default Workers() = %d; want %d", got, hvfhir.DefaultOptions().WorkerCount)
	}
	// WithWorkerCount ignores non-positive counts, leaving the default.
	if got := newTestPool(&mockConverter{}, 0).Workers(); got <= 0 {
		t.Errorf("Workers() = %d; want > 0", got)
	}
}

func TestPool_Stream(t *testing.T) {
	pool := newTestPool(&mockConverter{}, 2)

	jobs := make(chan Job)
	go func() {
		defer close(jobs)
		for i := 1; i <= 5; i++ {
			jobs <- Job{ID: strconv.Itoa(i), Resource: make([]byte, i)}
		}
	}()

	var ids []string
	for r := range pool.Stream(context.Background(), jobs) {
		if r.Error != nil {
			t.Fatalf("job %s error = %v", r.ID, r.Error)
		}
		if w := r.Thing.(*hv.Weight); strconv.Itoa(int(w.Kilograms)) != r.ID {
			t.Errorf("job %s converted to %v kg", r.ID, w.Kilograms)
		}
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)
	if len(ids) != 5 || ids[0] != "1" || ids[4] != "5" {
		t.Errorf("ids = %v; want 1..5", ids)
	}
}

func TestPool_StreamCancelled(t *testing.T) {
	conv := &mockConverter{}
	pool := newTestPool(conv, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := make(chan Job, 3)
	for i := 0; i < 3; i++ {
		jobs <- Job{ID: strconv.Itoa(i)}
	}

	n := 0
	for range pool.Stream(ctx, jobs) {
		n++
	}
	if n != 0 || conv.callCount.Load() != 0 {
		t.Errorf("results/calls = %d/%d; want 0/0 after cancellation", n, conv.callCount.Load())
	}
}

func TestPool_NilConverter(t *testing.T) {
	pool := newTestPool(nil, 1)

	batch := pool.ConvertBatch(context.Background(), [][]byte{[]byte("a")})
	if !errors.Is(batch.Results[0].Error, ErrNoConverter) {
		t.Errorf("error = %v; want ErrNoConverter", batch.Results[0].Error)
	}
}

func TestPool_Stats(t *testing.T) {
	pool := newTestPool(&mockConverter{err: errConvert}, 2)
	pool.ConvertBatch(context.Background(), [][]byte{[]byte("a"), []byte("b")})

	stats := pool.Stats()
	if stats.Workers != 2 {
		t.Errorf("Workers = %d; want 2", stats.Workers)
	}
	if stats.JobsCompleted != 2 || stats.JobsFailed != 2 {
		t.Errorf("Stats = %+v; want 2 completed and failed", stats)
	}
}

func TestPool_Converter(t *testing.T) {
	conv := convert.New(hvfhir.WithLogger(zerolog.Nop()))
	pool := newTestPool(conv, 2)

	batch := pool.ConvertBatch(context.Background(), [][]byte{
		[]byte(weightJSON),
		[]byte(`{"resourceType":"Patient"}`),
	})

	if batch.CompletedJobs != 2 || batch.FailedJobs != 1 {
		t.Fatalf("completed/failed = %d/%d; want 2/1", batch.CompletedJobs, batch.FailedJobs)
	}
	things := batch.Things()
	if len(things) != 1 {
		t.Fatalf("len(Things()) = %d; want 1", len(things))
	}
	if w, ok := things[0].(*hv.Weight); !ok || w.Kilograms != 70 {
		t.Errorf("thing = %+v; want 70 kg weight", things[0])
	}
}

func TestConvertBatch_Empty(t *testing.T) {
	result := newTestPool(&mockConverter{}, 2).ConvertBatch(context.Background(), nil)
	if result.TotalJobs != 0 || len(result.Results) != 0 || result.HasErrors() {
		t.Errorf("result = %+v; want an empty batch", result)
	}
}

func TestConvertBatch_Order(t *testing.T) {
	conv := &mockConverter{delay: 10 * time.Millisecond}
	pool := newTestPool(conv, 4)

	resources := make([][]byte, 10)
	for i := range resources {
		resources[i] = make([]byte, i+1)
	}

	start := time.Now()
	result := pool.ConvertBatch(context.Background(), resources)
	duration := time.Since(start)

	if result.TotalJobs != 10 || result.CompletedJobs != 10 {
		t.Errorf("total/completed = %d/%d; want 10/10", result.TotalJobs, result.CompletedJobs)
	}
	for i, r := range result.Results {
		if r.ID != strconv.Itoa(i) {
			t.Errorf("Results[%d].ID = %q", i, r.ID)
		}
		w := r.Thing.(*hv.Weight)
		if w.Kilograms != float64(i+1) {
			t.Errorf("Results[%d] = %v kg; want %d (input order)", i, w.Kilograms, i+1)
		}
	}

	// 4 workers over 10 jobs of 10ms finish well before a sequential run.
	if duration > 200*time.Millisecond {
		t.Errorf("duration = %v; expected < 200ms for parallel execution", duration)
	}
}

func TestConvertBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := newTestPool(&mockConverter{}, 2).ConvertBatch(ctx, [][]byte{[]byte("a"), []byte("b"), []byte("c")})

	if result.TotalJobs != 3 {
		t.Errorf("TotalJobs = %d; want 3", result.TotalJobs)
	}
	if result.CompletedJobs != 0 {
		t.Errorf("CompletedJobs = %d; want 0 for a cancelled batch", result.CompletedJobs)
	}
	if !result.HasErrors() {
		t.Error("expected HasErrors() = true for an incomplete batch")
	}
}

func TestBatchResult_HasErrors(t *testing.T) {
	t.Run("all converted", func(t *testing.T) {
		br := &BatchResult{
			Results:       []*JobResult{{ID: "0", Thing: &hv.Height{}}},
			TotalJobs:     1,
			CompletedJobs: 1,
		}
		if br.HasErrors() {
			t.Error("expected HasErrors() = false")
		}
	})

	t.Run("with error", func(t *testing.T) {
		br := &BatchResult{
			Results:       []*JobResult{{ID: "0", Error: ErrNoConverter}},
			TotalJobs:     1,
			CompletedJobs: 1,
		}
		if !br.HasErrors() {
			t.Error("expected HasErrors() = true when error present")
		}
		if br.ErrorCount() != 1 {
			t.Errorf("ErrorCount() = %d; want 1", br.ErrorCount())
		}
	})
}
