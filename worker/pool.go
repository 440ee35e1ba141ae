package worker

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	hvfhir "github.com/microsoft/healthvault-fhir-library-sub001"
	"github.com/microsoft/healthvault-fhir-library-sub001/hv"
	"github.com/microsoft/healthvault-fhir-library-sub001/internal/logger"
)

// Converter is the conversion the pool runs for each job.
// *convert.Converter satisfies it.
type Converter interface {
	ConvertJSON(ctx context.Context, data []byte) (hv.Thing, error)
}

// ErrNoConverter is returned when the pool has no converter configured.
var ErrNoConverter = errors.New("no converter configured")

// Pool converts jobs on a fixed number of goroutines. The number comes from
// Options.WorkerCount. A Pool holds no goroutines between calls and is safe
// for concurrent use.
type Pool struct {
	converter Converter
	workers   int
	log       zerolog.Logger

	completed     atomic.Uint64
	failed        atomic.Uint64
	totalDuration atomic.Int64
}

// NewPool creates a pool running converter. A non-positive WorkerCount falls
// back to runtime.NumCPU().
func NewPool(converter Converter, opts ...hvfhir.Option) *Pool {
	o := hvfhir.Apply(opts...)
	p := &Pool{
		converter: converter,
		workers:   o.WorkerCount,
		log:       logger.Default(),
	}
	if p.workers <= 0 {
		p.workers = runtime.NumCPU()
	}
	if o.Logger != nil {
		p.log = *o.Logger
	}
	return p
}

// Workers returns the number of goroutines a call runs.
func (p *Pool) Workers() int {
	return p.workers
}

// Stream converts jobs until the channel is closed or ctx is cancelled and
// publishes results in completion order. The returned channel is closed once
// every worker has returned. After cancellation no new job is started and
// results not yet delivered are dropped.
func (p *Pool) Stream(ctx context.Context, jobs <-chan Job) <-chan *JobResult {
	out := make(chan *JobResult, p.workers)

	var wg sync.WaitGroup
	wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func() {
			defer wg.Done()
			for {
				var (
					job Job
					ok  bool
				)
				select {
				case <-ctx.Done():
					return
				case job, ok = <-jobs:
				}
				if !ok || ctx.Err() != nil {
					return
				}

				result := p.run(ctx, job)
				select {
				case <-ctx.Done():
					return
				case out <- result:
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// ConvertBatch converts docs and returns the results in input order. Result
// IDs are the decimal input index. When ctx is cancelled the jobs not yet
// started are left nil in Results and not counted as completed.
func (p *Pool) ConvertBatch(ctx context.Context, docs [][]byte) *BatchResult {
	br := &BatchResult{
		Results:   make([]*JobResult, len(docs)),
		TotalJobs: len(docs),
	}
	if len(docs) == 0 {
		return br
	}

	jobs := make(chan Job)
	go func() {
		defer close(jobs)
		for i, doc := range docs {
			select {
			case <-ctx.Done():
				return
			case jobs <- Job{ID: strconv.Itoa(i), Resource: doc, index: i}:
			}
		}
	}()

	for r := range p.Stream(ctx, jobs) {
		br.add(r)
	}

	p.log.Debug().
		Int("total", br.TotalJobs).
		Int("completed", br.CompletedJobs).
		Int("failed", br.FailedJobs).
		Int("workers", p.workers).
		Msg("batch converted")
	return br
}

func (p *Pool) run(ctx context.Context, job Job) *JobResult {
	start := time.Now()
	result := &JobResult{ID: job.ID, index: job.index}

	if p.converter == nil {
		result.Error = ErrNoConverter
	} else {
		result.Thing, result.Error = p.converter.ConvertJSON(ctx, job.Resource)
	}
	result.Duration = time.Since(start).Nanoseconds()

	p.completed.Add(1)
	p.totalDuration.Add(result.Duration)
	if result.Error != nil {
		p.failed.Add(1)
		p.log.Debug().Str("job", job.ID).Err(result.Error).Msg("conversion failed")
	}
	return result
}

// Stats returns counters accumulated over every call.
func (p *Pool) Stats() PoolStats {
	completed := p.completed.Load()
	var avg time.Duration
	if completed > 0 {
		avg = time.Duration(p.totalDuration.Load() / int64(completed))
	}
	return PoolStats{
		Workers:       p.workers,
		JobsCompleted: completed,
		JobsFailed:    p.failed.Load(),
		AvgDuration:   avg,
	}
}

// PoolStats contains pool statistics.
type PoolStats struct {
	Workers       int
	JobsCompleted uint64
	JobsFailed    uint64
	AvgDuration   time.Duration
}
