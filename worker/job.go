package worker

import "github.com/microsoft/healthvault-fhir-library-sub001/hv"

// Job is one resource to be converted by a worker.
type Job struct {
	// ID is a caller supplied identifier copied to the result.
	ID string

	// Resource is the FHIR Observation as JSON.
	Resource []byte

	index int
}

// JobResult is the outcome of one Job.
type JobResult struct {
	// ID matches the Job.ID that produced this result.
	ID string

	// Thing is the converted thing, nil when Error is set.
	Thing hv.Thing

	// Error is any error the conversion returned.
	Error error

	// Duration is the conversion time in nanoseconds.
	Duration int64

	index int
}

// BatchResult aggregates results from multiple jobs.
type BatchResult struct {
	Results       []*JobResult
	TotalJobs     int
	CompletedJobs int
	FailedJobs    int

	// TotalDuration is the summed conversion time in nanoseconds.
	TotalDuration int64
}

func (br *BatchResult) add(r *JobResult) {
	br.Results[r.index] = r
	br.CompletedJobs++
	br.TotalDuration += r.Duration
	if r.Error != nil {
		br.FailedJobs++
	}
}

// HasErrors reports whether any job failed or was not run.
func (br *BatchResult) HasErrors() bool {
	if br.CompletedJobs < br.TotalJobs {
		return true
	}
	for _, r := range br.Results {
		if r == nil || r.Error != nil {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of results carrying an error.
func (br *BatchResult) ErrorCount() int {
	count := 0
	for _, r := range br.Results {
		if r != nil && r.Error != nil {
			count++
		}
	}
	return count
}

// Things returns the converted things in result order, skipping failures.
func (br *BatchResult) Things() []hv.Thing {
	out := make([]hv.Thing, 0, len(br.Results))
	for _, r := range br.Results {
		if r != nil && r.Thing != nil {
			out = append(out, r.Thing)
		}
	}
	return out
}
