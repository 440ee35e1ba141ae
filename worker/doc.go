// Package worker converts FHIR Observation JSON to HealthVault things in
// parallel.
//
// A Pool sizes itself from Options.WorkerCount. Stream converts jobs read
// from a channel and publishes results as they complete; ConvertBatch
// converts a slice and returns the results in input order.
//
// Example usage:
//
//	conv := convert.New()
//	pool := worker.NewPool(conv, hvfhir.WithWorkerCount(4))
//
//	batch := pool.ConvertBatch(ctx, docs)
//	for _, r := range batch.Results {
//	    if r == nil || r.Error != nil {
//	        // Handle error
//	    }
//	    // Use r.Thing
//	}
package worker
