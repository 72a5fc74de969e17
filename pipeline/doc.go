// Package pipeline provides the pull-based stages the local engine evaluates
// registrations and executions with.
//
// Stages are lazy. Nothing runs until Collect, ForEach or ParallelForEach
// pulls values, and each stage pulls from the previous one on demand.
//
// Synchronous stages: Map, FlatMap, Reduce.
// Concurrent stages: Buffer, and Batch when it has a timeout.
//
//	batches := pipeline.Batch(pipeline.From(records), 100, time.Second)
//	err := pipeline.ParallelForEach(ctx, batches, workers, execute)
package pipeline
