// Package resilience holds the failure-handling policies gears uses around
// external systems.
//
// Retry repeats a call with exponential backoff; the Kafka reader uses it to
// ride out broker outages. Breaker fails fast once a dependency keeps
// failing; the local engine puts one in front of its command store.
//
//	msg, err := resilience.Retry(ctx, resilience.RetryConfig{
//	    RetryIf: kafka.IsRetryableError,
//	}, fetcher.FetchMessage)
package resilience
