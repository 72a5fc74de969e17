// Package testutil provides an in-memory Redis for tests, backed by
// miniredis.
//
//	client, mini := testutil.NewClient(t)
//	mini.Set("user:1", "ada")
//	reply, err := client.Do(ctx, "GET", "user:1")
package testutil
