// Package redis wraps go-redis for the gears readers and the local engine.
//
// The Client exposes the commands the rest of the module needs: arbitrary
// command execution (Do), CONFIG GET, key scanning with typed value fetch,
// stream range and blocking reads, and pattern subscriptions for keyspace
// notifications. Component adapts a Client to the component lifecycle.
//
//	cfg := redis.Config{Enabled: true, Addr: "localhost:6379"}
//	comp := redis.NewComponent(cfg, log)
//	if err := comp.Start(ctx); err != nil {
//		return err
//	}
//	reply, err := comp.Client().Do(ctx, "DBSIZE")
package redis
