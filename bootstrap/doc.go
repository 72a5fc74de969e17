// Package bootstrap runs a gears process: it validates the typed config,
// starts the registered components in order, runs lifecycle hooks and
// stops everything in reverse on shutdown.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(redisComponent)
//	app.RegisterComponent(engineComponent)
//	app.OnReady(registerPipelines)
//	err = app.Run(ctx)
//
// Run blocks until SIGINT or SIGTERM. RunTask runs a finite task with the
// same startup and shutdown sequence, which is what one-shot pipeline runs use.
package bootstrap
