package main

import (
	"context"
	"fmt"

	"github.com/kbukum/gears/bootstrap"
	"github.com/kbukum/gears/config"
	"github.com/kbukum/gears/engine/local"
	"github.com/kbukum/gears/errors"
	"github.com/kbukum/gears/observability"
	"github.com/kbukum/gears/redis"
)

const serviceName = "gears"

func loadConfig(flags *rootFlags) (*AppConfig, error) {
	var opts []config.LoaderOption
	if flags.configFile != "" {
		opts = append(opts, config.WithConfigFile(flags.configFile))
	}
	if flags.envFile != "" {
		opts = append(opts, config.WithEnvFile(flags.envFile))
	}
	cfg := &AppConfig{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runtime is a bootstrapped app with the Redis and engine components
// registered.
type runtime struct {
	app    *bootstrap.App[*AppConfig]
	redis  *redis.Component
	engine *local.Component
}

func newRuntime(cfg *AppConfig, opts ...bootstrap.Option) (*runtime, error) {
	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, err
	}
	rt := &runtime{app: app}

	if cfg.Redis.Enabled {
		rt.redis = redis.NewComponent(cfg.Redis, app.Logger)
		if err := app.RegisterComponent(rt.redis); err != nil {
			return nil, err
		}
	}

	metrics, err := observability.NewMetrics(observability.Meter())
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	rt.engine = local.NewComponent(cfg.Local, app.Logger, rt.store, metrics)
	if err := app.RegisterComponent(rt.engine); err != nil {
		return nil, err
	}
	return rt, nil
}

// store returns the connected Redis client, or nil without Redis.
func (rt *runtime) store() local.Store {
	if rt.redis == nil || rt.redis.Client() == nil {
		return nil
	}
	return rt.redis.Client()
}

// client is the connected Redis client for readers. It fails when Redis is
// disabled.
func (rt *runtime) client() (*redis.Client, error) {
	if rt.redis == nil || rt.redis.Client() == nil {
		return nil, errors.ServiceUnavailable("redis")
	}
	return rt.redis.Client(), nil
}

// engineAdmin serves the admin routes from the engine component, which only
// has an engine once started.
type engineAdmin struct {
	c *local.Component
}

func (a engineAdmin) Registrations() []local.RegistrationInfo {
	if e := a.c.Engine(); e != nil {
		return e.Registrations()
	}
	return nil
}

func (a engineAdmin) Registration(id string) (local.RegistrationInfo, bool) {
	if e := a.c.Engine(); e != nil {
		return e.Registration(id)
	}
	return local.RegistrationInfo{}, false
}

func (a engineAdmin) Unregister(ctx context.Context, id string) error {
	e := a.c.Engine()
	if e == nil {
		return errors.ServiceUnavailable("engine")
	}
	return e.Unregister(ctx, id)
}

func (a engineAdmin) Execute(ctx context.Context, args ...string) (any, error) {
	e := a.c.Engine()
	if e == nil {
		return nil, errors.ServiceUnavailable("engine")
	}
	return e.Execute(ctx, args...)
}
