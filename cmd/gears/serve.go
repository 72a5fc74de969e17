package main

import (
	"context"
	stderrors "errors"

	"github.com/spf13/cobra"

	"github.com/kbukum/gears/engine"
	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/observability"
	"github.com/kbukum/gears/reader"
	"github.com/kbukum/gears/server"
)

func newServeCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the engine with the admin API and the configured watch registrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			if err := setupServe(cmd.Context(), rt); err != nil {
				return err
			}
			return rt.app.Run(cmd.Context())
		},
	}
}

// setupServe adds telemetry, the HTTP server and the watch registrations to a
// runtime.
func setupServe(ctx context.Context, rt *runtime) error {
	app, cfg := rt.app, rt.app.Cfg

	if cfg.Observability.Enabled {
		tp, err := observability.InitTracer(ctx, cfg.Observability)
		if err != nil {
			return err
		}
		mp, err := observability.InitMeter(ctx, cfg.Observability)
		if err != nil {
			return stderrors.Join(err, tp.Shutdown(ctx))
		}
		app.OnStop(func(ctx context.Context) error {
			return stderrors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
		})
	}

	if cfg.Server.Enabled {
		s := server.New(cfg.Server, app.Logger)
		s.RegisterDefaultEndpoints(cfg.Name, app.Components.HealthAll)
		s.RegisterAdmin(engineAdmin{c: rt.engine})
		for _, r := range s.Routes().Routes() {
			app.Summary.TrackRoute(r.Method, r.Path)
		}
		if err := app.RegisterComponent(server.NewComponent(s)); err != nil {
			return err
		}
	}

	app.OnReady(func(ctx context.Context) error {
		return registerWatches(ctx, rt)
	})
	return nil
}

// registerWatches registers one logging pipeline per configured key pattern,
// stream and Kafka topic.
func registerWatches(ctx context.Context, rt *runtime) error {
	app, cfg := rt.app, rt.app.Cfg
	eng := rt.engine.Engine()
	mode := cfg.WatchMode()

	track := func(id string, r engine.Reader) {
		app.Summary.TrackPipeline(id, r.Name(), mode.String())
		app.Logger.Info("pipeline registered", logger.Fields(
			logger.FieldRegistration, id,
			logger.FieldReader, r.Name(),
			logger.FieldMode, mode.String(),
		))
	}

	if len(cfg.Watch.Keys) > 0 || len(cfg.Watch.Streams) > 0 {
		client, err := rt.client()
		if err != nil {
			return err
		}
		for _, pattern := range cfg.Watch.Keys {
			r := reader.NewKeys(client, pattern, reader.WithEvents(cfg.Watch.Events...))
			id, err := watch(ctx, eng, r, mode, describeKey)
			if err != nil {
				return err
			}
			track(id, r)
		}
		for _, stream := range cfg.Watch.Streams {
			r := reader.NewStream(client, stream)
			id, err := watch(ctx, eng, r, mode, describeEntry)
			if err != nil {
				return err
			}
			track(id, r)
		}
	}

	if cfg.Kafka.Enabled {
		r := reader.NewKafka(cfg.Kafka, app.Logger)
		id, err := watch(ctx, eng, r, mode, describeMessage)
		if err != nil {
			return err
		}
		track(id, r)
	}
	return nil
}
