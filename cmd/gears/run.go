package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kbukum/gears"
	"github.com/kbukum/gears/bootstrap"
)

type runFlags struct {
	json      bool
	redisAddr string
}

func newRunCmd(root *rootFlags) *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a built-in pipeline once and print its records",
	}
	cmd.PersistentFlags().BoolVar(&flags.json, "json", true, "Print records as JSON")
	cmd.PersistentFlags().StringVar(&flags.redisAddr, "redis-addr", "", "Redis address, overrides redis.addr")

	cmd.AddCommand(
		&cobra.Command{
			Use:     "numbers VALUE...",
			Short:   "Sum the doubled positive values",
			Example: "  gears run numbers 1 -1 2 3",
			Args:    cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				values, err := parseInts(args)
				if err != nil {
					return err
				}
				return runPipeline(cmd, root, flags, false, func(ctx context.Context, rt *runtime, opts []gears.RunOption) (*gears.Result, error) {
					return sumDoubledPositives(ctx, rt.engine.Engine(), values, opts...)
				})
			},
		},
		&cobra.Command{
			Use:     "keys PATTERN",
			Short:   "Count the keys matching PATTERN per type",
			Example: "  gears run keys 'user:*' --redis-addr localhost:6379",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPipeline(cmd, root, flags, true, func(ctx context.Context, rt *runtime, opts []gears.RunOption) (*gears.Result, error) {
					client, err := rt.client()
					if err != nil {
						return nil, err
					}
					return countKeysByType(ctx, rt.engine.Engine(), client, args[0], opts...)
				})
			},
		},
		&cobra.Command{
			Use:     "stream NAME",
			Short:   "Count the entries of stream NAME per field",
			Example: "  gears run stream events",
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPipeline(cmd, root, flags, true, func(ctx context.Context, rt *runtime, opts []gears.RunOption) (*gears.Result, error) {
					client, err := rt.client()
					if err != nil {
						return nil, err
					}
					return countStreamFields(ctx, rt.engine.Engine(), client, args[0], opts...)
				})
			},
		},
	)
	return cmd
}

type pipelineFunc func(ctx context.Context, rt *runtime, opts []gears.RunOption) (*gears.Result, error)

func runPipeline(cmd *cobra.Command, root *rootFlags, flags *runFlags, needsRedis bool, run pipelineFunc) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if flags.redisAddr != "" {
		cfg.Redis.Addr = flags.redisAddr
		cfg.Redis.Enabled = true
	}
	if needsRedis {
		cfg.Redis.Enabled = true
	}
	// records go to stdout, so logs move out of the way
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}

	rt, err := newRuntime(cfg, bootstrap.WithSummaryOutput(nil))
	if err != nil {
		return err
	}
	return rt.app.RunTask(cmd.Context(), func(ctx context.Context) error {
		res, err := run(ctx, rt, []gears.RunOption{gears.WithJSON(flags.json)})
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), res)
	})
}

func printResult(w io.Writer, res *gears.Result) error {
	for _, r := range res.Records {
		if _, err := fmt.Fprintln(w, r); err != nil {
			return err
		}
	}
	for _, e := range res.Errors {
		if _, err := fmt.Fprintln(w, "error:", e); err != nil {
			return err
		}
	}
	return nil
}
