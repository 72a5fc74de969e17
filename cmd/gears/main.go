// Command gears runs record pipelines on the local engine.
//
//	gears run numbers 1 -1 2 3          # one-shot run over literal values
//	gears run keys 'user:*'             # count keys per type
//	gears run stream events             # count stream entries per field
//	gears serve                         # admin API plus configured watch registrations
//	gears version
//
// Configuration is read from ./config/gears.yml or --config, then from the
// .env file and the environment (GEARS_REDIS_ADDR, LOCAL_WORKERS, ...).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "gears",
		Short:         "Typed record pipelines over Redis, streams and Kafka",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Path to configuration file (YAML)")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "Path to .env file")

	root.AddCommand(
		newRunCmd(flags),
		newServeCmd(flags),
		newVersionCmd(),
	)
	return root
}
