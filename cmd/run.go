package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/antnet/antnet/core"
	"github.com/antnet/antnet/state"
	"github.com/spf13/cobra"
)

// fatal prints a timestamped diagnostic and exits, used before the logger exists
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[%s] fatal: %v\n", time.Now().Format(state.EventTimeFormat), err)
	os.Exit(1)
}

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a node",
	Long: `Runs a node on the current host until SIGINT or SIGTERM.
Configuration is read from the config file, environment variables (HELLO_INTERVAL, ALPHA, ...) take precedence.
The event stream is written to stdout as JSON lines, human readable logs go to stderr.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := state.ReadConfig(configPath)
		if err != nil {
			fatal(err)
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}

		err = core.Start(*cfg, level)
		if err != nil {
			fatal(err)
		}
	},
	GroupID: "node",
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
}
