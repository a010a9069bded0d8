package cmd

import (
	"os"

	"github.com/antnet/antnet/state"
	"github.com/spf13/cobra"
)

var configPath = state.DefaultConfigPath

// Version is overridden at build time with -ldflags "-X github.com/antnet/antnet/cmd.Version=..."
var Version = "dev"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "antnet",
	Version: Version,
	Short:   "Ant colony distance-vector router",
	Long: `antnet runs a node of a small routing network.
Nodes exchange pheromone scores with their neighbors, probe path latency and pick next hops probabilistically, so the routing table keeps re-converging as conditions change.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddGroup(&cobra.Group{
		ID:    "node",
		Title: "Node Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "tools",
		Title: "Tools",
	})
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", configPath, "node config (yaml or json)")
}
