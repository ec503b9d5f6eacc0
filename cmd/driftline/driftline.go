// Package driftlinecmder
package driftlinecmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/driftline/driftline/cmd/driftline/config"
	servecmder "github.com/driftline/driftline/cmd/driftline/serve"
	synccmder "github.com/driftline/driftline/cmd/driftline/sync"
)

const driftlineLongDesc string = `Driftline clusters your social timeline into labeled topics.

Run services using:
  driftline serve      Run the HTTP server
  driftline sync       Pull and embed new timeline items once
  driftline config     Manage persistent configuration`

const driftlineShortDesc string = "Driftline - Timeline Topic Clustering"

func NewDriftlineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "driftline",
		Short: driftlineShortDesc,
		Long:  driftlineLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .driftline/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(synccmder.NewSyncCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())

	return cmd
}
