// Package configcmder provides the config command for managing persistent
// driftline configuration stored in the .driftline/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent driftline configuration.

Configuration is stored as config.toml in the .driftline/ directory and
provides default values for command flags. CLI flags always take
precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  server.listen, storage.sqlite_path,
  mastodon.url, mastodon.access_token,
  embedding.provider, embedding.target, embedding.model,
  summarize.provider, summarize.target, summarize.model,
  event_stream.provider, event_stream.brokers, event_stream.topic,
  ingest.workers

Use subcommands to get, set, or list configuration values:
  driftline config set <key> <value>    Set a configuration value
  driftline config get <key>            Get a configuration value
  driftline config list                 List all configuration values

Examples:
  driftline config set mastodon.url https://hachyderm.io
  driftline config set embedding.model nomic-embed-text
  driftline config get summarize.provider
  driftline config list`

const configShortDesc string = "Manage persistent driftline configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
