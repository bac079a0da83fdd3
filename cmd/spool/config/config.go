// Package configcmder provides the config command for managing persistent
// spool configuration stored in the .spool/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent spool configuration.

Configuration is stored as config.toml in the .spool/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  client.model, client.tenant_id, client.no_think,
  endpoint.base_url, endpoint.api_key,
  storage.provider, storage.sqlite_path, storage.postgres_url,
  monitor.provider, monitor.kafka_brokers, monitor.kafka_topic

Use subcommands to get, set, or list configuration values:
  spool config set <key> <value>    Set a configuration value
  spool config get <key>            Get a configuration value
  spool config list                 List all configuration values

Examples:
  spool config set client.model qwen3-32b
  spool config set endpoint.base_url https://api.deepseek.com/v1
  spool config get client.model
  spool config list`

const configShortDesc string = "Manage persistent spool configuration"

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
