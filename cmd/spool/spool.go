// Package spoolcmder
package spoolcmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/spoolhq/spool/cmd/spool/chat"
	configcmder "github.com/spoolhq/spool/cmd/spool/config"
	generatecmder "github.com/spoolhq/spool/cmd/spool/generate"
	versioncmder "github.com/spoolhq/spool/cmd/spool/version"
)

const spoolLongDesc string = `Spool streams chat completions and keeps the thinking to itself.

It talks to any OpenAI-compatible endpoint, strips <think> spans from the
visible output, records transcripts, and reports per-call token telemetry.

Common commands:
  spool chat       Interactive streaming chat
  spool generate   One-shot filtered completion
  spool config     Manage persistent configuration`

const spoolShortDesc string = "Spool - streaming chat with thinking spans removed"

func NewSpoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spool",
		Short: spoolShortDesc,
		Long:  spoolLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .spool/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(generatecmder.NewGenerateCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
