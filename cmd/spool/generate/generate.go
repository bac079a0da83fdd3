// Package generatecmder provides the generate command for one-shot
// completions with thinking spans filtered out.
package generatecmder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spoolhq/spool/cmd/spool/runtime"
	"github.com/spoolhq/spool/pkg/cliui"
	"github.com/spoolhq/spool/pkg/config"
	"github.com/spoolhq/spool/pkg/llm/prompt"
	"github.com/spoolhq/spool/pkg/llm/provider"
	"github.com/spoolhq/spool/pkg/llm/provider/openai"
	"github.com/spoolhq/spool/pkg/modelcfg"
)

type generateCommander struct {
	model    string
	tenantID string
	system   string
	debug    bool

	configDir string
}

const generateLongDesc string = `Run a one-shot completion and print the filtered result.

The full user prompt is taken from the command arguments. The model streams
its reply; any <think>...</think> spans are removed before printing, so the
output is safe to pipe into other tools.

Examples:
  spool generate "summarize the plot of Hamlet in one sentence"
  spool generate --model qwen3-32b --system "reply in French" "describe the moon"`

const generateShortDesc string = "One-shot completion with thinking spans removed"

func NewGenerateCmd() *cobra.Command {
	cmder := &generateCommander{}

	cmd := &cobra.Command{
		Use:   "generate <prompt...>",
		Short: generateShortDesc,
		Long:  generateLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cfger, err := config.NewConfiger(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("model") {
				cmder.model = cfg.Client.Model
			}
			if !cmd.Flags().Changed("tenant") {
				cmder.tenantID = cfg.Client.TenantID
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(strings.Join(args, " "))
		},
	}

	fs := config.DefaultFlagSet
	config.AddStringFlag(cmd, fs, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, fs, config.FlagTenant, &cmder.tenantID)
	cmd.Flags().StringVarP(&cmder.system, "system", "s", "You are a helpful assistant.", "System prompt")

	return cmd
}

func (c *generateCommander) run(userPrompt string) error {
	// The spinner goes to stderr so stdout stays pipe-clean.
	var rt *runtime.Runtime
	err := cliui.Step(os.Stderr, "Starting spool", func() error {
		var err error
		rt, err = runtime.New(c.configDir, c.debug)
		return err
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	gen := prompt.New(rt.Resolver,
		prompt.WithLogger(rt.Logger),
		prompt.WithOpener(func(cfg modelcfg.ModelConfig) provider.Opener {
			// Fall back to the default endpoint when the registry has no
			// entry for this model.
			if cfg.BaseURL == "" {
				cfg.BaseURL = rt.Config.Endpoint.BaseURL
				cfg.APIKey = rt.Config.Endpoint.APIKey
			}
			return openai.New(cfg.BaseURL, cfg.APIKey, openai.WithLogger(rt.Logger))
		}),
	)

	out, err := gen.Generate(context.Background(), c.model, c.tenantID, c.system, userPrompt, nil)
	if err != nil {
		return err
	}

	fmt.Println(out)
	return nil
}
