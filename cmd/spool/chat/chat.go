// Package chatcmder provides the chat command for interactive streaming
// chat against the configured provider endpoint.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spoolhq/spool/cmd/spool/runtime"
	"github.com/spoolhq/spool/pkg/cliui"
	"github.com/spoolhq/spool/pkg/config"
	"github.com/spoolhq/spool/pkg/dotdir"
	"github.com/spoolhq/spool/pkg/llm"
	"github.com/spoolhq/spool/pkg/llm/provider/openai"
	"github.com/spoolhq/spool/pkg/llm/stream"
	"github.com/spoolhq/spool/pkg/modelcfg"
	"github.com/spoolhq/spool/pkg/track"
	"github.com/spoolhq/spool/pkg/transcript"
	"github.com/spoolhq/spool/pkg/utils"

	"github.com/google/uuid"
)

var (
	userPrompt      = cliui.PromptStyle.Render("you> ")
	assistantPrompt = cliui.ReplyStyle.Render("assistant> ")
)

type chatCommander struct {
	model    string
	tenantID string
	noThink  bool
	debug    bool

	configDir string
	rt        *runtime.Runtime
}

const chatLongDesc string = `Start an interactive streaming chat session.

Messages stream from the configured OpenAI-compatible endpoint. Reasoning
tokens are shown dimmed; Ctrl+C interrupts the current reply without
killing the session. Completed turns are recorded to the transcript store.

If a session state exists (from a previous chat), the conversation resumes
from it. Delete .spool/session.json to start fresh.

Examples:
  spool chat
  spool chat --model qwen3-32b --no-think
  spool chat --tenant acme`

const chatShortDesc string = "Interactive streaming chat"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
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
			if !cmd.Flags().Changed("no-think") {
				cmder.noThink = cfg.Client.NoThink
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	fs := config.DefaultFlagSet
	config.AddStringFlag(cmd, fs, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, fs, config.FlagTenant, &cmder.tenantID)
	config.AddBoolFlag(cmd, fs, config.FlagNoThink, &cmder.noThink)

	return cmd
}

func (c *chatCommander) run() error {
	var rt *runtime.Runtime
	err := cliui.Step(os.Stdout, "Starting spool", func() error {
		var err error
		rt, err = runtime.New(c.configDir, c.debug)
		return err
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	c.rt = rt

	// Load session state
	dotdirManager := dotdir.NewManager()
	session, err := dotdirManager.LoadSessionState(c.configDir)
	if err != nil {
		return fmt.Errorf("loading session state: %w", err)
	}

	var history []llm.Message
	fmt.Println()
	if session != nil && len(session.Messages) > 0 {
		last := session.Messages[len(session.Messages)-1]
		fmt.Printf("  %s Resuming conversation %s\n",
			cliui.SuccessMark,
			cliui.DimStyle.Render(fmt.Sprintf("(%d messages, last: %q)",
				len(session.Messages), utils.Truncate(last.Content, 48))),
		)
		for _, msg := range session.Messages {
			history = append(history, llm.NewTextMessage(msg.Role, msg.Content))
		}
	} else {
		fmt.Printf("  %s New conversation\n", cliui.DimStyle.Render("●"))
	}

	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(c.model),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit. Ctrl+C stops the current reply."))

	// Ctrl+C sets the stop flag for the in-flight call instead of killing
	// the process; the chunk loop observes it at the next chunk boundary.
	stopFlag := stream.NewStopFlag()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			stopFlag.Stop()
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		history = append(history, llm.NewTextMessage("user", input))

		stopFlag.Reset()
		reply, err := c.streamTurn(history, stopFlag)
		if errors.Is(err, llm.ErrInterrupted) {
			fmt.Printf("\n  %s %s\n\n", cliui.FailMark, cliui.DimStyle.Render("stopped"))
			// Remove the interrupted user message so it can be rephrased
			history = history[:len(history)-1]
			continue
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			// Remove the failed user message so we can retry
			history = history[:len(history)-1]
			continue
		}

		history = append(history, reply)

		if err := c.saveSession(dotdirManager, history); err != nil {
			rt.Logger.Warn("saving session state", zap.Error(err))
		}

		fmt.Println()
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// streamTurn runs one streaming call over the conversation so far and
// returns the assistant reply message.
func (c *chatCommander) streamTurn(history []llm.Message, stopFlag *stream.StopFlag) (llm.Message, error) {
	endpoint, err := c.resolveEndpoint()
	if err != nil {
		return llm.Message{}, err
	}

	model := c.model
	if endpoint.ModelName != "" {
		model = endpoint.ModelName
	}

	client := stream.New(
		openai.New(endpoint.BaseURL, endpoint.APIKey, openai.WithLogger(c.rt.Logger)),
		c.rt.Logger,
	)

	messages := make([]any, len(history))
	for i := range history {
		messages[i] = history[i]
	}

	fmt.Print(assistantPrompt)

	timing := track.NewTiming()
	result, err := client.Call(context.Background(), model, messages, stream.Options{
		Observer: &consoleObserver{},
		Tracker:  timing,
		Monitor:  c.rt.Monitor,
		Stop:     stopFlag,
		NoThink:  c.noThink,
	})
	if err != nil {
		return llm.Message{}, err
	}

	c.printStats(timing)

	c.rt.Record(transcript.NewRecord(
		uuid.NewString(), model, c.tenantID, history, result,
	))

	return result.Message, nil
}

// resolveEndpoint returns the registry entry for the model, or the default
// endpoint when no entry matches.
func (c *chatCommander) resolveEndpoint() (modelcfg.ModelConfig, error) {
	cfg, err := c.rt.Resolver.Lookup(context.Background(), c.model, c.tenantID)
	if err != nil {
		return modelcfg.ModelConfig{}, fmt.Errorf("resolving model: %w", err)
	}
	if cfg != nil {
		return *cfg, nil
	}

	return modelcfg.ModelConfig{
		BaseURL: c.rt.Config.Endpoint.BaseURL,
		APIKey:  c.rt.Config.Endpoint.APIKey,
	}, nil
}

func (c *chatCommander) printStats(timing *track.Timing) {
	input, output := timing.Counts()
	fmt.Printf("\n  %s\n", cliui.StatStyle.Render(fmt.Sprintf(
		"%d in / %d out · first token %s · %.1f tok/s",
		input, output,
		cliui.FormatDuration(timing.FirstTokenLatency()),
		timing.TokensPerSecond(),
	)))
}

func (c *chatCommander) saveSession(m *dotdir.Manager, history []llm.Message) error {
	state := &dotdir.SessionState{Model: c.model}
	for _, msg := range history {
		state.Messages = append(state.Messages, dotdir.SessionMessage{
			Role:    msg.Role,
			Content: msg.GetText(),
		})
	}

	return m.SaveSession(state, c.configDir)
}

// consoleObserver prints content tokens as they arrive and reasoning
// tokens dimmed.
type consoleObserver struct{}

func (consoleObserver) OnToken(text string) {
	fmt.Print(text)
}

func (consoleObserver) OnReasoning(text string) {
	fmt.Print(cliui.ReasoningStyle.Render(text))
}

func (consoleObserver) Flush() {}
