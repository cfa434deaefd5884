// -- cmd/replay.go --
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/internal/llmclient"
	"github.com/xkilldash9x/replay-cli/internal/observability"
	"github.com/xkilldash9x/replay-cli/internal/replay"
)

var (
	replayVars        []string
	replayOutputDir   string
	replayMaxAttempts int
	replayPort        int
	replayContinue    bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <spec.json>",
	Short: "Replay an intent specification against the live embedded page.",
	Long: `Loads an intent specification (an ordered, parametrized sequence of steps
produced from a recording) and executes it against the page exposed on the
host's remote-debugging endpoint. Scripted steps that fail can escalate to
AI-driven recovery per each step's fallback policy.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringArrayVar(&replayVars, "var", nil, "variable binding as NAME=value (repeatable)")
	replayCmd.Flags().StringVarP(&replayOutputDir, "output", "o", "", "directory for the run's JSON action log")
	replayCmd.Flags().IntVar(&replayMaxAttempts, "max-attempts", 0, "override the recovery attempt budget")
	replayCmd.Flags().IntVarP(&replayPort, "port", "p", 0, "remote-debugging port to try first")
	replayCmd.Flags().BoolVar(&replayContinue, "continue-on-failure", false, "keep executing steps after a failure")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()

	// Flag overrides beat config file values.
	if replayOutputDir != "" {
		cfg.Replay.OutputDir = replayOutputDir
	}
	if replayMaxAttempts > 0 {
		cfg.Recovery.MaxAttempts = replayMaxAttempts
	}
	if replayPort > 0 {
		cfg.Browser.PreferredPort = replayPort
	}
	if replayContinue {
		cfg.Replay.ContinueOnFailure = true
	}

	vars, err := parseVarBindings(replayVars)
	if err != nil {
		return err
	}

	spec, err := replay.LoadSpec(args[0])
	if err != nil {
		return err
	}
	logger.Info("Loaded intent spec",
		zap.String("spec", spec.Name),
		zap.Int("steps", len(spec.Steps)),
		zap.Strings("declared_variables", spec.Variables),
	)

	for _, name := range spec.Variables {
		if _, ok := vars[name]; !ok {
			logger.Warn("Declared variable has no binding; its placeholders will be left intact", zap.String("variable", name))
		}
	}

	llm, err := llmclient.NewGeminiClient(cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	driver := replay.NewDriver(cfg, logger)
	runLog, err := driver.Run(cmd.Context(), spec, vars, llm)
	if err != nil {
		return err
	}

	path, err := driver.WriteRunLog(runLog)
	if err != nil {
		logger.Error("Failed to persist run log", zap.Error(err))
	} else {
		logger.Info("Run log written", zap.String("path", path))
	}

	for _, entry := range runLog.Entries {
		if !entry.Success && entry.Method != "" {
			return fmt.Errorf("run %s finished with failed steps; see %s", runLog.RunID, path)
		}
	}
	return nil
}

// parseVarBindings turns repeated NAME=value flags into the variable map.
func parseVarBindings(bindings []string) (map[string]string, error) {
	vars := make(map[string]string, len(bindings))
	for _, binding := range bindings {
		name, value, found := strings.Cut(binding, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid --var %q, expected NAME=value", binding)
		}
		vars[name] = value
	}
	return vars, nil
}
