// Command analyze runs a scenario analysis from the terminal, without the
// server or a database. Useful for demos and for eyeballing generator output.
//
//	analyze "We are considering acquiring our largest competitor" --context industry=Finance
//	analyze --provider rule-based --json < /dev/null
//
// With no situation argument it analyzes a built-in example scenario.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nyashahama/scenario-outcome-analyzer/internal/ai"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/analysis"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/examples"
	"github.com/nyashahama/scenario-outcome-analyzer/internal/format"
)

var (
	flagProvider  string
	flagModel     string
	flagTimeout   time.Duration
	flagNormalize bool
	flagJSON      bool
	flagContext   []string
	flagVerbose   bool
)

func main() {
	root := &cobra.Command{
		Use:   "analyze [situation]",
		Short: "Analyze a scenario and print the possible outcomes",
		Long: "Analyze runs the scenario-outcome pipeline against a situation described\n" +
			"in plain text and prints a report of 3-7 validated outcomes with\n" +
			"probabilities, key variables, and recommendations.",
		Args: cobra.MaximumNArgs(1),
		RunE: runAnalyze,
		// Errors are already printed with context by RunE; suppress cobra's
		// duplicate usage dump on runtime failures.
		SilenceUsage: true,
	}

	root.Flags().StringVar(&flagProvider, "provider", "auto",
		"generator backend: auto | openai | anthropic | rule-based")
	root.Flags().StringVar(&flagModel, "model", "",
		"override the provider's default model name")
	root.Flags().DurationVar(&flagTimeout, "timeout", analysis.DefaultTimeout,
		"per-analysis time budget")
	root.Flags().BoolVar(&flagNormalize, "normalize", false,
		"rescale outcome probabilities to sum to 1")
	root.Flags().BoolVar(&flagJSON, "json", false,
		"emit the raw result as JSON instead of the plain-text report")
	root.Flags().StringArrayVar(&flagContext, "context", nil,
		"context pair as key=value, repeatable")
	root.Flags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"log generator activity to stderr")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if flagVerbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	scenario, err := buildScenario(args)
	if err != nil {
		return err
	}

	gen, err := buildGenerator(logger)
	if err != nil {
		return err
	}

	analyzer := analysis.NewAnalyzer(gen, analysis.Options{
		Timeout:                flagTimeout,
		NormalizeProbabilities: flagNormalize,
	})

	result, err := analyzer.Analyze(cmd.Context(), scenario)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	if flagJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintln(cmd.OutOrStdout(), format.Render(result))
	return nil
}

// buildScenario assembles the input from the positional argument and
// --context flags, falling back to the built-in example.
func buildScenario(args []string) (analysis.Scenario, error) {
	var sc analysis.Scenario
	if len(args) == 1 {
		sc.Situation = args[0]
	} else {
		sc = examples.Default()
		fmt.Fprintln(os.Stderr, "no situation given, analyzing the built-in example scenario")
	}

	for _, pair := range flagContext {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return analysis.Scenario{}, fmt.Errorf("invalid --context %q, want key=value", pair)
		}
		if sc.Context == nil {
			sc.Context = make(map[string]string)
		}
		sc.Context[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return sc, nil
}

// buildGenerator resolves --provider against the API keys in the
// environment. "auto" prefers OpenAI, then Anthropic, then rule-based.
func buildGenerator(logger *slog.Logger) (analysis.Generator, error) {
	openAIKey := os.Getenv("OPENAI_API_KEY")
	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")

	switch flagProvider {
	case "openai":
		if openAIKey == "" {
			return nil, fmt.Errorf("--provider openai requires OPENAI_API_KEY")
		}
		return ai.NewOpenAIClient(openAIKey, modelOr("gpt-4o-mini")), nil
	case "anthropic":
		if anthropicKey == "" {
			return nil, fmt.Errorf("--provider anthropic requires ANTHROPIC_API_KEY")
		}
		return ai.NewAnthropicClient(anthropicKey, modelOr("claude-sonnet-4-20250514")), nil
	case "rule-based":
		return ai.NewRuleBasedGenerator(), nil
	case "auto":
		switch {
		case openAIKey != "":
			return ai.NewFallbackGenerator(
				ai.NewOpenAIClient(openAIKey, modelOr("gpt-4o-mini")),
				ai.NewRuleBasedGenerator(),
				logger,
			), nil
		case anthropicKey != "":
			return ai.NewFallbackGenerator(
				ai.NewAnthropicClient(anthropicKey, modelOr("claude-sonnet-4-20250514")),
				ai.NewRuleBasedGenerator(),
				logger,
			), nil
		default:
			fmt.Fprintln(os.Stderr, "no API keys set, using the rule-based generator")
			return ai.NewRuleBasedGenerator(), nil
		}
	default:
		return nil, fmt.Errorf("unknown provider %q", flagProvider)
	}
}

func modelOr(def string) string {
	if flagModel != "" {
		return flagModel
	}
	return def
}
