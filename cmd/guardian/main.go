package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"guardian/internal/assessment"
	"guardian/internal/classifier"
	"guardian/internal/config"
	"guardian/internal/decision"
	"guardian/internal/executor"
	"guardian/internal/logging"
	"guardian/internal/notify"
	"guardian/internal/pipeline"
	"guardian/internal/reasoning"
	"guardian/internal/store"
	"guardian/internal/types"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "guardian",
	Short: "Autonomous personal safety reasoning pipeline",
	Long: `guardian runs sensor snapshots through an LLM-backed safety pipeline:
threat assessment, confidence scoring, optional multi-stage classification,
an emergency decision, autonomous action execution, and trusted-contact
notification planning.

Reasoning degrades conservatively: if every provider is down the pipeline
still produces a supervised monitoring decision.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Logging.Format)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var (
	assessUser     string
	assessLocation string
	assessAudio    string
	assessMotion   string
	assessEnv      string
	assessBio      string
	assessNote     string
	assessInput    string
	assessContacts []string
)

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Run one sensor snapshot through the full pipeline",
	Example: `  guardian assess --user alice --location "Main St & 5th" \
    --audio "Help me please, someone is following me" \
    --contact "Jordan:VOICE" --contact "Sam"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sensor := types.SensorContext{
			UserID:            assessUser,
			Location:          assessLocation,
			Audio:             assessAudio,
			Motion:            assessMotion,
			Environmental:     assessEnv,
			Biometric:         assessBio,
			AdditionalContext: assessNote,
		}
		if assessInput != "" {
			data, err := os.ReadFile(assessInput)
			if err != nil {
				return fmt.Errorf("failed to read sensor input: %w", err)
			}
			if err := json.Unmarshal(data, &sensor); err != nil {
				return fmt.Errorf("failed to parse sensor input: %w", err)
			}
		}
		if sensor.Timestamp.IsZero() {
			sensor.Timestamp = time.Now().UTC()
		}
		return runPipeline(ctx, sensor, parseContacts(assessContacts))
	},
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a built-in distress scenario end to end",
	Long: `simulate feeds a canned night-time distress scenario through the
pipeline. Actions are dispatched through the simulated dispatcher, so
nothing external is contacted. Useful for verifying provider keys and
configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sensor := types.SensorContext{
			UserID:            "simulated-user",
			Location:          "Downtown parking garage, level 2",
			Audio:             "Help me please, someone is following me",
			Motion:            "Rapid irregular movement, possible running",
			Environmental:     "Low light, isolated area",
			AdditionalContext: "User activated panic gesture 30 seconds ago",
			Timestamp:         time.Now().UTC(),
		}
		contacts := []types.TrustedContact{
			{ID: "sim-1", Name: "Jordan", Relationship: "PARTNER", PreferredMethod: "VOICE", Primary: true},
			{ID: "sim-2", Name: "Sam", Relationship: "FRIEND", PreferredMethod: "SMS"},
		}
		return runPipeline(ctx, sensor, contacts)
	},
}

func runPipeline(ctx context.Context, sensor types.SensorContext, contacts []types.TrustedContact) error {
	invoker, err := buildInvoker(ctx)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	directory := pipeline.NewStaticDirectory()
	directory.Set(sensor.UserID, contacts)

	runner := pipeline.NewRunner(
		assessment.NewAssessor(invoker, logger),
		assessment.NewScorer(invoker, logger),
		classifier.New(invoker, logger),
		decision.NewEngine(invoker, logger),
		executor.New(executor.NewSimulatedDispatcher(), logger),
		notify.NewPlanner(invoker, logger),
		directory,
		db,
		pipeline.Options{
			EnableClassifier: cfg.Pipeline.EnableClassifier,
			TimeContext:      cfg.Pipeline.TimeContext,
			MaxContacts:      cfg.Pipeline.MaxContacts,
		},
		logger,
	)

	result, err := runner.AssessAndDecide(ctx, sensor)
	if err != nil {
		return err
	}
	runner.Wait()

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// buildInvoker wires the configured reasoning providers in fallback
// order: Anthropic first, Gemini second.
func buildInvoker(ctx context.Context) (reasoning.Invoker, error) {
	var clients []reasoning.Client

	if cfg.LLM.AnthropicAPIKey != "" {
		clients = append(clients, reasoning.NewAnthropicClientWithConfig(reasoning.AnthropicConfig{
			APIKey:  cfg.LLM.AnthropicAPIKey,
			BaseURL: cfg.LLM.AnthropicURL,
			Model:   cfg.LLM.AnthropicModel,
			Timeout: cfg.LLMTimeout(),
		}))
	}
	if cfg.LLM.GeminiAPIKey != "" {
		gemini, err := reasoning.NewGeminiClient(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		clients = append(clients, gemini)
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("no reasoning provider configured: set ANTHROPIC_API_KEY or GEMINI_API_KEY")
	}
	return reasoning.NewFallbackClient(logger, clients...), nil
}

// parseContacts turns "Name:METHOD" flags into trusted contacts. The
// method part is optional.
func parseContacts(raw []string) []types.TrustedContact {
	contacts := make([]types.TrustedContact, 0, len(raw))
	for i, entry := range raw {
		name, method, _ := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		contacts = append(contacts, types.TrustedContact{
			ID:              fmt.Sprintf("contact-%d", i+1),
			Name:            name,
			PreferredMethod: strings.TrimSpace(method),
			Primary:         i == 0,
		})
	}
	return contacts
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "guardian.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	assessCmd.Flags().StringVar(&assessUser, "user", "default-user", "user the snapshot belongs to")
	assessCmd.Flags().StringVar(&assessLocation, "location", "unknown", "current location description")
	assessCmd.Flags().StringVar(&assessAudio, "audio", "", "audio analysis text")
	assessCmd.Flags().StringVar(&assessMotion, "motion", "", "motion analysis text")
	assessCmd.Flags().StringVar(&assessEnv, "environmental", "", "environmental reading text")
	assessCmd.Flags().StringVar(&assessBio, "biometric", "", "biometric reading text")
	assessCmd.Flags().StringVar(&assessNote, "context", "", "additional free-form context")
	assessCmd.Flags().StringVar(&assessInput, "input", "", "JSON file holding the sensor snapshot, overrides the flags above")
	assessCmd.Flags().StringArrayVar(&assessContacts, "contact", nil, "trusted contact as NAME[:METHOD], repeatable")

	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(simulateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
