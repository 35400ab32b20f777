package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pzaytsev/knowchain/internal/knowledge"
	"github.com/pzaytsev/knowchain/internal/llm"
	"github.com/pzaytsev/knowchain/internal/model"
	"github.com/pzaytsev/knowchain/internal/pipeline"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "knowchain",
	Short: "Knowchain - chain-of-knowledge question answering and claim verification",
	Long: `Knowchain answers questions and verifies claims by grounding LLM
reasoning in external knowledge.

It generates multiple reasoning chains, checks whether they already
agree, and when they do not, retrieves supporting evidence from
Wikipedia, Wikidata, and web search to correct each chain before
consolidating a final answer.

Questions prefixed with "Claim:" are verified instead of answered and
receive a SUPPORTS / REFUTES / NOT ENOUGH INFO label.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number and build information for Knowchain.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("knowchain v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.knowchain/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.knowchain")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match KNOWCHAIN_*
	viper.SetEnvPrefix("KNOWCHAIN")
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// newLogger builds the CLI logger. Verbose mode switches to the
// human-readable development encoder at debug level.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// resolveAPIKey fills in the provider API key from the environment.
func resolveAPIKey(cfg *model.Config) error {
	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
		}
	case "ollama":
		// Ollama doesn't need an API key
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = baseURL
		}
	}
	return nil
}

// buildPipeline assembles the provider, gateway, knowledge sources, and
// pipeline from the configuration.
func buildPipeline(cfg *model.Config, logger *zap.Logger) (*pipeline.Pipeline, error) {
	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("create LLM provider: %w", err)
	}

	gateway := llm.NewGateway(provider, llm.GatewayOptions{
		MaxRetries: cfg.LLM.MaxRetries,
	}, logger)

	registry := knowledge.NewRegistry()
	registry.Add(knowledge.NewWikipediaSource(knowledge.WikipediaOptions{
		UserAgent:  cfg.HTTP.UserAgent,
		Timeout:    cfg.HTTP.Timeout,
		HTTPProxy:  cfg.LLM.HTTPProxy,
		HTTPSProxy: cfg.LLM.HTTPSProxy,
		NoProxy:    cfg.LLM.NoProxy,
	}, logger))
	registry.Add(knowledge.NewWikidataSource(knowledge.WikidataOptions{
		UserAgent:  cfg.HTTP.UserAgent,
		Timeout:    cfg.HTTP.Timeout,
		HTTPProxy:  cfg.LLM.HTTPProxy,
		HTTPSProxy: cfg.LLM.HTTPSProxy,
		NoProxy:    cfg.LLM.NoProxy,
	}, logger))
	registry.Add(knowledge.NewWebSearchSource(knowledge.WebSearchOptions{
		UserAgent:         cfg.HTTP.UserAgent,
		Timeout:           cfg.HTTP.Timeout,
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
		Burst:             cfg.HTTP.Burst,
		HTTPProxy:         cfg.LLM.HTTPProxy,
		HTTPSProxy:        cfg.LLM.HTTPSProxy,
		NoProxy:           cfg.LLM.NoProxy,
	}, logger))

	return pipeline.New(gateway, registry, cfg, logger), nil
}
