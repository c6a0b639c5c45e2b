package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/compliance-radar/internal/model"
	"github.com/ppiankov/compliance-radar/internal/util"
)

// Environment variables holding credentials. They are never read from the
// config file.
const (
	envHFToken   = "HUGGINGFACEHUB_API_TOKEN"
	envOpenAIKey = "OPENAI_API_KEY"
)

var (
	cfgFile string
	envFile string
	verbose bool
	logger  = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "radar",
	Short: "Compliance Radar - incident report triage",
	Long: `Compliance Radar triages incident reports from a whistleblowing intake.

For every narrative it predicts an incident category through a zero-shot
classification service, extracts named entities, money amounts and dates,
and assigns a transparent additive risk score so that the most urgent
reports are reviewed first.

Scores are rule-based and explainable: every point comes from a named rule.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := util.NewLogger(verbose)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Compliance Radar.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "radar v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.radar/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with API tokens (overrides the environment)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

// initConfig loads .env, the built-in defaults, the config file and RADAR_*
// environment variables, in increasing priority
func initConfig() {
	if err := loadDotEnv(envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	viper.Reset()

	// Defaults are registered as a base config so every key is known to
	// AutomaticEnv
	viper.SetConfigType("yaml")
	defaults, err := yaml.Marshal(model.DefaultConfig())
	if err == nil {
		_ = viper.ReadConfig(bytes.NewReader(defaults))
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".radar"))
		viper.SetConfigName("config")
	}

	// RADAR_GATEWAY_PROVIDER overrides gateway.provider, and so on
	viper.SetEnvPrefix("RADAR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.MergeInConfig(); err == nil {
		if verbose {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	} else {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: config file: %v\n", err)
		}
	}
}

// loadDotEnv loads path when it exists. Values replace variables already set
// in the environment.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Overload(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// loadConfig resolves the effective configuration. Command flags are applied
// by each command on top of it.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.Gateway.Token = strings.TrimSpace(os.Getenv(envHFToken))
	cfg.OpenAI.APIKey = strings.TrimSpace(os.Getenv(envOpenAIKey))
	if verbose {
		cfg.Output.Verbose = true
	}
	return cfg, nil
}
