// telepath is a 20-questions inference game: the engine narrows a hidden
// character through yes/no questions, validating everything an LLM oracle
// proposes before it reaches the player.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"telepath/internal/config"
	"telepath/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	configPath string
	verbose    bool
	debugLogs  bool

	// Logger
	logger *zap.Logger

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "telepath",
	Short: "telepath - a mind-reading 20-questions game",
	Long: `telepath guesses the character you are thinking of.

An LLM oracle proposes questions and guesses, but the inference engine treats
every proposal as untrusted: it tracks confirmed facts, filters the candidate
catalogue, rejects redundant or contradictory proposals, and picks the
question that best halves the remaining pool.

Run without arguments to start a game.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if configPath == "" {
			configPath = config.DefaultConfigPath()
		}
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if debugLogs {
			cfg.Logging.DebugMode = true
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		return logging.Initialize(filepath.Dir(configPath), logging.Options{
			DebugMode:  cfg.Logging.DebugMode,
			Level:      cfg.Logging.Level,
			Categories: cfg.Logging.Categories,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.telepath/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVar(&debugLogs, "debug", false, "write category debug logs next to the config file")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(datasetCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the telepath version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("telepath %s\n", cfg.Version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
