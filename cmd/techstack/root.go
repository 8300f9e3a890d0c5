package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mamamialezatoz/go-techstack/internal/config"
	"github.com/mamamialezatoz/go-techstack/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
	// loadedConfigFile is the file the configuration came from, if any
	loadedConfigFile string
)

var rootCmd = &cobra.Command{
	Use:   "techstack",
	Short: "Detect the technologies behind a web page",
	Long: `techstack fingerprints the software stack of a web page (CMS, frameworks,
analytics, servers, CDNs, payment and marketing tools) from its markup,
runtime globals, cookies and response headers.

Examples:
  techstack analyze --file page.html --header "Server: nginx/1.18.0"
  techstack scan https://example.com --json
  techstack signatures list`,
	Version:       fmt.Sprintf("%s (build: %s, commit: %s)", Version, BuildDate, CommitHash),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./techstack.yaml or ./configs/techstack.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newSignaturesCmd())
}

// initConfig loads the configuration and sets up logging for every command
func initConfig(cmd *cobra.Command) error {
	loader := config.NewLoader(cfgFile)
	if err := loader.Viper().BindPFlag("log.level", cmd.Root().PersistentFlags().Lookup("log-level")); err != nil {
		return err
	}

	loaded, err := loader.Load()
	if err != nil {
		return err
	}
	cfg = loaded
	loadedConfigFile = loader.ConfigFile()

	if _, err := logger.InitLogger(&cfg.Log); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	switch cfg.Log.Level {
	case "debug", "trace":
		pterm.EnableDebugMessages()
	case "warn", "warning", "error", "fatal", "panic":
		pterm.DisableDebugMessages()
		pterm.Info = *pterm.Info.WithWriter(io.Discard)
	default:
		pterm.DisableDebugMessages()
	}

	if loadedConfigFile != "" {
		logger.Debugf("using config file %s", loadedConfigFile)
	}
	return nil
}
