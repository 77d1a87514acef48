// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the citereview CLI. Each pipeline stage
// is a subcommand operating on the corpus directory; run chains them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/citereview/internal/logging"
	"github.com/pdiddy/citereview/internal/metrics"
	"github.com/pdiddy/citereview/internal/secrets"
	"github.com/pdiddy/citereview/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Process-wide state built in PersistentPreRunE.
var (
	cfg           types.PipelineConfig
	logger        zerolog.Logger
	loadedSecrets secrets.Store
	recorder      *metrics.Recorder
)

// rootCmd is the base command for the citereview CLI.
var rootCmd = &cobra.Command{
	Use:   "citereview",
	Short: "Find out how influential citing papers talk about a seed paper",
	Long: `citereview builds a literature review of a seed paper's reception. For each
seed title it lists the citing papers, downloads open-access full texts, keeps
the citing papers from influential venues, institutions or authors, and asks a
language model whether they comment positively on the seed.

Every seed gets a directory in the corpus. The files in it record how far the
seed has progressed, so any command can be rerun and resumes where it stopped.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}
		logger = logging.New(cfg.Log, os.Stderr)
		if f := viper.ConfigFileUsed(); f != "" {
			logger.Debug().Str("file", f).Msg("using config file")
		}

		loadedSecrets, err = secrets.Load(secrets.DefaultDir, logger)
		if err != nil {
			return err
		}
		if keys := loadedSecrets.Keys(); len(keys) > 0 {
			logger.Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		cfg.Acquisition.SemanticScholarAPIKey = loadedSecrets.Resolve(cfg.Acquisition.SemanticScholarAPIKey, secrets.SemanticScholarAPIKey)
		cfg.Acquisition.OpenAlexEmail = loadedSecrets.Resolve(cfg.Acquisition.OpenAlexEmail, secrets.OpenAlexEmail)
		cfg.LLM.APIKey = loadedSecrets.Resolve(cfg.LLM.APIKey, secrets.LLMAPIKey)

		recorder = metrics.New()
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cfg.MetricsFile == "" || recorder == nil {
			return nil
		}
		if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Warn().Err(err).Str("file", cfg.MetricsFile).Msg("cannot write metrics")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./citereview.yaml or ~/.config/citereview/citereview.yaml)")
	pf.String("corpus", "", "corpus directory holding one directory per seed")
	pf.Int("workers", 0, "seeds processed concurrently")
	pf.Duration("call-timeout", 0, "timeout for each external call")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("log-format", "", "log format (console or json)")
	pf.String("metrics-file", "", "write Prometheus metrics to this file after the command")

	for key, flag := range map[string]string{
		"corpus_dir":   "corpus",
		"workers":      "workers",
		"call_timeout": "call-timeout",
		"log.level":    "log-level",
		"log.format":   "log-format",
		"metrics_file": "metrics-file",
	} {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}
}

func initConfig() {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("citereview")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "citereview"))
		}
	}

	viper.SetEnvPrefix("CITEREVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			fmt.Fprintln(os.Stderr, "error reading config:", err)
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
