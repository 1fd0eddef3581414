// Package cli defines Cobra command definitions for the presenter CLI.
// This file contains the root command and the shared flags.
package cli

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"presentation-assistant/internal/config"
)

var (
	configPath string
	apiURL     string
	language   string
	deckName   string
	backend    string
	logFile    string
	version    = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "presenter",
	Short: "Narrated slide presentations with spoken questions",
	Long: `Presenter plays a slide deck with narration, advancing slides as each
narration clip ends, and answers questions about the current slide,
typed or spoken.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Without a subcommand, present interactively on a TTY
		if !IsTTY() {
			return cmd.Help()
		}
		return runPlay(cmd, args)
	},
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// IsTTY returns true if stdout is connected to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: user config dir/presenter/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Presentation API base URL")
	rootCmd.PersistentFlags().StringVarP(&language, "lang", "l", "", "Presentation language (ru, ky)")
	rootCmd.PersistentFlags().StringVar(&deckName, "deck", "", "Deck name")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Speech and answer backend (http, openai)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(slidesCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig resolves the config file, environment and flags, in that order
// of increasing precedence.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err == nil {
			path = p
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cfg *config.Config) {
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if language != "" {
		cfg.Presentation.Language = language
	}
	if deckName != "" {
		cfg.Presentation.Deck = deckName
	}
	if backend != "" {
		cfg.Backend.Kind = backend
	}
}

// setupLogging sends log output to --log-file. When quiet is set and no
// file was given, logs are discarded so they do not draw over the TUI.
func setupLogging(quiet bool) (func(), error) {
	if logFile == "" {
		if quiet {
			log.SetOutput(io.Discard)
		}
		return func() {}, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	log.SetOutput(f)
	return func() { f.Close() }, nil
}
