// Package cli provides the command-line interface for mediacenter.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nexx/mediacenter/internal/logging"
	"github.com/nexx/mediacenter/internal/version"
)

var (
	// Global flags
	cfgFile  string
	apiURL   string
	token    string
	entityID string
	lang     string
	verbose  bool
	debug    bool

	logger *logging.Logger

	// Cancelled on SIGINT/SIGTERM.
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mediacenter",
		Short: "Media Center client - browse, upload and share media files",
		Long: `Media Center client ` + version.Version + ` - Built: ` + version.BuildTime + `

Browse the folder hierarchy, page through file listings, upload and
download files and manage share links from the command line.

Settings are read from ~/.config/mediacenter/config, then .env, then
MEDIACENTER_* environment variables, then flags.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultCLILogger()
			if verbose || debug {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Media Center API base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "API token (overrides config)")
	rootCmd.PersistentFlags().StringVar(&entityID, "entity", "", "Entity the listings are scoped to (overrides config)")
	rootCmd.PersistentFlags().StringVar(&lang, "lang", "", "Display language: en or fa (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"
	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling operations...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)
	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newFoldersCmd())
	rootCmd.AddCommand(newFilesCmd())
	rootCmd.AddCommand(newShareCmd())
	rootCmd.AddCommand(newBrowseCmd())
	rootCmd.AddCommand(newConfigCmd())

	AddShortcuts(rootCmd)
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the signal-cancelled root context.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}
