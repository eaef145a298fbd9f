package command

import (
	"fmt"
	"os"

	"quill/internal/config"
	"quill/internal/observability"

	"github.com/spf13/cobra"
)

var verbose bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quillctl",
	Short: "quillctl - Quill API operator tool",
	Long: `quillctl works against the database and configuration of a Quill API
deployment. Configuration is read the same way the server reads it: .env,
config.yml, config.<APP_ENV>.yml and environment variables.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "info"
		if verbose {
			level = "debug"
		}
		observability.InitLogger(observability.LoggingConfig{Level: level, Format: "text"})
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// loadConfig is swapped out in tests.
var loadConfig = config.LoadConfig
