package command

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate and print the effective configuration",
	Long:  `Load the configuration, validate it and print it as YAML with secrets masked.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(cfg.Redacted()); err != nil {
			return fmt.Errorf("failed to encode configuration: %w", err)
		}
		if err := enc.Close(); err != nil {
			return err
		}

		fmt.Fprintln(cmd.ErrOrStderr(), "configuration OK")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkConfigCmd)
}
