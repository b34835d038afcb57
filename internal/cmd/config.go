package cmd

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/authrelay/authrelay/internal/config"
	"github.com/authrelay/authrelay/internal/observability"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  "Print the configuration after merging defaults, the config file and the environment. The API key is redacted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if file := viper.ConfigFileUsed(); file != "" {
			observability.CLILogger.Debug("Config file", zap.String("path", file))
		}
		return writeEffectiveConfig(cmd.OutOrStdout(), cfg)
	},
}

func writeEffectiveConfig(w io.Writer, cfg *config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg.Redacted().Settings()); err != nil {
		return err
	}
	return enc.Close()
}

func init() {
	rootCmd.AddCommand(configCmd)
}
