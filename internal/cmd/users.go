package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/authrelay/authrelay/internal/errors"
	"github.com/authrelay/authrelay/internal/observability"
	"github.com/authrelay/authrelay/internal/output"
)

var usersOutput string

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Print the authentik user count",
	Long:  "Fetch the user count once through the same upstream client the relay uses.",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(usersOutput)
		if err != nil {
			return errwrap.NewInvalidInputError(err.Error())
		}

		cfg := loadConfig()
		client, err := newUpstreamClient(cfg)
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "invalid authentik configuration")
		}

		count, err := client.UserCount(cmd.Context())
		if err != nil {
			observability.CLILogger.Debug("User count failed", zap.Error(err))
			return errwrap.WrapUpstream(cmd.Context(), err)
		}

		rendered, err := output.NewFormatter(format).FormatUsers(output.UserCountResult{
			BaseURL: client.BaseURL(),
			Count:   count,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return err
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.Flags().StringVarP(&usersOutput, "output", "o", "table", "output format: table, json, markdown")
}
