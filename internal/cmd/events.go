package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/authrelay/authrelay/internal/authentik"
	errwrap "github.com/authrelay/authrelay/internal/errors"
	"github.com/authrelay/authrelay/internal/observability"
	"github.com/authrelay/authrelay/internal/output"
	"github.com/authrelay/authrelay/internal/server/handlers"
)

var (
	eventsAction string
	eventsOutput string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print the number of login events in the last 24 hours",
	Long: `Fetch per-month event buckets for an action once and sum the ones inside
the trailing 24 hour window, exactly as the relay endpoint does.`,
	Example: "  authrelay events --action login_failed -o json",
	RunE: func(cmd *cobra.Command, args []string) error {
		action, err := authentik.ParseAction(eventsAction)
		if err != nil {
			return errwrap.WrapInvalidAction(cmd.Context(), err, err.Error())
		}
		format, err := output.ParseFormat(eventsOutput)
		if err != nil {
			return errwrap.NewInvalidInputError(err.Error())
		}

		cfg := loadConfig()
		client, err := newUpstreamClient(cfg)
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "invalid authentik configuration")
		}

		result, err := windowedEvents(cmd.Context(), client, action, time.Now())
		if err != nil {
			return errwrap.WrapUpstream(cmd.Context(), err)
		}

		rendered, err := output.NewFormatter(format).FormatEvents(result)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return err
	},
}

// windowedEvents fetches the buckets for action and sums the trailing window
// ending at now.
func windowedEvents(ctx context.Context, upstream handlers.Upstream, action authentik.Action, now time.Time) (output.EventsResult, error) {
	nowMillis := now.UnixMilli()
	start := authentik.WindowStart(nowMillis)

	points, err := upstream.EventsPerMonth(ctx, action)
	if err != nil {
		return output.EventsResult{}, err
	}

	included := 0
	sum, ok := authentik.SumSince(points, start, func(p authentik.EventPoint) {
		included++
		if observability.CLILogger != nil {
			observability.CLILogger.Debug("Adding event point",
				zap.Float64("x_cord", p.XCoord),
				zap.Uint64("y_cord", p.YCoord))
		}
	})
	if !ok {
		return output.EventsResult{}, &authentik.UpstreamError{
			Kind:     authentik.KindMalformed,
			Endpoint: "events_per_month",
			Err:      fmt.Errorf("y_cord total overflows uint64"),
		}
	}

	return output.EventsResult{
		Action:      action,
		WindowStart: time.UnixMilli(start).UTC(),
		Now:         time.UnixMilli(nowMillis).UTC(),
		Points:      len(points),
		Included:    included,
		Sum:         sum,
	}, nil
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().StringVarP(&eventsAction, "action", "a", string(authentik.ActionLogin), "event action: login or login_failed")
	eventsCmd.Flags().StringVarP(&eventsOutput, "output", "o", "table", "output format: table, json, markdown")
}
