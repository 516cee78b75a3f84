package cmd

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/conference-manager/meeting-publisher/internal/common"
	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/internal/factory"
	"github.com/conference-manager/meeting-publisher/internal/log"
	"github.com/conference-manager/meeting-publisher/internal/processing"
)

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish <event-id>",
	Short: "Assign the meetings of an event to hosts and create them on the remote scheduling service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd.Context(), entity.PublicationRequest{EventID: args[0], Action: entity.ActionPublish})
	},
}

// unpublishCmd represents the unpublish command
var unpublishCmd = &cobra.Command{
	Use:   "unpublish <event-id>",
	Short: "Delete the remote meetings of an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(cmd.Context(), entity.PublicationRequest{EventID: args[0], Action: entity.ActionUnpublish})
	},
}

// runOnce handles a single request the same way the kafka pipeline does, without the retry and dead letter queue.
func runOnce(ctx context.Context, request entity.PublicationRequest) error {
	logger := log.Logger()

	if ctx == nil {
		ctx = context.Background()
	}

	ctx = common.SetupSignalHandler(ctx)

	err := request.Validate()
	if err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	valkeyClient, closeValkey, err := factory.CreateValkeyClient(ctx, conf.Valkey)
	if err != nil {
		return err
	}

	defer func() {
		err := closeValkey(context.Background())
		if err != nil {
			logger.Error(err, "failed to close valkey client")
		}
	}()

	// Metrics are not exposed by one shot runs
	registry := prometheus.NewRegistry()

	pub, err := factory.CreatePublisher(ctx, conf, valkeyClient, registry)
	if err != nil {
		return err
	}

	reports, err := factory.CreateReportWriter(ctx, conf.Report, valkeyClient)
	if err != nil {
		return err
	}

	mainProcessing := processing.NewMain(pub, reports, clockwork.NewRealClock()).WithLogger(logger.WithName("processing"))

	err = mainProcessing.Process(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to %s event %s: %w", request.Action, request.EventID, err)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(unpublishCmd)
}
