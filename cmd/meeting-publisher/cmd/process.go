package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/common/version"
	"github.com/spf13/cobra"

	"github.com/conference-manager/meeting-publisher/internal/common"
	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/internal/domain/repo/processingerror"
	"github.com/conference-manager/meeting-publisher/internal/factory"
	"github.com/conference-manager/meeting-publisher/internal/log"
	"github.com/conference-manager/meeting-publisher/internal/processing"
	"github.com/conference-manager/meeting-publisher/pkg/pipeline"
)

// processCmd represents the process command
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Consume publication requests from kafka and publish or unpublish events",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		logger := log.Logger()

		// Dump generic information
		logger.Info("Starting meeting publisher",
			"version", version.Info(),
			"buildContext", version.BuildContext(),
		)

		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		logger := log.Logger()

		// Set max procs based on cpu limits
		err := common.SetMaxProcs()
		if err != nil {
			logger.Error(err, "failed to set max procs")

			return
		}

		// Set max memory
		err = common.SetMemLimit()
		if err != nil {
			logger.Error(err, "failed to set mem limit")

			return
		}

		// Listen to sigterm and interrupt signals
		ctx := common.SetupSignalHandler(context.Background())

		err = runProcess(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(err, "Processing failed")

			return
		}

		logger.V(2).Info("Processing stopped")
	},
}

func runProcess(ctx context.Context) error {
	logger := log.Logger()
	clock := clockwork.NewRealClock()

	closers := make([]common.CloseFunc, 0, 4)

	defer func() {
		// Release resources in reverse order, with a fresh context since ctx is likely cancelled already
		shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.GracefulDuration)
		defer cancel()

		for i := len(closers) - 1; i >= 0; i-- {
			err := closers[i](shutdownCtx)
			if err != nil {
				logger.Error(err, "failed to release resource")
			}
		}
	}()

	// Metrics
	registry, err := factory.CreateRegistry()
	if err != nil {
		return fmt.Errorf("failed to create metrics registry: %w", err)
	}

	metricsServer := factory.CreatePrometheusServer(conf.Metrics, registry)

	go func() {
		err := metricsServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Metrics server failed")
		}
	}()

	closers = append(closers, metricsServer.Shutdown)

	// Storage
	valkeyClient, closeValkey, err := factory.CreateValkeyClient(ctx, conf.Valkey)
	if err != nil {
		return err
	}

	closers = append(closers, closeValkey)

	// Main processing
	pub, err := factory.CreatePublisher(ctx, conf, valkeyClient, registry)
	if err != nil {
		return err
	}

	reports, err := factory.CreateReportWriter(ctx, conf.Report, valkeyClient)
	if err != nil {
		return err
	}

	mainProcessing := processing.NewMain(pub, reports, clock).WithLogger(logger.WithName("processing"))

	decoratedProcessing, err := factory.DecorateProcessing(mainProcessing, registry, clock)
	if err != nil {
		return err
	}

	// Error processing
	dlqClient, err := factory.CreateS3Client(ctx, conf.DeadLetterQueue)
	if err != nil {
		return err
	}

	dlq := processingerror.NewS3Writer(dlqClient, clock, conf.DeadLetterQueue.Bucket, conf.DeadLetterQueue.KeyPrefix)

	errorProcessing, err := factory.DecorateErrorProcessing(processing.NewDeadLetterQueue(dlq), registry, clock)
	if err != nil {
		return err
	}

	// Kafka
	consumer, err := factory.CreateKafkaConsumer(conf.Kafka)
	if err != nil {
		return err
	}

	closers = append(closers, func(context.Context) error { return consumer.Close() })

	runner := pipeline.NewRunner[entity.PublicationRequest](consumer, []string{conf.Kafka.Consumer.Topic}, decoratedProcessing, errorProcessing).
		WithLogger(logger.WithName("pipeline"))

	logger.Info("Pipeline started", "topic", conf.Kafka.Consumer.Topic, "group", conf.Kafka.Consumer.Group)

	return runner.Start(ctx)
}

func init() {
	rootCmd.AddCommand(processCmd)
}
