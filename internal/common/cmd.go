package common

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/conference-manager/meeting-publisher/internal/log"
)

// memLimitRatio is the share of the cgroup memory limit given to the go runtime.
const memLimitRatio = 0.9

// SetupSignalHandler returns a context cancelled on the first SIGINT or SIGTERM.
// A second signal exits the process without waiting for the graceful shutdown.
func SetupSignalHandler(ctx context.Context) context.Context {
	ret, cancel := context.WithCancel(ctx)

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger := log.Logger()

		sig := <-signals
		logger.V(1).Info("Stopping", "signal", sig.String())
		cancel()

		sig = <-signals
		logger.Info("Second stop signal, exiting now", "signal", sig.String())
		os.Exit(1)
	}()

	return ret
}

// SetMaxProcs aligns GOMAXPROCS with the cpu quota of the container.
func SetMaxProcs() error {
	logger := log.Logger()

	// maxprocs logs printf style
	printf := func(format string, args ...interface{}) {
		logger.V(1).Info(fmt.Sprintf(format, args...))
	}

	_, err := maxprocs.Set(maxprocs.Logger(printf))
	if err != nil {
		return fmt.Errorf("failed to set max procs: %w", err)
	}

	return nil
}

// SetMemLimit sets GOMEMLIMIT from the cgroup memory limit, if any.
func SetMemLimit() error {
	limit, err := memlimit.SetGoMemLimit(memLimitRatio)
	if err != nil {
		return fmt.Errorf("failed to set go mem limit: %w", err)
	}

	log.Logger().V(1).Info("Go memory limit set", "ratio", memLimitRatio, "limit", humanize.IBytes(uint64(limit)))

	return nil
}

// CloseFunc releases a resource built by a factory.
type CloseFunc func(context.Context) error

// NewRunID returns the correlation id of one publish or unpublish run.
func NewRunID() string {
	return uuid.NewString()
}
