package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conference-manager/meeting-publisher/internal/common"
	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/internal/domain/repo/event"
	"github.com/conference-manager/meeting-publisher/internal/domain/repo/host"
	"github.com/conference-manager/meeting-publisher/internal/factory"
	"github.com/conference-manager/meeting-publisher/internal/log"
)

var meetingName string

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Manage the host roster stored in valkey",
}

// hostsAddCmd appends accounts to the valkey roster, used when no static hosts are configured
var hostsAddCmd = &cobra.Command{
	Use:   "add <host>...",
	Short: "Append host accounts at the end of the roster",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hosts := make([]entity.HostID, 0, len(args))
		for _, arg := range args {
			hosts = append(hosts, entity.HostID(arg))
		}

		return withValkey(cmd.Context(), func(ctx context.Context, seed seeder) error {
			return seed.hosts.Add(ctx, hosts...)
		})
	},
}

var meetingsCmd = &cobra.Command{
	Use:   "meetings",
	Short: "Manage the meetings of an event stored in valkey",
}

var meetingsAddCmd = &cobra.Command{
	Use:   "add <event-id> <meeting-id> <start> <duration>",
	Short: "Add or replace a meeting, start is RFC3339 and duration a go duration (90m)",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		meeting, err := parseMeeting(args, meetingName)
		if err != nil {
			return err
		}

		return withValkey(cmd.Context(), func(ctx context.Context, seed seeder) error {
			return seed.events.WriteMeeting(ctx, meeting)
		})
	},
}

type seeder struct {
	hosts  host.ValkeyRepo
	events event.ValkeyRepo
}

func withValkey(ctx context.Context, run func(context.Context, seeder) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx = common.SetupSignalHandler(ctx)

	client, closeClient, err := factory.CreateValkeyClient(ctx, conf.Valkey)
	if err != nil {
		return err
	}

	defer func() {
		err := closeClient(context.Background())
		if err != nil {
			log.Logger().Error(err, "failed to close valkey client")
		}
	}()

	return run(ctx, seeder{
		hosts:  host.NewValkeyRepo(client, host.DefaultKey),
		events: event.NewValkeyRepo(client),
	})
}

// parseMeeting builds a meeting from: event id, meeting id, start (RFC3339), duration.
func parseMeeting(args []string, name string) (entity.Meeting, error) {
	start, err := time.Parse(time.RFC3339, args[2])
	if err != nil {
		return entity.Meeting{}, fmt.Errorf("invalid start %q: %w", args[2], err)
	}

	duration, err := time.ParseDuration(args[3])
	if err != nil {
		return entity.Meeting{}, fmt.Errorf("invalid duration %q: %w", args[3], err)
	}

	if name == "" {
		name = args[1]
	}

	ret := entity.NewMeeting(args[1], args[0], name, start.UTC(), duration)

	err = ret.Validate()
	if err != nil {
		return entity.Meeting{}, err
	}

	return ret, nil
}

func init() {
	meetingsAddCmd.Flags().StringVar(&meetingName, "name", "", "meeting name, defaults to the meeting id")

	hostsCmd.AddCommand(hostsAddCmd)
	meetingsCmd.AddCommand(meetingsAddCmd)

	rootCmd.AddCommand(hostsCmd)
	rootCmd.AddCommand(meetingsCmd)
}
