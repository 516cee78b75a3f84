package factory

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valkey-io/valkey-go"

	"github.com/conference-manager/meeting-publisher/internal/config"
	"github.com/conference-manager/meeting-publisher/internal/domain/repo"
	"github.com/conference-manager/meeting-publisher/internal/domain/repo/event"
	"github.com/conference-manager/meeting-publisher/internal/domain/repo/host"
	"github.com/conference-manager/meeting-publisher/internal/log"
	"github.com/conference-manager/meeting-publisher/internal/publisher"
)

// CreateHostRoster uses the hosts listed in the configuration, or the valkey roster when there is none.
func CreateHostRoster(conf config.Publisher, client valkey.Client) repo.HostRoster {
	if len(conf.Hosts) > 0 {
		return host.NewStaticRoster(conf.Hosts)
	}

	return host.NewValkeyRepo(client, host.DefaultKey)
}

func CreatePublisher(ctx context.Context, conf *config.Config, client valkey.Client, registry prometheus.Registerer) (publisher.Publisher, error) {
	gw, err := CreateZoomClient(ctx, conf.Zoom, registry)
	if err != nil {
		return publisher.Publisher{}, err
	}

	events := event.NewValkeyRepo(client)

	ret, err := publisher.New(
		CreateHostRoster(conf.Publisher, client),
		events,
		events,
		gw,
		registry,
		publisher.Config{Concurrency: conf.Publisher.Concurrency},
	)
	if err != nil {
		return publisher.Publisher{}, fmt.Errorf("failed to create publisher: %w", err)
	}

	return ret.WithLogger(log.Logger().WithName("publisher")), nil
}
