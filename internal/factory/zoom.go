package factory

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/conference-manager/meeting-publisher/internal/config"
	"github.com/conference-manager/meeting-publisher/internal/gateway/zoom"
	"github.com/conference-manager/meeting-publisher/internal/log"
)

func CreateZoomClient(ctx context.Context, conf config.Zoom, registry prometheus.Registerer) (zoom.Client, error) {
	httpClient := zoom.NewHTTPClient(ctx, &http.Client{Timeout: conf.Timeout}, zoom.Auth{
		TokenURL:     conf.Creds.TokenURL,
		AccountID:    conf.Creds.AccountID,
		ClientID:     conf.Creds.ClientID,
		ClientSecret: conf.Creds.ClientSecret,
		Token:        conf.Creds.Token,
	})

	ret, err := zoom.New(httpClient, zoom.Config{
		BaseURL:         conf.BaseURL,
		Limit:           rate.Limit(conf.RateLimit),
		Burst:           conf.Burst,
		DurationPadding: conf.DurationPadding,
		Retry: zoom.RetryConfig{
			MaxAttempt: conf.Retry.MaxAttempt,
			Delay:      conf.Retry.Delay,
		},
	}, registry)
	if err != nil {
		return zoom.Client{}, fmt.Errorf("failed to create zoom client: %w", err)
	}

	return ret.WithLogger(log.Logger().WithName("zoom")), nil
}
