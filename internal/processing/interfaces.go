package processing

import (
	"context"

	"github.com/conference-manager/meeting-publisher/internal/publisher"
)

//go:generate mockgen -source=interfaces.go -package=mock -destination=./mock/mock_processing.go

type Publisher interface {
	Publish(ctx context.Context, eventID string) (publisher.Result, error)
	Unpublish(ctx context.Context, eventID string) (publisher.UnpublishResult, error)
}
