package report

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/internal/domain/repo"
)

var _ repo.ReportWriter = ParallelWriter{}

type ParallelWriter struct {
	writers []repo.ReportWriter
}

func NewParallelWriter(writers ...repo.ReportWriter) ParallelWriter {
	return ParallelWriter{
		writers: writers,
	}
}

func (p ParallelWriter) WriteReport(ctx context.Context, report entity.PublishReport) error {
	group, ctx := errgroup.WithContext(ctx)

	for _, w := range p.writers {
		writer := w

		group.Go(func() error {
			return writer.WriteReport(ctx, report)
		})
	}

	return group.Wait()
}
