package processing

import (
	"context"

	"github.com/conference-manager/meeting-publisher/internal/domain/repo"
	"github.com/conference-manager/meeting-publisher/pkg/pipeline"
)

var _ pipeline.Processing[pipeline.ErrProcessingError] = DeadLetterQueue{}

// DeadLetterQueue is the last step of the error pipeline.
type DeadLetterQueue struct {
	writer repo.ProcessingErrorWriter
}

func NewDeadLetterQueue(writer repo.ProcessingErrorWriter) DeadLetterQueue {
	return DeadLetterQueue{writer: writer}
}

func (d DeadLetterQueue) Process(ctx context.Context, pErr pipeline.ErrProcessingError) error {
	err := d.writer.WriteProcessingError(ctx, pErr)
	if err != nil {
		// Let the retry decorator try again
		return pipeline.NewErrRetryableError(err)
	}

	return nil
}
