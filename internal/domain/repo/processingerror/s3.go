package processingerror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jonboulle/clockwork"

	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/internal/domain/repo"
	"github.com/conference-manager/meeting-publisher/internal/log"
	"github.com/conference-manager/meeting-publisher/internal/version"
	"github.com/conference-manager/meeting-publisher/pkg/pipeline"
)

const (
	writerName      = "meeting-publisher"
	unknownHostname = "<unknown>"
)

var (
	ErrNilEvent = errors.New("nil event")

	_ repo.ProcessingErrorWriter = S3Writer{}
)

// S3Writer is the dead letter queue, one object per failed message:
//
//	<prefix>/<yyyy>/<mm>/<dd>/<category>/<topic>/<partition>-<offset>.json
//
// The date is the one of the kafka message, so a replayed message overwrites its previous dead letter.
type S3Writer struct {
	s3client *s3.Client
	clock    clockwork.Clock

	bucket string
	prefix string

	hostname string
}

func NewS3Writer(s3client *s3.Client, clock clockwork.Clock, bucket string, prefix string) S3Writer {
	hostname, err := os.Hostname()
	if err != nil {
		log.Logger().Error(err, "Hostname unavailable, dead letters are written with "+unknownHostname)

		hostname = unknownHostname
	}

	return S3Writer{
		s3client: s3client,
		clock:    clock,
		bucket:   bucket,
		prefix:   prefix,
		hostname: hostname,
	}
}

func (w S3Writer) WriteProcessingError(ctx context.Context, pErr pipeline.ErrProcessingError) error {
	letter, err := w.deadLetter(pErr)
	if err != nil {
		return err
	}

	body, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	_, err = w.s3client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(w.objectKey(pErr)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to write dead letter in s3: %w", err)
	}

	return nil
}

func (w S3Writer) deadLetter(pErr pipeline.ErrProcessingError) (DeadLetter, error) {
	msg := pErr.Event
	if msg == nil {
		return DeadLetter{}, ErrNilEvent
	}

	ret := DeadLetter{
		Writer: Writer{
			Name:     writerName,
			Version:  version.Version,
			Branch:   version.Branch,
			Revision: version.Revision,
			Host:     w.hostname,
			Time:     w.clock.Now().UTC(),
		},
		Message: Message{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Offset:    msg.Offset,
			Timestamp: msg.Timestamp.UTC(),
			Key:       msg.Key,
			Payload:   msg.Value,
		},
		Reason: Reason{
			Category:  pErr.Category,
			Error:     pErr.Error(),
			Retryable: pErr.Retryable(),
		},
	}

	// Decoded copy for readers, absent when the payload is what failed
	request := entity.PublicationRequest{}
	if json.Unmarshal(msg.Value, &request) == nil {
		ret.Request = &request
	}

	for _, in := range pErr.AdditionalInputs {
		ret.Inputs = append(ret.Inputs, Input{Source: in.Source, Key: in.Key, Value: string(in.Value)})
	}

	return ret, nil
}

// objectKey expects a non nil event, checked by deadLetter.
func (w S3Writer) objectKey(pErr pipeline.ErrProcessingError) string {
	msg := pErr.Event

	return fmt.Sprintf("%s/%s/%s/%s/%d-%d.json",
		w.prefix,
		msg.Timestamp.UTC().Format("2006/01/02"),
		category(pErr),
		msg.Topic,
		msg.Partition,
		msg.Offset,
	)
}

func category(pErr pipeline.ErrProcessingError) string {
	if pErr.Category == "" {
		return pipeline.UnknownCategory
	}

	return strings.ReplaceAll(pErr.Category, "/", "_")
}
