package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/internal/domain/repo"
)

const keyTemplate = "<prefix>/<date>/<event>/<run>.json"

var (
	ErrInvalidKeyPart = errors.New("invalid object key part")

	_ repo.ReportWriter = S3Writer{}
)

// S3Writer archives every publish report.
type S3Writer struct {
	s3client *s3.Client

	bucket string
	prefix string
}

func NewS3Writer(s3client *s3.Client, bucket string, prefix string) S3Writer {
	return S3Writer{
		s3client: s3client,
		bucket:   bucket,
		prefix:   prefix,
	}
}

func (s S3Writer) WriteReport(ctx context.Context, report entity.PublishReport) error {
	key, err := s.computeObjectKey(report)
	if err != nil {
		return fmt.Errorf("failed to compute object key: %w", err)
	}

	b, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	params := &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
	}

	_, err = s.s3client.PutObject(ctx, params)
	if err != nil {
		return fmt.Errorf("failed to write in s3: %w", err)
	}

	return nil
}

func (s S3Writer) computeObjectKey(report entity.PublishReport) (string, error) {
	for _, part := range []string{report.EventID, report.RunID} {
		if part == "" || strings.ContainsAny(part, "/\\") || strings.HasPrefix(part, ".") {
			return "", fmt.Errorf("%w: %q", ErrInvalidKeyPart, part)
		}
	}

	template := strings.NewReplacer(
		"<prefix>", s.prefix,
		"<date>", report.Timestamp.UTC().Format("2006-01-02"),
		"<event>", report.EventID,
		"<run>", report.RunID,
	)

	return template.Replace(keyTemplate), nil
}
