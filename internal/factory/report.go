package factory

import (
	"context"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/conference-manager/meeting-publisher/internal/config"
	"github.com/conference-manager/meeting-publisher/internal/domain/repo"
	"github.com/conference-manager/meeting-publisher/internal/domain/repo/report"
)

const latestReportExpiration = 30 * 24 * time.Hour

/*
 * CreateReportWriter writes reports as follow:
 *
 *			---> s3 (every run, when a bucket is configured)
 *	parallel ---|
 *			---> valkey (latest run of each event)
 */
func CreateReportWriter(ctx context.Context, conf config.S3, client valkey.Client) (repo.ReportWriter, error) {
	writers := []repo.ReportWriter{report.NewValkeyWriter(client, latestReportExpiration)}

	if conf.Bucket != "" {
		s3Client, err := CreateS3Client(ctx, conf)
		if err != nil {
			return nil, err
		}

		writers = append(writers, report.NewS3Writer(s3Client, conf.Bucket, conf.KeyPrefix))
	}

	return report.NewParallelWriter(writers...), nil
}
