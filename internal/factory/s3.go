package factory

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go/logging"
	"github.com/go-logr/logr"

	"github.com/conference-manager/meeting-publisher/internal/config"
	"github.com/conference-manager/meeting-publisher/internal/log"
)

// CreateS3Client uses the static credentials when set, the default aws credential chain otherwise.
func CreateS3Client(ctx context.Context, conf config.S3) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(conf.Region),
		awsconfig.WithLogger(s3Logger{log.Logger().WithName("s3")}),
	}

	if conf.Creds.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(conf.Creds.AccessKeyID, conf.Creds.SecretAccessKey, ""),
		))
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config: %w", err)
	}

	if conf.BaseEndpoint != "" {
		awsConfig.BaseEndpoint = aws.String(withScheme(conf.BaseEndpoint))
	}

	return s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.UsePathStyle = conf.UsePathStyle
	}), nil
}

func withScheme(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}

	return "https://" + endpoint
}

// s3Logger forwards sdk warnings at V(0) and debug messages at V(3).
type s3Logger struct {
	logger logr.Logger
}

func (l s3Logger) Logf(classification logging.Classification, format string, v ...interface{}) {
	switch classification {
	case logging.Warn:
		l.logger.Info(fmt.Sprintf(format, v...), "classification", string(classification))
	case logging.Debug:
		l.logger.V(3).Info(fmt.Sprintf(format, v...))
	}
}
