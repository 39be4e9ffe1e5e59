package aws_client

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/attachstack/config"
	"github.com/customeros/attachstack/internal/tracing"
)

type S3Client interface {
	Upload(ctx context.Context, bucket, key string, body []byte, contentType string) error
}

type s3Client struct {
	Uploader *s3manager.Uploader
	Session  *session.Session
}

func NewS3Client(awsConfig *aws.Config) S3Client {
	s := session.Must(session.NewSession(awsConfig))
	return &s3Client{
		Uploader: s3manager.NewUploader(s),
		Session:  s,
	}
}

// NewR2Client builds an S3Client against a Cloudflare R2 account endpoint.
func NewR2Client(cfg *config.R2StorageConfig) S3Client {
	awsConfig := &aws.Config{
		Endpoint:         aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)),
		Region:           aws.String("auto"),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.AccessKeySecret, ""),
		S3ForcePathStyle: aws.Bool(true),
	}
	return NewS3Client(awsConfig)
}

func (s *s3Client) Upload(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "s3Client.Upload")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	_, err := s.Uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	return err
}
