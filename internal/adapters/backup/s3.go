package backup

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader copies dumps into an S3 bucket under an optional key prefix.
type S3Uploader struct {
	client putObjectAPI
	bucket string
	prefix string
}

// NewS3Uploader loads the default AWS credential chain for region.
func NewS3Uploader(ctx context.Context, region, bucket, prefix string) (*S3Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return newS3Uploader(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func newS3Uploader(client putObjectAPI, bucket, prefix string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key a dump stored under rel is uploaded to.
func (u *S3Uploader) Key(rel string) string {
	return path.Join(u.prefix, rel)
}

// Upload puts body at the prefixed key.
func (u *S3Uploader) Upload(ctx context.Context, key string, body io.Reader) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(u.Key(key)),
		Body:        body,
		ContentType: aws.String("application/sql"),
	})
	if err != nil {
		return fmt.Errorf("unable to upload %s to s3://%s: %w", key, u.bucket, err)
	}
	return nil
}
