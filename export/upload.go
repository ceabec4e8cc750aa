package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/robinvdvleuten/stockcard/stockcard"
)

// PutObjectAPI is the part of the S3 client used by Uploader.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures the upload target.
type S3Config struct {
	Endpoint  string // Empty for AWS, set for R2/MinIO
	Region    string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
}

// Uploader stores exported documents in an S3 bucket.
type Uploader struct {
	client PutObjectAPI
	bucket string
	prefix string
	now    func() time.Time
}

// NewUploader creates an S3 client from cfg. Static credentials are used when
// given; otherwise the default AWS credential chain applies.
func NewUploader(ctx context.Context, cfg S3Config) (*Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to configure S3 client: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewUploaderWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewUploaderWithClient creates an uploader around an existing client.
func NewUploaderWithClient(client PutObjectAPI, bucket, prefix string) *Uploader {
	return &Uploader{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// Upload renders card in the given format and stores it. It returns the
// object key.
func (u *Uploader) Upload(ctx context.Context, card stockcard.StockCard, format Format) (string, error) {
	data, err := Render(card, format)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("%s%s/%s-%s.%s", u.prefix, sanitize(card.StockNumber), sanitize(card.ID),
		u.now().UTC().Format("20060102_150405"), format)

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(format.ContentType()),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}
