package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// objectAPI is the part of *s3.Client the host uses.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Options configures S3Host.
//
// AccessKey/SecretKey may be empty to use the default AWS credential chain.
// BaseEndpoint selects an S3-compatible server (MinIO) with path-style
// addressing. PublicURL, when set, is the prefix of returned image URLs.
type S3Options struct {
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	BaseEndpoint string
	PublicURL    string
	Prefix       string
}

// S3Host keeps images in an S3 bucket.
type S3Host struct {
	client objectAPI
	opts   S3Options
	now    func() time.Time
}

func NewS3Host(ctx context.Context, opts S3Options) (*S3Host, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Host(client, opts), nil
}

func newS3Host(client objectAPI, opts S3Options) *S3Host {
	if opts.Prefix == "" {
		opts.Prefix = "memorial"
	}
	return &S3Host{client: client, opts: opts, now: time.Now}
}

func (h *S3Host) storageKey(contentType string) string {
	d := h.now().UTC()
	return fmt.Sprintf("%s/%d/%02d/%s%s", h.opts.Prefix, d.Year(), d.Month(), uuid.New(), Extension(contentType))
}

func (h *S3Host) publicURL(key string) string {
	switch {
	case h.opts.PublicURL != "":
		return strings.TrimRight(h.opts.PublicURL, "/") + "/" + key
	case h.opts.BaseEndpoint != "":
		return strings.TrimRight(h.opts.BaseEndpoint, "/") + "/" + h.opts.Bucket + "/" + key
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", h.opts.Bucket, h.opts.Region, key)
	}
}

func (h *S3Host) Upload(ctx context.Context, img Image) (*UploadedImage, error) {
	key := h.storageKey(img.ContentType)

	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(h.opts.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(img.Data),
		ContentType:   aws.String(img.ContentType),
		ContentLength: aws.Int64(int64(len(img.Data))),
	})
	if err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	return &UploadedImage{URL: h.publicURL(key), PublicID: key}, nil
}

func (h *S3Host) Delete(ctx context.Context, publicID string) error {
	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.opts.Bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}
