package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/angelmondragon/hatchery-backend/pkg/config"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
)

var errClientNotInitialized = errors.New("s3 client not initialized")

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Client writes notification attachments into an S3 (or S3-compatible) bucket.
type Client struct {
	api           objectAPI
	bucket        string
	region        string
	endpoint      string
	publicBaseURL string
}

func NewClient(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3 bucket name is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.S3Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.S3Endpoint)
	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	client := newWithAPI(api, cfg)
	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("s3 health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", bucket), "s3 client initialized")
	}
	return client, nil
}

func newWithAPI(api objectAPI, cfg config.StorageConfig) *Client {
	return &Client{
		api:           api,
		bucket:        strings.TrimSpace(cfg.Bucket),
		region:        cfg.S3Region,
		endpoint:      strings.TrimRight(strings.TrimSpace(cfg.S3Endpoint), "/"),
		publicBaseURL: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
	}
}

// Put uploads body to key and returns its public URL.
func (c *Client) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if c == nil || c.api == nil {
		return "", errClientNotInitialized
	}
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return c.PublicURL(key), nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	if c == nil || c.api == nil {
		return errClientNotInitialized
	}
	if _, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errClientNotInitialized
	}
	if _, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		return fmt.Errorf("s3 bucket %s: %w", c.bucket, err)
	}
	return nil
}

func (c *Client) Close() error { return nil }

// PublicURL prefers the configured CDN base, then a path-style custom
// endpoint, then the regional virtual-hosted URL.
func (c *Client) PublicURL(key string) string {
	escaped := escapeKey(key)
	switch {
	case c.publicBaseURL != "":
		return c.publicBaseURL + "/" + escaped
	case c.endpoint != "":
		return c.endpoint + "/" + url.PathEscape(c.bucket) + "/" + escaped
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, escaped)
	}
}

func escapeKey(key string) string {
	parts := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
