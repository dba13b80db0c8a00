package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Target is a place an archive can be written to or read from.
type Target interface {
	Write(ctx context.Context, data []byte) error
	Read(ctx context.Context) ([]byte, error)
	String() string
}

// S3Options configures access to S3-compatible targets. The zero value
// uses the default AWS credential chain and endpoint.
type S3Options struct {
	// Region is the AWS region. Defaults to us-east-1 when empty.
	Region string

	// Endpoint overrides the S3 endpoint, for MinIO and other
	// S3-compatible services.
	Endpoint string

	// AccessKeyID and SecretAccessKey select static credentials. When
	// empty the default AWS credential chain applies.
	AccessKeyID     string
	SecretAccessKey string

	// UsePathStyle forces path-style addressing (bucket in the path
	// instead of the hostname). Required by most S3-compatible services.
	UsePathStyle bool
}

// ParseTarget turns a CLI target string into a Target. Strings starting
// with s3:// become S3 targets, everything else is a local file path.
func ParseTarget(ctx context.Context, raw string, opts S3Options) (Target, error) {
	if raw == "" {
		return nil, fmt.Errorf("no backup target given")
	}
	if strings.HasPrefix(raw, "s3://") {
		return newS3Target(ctx, raw, opts)
	}
	return fileTarget(raw), nil
}

// ============================================================================
// Local file target
// ============================================================================

type fileTarget string

func (t fileTarget) Write(_ context.Context, data []byte) error {
	if dir := filepath.Dir(string(t)); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(string(t), data, 0o600); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}

func (t fileTarget) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(string(t))
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return data, nil
}

func (t fileTarget) String() string { return string(t) }

// ============================================================================
// S3 target
// ============================================================================

type s3Target struct {
	client *s3.Client
	bucket string
	key    string
	url    string
}

func newS3Target(ctx context.Context, raw string, opts S3Options) (*s3Target, error) {
	bucket, key, err := parseS3URL(raw)
	if err != nil {
		return nil, err
	}

	client, err := newS3Client(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &s3Target{client: client, bucket: bucket, key: key, url: raw}, nil
}

// parseS3URL splits "s3://bucket/key" into bucket and key.
func parseS3URL(raw string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(raw, "s3://")
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 target %q (want s3://bucket/key)", raw)
	}
	return bucket, key, nil
}

// newS3Client builds an S3 client from the options, falling back to the
// default AWS credential chain when no static credentials are given.
func newS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})

	return client, nil
}

func (t *s3Target) Write(ctx context.Context, data []byte) error {
	_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(t.bucket),
		Key:         aws.String(t.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload archive to %s: %w", t.url, err)
	}
	return nil
}

func (t *s3Target) Read(ctx context.Context) ([]byte, error) {
	out, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(t.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download archive from %s: %w", t.url, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive body: %w", err)
	}
	return data, nil
}

func (t *s3Target) String() string { return t.url }
