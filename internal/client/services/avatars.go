package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dmitrijs2005/xplit/internal/common"
)

// AvatarStore saves avatar images and returns their public URL.
type AvatarStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// AvatarConfig locates the S3-compatible avatars bucket.
type AvatarConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// Test seams.
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3PutAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type s3PutAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3AvatarStore uploads avatars with PutObject.
type S3AvatarStore struct {
	client        s3PutAPI
	bucket        string
	publicBaseURL string
}

// NewS3AvatarStore builds the S3 client. Static credentials are used when
// given, otherwise the default AWS credential chain applies. A custom
// endpoint switches to path-style addressing.
func NewS3AvatarStore(ctx context.Context, cfg AvatarConfig) (*S3AvatarStore, error) {
	if cfg.Bucket == "" {
		return nil, ErrAvatarStorageDisabled
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	base := cfg.PublicBaseURL
	if base == "" && cfg.Endpoint != "" {
		base = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &S3AvatarStore{client: client, bucket: cfg.Bucket, publicBaseURL: strings.TrimRight(base, "/")}, nil
}

// MaxAvatarSize bounds uploads read from non-seekable sources.
const MaxAvatarSize = 5 << 20

// Put uploads body under key. Non-seekable bodies are buffered so the SDK
// can sign the payload.
func (s *S3AvatarStore) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	rs, ok := body.(io.ReadSeeker)
	if !ok {
		b, err := io.ReadAll(io.LimitReader(body, MaxAvatarSize+1))
		if err != nil {
			return "", fmt.Errorf("read avatar: %w", err)
		}
		if len(b) > MaxAvatarSize {
			return "", common.NewValidationError("avatar", "Avatar image must be at most 5 MB.")
		}
		rs = bytes.NewReader(b)
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        rs,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return s.publicBaseURL + "/" + escapeKey(key), nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
