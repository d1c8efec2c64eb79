package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// ErrBucketRequired is returned when an S3 gateway is configured without a bucket.
var ErrBucketRequired = errors.New("storage: S3 bucket is required")

// S3Config holds the configuration for the S3 gateway.
type S3Config struct {
	Bucket          string
	Region          string
	Prefix          string // Optional: key prefix playing the role of a destination folder
	Endpoint        string // Optional: for custom S3-compatible endpoints
	AccessKeyID     string // Optional: AWS access key ID
	SecretAccessKey string // Optional: AWS secret access key
}

// Compile-time check that S3Gateway implements Gateway.
var _ Gateway = (*S3Gateway)(nil)

// S3Gateway stores videos as objects in an S3 bucket.
// Object identifiers are the object keys.
type S3Gateway struct {
	client *s3.Client
	bucket   string
	region   string
	prefix   string
	endpoint string
	newKey   func() string
}

// NewS3Gateway creates a new S3Gateway instance.
func NewS3Gateway(ctx context.Context, cfg S3Config) (*S3Gateway, error) {
	if cfg.Bucket == "" {
		return nil, ErrBucketRequired
	}

	var configOpts []func(*config.LoadOptions) error
	configOpts = append(configOpts, config.WithRegion(cfg.Region))

	// Use static credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Gateway{
		client:   s3.NewFromConfig(awsCfg, clientOpts...),
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		newKey:   uuid.NewString,
	}, nil
}

// Create uploads r as a new object and returns its key.
// The key is a random UUID under the configured prefix, with an extension
// derived from the mime type when one is known.
func (g *S3Gateway) Create(ctx context.Context, r io.Reader, mimeType, title string) (string, error) {
	key := g.objectKey(mimeType)

	input := &s3.PutObjectInput{
		Bucket:   aws.String(g.bucket),
		Key:      aws.String(key),
		Body:     r,
		Metadata: map[string]string{"title": url.QueryEscape(title)},
	}
	if mimeType != "" {
		input.ContentType = aws.String(mimeType)
	}

	if _, err := g.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("upload to S3: %w", err)
	}
	return key, nil
}

// GrantPublicRead applies the public-read canned ACL to the object.
func (g *S3Gateway) GrantPublicRead(ctx context.Context, id string) error {
	_, err := g.client.PutObjectAcl(ctx, &s3.PutObjectAclInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(id),
		ACL:    types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return fmt.Errorf("set S3 object ACL: %w", err)
	}
	return nil
}

// Delete removes the object.
func (g *S3Gateway) Delete(ctx context.Context, id string) error {
	_, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(id),
	})
	if err != nil {
		return fmt.Errorf("delete from S3: %w", err)
	}
	return nil
}

// PublicURLs returns the object URL, and the same URL asking S3 to serve the
// object as an attachment for downloads. With a custom endpoint the URL is
// path-style, matching how the client addresses the bucket.
func (g *S3Gateway) PublicURLs(id string) Links {
	view := fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", g.bucket, g.region, escapeKey(id))
	if g.endpoint != "" {
		view = g.endpoint + "/" + g.bucket + "/" + escapeKey(id)
	}
	return Links{
		View:     view,
		Download: view + "?response-content-disposition=attachment",
	}
}

func (g *S3Gateway) objectKey(mimeType string) string {
	name := g.newKey() + extensionFor(mimeType)
	if g.prefix == "" {
		return name
	}
	return path.Join(g.prefix, name)
}

// extensionFor returns the canonical file extension for mimeType, or "" if unknown.
func extensionFor(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ""
	}
	if m := mimetype.Lookup(mediaType); m != nil {
		return m.Extension()
	}
	return ""
}

func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
