// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
)

const defaultRegion = "us-east-1"

// S3Options configures an S3 or S3-compatible bucket.
type S3Options struct {
	Bucket          string
	Region          string
	Endpoint        string // custom endpoint for S3-compatible services
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string // CDN or website URL; defaults to the bucket URL
	UsePathStyle    bool
}

// s3API is the subset of the S3 client the store uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	PutObjectAcl(ctx context.Context, in *s3.PutObjectAclInput, opts ...func(*s3.Options)) (*s3.PutObjectAclOutput, error)
}

// S3Store is a Store backed by an S3 bucket.
type S3Store struct {
	client s3API
	opts   S3Options
}

// NewS3Store creates an S3 client from static credentials, or from the
// default AWS credential chain when no key is given.
func NewS3Store(ctx context.Context, opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if opts.Region == "" {
		opts.Region = defaultRegion
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
		if opts.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return newS3Store(client, opts), nil
}

func newS3Store(client s3API, opts S3Options) *S3Store {
	if opts.Region == "" {
		opts.Region = defaultRegion
	}
	return &S3Store{client: client, opts: opts}
}

// Upload puts an object with its content type and user metadata.
func (s *S3Store) Upload(ctx context.Context, key string, data []byte, meta Metadata) (Ref, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return Ref{}, errors.New("empty object key")
	}

	contentType := meta.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.opts.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		Metadata:      objectMetadata(meta),
	})
	if err != nil {
		return Ref{}, fmt.Errorf("uploading %s: %w", key, err)
	}

	return Ref{Bucket: s.opts.Bucket, Key: key, Size: int64(len(data))}, nil
}

// MakePublic grants public read on the object and returns its URL.
func (s *S3Store) MakePublic(ctx context.Context, ref Ref) (string, error) {
	_, err := s.client.PutObjectAcl(ctx, &s3.PutObjectAclInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
		ACL:    types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", fmt.Errorf("making %s public: %w", ref.Key, err)
	}
	return s.PublicURL(ref.Key), nil
}

// PublicURL returns the URL an object is served from once public.
func (s *S3Store) PublicURL(key string) string {
	key = escapeKey(strings.TrimPrefix(key, "/"))

	switch {
	case s.opts.PublicBaseURL != "":
		return strings.TrimSuffix(s.opts.PublicBaseURL, "/") + "/" + key
	case s.opts.Endpoint != "":
		return strings.TrimSuffix(s.opts.Endpoint, "/") + "/" + s.opts.Bucket + "/" + key
	case s.opts.UsePathStyle:
		return fmt.Sprintf("https://s3.%s.amazonaws.com/%s/%s", s.opts.Region, s.opts.Bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.opts.Bucket, s.opts.Region, key)
	}
}

// objectMetadata drops empty values; S3 rejects non-ASCII header values,
// so those are query-escaped.
func objectMetadata(meta Metadata) map[string]string {
	out := make(map[string]string, 3)
	for k, v := range map[string]string{
		"original-url": meta.OriginalURL,
		"alt":          meta.AltText,
		"caption":      meta.Caption,
	} {
		if v == "" {
			continue
		}
		out[k] = asciiHeaderValue(v)
	}
	return out
}

func asciiHeaderValue(v string) string {
	for i := 0; i < len(v); i++ {
		if v[i] < 0x20 || v[i] > 0x7e {
			return url.QueryEscape(v)
		}
	}
	return v
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

var _ Store = (*S3Store)(nil)
