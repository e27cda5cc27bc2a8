package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// maxDeleteBatch is the S3 DeleteObjects limit.
const maxDeleteBatch = 1000

// S3API is the part of the S3 client R2Store calls.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// R2Config holds Cloudflare R2 credentials and addressing.
type R2Config struct {
	AccountID       string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
}

// R2Store stores objects in a Cloudflare R2 bucket through the S3 API.
type R2Store struct {
	client    S3API
	bucket    string
	publicURL string
}

// NewR2Store creates an R2-backed store. Endpoint defaults to the account's R2 host.
func NewR2Store(_ context.Context, cfg R2Config) (*R2Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("r2: bucket is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.AccountID == "" {
			return nil, errors.New("r2: endpoint or account id is required")
		}
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}

	client := s3.New(s3.Options{
		Region:       "auto",
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		UsePathStyle: true,
	})

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = joinURL(endpoint, cfg.Bucket)
	}
	return NewR2StoreWithClient(client, cfg.Bucket, publicURL), nil
}

// NewR2StoreWithClient wraps an existing S3 client.
func NewR2StoreWithClient(client S3API, bucket, publicURL string) *R2Store {
	return &R2Store{client: client, bucket: bucket, publicURL: publicURL}
}

func (s *R2Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("r2 put %s: %w", key, err)
	}
	return nil
}

// DeleteByPrefix removes every object under prefix and returns how many were deleted.
func (s *R2Store) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	if err := validateKey(prefix); err != nil {
		return 0, err
	}

	deleted := 0
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return deleted, fmt.Errorf("r2 list %s: %w", prefix, err)
		}
		for start := 0; start < len(page.Contents); start += maxDeleteBatch {
			end := min(start+maxDeleteBatch, len(page.Contents))
			ids := make([]types.ObjectIdentifier, 0, end-start)
			for _, obj := range page.Contents[start:end] {
				ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
			}
			out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(s.bucket),
				Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
			})
			if err != nil {
				return deleted, fmt.Errorf("r2 delete %s: %w", prefix, err)
			}
			deleted += len(ids) - len(out.Errors)
			if len(out.Errors) > 0 {
				first := out.Errors[0]
				return deleted, fmt.Errorf("r2 delete %s: %d objects failed, first %s: %s",
					prefix, len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
			}
		}
	}
	return deleted, nil
}

func (s *R2Store) URL(key string) string {
	return joinURL(s.publicURL, key)
}
