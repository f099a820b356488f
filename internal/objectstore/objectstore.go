// Package objectstore wraps the S3-compatible blob store (Contabo) used for
// historical blobs, provider cache entries and rendered artifacts.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"sravz-backend/pkg/apperrors"
	appconfig "sravz-backend/pkg/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// DefaultPresignTTL is how long presigned GET URLs stay valid.
const DefaultPresignTTL = 5 * time.Minute

// Store is a thin, shared-immutable handle over the S3 API. It is safe for
// concurrent use and is passed by reference into every component that needs it.
type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
}

// New builds a Store against the configured S3-compatible endpoint with
// static credentials.
func New(ctx context.Context, cfg *appconfig.AppConfig) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.ContaboKey, cfg.ContaboSecret, ""),
		),
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ConfigMissing, "failed to build S3 client config", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String("https://" + cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
	}, nil
}

// Put uploads data. With gzipEncoding the body is gzip-compressed and
// Content-Encoding is set accordingly.
func (s *Store) Put(ctx context.Context, bucket, key string, data []byte, gzipEncoding bool) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String("application/json"),
	}

	if gzipEncoding {
		compressed, err := Compress(data)
		if err != nil {
			return apperrors.Wrap(apperrors.StoreUnavailable, "failed to compress object body", err)
		}
		input.Body = bytes.NewReader(compressed)
		input.ContentEncoding = aws.String("gzip")
	} else {
		input.Body = bytes.NewReader(data)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return apperrors.Wrap(apperrors.StoreUnavailable,
			fmt.Sprintf("failed to put object %s/%s", bucket, key), err)
	}
	return nil
}

// Get downloads an object. With decompress the body is gunzipped before being
// returned; bodies without the gzip magic pass through untouched, since
// provider cache entries are stored raw while historical blobs are gzipped.
func (s *Store) Get(ctx context.Context, bucket, key string, decompress bool) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.StoreUnavailable,
			fmt.Sprintf("failed to get object %s/%s", bucket, key), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.StoreUnavailable,
			fmt.Sprintf("failed to read object body %s/%s", bucket, key), err)
	}

	if decompress {
		return Decompress(data)
	}
	return data, nil
}

// Head reports whether an object exists and its last-modified time. A missing
// object (NoSuchKey or a bare 404) is reported as absent, never as an error.
func (s *Store) Head(ctx context.Context, bucket, key string) (bool, time.Time, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, time.Time{}, nil
		}
		return false, time.Time{}, apperrors.Wrap(apperrors.StoreUnavailable,
			fmt.Sprintf("failed to head object %s/%s", bucket, key), err)
	}

	var lastModified time.Time
	if out.LastModified != nil {
		lastModified = *out.LastModified
	}
	return true, lastModified, nil
}

// OlderThan reports whether the object's last-modified time is before
// now - mins minutes. A missing object reports false.
func (s *Store) OlderThan(ctx context.Context, bucket, key string, mins int) (bool, error) {
	exists, lastModified, err := s.Head(ctx, bucket, key)
	if err != nil {
		return false, err
	}
	if !exists || lastModified.IsZero() {
		return false, nil
	}
	cutoff := time.Now().UTC().Add(-time.Duration(mins) * time.Minute)
	return lastModified.Before(cutoff), nil
}

// Delete removes an object.
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return apperrors.Wrap(apperrors.StoreUnavailable,
			fmt.Sprintf("failed to delete object %s/%s", bucket, key), err)
	}
	return nil
}

// PresignedGetURL produces a signed GET URL usable by third parties. Signing
// is local; no network round-trip is made.
func (s *Store) PresignedGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultPresignTTL
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) {
		o.Expires = ttl
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.StoreUnavailable,
			fmt.Sprintf("failed to presign %s/%s", bucket, key), err)
	}
	return req.URL, nil
}

// UploadFile streams a local file into the store.
func (s *Store) UploadFile(ctx context.Context, bucket, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return apperrors.Wrap(apperrors.StoreUnavailable,
			fmt.Sprintf("failed to open local file %s", localPath), err)
	}
	defer f.Close()

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return apperrors.Wrap(apperrors.StoreUnavailable,
			fmt.Sprintf("failed to upload file to %s/%s", bucket, key), err)
	}

	slog.Debug("Uploaded file", "bucket", bucket, "key", key, "path", localPath)
	return nil
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}
