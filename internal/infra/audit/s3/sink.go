package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectWriter is the subset of the MinIO client the sink uses.
type ObjectWriter interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, object string, reader *bytes.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Sink archives relayed settlement events as JSON objects in an
// S3-compatible bucket. It implements the outbox producer contract.
type Sink struct {
	bucket         string
	client         ObjectWriter
	logger         *slog.Logger
	topics         map[string]bool
	bucketInitOnce sync.Once
	bucketInitErr  error
}

// NewSink configures the archive. When topics is non-empty only those topics
// are archived; other messages are accepted and dropped.
func NewSink(endpoint string, useSSL bool, accessKey, secretKey, bucket string, topics []string, logger *slog.Logger) (*Sink, error) {
	cleanEndpoint := strings.TrimSpace(endpoint)
	if cleanEndpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	minioClient, err := minio.New(parseEndpoint(cleanEndpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(accessKey), strings.TrimSpace(secretKey), ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	return NewSinkWith(minioAdapter{minioClient}, bucket, topics, logger)
}

func NewSinkWith(client ObjectWriter, bucket string, topics []string, logger *slog.Logger) (*Sink, error) {
	if bucket = strings.TrimSpace(bucket); bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	s := &Sink{bucket: bucket, client: client, logger: logger}
	if len(topics) > 0 {
		s.topics = make(map[string]bool, len(topics))
		for _, t := range topics {
			s.topics[t] = true
		}
	}
	return s, nil
}

// Publish writes the payload to <topic>/<key>/<event id>.json. Rewriting the
// same event overwrites the same object.
func (s *Sink) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	if s.topics != nil && !s.topics[topic] {
		return nil
	}
	eventID := headers["ce-id"]
	if eventID == "" {
		return errors.New("s3: event id header missing")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	object := ObjectKey(topic, key, eventID)
	_, err := s.client.PutObject(ctx, s.bucket, object, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"event-type": headers["ce-type"],
		},
	})
	if err != nil {
		return fmt.Errorf("s3: put object: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("settlement event archived", "bucket", s.bucket, "key", object)
	}
	return nil
}

func ObjectKey(topic, key, eventID string) string {
	clean := func(s string) string {
		s = strings.Trim(strings.TrimSpace(s), "/")
		if s == "" {
			return "_"
		}
		return strings.ReplaceAll(s, "/", "_")
	}
	return path.Join(clean(topic), clean(key), clean(eventID)+".json")
}

func (s *Sink) ensureBucket(ctx context.Context) error {
	s.bucketInitOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			s.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return s.bucketInitErr
}

type minioAdapter struct {
	*minio.Client
}

func (m minioAdapter) PutObject(ctx context.Context, bucket, object string, reader *bytes.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return m.Client.PutObject(ctx, bucket, object, reader, size, opts)
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}
