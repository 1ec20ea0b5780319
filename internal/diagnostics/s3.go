package diagnostics

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"specforge/internal/util/jsonutil"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Sink archives non-clean records as JSON objects under
// <prefix>/<yyyy>/<mm>/<dd>/<request_id>.json.
type S3Sink struct {
	client     *minio.Client
	bucketName string
	region     string
	prefix     string

	mu    sync.Mutex
	ready bool
}

func NewS3Sink(cfg S3Config) (*S3Sink, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Sink{client: client, bucketName: bucket, region: region, prefix: "enhance"}, nil
}

// ensureBucket checks for the bucket once it has succeeded; until then every
// call tries again so a transient failure does not disable the sink.
func (s *S3Sink) ensureBucket(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return err
		}
	}
	s.ready = true
	return nil
}

// Record uploads fallback and normalized records. Clean completions are
// skipped.
func (s *S3Sink) Record(ctx context.Context, rec Record) error {
	if rec.Outcome == OutcomeCompleted && rec.Reason == ReasonNone {
		return nil
	}
	if strings.TrimSpace(rec.RequestID) == "" {
		return fmt.Errorf("request_id is required")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	body, err := jsonutil.MarshalNoEscapeIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucketName, ObjectKey(s.prefix, rec), bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

// ObjectKey is the archive key for rec.
func ObjectKey(prefix string, rec Record) string {
	return strings.Trim(prefix, "/") + "/" + rec.At.UTC().Format("2006/01/02") + "/" + strings.TrimSpace(rec.RequestID) + ".json"
}
