package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config" // Alias config to avoid clash
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Ali-Herrera/tri-tracker/internal/config"
)

type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Source implements ObjectSource on an S3-compatible bucket.
type S3Source struct {
	client     objectAPI
	bucketName string
	maxSize    int64
}

var _ ObjectSource = (*S3Source)(nil)

// NewS3Source creates a source for the configured bucket.
func NewS3Source(cfg config.S3Config) (*S3Source, error) {
	// Custom resolver for S3-compatible endpoints (MinIO, Spaces)
	customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.Endpoint != "" {
			return aws.Endpoint{
				PartitionID:   "aws",
				URL:           endpointURL(cfg),
				SigningRegion: cfg.Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsSDKConfig, err := awsCfg.LoadDefaultConfig(context.TODO(),
		awsCfg.WithRegion(cfg.Region),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
		awsCfg.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		log.Printf("ERROR: Failed to load AWS SDK config for S3: %v", err)
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsSDKConfig, func(o *s3.Options) {
		o.UsePathStyle = true // required by most S3-compatible services
	})

	log.Printf("INFO: S3 import source initialized for endpoint: %s, bucket: %s", endpointURL(cfg), cfg.BucketName)
	return &S3Source{client: s3Client, bucketName: cfg.BucketName, maxSize: MaxObjectSize}, nil
}

// endpointURL adds a scheme to a bare host:port endpoint, https when UseSSL
// is set. An endpoint that already names its scheme is used as is.
func endpointURL(cfg config.S3Config) string {
	ep := strings.TrimSpace(cfg.Endpoint)
	if ep == "" || strings.Contains(ep, "://") {
		return ep
	}
	if cfg.UseSSL {
		return "https://" + ep
	}
	return "http://" + ep
}

// Open streams an export. Objects larger than MaxObjectSize are refused up
// front when the size is known, otherwise the read fails with
// ErrObjectTooLarge once the limit is passed.
func (s *S3Source) Open(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, objectKey)
		}
		log.Printf("ERROR: Failed to read object '%s' from bucket '%s': %v", objectKey, s.bucketName, err)
		return nil, err
	}

	limit := s.maxSize
	if limit <= 0 {
		limit = MaxObjectSize
	}
	if size := aws.ToInt64(out.ContentLength); size > limit {
		out.Body.Close()
		log.Printf("WARN: Refusing object '%s': %d bytes exceeds the %d byte limit", objectKey, size, limit)
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrObjectTooLarge, objectKey, size)
	}
	return &cappedBody{r: io.LimitReader(out.Body, limit+1), c: out.Body, limit: limit}, nil
}

// cappedBody fails the read instead of truncating an oversized object.
type cappedBody struct {
	r     io.Reader
	c     io.Closer
	limit int64
	read  int64
}

func (b *cappedBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.read += int64(n)
	if b.read > b.limit {
		return n - int(b.read-b.limit), fmt.Errorf("%w: more than %d bytes", ErrObjectTooLarge, b.limit)
	}
	return n, err
}

func (b *cappedBody) Close() error {
	return b.c.Close()
}

// DeleteObject removes an object from the bucket.
func (s *S3Source) DeleteObject(ctx context.Context, objectKey string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		log.Printf("ERROR: Failed to delete object '%s' from bucket '%s': %v", objectKey, s.bucketName, err)
		return err
	}
	log.Printf("INFO: Deleted object '%s' from bucket '%s'", objectKey, s.bucketName)
	return nil
}
