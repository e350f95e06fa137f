package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"

	"github.com/Ali-Herrera/tri-tracker/internal/config"
)

type stubS3 struct {
	objects     map[string]string
	deleted     []string
	declareSize bool
}

func (s *stubS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := s.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	out := &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}
	if s.declareSize {
		out.ContentLength = aws.Int64(int64(len(body)))
	}
	return out, nil
}

func (s *stubS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	s.deleted = append(s.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3SourceOpenAndDelete(t *testing.T) {
	api := &stubS3{objects: map[string]string{"exports/u1.csv": "Date,Type\n2024-01-05,Run\n"}}
	src := &S3Source{client: api, bucketName: "exports", maxSize: MaxObjectSize}

	rc, err := src.Open(context.Background(), "exports/u1.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "Date,Type\n2024-01-05,Run\n", string(data))

	_, err = src.Open(context.Background(), "missing.csv")
	require.ErrorIs(t, err, ErrObjectNotFound)

	require.NoError(t, src.DeleteObject(context.Background(), "exports/u1.csv"))
	require.Equal(t, []string{"exports/u1.csv"}, api.deleted)
}

func TestS3SourceRefusesOversizedObjects(t *testing.T) {
	ctx := context.Background()
	export := "Date,Type\n2024-01-05,Run\n2024-01-06,Run\n"
	limit := int64(len(export)) - 4

	// Size unknown up front: the read fails instead of stopping mid-row.
	api := &stubS3{objects: map[string]string{"big.csv": export, "fits.csv": export[:limit]}}
	src := &S3Source{client: api, bucketName: "exports", maxSize: limit}

	rc, err := src.Open(ctx, "big.csv")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.ErrorIs(t, err, ErrObjectTooLarge)
	require.LessOrEqual(t, int64(len(data)), limit)
	require.NoError(t, rc.Close())

	rc, err = src.Open(ctx, "fits.csv")
	require.NoError(t, err)
	data, err = io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, export[:limit], string(data))

	// Declared size: refused before reading.
	api.declareSize = true
	_, err = src.Open(ctx, "big.csv")
	require.ErrorIs(t, err, ErrObjectTooLarge)
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		cfg  config.S3Config
		want string
	}{
		{config.S3Config{Endpoint: "minio:9000", UseSSL: false}, "http://minio:9000"},
		{config.S3Config{Endpoint: "nyc3.digitaloceanspaces.com", UseSSL: true}, "https://nyc3.digitaloceanspaces.com"},
		{config.S3Config{Endpoint: "http://localhost:9000", UseSSL: true}, "http://localhost:9000"},
		{config.S3Config{Endpoint: "", UseSSL: true}, ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, endpointURL(tt.cfg), tt.cfg.Endpoint)
	}
}
