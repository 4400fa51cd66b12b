package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const filenameMeta = "Original-Filename"

// Object is one archived upload.
type Object struct {
	Key         string
	Filename    string
	ContentType string
	Data        []byte
}

// Storage archives the original evidence files citizens upload so reviewers can see them.
type Storage interface {
	Put(ctx context.Context, obj Object) error
	Get(ctx context.Context, key string) (*Object, error)
	Remove(ctx context.Context, key string) error
}

type Options struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}

type s3Storage struct {
	client *minio.Client
	bucket string
}

// NewS3Storage connects to an S3-compatible endpoint and creates the bucket if it is missing.
func NewS3Storage(ctx context.Context, opts Options) (Storage, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %q: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %q: %w", opts.Bucket, err)
		}
	}

	return &s3Storage{client: client, bucket: opts.Bucket}, nil
}

// ObjectKey is where an uploaded file lives: documents/<request>/<upload>/<name>.
func ObjectKey(requestID, uploadID, filename string) string {
	return fmt.Sprintf("documents/%s/%s/%s", requestID, uploadID, baseName(filename))
}

func baseName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "document"
	}
	return name
}

// metadataSafe keeps a filename printable in an HTTP header; S3 metadata travels as headers.
func metadataSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r > 0x7e {
			return '_'
		}
		return r
	}, s)
}

func (s *s3Storage) Put(ctx context.Context, obj Object) error {
	_, err := s.client.PutObject(ctx, s.bucket, obj.Key,
		bytes.NewReader(obj.Data), int64(len(obj.Data)),
		minio.PutObjectOptions{
			ContentType:  obj.ContentType,
			UserMetadata: map[string]string{filenameMeta: metadataSafe(baseName(obj.Filename))},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", obj.Key, err)
	}
	return nil
}

func (s *s3Storage) Get(ctx context.Context, key string) (*Object, error) {
	reader, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer reader.Close()

	info, err := reader.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", key, err)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	filename := info.UserMetadata[filenameMeta]
	if filename == "" {
		filename = path.Base(key)
	}
	return &Object{
		Key:         key,
		Filename:    filename,
		ContentType: info.ContentType,
		Data:        data,
	}, nil
}

func (s *s3Storage) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}
