package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	appLog "lessoncal/internal/log"
)

// MinioOptions configures the S3-compatible object store driver.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Prefix    string
}

// Minio stores each key as an object named Prefix+key+".json".
type Minio struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinio connects to the endpoint and creates the bucket if missing.
func NewMinio(ctx context.Context, opts MinioOptions) (*Minio, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("store: minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("store: minio bucket check %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("store: minio make bucket %s: %w", opts.Bucket, err)
		}
		appLog.Info("minio bucket created", "bucket", opts.Bucket)
	}

	return &Minio{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

func (m *Minio) object(key string) string {
	return m.prefix + key + fileExt
}

func (m *Minio) Load(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, m.object(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, notFoundOr(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return data, nil
}

// Save puts entries one by one; object storage has no multi-object
// transaction, so a failure part way leaves earlier entries written.
func (m *Minio) Save(ctx context.Context, entries ...Entry) error {
	for _, e := range entries {
		if err := validateKey(e.Key); err != nil {
			return err
		}
	}
	for _, e := range entries {
		_, err := m.client.PutObject(ctx, m.bucket, m.object(e.Key), bytes.NewReader(e.Data), int64(len(e.Data)),
			minio.PutObjectOptions{ContentType: "application/json"})
		if err != nil {
			return fmt.Errorf("store: minio put %s: %w", e.Key, err)
		}
	}
	return nil
}

func (m *Minio) List(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	for info := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    m.prefix + prefix,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, info.Err
		}
		key := strings.TrimSuffix(strings.TrimPrefix(info.Key, m.prefix), fileExt)
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Minio) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if err := m.client.RemoveObject(ctx, m.bucket, m.object(k), minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("store: minio remove %s: %w", k, err)
		}
	}
	return nil
}

func (m *Minio) Close() error {
	return nil
}

func notFoundOr(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return err
}
