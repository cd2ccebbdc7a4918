package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ZanzyTHEbar/memoflow/memoflow/errs"
	ports "github.com/ZanzyTHEbar/memoflow/memoflow/cache/ports"
)

// MinioStore maps the store contract onto an S3-compatible object store.
// Each entry is one object named by a content hash of the key; the object
// body carries the same header layout as the filesystem store so Keys can
// recover the original keys. Network failures surface as store
// unavailability.
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// MinioConfig holds connection details for an S3-compatible endpoint.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
	Bucket    string
	Prefix    string
}

// NewMinioStore connects to the endpoint and ensures the bucket exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, errs.StoreUnavailable(fmt.Errorf("minio client: %w", err))
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, errs.StoreUnavailable(fmt.Errorf("minio bucket check: %w", err))
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errs.StoreUnavailable(fmt.Errorf("minio make bucket: %w", err))
		}
	}

	return &MinioStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Get downloads the object for key, if present.
func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, false, errs.StoreUnavailable(fmt.Errorf("minio get: %w", err))
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	return interpretObject(key, data, err)
}

// interpretObject splits an object read into miss, hit and failure. An
// absent object is a miss, as is a hash collision with a different key.
func interpretObject(key string, data []byte, readErr error) ([]byte, bool, error) {
	if readErr != nil {
		if minio.ToErrorResponse(readErr).Code == "NoSuchKey" {
			return nil, false, nil
		}
		return nil, false, errs.StoreUnavailable(fmt.Errorf("minio read: %w", readErr))
	}

	storedKey, value, err := decodeEntryFile(data)
	if err != nil {
		return nil, false, errs.Serialization(err)
	}
	if storedKey != key {
		return nil, false, nil
	}
	return value, true, nil
}

// Put uploads the entry as a single object.
func (s *MinioStore) Put(ctx context.Context, key string, value []byte) error {
	data := encodeEntryFile(key, value)
	_, err := s.client.PutObject(ctx, s.bucket, s.objectName(key),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return errs.StoreUnavailable(fmt.Errorf("minio put: %w", err))
	}
	return nil
}

// Evict removes the object for key. Removing an absent object is not an error.
func (s *MinioStore) Evict(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.objectName(key), minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return errs.StoreUnavailable(fmt.Errorf("minio remove: %w", err))
	}
	return nil
}

// Keys lists all entry objects under the prefix and recovers their keys.
func (s *MinioStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, errs.StoreUnavailable(fmt.Errorf("minio list: %w", info.Err))
		}

		obj, err := s.client.GetObject(ctx, s.bucket, info.Key, minio.GetObjectOptions{})
		if err != nil {
			return nil, errs.StoreUnavailable(fmt.Errorf("minio get: %w", err))
		}
		data, err := io.ReadAll(obj)
		obj.Close()
		if err != nil {
			return nil, errs.StoreUnavailable(fmt.Errorf("minio read: %w", err))
		}

		key, _, err := decodeEntryFile(data)
		if err != nil {
			return nil, errs.Serialization(err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *MinioStore) objectName(key string) string {
	return fmt.Sprintf("%s%016x%s", s.prefix, xxhash.Sum64String(key), fsEntryExt)
}

// Ensure MinioStore implements the Store interface.
var _ ports.Store = (*MinioStore)(nil)
