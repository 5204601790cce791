package vault

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"

	"visitnotes/internal/visit"
)

// MinioVault stores audio blobs in a MinIO (or other S3-compatible) bucket.
type MinioVault struct {
	name   string
	bucket string
	prefix string
	client *minio.Client
}

func NewMinioVault(name string, client *minio.Client, bucket, prefix string) *MinioVault {
	return &MinioVault{name: name, bucket: bucket, prefix: prefix, client: client}
}

func (v *MinioVault) objectKey(key string) string {
	if v.prefix == "" {
		return key
	}
	return path.Join(v.prefix, key)
}

func (v *MinioVault) Put(key string, r io.Reader, size int64) error {
	info, err := v.client.PutObject(context.Background(), v.bucket, v.objectKey(key), r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	if info.Size != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, info.Size)
	}
	return nil
}

func (v *MinioVault) Get(key string, w io.Writer) error {
	obj, err := v.client.GetObject(context.Background(), v.bucket, v.objectKey(key), minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("getting %s: %w", key, err)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key surfaces on first read.
	if _, err := io.Copy(w, obj); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return fmt.Errorf("audio %s: %w", key, visit.ErrNotFound)
		}
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return nil
}

func (v *MinioVault) Delete(key string) error {
	if err := v.client.RemoveObject(context.Background(), v.bucket, v.objectKey(key), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// ValidateSetup checks that the bucket exists.
func (v *MinioVault) ValidateSetup() error {
	ok, err := v.client.BucketExists(context.Background(), v.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", v.bucket, err)
	}
	if !ok {
		return fmt.Errorf("minio bucket %s does not exist", v.bucket)
	}
	return nil
}

var _ visit.AudioVault = (*MinioVault)(nil)
