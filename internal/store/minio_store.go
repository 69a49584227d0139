package store

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

// MinioFileStore 是 FileStore 的 MinIO 实现，按文档名称读取原始文件。
type MinioFileStore struct {
	client *minio.Client
	bucket string
}

// NewMinioFileStore 创建一个 MinioFileStore。
func NewMinioFileStore(client *minio.Client, bucket string) *MinioFileStore {
	return &MinioFileStore{client: client, bucket: bucket}
}

// FetchRaw 按对象名读取原始文件字节。
func (s *MinioFileStore) FetchRaw(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open object %q: %w", name, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %q: %w", name, err)
	}
	return data, nil
}

var _ FileStore = (*MinioFileStore)(nil)
