package storage

import "context"

// Backend is uniform object I/O over a snapshot store: put, get, list, and
// whole-tree upload/download, implemented by Local and S3.
type Backend interface {
	// Put writes data at bucket/key, overwriting any existing object, and
	// guarantees the write is atomic: readers never observe a partial
	// object.
	Put(ctx context.Context, bucket, key string, data []byte) error

	// Get returns the bytes stored at bucket/key, failing with
	// errs.ErrNotFound if the key does not exist.
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// List returns the keys under bucket/prefix. Order is unspecified;
	// pagination, if any, is handled internally.
	List(ctx context.Context, bucket, prefix string) ([]string, error)

	// UploadTree mirrors localDir under bucket. When tar is true, it
	// instead produces a single <basename>.tar.gz object.
	UploadTree(ctx context.Context, bucket, localDir string, tar bool) error

	// DownloadTree materialises bucket's contents as a local directory
	// tree rooted at localDir.
	DownloadTree(ctx context.Context, bucket, localDir string) error
}
