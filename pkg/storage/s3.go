package storage

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"

	"github.com/cuemby/kvault/pkg/errs"
)

// S3Config configures the S3-compatible backend. Region is always
// required; AccessKeyID/SecretAccessKey are optional — when empty, the
// backend falls back to the ambient AWS credential chain (environment,
// shared config, pod/instance role).
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

// S3 is an aws-sdk-go-v2-backed Backend against an S3-compatible object
// store.
type S3 struct {
	client     *s3.Client
	downloader *manager.Downloader
	uploader   *manager.Uploader
}

// NewS3 builds an S3 backend from cfg, loading the default AWS config and
// overriding credentials and endpoint when explicitly configured.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("%w: s3 storage requires region", errs.ErrConfig)
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading aws config: %v", errs.ErrConfig, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
			o.UsePathStyle = true
		}
	})

	return &S3{
		client:     client,
		downloader: manager.NewDownloader(client),
		uploader:   manager.NewUploader(client),
	}, nil
}

func (b *S3) Put(ctx context.Context, bucket, key string, data []byte) error {
	_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return classifyS3Err(err)
	}
	return nil
}

func (b *S3) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	buf := manager.NewWriteAtBuffer(nil)
	_, err := b.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, classifyS3Err(err)
	}
	return buf.Bytes(), nil
}

func (b *S3) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: &bucket,
		Prefix: &prefix,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classifyS3Err(err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}
	return keys, nil
}

func (b *S3) UploadTree(ctx context.Context, bucket, localDir string, tarIt bool) error {
	if tarIt {
		data, err := tarGzipDir(localDir)
		if err != nil {
			return err
		}
		return b.Put(ctx, bucket, filepath.Base(localDir)+".tar.gz", data)
	}
	return filepath.WalkDir(localDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrConfig, err)
		}
		return b.Put(ctx, bucket, filepath.ToSlash(rel), data)
	})
}

func (b *S3) DownloadTree(ctx context.Context, bucket, localDir string) error {
	keys, err := b.List(ctx, bucket, "")
	if err != nil {
		return err
	}
	for _, key := range keys {
		data, err := b.Get(ctx, bucket, key)
		if err != nil {
			return err
		}
		if strings.HasSuffix(key, ".tar.gz") {
			if err := untarGzipInto(data, localDir); err != nil {
				return err
			}
			continue
		}
		dst := filepath.Join(localDir, filepath.FromSlash(key))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrConfig, err)
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrConfig, err)
		}
	}
	return nil
}

func untarGzipInto(data []byte, dir string) error {
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrConfig, err)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrConfig, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		dst := filepath.Join(dir, filepath.FromSlash(hdr.Name))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrConfig, err)
		}
		f, err := os.Create(dst)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrConfig, err)
		}
		if _, err := io.Copy(f, tr); err != nil {
			f.Close()
			return fmt.Errorf("%w: %v", errs.ErrConfig, err)
		}
		f.Close()
	}
}

func classifyS3Err(err error) error {
	var nsk *s3.NoSuchKey
	var nf *s3.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return fmt.Errorf("%w: %v", errs.ErrNotFound, err)
	}
	return fmt.Errorf("%w: %v", errs.ErrTransport, err)
}
