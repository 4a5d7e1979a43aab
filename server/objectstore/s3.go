package objectstore

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gear6io/tablehealth/pkg/errors"
	"github.com/gear6io/tablehealth/server/config"
	"github.com/gear6io/tablehealth/server/model"
)

// s3Store adapts minio-go's client to the Store interface. It also serves
// any S3-compatible endpoint (MinIO, R2, etc.) via S3Config.Endpoint.
type s3Store struct {
	client     *minio.Client
	bucket     string
	retry      config.RetryConfig
	listPageSz int
}

func newS3Store(ctx context.Context, bucket string, cfg *config.StorageConfig) (*s3Store, error) {
	endpoint := cfg.S3.Endpoint
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
	}

	var creds *credentials.Credentials
	if cfg.S3.AccessKeyID != "" {
		creds = credentials.NewStaticV4(cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, "")
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.IAM{},
		})
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.S3.UseSSL,
		Region: cfg.S3.Region,
	})
	if err != nil {
		return nil, errors.New(ErrConfig, "failed to construct S3 client", err).
			AddContext("endpoint", endpoint)
	}

	listPageSz := cfg.ListPageSz
	if listPageSz <= 0 {
		listPageSz = 1000
	}

	return &s3Store{client: client, bucket: bucket, retry: cfg.Retry, listPageSz: listPageSz}, nil
}

func (s *s3Store) Bucket() string { return s.bucket }

func (s *s3Store) List(ctx context.Context, prefix string) ([]model.ObjectMeta, error) {
	var out []model.ObjectMeta
	err := withRetry(ctx, s.retry, func() error {
		out = out[:0]
		listCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		for obj := range s.client.ListObjects(listCtx, s.bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
			MaxKeys:   s.listPageSz,
		}) {
			if obj.Err != nil {
				return errors.New(ErrListing, "failed to list objects", obj.Err).
					AddContext("bucket", s.bucket).
					AddContext("prefix", prefix)
			}
			out = append(out, model.ObjectMeta{
				Key:          obj.Key,
				SizeBytes:    obj.Size,
				LastModified: obj.LastModified,
				ETag:         obj.ETag,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *s3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	var obj *minio.Object
	err := withRetry(ctx, s.retry, func() error {
		o, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return errors.New(ErrTransport, "failed to open object", err).
				AddContext("bucket", s.bucket).
				AddContext("key", key)
		}
		if _, err := o.Stat(); err != nil {
			if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
				return errors.New(ErrNotFound, "object not found", err).
					AddContext("bucket", s.bucket).
					AddContext("key", key)
			}
			return errors.New(ErrTransport, "failed to stat object", err).
				AddContext("bucket", s.bucket).
				AddContext("key", key)
		}
		obj = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return obj, nil
}
