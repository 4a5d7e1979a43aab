package objectstore

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	therrors "github.com/gear6io/tablehealth/pkg/errors"
	"github.com/gear6io/tablehealth/server/config"
	"github.com/gear6io/tablehealth/server/model"
)

// gcsStore adapts the Google Cloud Storage client to the Store interface.
type gcsStore struct {
	client *storage.Client
	bucket string
	retry  config.RetryConfig
}

func newGCSStore(ctx context.Context, bucket string, cfg *config.StorageConfig) (*gcsStore, error) {
	var opts []option.ClientOption
	if cfg.GCS.ServiceAccountKeyPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.GCS.ServiceAccountKeyPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, therrors.New(ErrConfig, "failed to construct GCS client", err).
			AddContext("bucket", bucket)
	}

	return &gcsStore{client: client, bucket: bucket, retry: cfg.Retry}, nil
}

func (g *gcsStore) Bucket() string { return g.bucket }

func (g *gcsStore) List(ctx context.Context, prefix string) ([]model.ObjectMeta, error) {
	var out []model.ObjectMeta
	err := withRetry(ctx, g.retry, func() error {
		out = out[:0]
		it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				return therrors.New(ErrListing, "failed to list objects", err).
					AddContext("bucket", g.bucket).
					AddContext("prefix", prefix)
			}
			out = append(out, model.ObjectMeta{
				Key:          attrs.Name,
				SizeBytes:    attrs.Size,
				LastModified: attrs.Updated,
				ETag:         attrs.Etag,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *gcsStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	err := withRetry(ctx, g.retry, func() error {
		r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrObjectNotExist) {
				return therrors.New(ErrNotFound, "object not found", err).
					AddContext("bucket", g.bucket).
					AddContext("key", key)
			}
			return therrors.New(ErrTransport, "failed to open object", err).
				AddContext("bucket", g.bucket).
				AddContext("key", key)
		}
		rc = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rc, nil
}
