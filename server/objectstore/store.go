// Package objectstore provides a uniform listing/fetch interface over the
// object stores tablehealth can analyze tables on: S3-compatible stores and
// Google Cloud Storage. Callers obtain a Store via Open, which inspects the
// table URI scheme and wires up the matching backend.
package objectstore

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/gear6io/tablehealth/pkg/errors"
	"github.com/gear6io/tablehealth/server/config"
	"github.com/gear6io/tablehealth/server/model"
)

var (
	ErrUnsupportedScheme = errors.ObjectstoreCode("unsupported_scheme")
	ErrConfig            = errors.ObjectstoreCode("config")
	ErrNotFound          = errors.ObjectstoreCode("not_found")
	ErrTransport         = errors.ObjectstoreCode("transport")
	ErrListing           = errors.ObjectstoreCode("listing")
)

// Store lists and fetches objects under a table's root prefix.
type Store interface {
	// List returns every object whose key starts with prefix, in no
	// particular order, once the listing is complete; it fails if ctx is
	// cancelled first.
	List(ctx context.Context, prefix string) ([]model.ObjectMeta, error)

	// Get opens the object at key for reading. The caller must Close it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Bucket returns the bucket/container name the store was opened on.
	Bucket() string
}

// TableLocation is a parsed table URI: scheme, bucket, and the key prefix
// under which the table's files live.
type TableLocation struct {
	Scheme string // "s3" or "gs"
	Bucket string
	Prefix string
}

// ParseLocation splits a "s3://bucket/path/to/table" or "gs://bucket/path"
// URI into its scheme, bucket, and prefix. The prefix never has a leading
// slash and always has a trailing slash when non-empty.
func ParseLocation(uri string) (TableLocation, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return TableLocation{}, errors.New(ErrConfig, "table location must be a URI of the form scheme://bucket/prefix", nil).
			AddContext("uri", uri)
	}
	scheme = strings.ToLower(scheme)
	if scheme != "s3" && scheme != "gs" {
		return TableLocation{}, errors.New(ErrUnsupportedScheme, "unsupported object store scheme", nil).
			AddContext("scheme", scheme).
			AddSuggestion("use an s3:// or gs:// table location")
	}

	bucket, prefix, _ := strings.Cut(rest, "/")
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	if bucket == "" {
		return TableLocation{}, errors.New(ErrConfig, "table location is missing a bucket name", nil).
			AddContext("uri", uri)
	}

	return TableLocation{Scheme: scheme, Bucket: bucket, Prefix: prefix}, nil
}

// Open resolves uri's scheme and returns the matching Store, configured per
// cfg. It does not perform any I/O.
func Open(ctx context.Context, uri string, cfg *config.StorageConfig) (Store, TableLocation, error) {
	loc, err := ParseLocation(uri)
	if err != nil {
		return nil, TableLocation{}, err
	}

	switch loc.Scheme {
	case "s3":
		st, err := newS3Store(ctx, loc.Bucket, cfg)
		return st, loc, err
	case "gs":
		st, err := newGCSStore(ctx, loc.Bucket, cfg)
		return st, loc, err
	default:
		return nil, TableLocation{}, errors.New(ErrUnsupportedScheme, "unsupported object store scheme", nil).
			AddContext("scheme", loc.Scheme)
	}
}

// withRetry runs op up to cfg.MaxAttempts times, backing off by
// cfg.InitialDelay * cfg.Factor^attempt between tries. It gives up
// immediately if ctx is done or op returns a non-retryable error.
func withRetry(ctx context.Context, cfg config.RetryConfig, op func() error) error {
	delay := cfg.InitialDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	factor := cfg.Factor
	if factor < 1 {
		factor = 2
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * factor)
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// isRetryable reports whether err looks like a transient transport failure
// worth retrying, as opposed to a permanent NotFound/config problem.
func isRetryable(err error) bool {
	if errors.GetCode(err) == ErrNotFound.String() {
		return false
	}
	if errors.GetCode(err) == ErrConfig.String() {
		return false
	}
	return true
}
