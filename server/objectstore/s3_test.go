package objectstore

import (
	"context"
	"io"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/require"

	"github.com/gear6io/tablehealth/server/config"
)

// newFakeS3 spins up an in-memory S3-compatible server seeded with the given
// bucket and objects, and returns a Store pointed at it.
func newFakeS3(t *testing.T, bucket string, objects map[string]string) (Store, func()) {
	t.Helper()

	backend := s3mem.New()
	faker := gofakes3.New(backend)
	ts := httptest.NewServer(faker.Server())

	require.NoError(t, backend.CreateBucket(bucket))
	for key, body := range objects {
		_, err := backend.PutObject(bucket, key, nil, stringReader(body), int64(len(body)))
		require.NoError(t, err)
	}

	endpoint, err := url.Parse(ts.URL)
	require.NoError(t, err)

	cfg := &config.StorageConfig{
		S3: config.S3Config{
			Endpoint:        endpoint.Host,
			AccessKeyID:     "fake",
			SecretAccessKey: "fake",
			UseSSL:          false,
		},
		Retry:      config.RetryConfig{MaxAttempts: 2, InitialDelay: 0, Factor: 1},
		ListPageSz: 1000,
	}

	store, err := newS3Store(context.Background(), bucket, cfg)
	require.NoError(t, err)

	return store, ts.Close
}

func stringReader(s string) io.ReadSeeker {
	return &stringReadSeeker{s: s}
}

// stringReadSeeker is the minimal io.ReadSeeker wrapper gofakes3's PutObject
// backend needs; strings.NewReader already satisfies this but is spelled out
// here to keep the import list small.
type stringReadSeeker struct {
	s   string
	pos int64
}

func (r *stringReadSeeker) Read(p []byte) (int, error) {
	if r.pos >= int64(len(r.s)) {
		return 0, io.EOF
	}
	n := copy(p, r.s[r.pos:])
	r.pos += int64(n)
	return n, nil
}

func (r *stringReadSeeker) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = r.pos
	case io.SeekEnd:
		base = int64(len(r.s))
	}
	r.pos = base + offset
	return r.pos, nil
}

func TestS3StoreListAndGet(t *testing.T) {
	store, closeFn := newFakeS3(t, "health-bucket", map[string]string{
		"tables/orders/_delta_log/00000000000000000000.json": `{"commitInfo":{}}`,
		"tables/orders/part-0000.parquet":                     "parquet-bytes",
	})
	defer closeFn()

	objs, err := store.List(context.Background(), "tables/orders/")
	require.NoError(t, err)
	require.Len(t, objs, 2)

	rc, err := store.Get(context.Background(), "tables/orders/part-0000.parquet")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "parquet-bytes", string(data))
}

func TestS3StoreGetNotFound(t *testing.T) {
	store, closeFn := newFakeS3(t, "health-bucket", map[string]string{})
	defer closeFn()

	_, err := store.Get(context.Background(), "missing.json")
	require.Error(t, err)
}

func TestParseLocation(t *testing.T) {
	loc, err := ParseLocation("s3://my-bucket/warehouse/orders")
	require.NoError(t, err)
	require.Equal(t, "s3", loc.Scheme)
	require.Equal(t, "my-bucket", loc.Bucket)
	require.Equal(t, "warehouse/orders/", loc.Prefix)

	_, err = ParseLocation("not-a-uri")
	require.Error(t, err)

	_, err = ParseLocation("ftp://bucket/path")
	require.Error(t, err)
}
