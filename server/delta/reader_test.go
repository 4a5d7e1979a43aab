package delta

import (
	"bytes"
	"context"
	"io"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	therrors "github.com/gear6io/tablehealth/pkg/errors"
	"github.com/gear6io/tablehealth/server/model"
	"github.com/gear6io/tablehealth/server/objectstore"
)

// memStore is a minimal in-memory objectstore.Store for exercising the
// commit-replay logic without a real object store.
type memStore struct {
	objects map[string][]byte
}

func newMemStore(files map[string]string) *memStore {
	objects := make(map[string][]byte, len(files))
	for k, v := range files {
		objects[k] = []byte(v)
	}
	return &memStore{objects: objects}
}

func (m *memStore) Bucket() string { return "test-bucket" }

func (m *memStore) List(ctx context.Context, prefix string) ([]model.ObjectMeta, error) {
	var out []model.ObjectMeta
	for k, v := range m.objects {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, model.ObjectMeta{Key: k, SizeBytes: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, therrors.New(objectstore.ErrNotFound, "object not found", nil).AddContext("key", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func TestReadReplaysAddAndRemove(t *testing.T) {
	store := newMemStore(map[string]string{
		"orders/_delta_log/00000000000000000000.json": `{"metaData":{"id":"t1"}}
{"add":{"path":"part-0000.parquet","size":1000,"partitionValues":{"region":"us"}}}
{"add":{"path":"part-0001.parquet","size":2000,"partitionValues":{"region":"eu"}}}
`,
		"orders/_delta_log/00000000000000000001.json": `{"remove":{"path":"part-0001.parquet"}}
{"add":{"path":"part-0002.parquet","size":3000,"partitionValues":{"region":"eu"}}}
`,
	})
	loc := objectstore.TableLocation{Scheme: "s3", Bucket: "test-bucket", Prefix: "orders/"}

	refs, warnings, err := Read(context.Background(), store, loc)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, 2, refs.SnapshotCount)

	require.Contains(t, refs.Files, "orders/part-0000.parquet")
	require.Contains(t, refs.Files, "orders/part-0002.parquet")
	require.NotContains(t, refs.Files, "orders/part-0001.parquet")
	require.Equal(t, int64(3000), refs.Files["orders/part-0002.parquet"].SizeBytes)
}

func TestReadGapAtVersionIsFatal(t *testing.T) {
	store := newMemStore(map[string]string{
		"orders/_delta_log/00000000000000000000.json": `{"add":{"path":"part-0000.parquet","size":1000,"partitionValues":{}}}
`,
		"orders/_delta_log/00000000000000000002.json": `{"add":{"path":"part-0002.parquet","size":1000,"partitionValues":{}}}
`,
	})
	loc := objectstore.TableLocation{Scheme: "s3", Bucket: "test-bucket", Prefix: "orders/"}

	_, _, err := Read(context.Background(), store, loc)
	require.Error(t, err)
}

func TestReadSkipsMalformedLineWithWarning(t *testing.T) {
	store := newMemStore(map[string]string{
		"orders/_delta_log/00000000000000000000.json": `not json
{"add":{"path":"part-0000.parquet","size":1000,"partitionValues":{}}}
`,
	})
	loc := objectstore.TableLocation{Scheme: "s3", Bucket: "test-bucket", Prefix: "orders/"}

	refs, warnings, err := Read(context.Background(), store, loc)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, refs.Files, "orders/part-0000.parquet")
}
