package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	therrors "github.com/gear6io/tablehealth/pkg/errors"
	"github.com/gear6io/tablehealth/server/model"
	"github.com/gear6io/tablehealth/server/objectstore"
)

func TestFinishDeltaHappyPath(t *testing.T) {
	listing := []model.ObjectMeta{
		{Key: "orders/part-00000.parquet", SizeBytes: 20 * 1024 * 1024},
		{Key: "orders/part-00001.parquet", SizeBytes: 30 * 1024 * 1024},
		{Key: "orders/_delta_log/00000000000000000000.json", SizeBytes: 256},
	}
	refs := model.NewReferenceSet()
	refs.Files["orders/part-00000.parquet"] = model.ReferencedFile{SizeBytes: 20 * 1024 * 1024}
	refs.Files["orders/part-00001.parquet"] = model.ReferencedFile{SizeBytes: 30 * 1024 * 1024}
	refs.SnapshotCount = 1

	report, err := finish("s3://bucket/orders", model.TableTypeDelta, listing, refs, nil)
	require.NoError(t, err)

	require.Equal(t, "s3://bucket/orders", report.TablePath)
	require.Equal(t, model.TableTypeDelta, report.TableType)
	require.Equal(t, 2, report.Metrics.TotalFiles)
	require.InDelta(t, 1.0, report.HealthScore, 1e-9)
	require.Equal(t, time.UTC, report.AnalysisTimestamp.Location())
}

func TestMapTimeoutPassesThroughNonDeadlineErrors(t *testing.T) {
	ctx := context.Background()
	original := therrors.New(objectstore.ErrTransport, "boom", nil)
	got := mapTimeout(ctx, original)
	require.Equal(t, original, got)
}
