package tableformat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gear6io/tablehealth/server/model"
)

func objs(keys ...string) []model.ObjectMeta {
	out := make([]model.ObjectMeta, len(keys))
	for i, k := range keys {
		out[i] = model.ObjectMeta{Key: k}
	}
	return out
}

func TestDetectDelta(t *testing.T) {
	class := Detect(objs(
		"orders/_delta_log/00000000000000000000.json",
		"orders/part-0000.parquet",
	))
	require.Equal(t, ClassDelta, class)
}

func TestDetectIceberg(t *testing.T) {
	class := Detect(objs(
		"orders/metadata/v1.metadata.json",
		"orders/data/part-0000.parquet",
	))
	require.Equal(t, ClassIceberg, class)
}

func TestDetectAmbiguous(t *testing.T) {
	class := Detect(objs(
		"orders/_delta_log/00000000000000000000.json",
		"orders/metadata/v1.metadata.json",
	))
	require.Equal(t, ClassAmbiguous, class)

	tableType, tiebreak, err := Resolve(class, "")
	require.NoError(t, err)
	require.Equal(t, model.TableTypeDelta, tableType)
	require.True(t, tiebreak)
}

func TestDetectUnknown(t *testing.T) {
	class := Detect(objs("orders/README.md"))
	require.Equal(t, ClassUnknown, class)

	_, _, err := Resolve(class, "")
	require.Error(t, err)
}

func TestResolveForced(t *testing.T) {
	tableType, tiebreak, err := Resolve(ClassUnknown, "iceberg")
	require.NoError(t, err)
	require.Equal(t, model.TableTypeIceberg, tableType)
	require.False(t, tiebreak)
}
