package delta

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/gear6io/tablehealth/server/model"
	"github.com/gear6io/tablehealth/server/objectstore"
)

// extractAddRows walks the checkpoint table's "add" struct column and seeds
// refs with one entry per non-null row. A checkpoint with no "add" column
// (an empty or metadata-only part of a multi-part checkpoint) is not an
// error.
func extractAddRows(tbl arrow.Table, loc objectstore.TableLocation, refs *model.ReferenceSet) error {
	addIdx := fieldIndex(tbl.Schema(), "add")
	if addIdx < 0 {
		return nil
	}

	col := tbl.Column(addIdx)
	for _, chunk := range col.Data().Chunks() {
		structArr, ok := chunk.(*array.Struct)
		if !ok {
			continue
		}

		pathArr := structChild(structArr, "path")
		sizeArr := structChild(structArr, "size")
		partArr := structChild(structArr, "partitionValues")

		for row := 0; row < structArr.Len(); row++ {
			if structArr.IsNull(row) {
				continue
			}
			path := stringAt(pathArr, row)
			if path == "" {
				continue
			}
			refs.Files[loc.Prefix+path] = model.ReferencedFile{
				SizeBytes:       int64At(sizeArr, row),
				PartitionValues: mapStringAt(partArr, row),
			}
		}
	}
	return nil
}

func fieldIndex(schema *arrow.Schema, name string) int {
	for i, f := range schema.Fields() {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func structChild(s *array.Struct, name string) arrow.Array {
	dt, ok := s.DataType().(*arrow.StructType)
	if !ok {
		return nil
	}
	for i, f := range dt.Fields() {
		if f.Name == name {
			return s.Field(i)
		}
	}
	return nil
}

func stringAt(a arrow.Array, row int) string {
	if a == nil || row >= a.Len() || a.IsNull(row) {
		return ""
	}
	if sa, ok := a.(*array.String); ok {
		return sa.Value(row)
	}
	return ""
}

func int64At(a arrow.Array, row int) int64 {
	if a == nil || row >= a.Len() || a.IsNull(row) {
		return 0
	}
	switch v := a.(type) {
	case *array.Int64:
		return v.Value(row)
	case *array.Int32:
		return int64(v.Value(row))
	default:
		return 0
	}
}

// mapStringAt reads a row of a string-keyed, string-valued Arrow map array
// (how pqarrow represents Delta's partitionValues), returning nil for a
// null or absent map.
func mapStringAt(a arrow.Array, row int) map[string]string {
	mapArr, ok := a.(*array.Map)
	if !ok || mapArr.IsNull(row) {
		return nil
	}

	keys, ok := mapArr.Keys().(*array.String)
	if !ok {
		return nil
	}
	values, ok := mapArr.Items().(*array.String)
	if !ok {
		return nil
	}

	start, end := mapArr.ValueOffsets(row)
	if end <= start {
		return map[string]string{}
	}

	out := make(map[string]string, end-start)
	for i := start; i < end; i++ {
		out[keys.Value(int(i))] = values.Value(int(i))
	}
	return out
}
