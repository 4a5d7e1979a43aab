// Package metrics turns a raw object listing and a format reader's
// reference set into the deterministic HealthMetrics rollup the health
// scorer consumes.
package metrics

import (
	"math"
	"sort"
	"strings"

	"github.com/gear6io/tablehealth/server/model"
)

// entryKind classifies one listing entry.
type entryKind int

const (
	kindOther entryKind = iota
	kindData
	kindMetadata
)

// Aggregate classifies listing, joins it against refs, and produces the
// full HealthMetrics rollup. tableType only affects MetadataHealth's
// manifest count (Iceberg-only).
func Aggregate(listing []model.ObjectMeta, refs *model.ReferenceSet, tableType model.TableType) *model.HealthMetrics {
	m := model.NewHealthMetrics()

	var metadataObjs []model.ObjectMeta
	var dataFiles []model.FileInfo

	for _, obj := range listing {
		switch classify(obj.Key) {
		case kindMetadata:
			metadataObjs = append(metadataObjs, obj)
		case kindData:
			ref, isRef := refs.Files[obj.Key]
			fi := model.FileInfo{
				Path:         obj.Key,
				SizeBytes:    obj.SizeBytes,
				LastModified: obj.LastModified,
				IsReferenced: isRef,
			}
			if isRef {
				fi.SizeBytes = ref.SizeBytes
			}
			dataFiles = append(dataFiles, fi)
		}
	}

	referenced := make([]model.FileInfo, 0, len(dataFiles))
	for _, fi := range dataFiles {
		if fi.IsReferenced {
			referenced = append(referenced, fi)
			continue
		}
		m.UnreferencedFiles = append(m.UnreferencedFiles, fi)
		m.UnreferencedSizeBytes += fi.SizeBytes
	}

	m.TotalFiles = len(referenced)
	for _, fi := range referenced {
		m.TotalSizeBytes += fi.SizeBytes
	}
	if m.TotalFiles > 0 {
		m.AvgFileSizeBytes = float64(m.TotalSizeBytes) / float64(m.TotalFiles)
	}

	m.FileSizeDistribution = fileSizeDistribution(referenced)
	m.Partitions = buildPartitions(referenced, refs)
	m.PartitionCount = len(m.Partitions)
	m.DataSkew = dataSkew(m.Partitions)
	m.MetadataHealth = metadataHealth(metadataObjs, refs, tableType)
	m.SnapshotHealth = snapshotHealth(refs.SnapshotCount)

	return m
}

// classify buckets a listing entry by suffix and path, per the rules in
// the metrics aggregator's design: _delta_log/ and metadata/ prefixes, or
// metadata-ish suffixes (including every .avro file), count as metadata;
// parquet/orc elsewhere counts as data; everything else is other.
func classify(key string) entryKind {
	if strings.Contains(key, "_delta_log/") || strings.Contains(key, "metadata/") {
		return kindMetadata
	}
	if strings.HasSuffix(key, ".metadata.json") || strings.HasSuffix(key, ".avro") || strings.HasSuffix(key, ".crc") {
		return kindMetadata
	}
	if strings.HasSuffix(key, ".parquet") || strings.HasSuffix(key, ".orc") {
		return kindData
	}
	return kindOther
}

func fileSizeDistribution(files []model.FileInfo) model.FileSizeDistribution {
	var d model.FileSizeDistribution
	for _, fi := range files {
		switch model.SizeBucket(fi.SizeBytes) {
		case "small":
			d.SmallFiles++
		case "medium":
			d.MediumFiles++
		case "large":
			d.LargeFiles++
		default:
			d.VeryLargeFiles++
		}
	}
	return d
}

// buildPartitions groups referenced files by the partition values recorded
// for them in refs, emitting entries in ascending lexicographic order of
// their serialized partition key so output is stable across runs. Files
// with no partition values belong to no partition, so an unpartitioned
// table yields no entries.
func buildPartitions(files []model.FileInfo, refs *model.ReferenceSet) []model.PartitionInfo {
	groups := make(map[string]*model.PartitionInfo)
	var order []string

	for _, fi := range files {
		ref := refs.Files[fi.Path]
		if len(ref.PartitionValues) == 0 {
			continue
		}
		serialized := serializePartitionKey(ref.PartitionValues)
		grp, ok := groups[serialized]
		if !ok {
			grp = &model.PartitionInfo{PartitionValues: ref.PartitionValues}
			groups[serialized] = grp
			order = append(order, serialized)
		}
		grp.Files = append(grp.Files, fi)
		grp.FileCount++
		grp.TotalSizeBytes += fi.SizeBytes
	}

	sort.Strings(order)

	out := make([]model.PartitionInfo, 0, len(order))
	for _, key := range order {
		grp := groups[key]
		if grp.FileCount > 0 {
			grp.AvgFileSizeBytes = float64(grp.TotalSizeBytes) / float64(grp.FileCount)
		}
		out = append(out, *grp)
	}
	return out
}

// serializePartitionKey renders a partition-value map as a stable string
// for grouping and ordering: keys sorted, joined as "k=v".
func serializePartitionKey(values map[string]string) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(values[k])
	}
	return sb.String()
}

// dataSkew computes DataSkewMetrics from per-partition totals: population
// coefficient of variation over total_size_bytes (partition skew) and over
// file_count (the struct's file_size_skew_score field, despite the name;
// see the per-file calculation it mirrors upstream).
func dataSkew(partitions []model.PartitionInfo) model.DataSkewMetrics {
	var d model.DataSkewMetrics
	if len(partitions) == 0 {
		return d
	}

	sizes := make([]float64, len(partitions))
	counts := make([]float64, len(partitions))
	var largest, smallest int64 = math.MinInt64, math.MaxInt64
	for i, p := range partitions {
		sizes[i] = float64(p.TotalSizeBytes)
		counts[i] = float64(p.FileCount)
		if p.TotalSizeBytes > largest {
			largest = p.TotalSizeBytes
		}
		if p.TotalSizeBytes < smallest {
			smallest = p.TotalSizeBytes
		}
	}

	avgSize, stdDevSize := meanAndPopStdDev(sizes)
	d.LargestPartitionSize = largest
	d.SmallestPartitionSize = smallest
	d.AvgPartitionSize = int64(avgSize)
	d.PartitionSizeStdDev = stdDevSize
	d.PartitionSkewScore = coefficientOfVariation(stdDevSize, avgSize)

	avgCount, stdDevCount := meanAndPopStdDev(counts)
	d.FileSizeSkewScore = coefficientOfVariation(stdDevCount, avgCount)

	return d
}

func meanAndPopStdDev(values []float64) (mean, stdDev float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return mean, math.Sqrt(variance)
}

func coefficientOfVariation(stdDev, mean float64) float64 {
	if mean <= 0 {
		return 0
	}
	cv := stdDev / mean
	if cv > 1.0 {
		return 1.0
	}
	return cv
}

func metadataHealth(metadataObjs []model.ObjectMeta, refs *model.ReferenceSet, tableType model.TableType) model.MetadataHealth {
	var h model.MetadataHealth
	h.MetadataFileCount = len(metadataObjs)
	for _, obj := range metadataObjs {
		h.MetadataTotalSizeBytes += obj.SizeBytes
	}
	if h.MetadataFileCount > 0 {
		h.AvgMetadataFileSize = float64(h.MetadataTotalSizeBytes) / float64(h.MetadataFileCount)
	}
	if tableType == model.TableTypeIceberg {
		h.ManifestFileCount = refs.ManifestCount
	}
	return h
}

func snapshotHealth(snapshotCount int) model.SnapshotHealth {
	return model.SnapshotHealth{
		SnapshotCount:         snapshotCount,
		SnapshotRetentionRisk: model.SnapshotRetentionRisk(snapshotCount),
	}
}
