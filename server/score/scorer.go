// Package score computes a table's scalar health score and recommendations
// from its aggregated HealthMetrics, via a deterministic weighted penalty
// model.
package score

import (
	"github.com/gear6io/tablehealth/server/model"
)

const (
	weightUnreferenced     = 0.30
	weightSmallFiles       = 0.20
	weightVeryLargeFiles   = 0.10
	penaltyOverPartitioned = 0.10
	penaltyUnderPartitioned = 0.05
	weightPartitionSkew    = 0.15
	weightFileSizeSkew     = 0.10
	penaltyMetadataBloat   = 0.05
	weightSnapshotRetention = 0.10
	weightDeletionVector   = 0.15
	weightSchemaInstability = 0.20
	weightTimeTravelCost   = 0.10
	weightTimeTravelRetention = 0.05
	weightDataQuality      = 0.15
	weightConstraintRisk   = 0.10
	weightCompaction       = 0.10

	overPartitionedThreshold  = 100
	underPartitionedThreshold = 5
	metadataBloatThresholdBytes = 100 * 1024 * 1024

	smallFileRecommendThreshold        = 0.30
	unreferencedRatioRecommendThreshold = 0.05
	unreferencedSizeRecommendThreshold  = 1024 * 1024 * 1024
	snapshotCountRecommendThreshold     = 100
)

// Score computes the clamped [0,1] health score for m and appends its
// synthesized recommendations onto m.Recommendations (which is reset
// first, so Score is idempotent).
func Score(m *model.HealthMetrics) float64 {
	m.Recommendations = nil

	total := m.TotalFiles + len(m.UnreferencedFiles)
	u := ratio(len(m.UnreferencedFiles), total)
	s := ratio(m.FileSizeDistribution.SmallFiles, m.TotalFiles)
	v := ratio(m.FileSizeDistribution.VeryLargeFiles, m.TotalFiles)

	var fp float64
	if m.PartitionCount > 0 {
		fp = float64(m.TotalFiles) / float64(m.PartitionCount)
	}

	result := 1.0
	result -= weightUnreferenced * u
	result -= weightSmallFiles * s
	result -= weightVeryLargeFiles * v

	if m.PartitionCount > 0 && fp > overPartitionedThreshold {
		result -= penaltyOverPartitioned
	}
	if m.PartitionCount > 0 && fp < underPartitionedThreshold {
		result -= penaltyUnderPartitioned
	}

	result -= weightPartitionSkew * m.DataSkew.PartitionSkewScore
	result -= weightFileSizeSkew * m.DataSkew.FileSizeSkewScore

	if m.MetadataHealth.MetadataTotalSizeBytes > metadataBloatThresholdBytes {
		result -= penaltyMetadataBloat
	}

	result -= weightSnapshotRetention * m.SnapshotHealth.SnapshotRetentionRisk

	if dv := m.DeletionVectorMetrics; dv != nil {
		result -= weightDeletionVector * dv.DeletionVectorImpactScore
	}
	if se := m.SchemaEvolution; se != nil {
		result -= weightSchemaInstability * (1 - se.SchemaStabilityScore)
	}
	if tt := m.TimeTravelMetrics; tt != nil {
		result -= weightTimeTravelCost * tt.StorageCostImpactScore
		result -= weightTimeTravelRetention * (1 - tt.RetentionEfficiencyScore)
	}
	if tc := m.TableConstraints; tc != nil {
		result -= weightDataQuality * (1 - tc.DataQualityScore)
		result -= weightConstraintRisk * tc.ConstraintViolationRisk
	}
	if fc := m.FileCompaction; fc != nil {
		result -= weightCompaction * (1 - fc.CompactionOpportunityScore)
	}

	result = clamp01(result)
	m.HealthScore = result

	m.Recommendations = recommendations(m, s, u, fp)

	return result
}

func ratio(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// recommendations synthesizes the textual advice threshold rules document.
func recommendations(m *model.HealthMetrics, s, u, fp float64) []string {
	var recs []string

	if s > smallFileRecommendThreshold {
		recs = append(recs, "compact small files")
	}
	if u > unreferencedRatioRecommendThreshold && m.UnreferencedSizeBytes > unreferencedSizeRecommendThreshold {
		recs = append(recs, "remove unreferenced files")
	}
	if m.SnapshotHealth.SnapshotCount > snapshotCountRecommendThreshold {
		recs = append(recs, "expire old snapshots")
	}
	if m.PartitionCount > 1 && fp < underPartitionedThreshold {
		recs = append(recs, "reduce partition granularity")
	}

	return recs
}
