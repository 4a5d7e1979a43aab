// Package tableformat classifies a table's backing object listing as Delta
// Lake, Iceberg, ambiguous, or unknown, without reading any file content.
package tableformat

import (
	"strings"

	"github.com/gear6io/tablehealth/pkg/errors"
	"github.com/gear6io/tablehealth/server/model"
)

// ErrUnknown fires when a listing matches neither format's marker.
var ErrUnknown = errors.FormatCode("unknown")

// Classification is the total result of Detect: every listing lands in
// exactly one of these four buckets.
type Classification string

const (
	ClassDelta     Classification = "delta"
	ClassIceberg   Classification = "iceberg"
	ClassAmbiguous Classification = "ambiguous"
	ClassUnknown   Classification = "unknown"
)

const (
	deltaLogMarker    = "_delta_log/"
	icebergMetaSuffix = "metadata.json"
)

// Detect classifies a listing. It never errors: Unknown is itself a valid
// classification, left for the caller (the orchestrator) to turn into a
// terminal AnalysisError.
func Detect(objects []model.ObjectMeta) Classification {
	hasDelta := false
	hasIceberg := false
	for _, obj := range objects {
		if isDeltaCommit(obj.Key) {
			hasDelta = true
		}
		if isIcebergMetadata(obj.Key) {
			hasIceberg = true
		}
		if hasDelta && hasIceberg {
			break
		}
	}

	switch {
	case hasDelta && hasIceberg:
		return ClassAmbiguous
	case hasDelta:
		return ClassDelta
	case hasIceberg:
		return ClassIceberg
	default:
		return ClassUnknown
	}
}

// Resolve turns a Classification into the concrete table type C3/C4 should
// read, applying the deterministic Ambiguous tiebreak (Delta wins) and
// rejecting Unknown. forced, when non-empty ("delta" or "iceberg"), overrides
// the classification entirely. The bool return reports whether a tiebreak
// warning should be attached to the report.
func Resolve(class Classification, forced string) (model.TableType, bool, error) {
	if forced == string(model.TableTypeDelta) {
		return model.TableTypeDelta, false, nil
	}
	if forced == string(model.TableTypeIceberg) {
		return model.TableTypeIceberg, false, nil
	}

	switch class {
	case ClassDelta:
		return model.TableTypeDelta, false, nil
	case ClassIceberg:
		return model.TableTypeIceberg, false, nil
	case ClassAmbiguous:
		return model.TableTypeDelta, true, nil
	default:
		return "", false, errors.New(ErrUnknown, "could not detect a Delta Lake or Iceberg table at this location", nil).
			AddSuggestion("check that the table path points at the table root, not a subdirectory").
			AddSuggestion("pass --format to force detection")
	}
}

// isDeltaCommit reports whether key is a Delta Lake commit file: it must
// live under a _delta_log/ directory and end in .json. Checkpoint files
// (.parquet) do not match.
func isDeltaCommit(key string) bool {
	return strings.Contains(key, deltaLogMarker) && strings.HasSuffix(key, ".json")
}

// isIcebergMetadata reports whether key is an Iceberg table metadata file.
// Iceberg writes v<N>.metadata.json or <uuid>.metadata.json.
func isIcebergMetadata(key string) bool {
	return strings.HasSuffix(key, icebergMetaSuffix)
}
