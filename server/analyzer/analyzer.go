// Package analyzer is the top-level orchestrator: given a table's storage
// path, it drives the object store adapter, format detector, the matching
// table-format reader, the metrics aggregator, and the health scorer, and
// assembles the final HealthReport.
package analyzer

import (
	"context"
	"time"

	"github.com/gear6io/tablehealth/pkg/errors"
	"github.com/gear6io/tablehealth/server/config"
	"github.com/gear6io/tablehealth/server/delta"
	"github.com/gear6io/tablehealth/server/iceberg"
	"github.com/gear6io/tablehealth/server/metrics"
	"github.com/gear6io/tablehealth/server/model"
	"github.com/gear6io/tablehealth/server/objectstore"
	"github.com/gear6io/tablehealth/server/score"
	"github.com/gear6io/tablehealth/server/tableformat"
)

// ErrTimeout fires when the analysis exceeds its configured deadline.
var ErrTimeout = errors.AnalyzerCode("timeout")

// ErrUnsupportedType fires if the format resolver hands back a table type
// Analyze doesn't know how to dispatch; Resolve's own return values keep
// this branch unreachable today, but it gets its own code rather than
// borrowing ErrTimeout.
var ErrUnsupportedType = errors.AnalyzerCode("unsupported_type")

// Analyze runs the full pipeline against the table at storagePath and
// returns its HealthReport. It is the single entry point component callers
// (the CLI, a future RPC surface) are expected to use.
func Analyze(ctx context.Context, storagePath string, cfg *config.Config) (*model.HealthReport, error) {
	if cfg.Analyze.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Analyze.Timeout)
		defer cancel()
	}

	store, loc, err := objectstore.Open(ctx, storagePath, &cfg.Storage)
	if err != nil {
		return nil, err
	}

	listing, err := store.List(ctx, loc.Prefix)
	if err != nil {
		return nil, mapTimeout(ctx, err)
	}

	class := tableformat.Detect(listing)
	tableType, tiebreak, err := tableformat.Resolve(class, cfg.Analyze.ForceFormat)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if tiebreak {
		warnings = append(warnings, "listing matched both Delta and Iceberg markers (ambiguous); Delta was selected by the deterministic tiebreak")
	}

	switch tableType {
	case model.TableTypeDelta:
		refs, deltaWarnings, err := delta.Read(ctx, store, loc)
		if err != nil {
			return nil, mapTimeout(ctx, err)
		}
		return finish(storagePath, tableType, listing, refs, append(warnings, deltaWarnings...))
	case model.TableTypeIceberg:
		result, err := iceberg.Read(ctx, store, loc)
		if err != nil {
			return nil, mapTimeout(ctx, err)
		}
		return finish(storagePath, tableType, listing, result.Refs, append(warnings, result.Warnings...))
	default:
		return nil, errors.New(ErrUnsupportedType, "unsupported table type", nil).AddContext("table_type", string(tableType))
	}
}

func finish(storagePath string, tableType model.TableType, listing []model.ObjectMeta, refs *model.ReferenceSet, warnings []string) (*model.HealthReport, error) {
	m := metrics.Aggregate(listing, refs, tableType)
	healthScore := score.Score(m)

	return &model.HealthReport{
		TablePath:         storagePath,
		TableType:         tableType,
		AnalysisTimestamp: time.Now().UTC(),
		Metrics:           m,
		HealthScore:       healthScore,
		Warnings:          warnings,
	}, nil
}

// mapTimeout turns a context deadline exceeded into ErrTimeout, otherwise
// passing the original error through unchanged.
func mapTimeout(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errors.New(ErrTimeout, "analysis exceeded its configured timeout", err)
	}
	return err
}
