package iceberg

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/gear6io/tablehealth/pkg/errors"
	"github.com/gear6io/tablehealth/server/objectstore"
)

// maxManifestFanOut bounds how many manifests are fetched concurrently for
// the current snapshot, per the recommended cap in the concurrency model.
const maxManifestFanOut = 16

// fetchManifestsConcurrently downloads every manifest in entries with
// bounded fan-out, then merges results deterministically by sorting on
// manifest path, so aggregation order never depends on fetch completion
// order.
func fetchManifestsConcurrently(ctx context.Context, store objectstore.Store, loc objectstore.TableLocation, entries []manifestListEntry) ([]dataFileJSON, error) {
	sorted := make([]manifestListEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ManifestPath < sorted[j].ManifestPath })

	results := make([][]manifestEntry, len(sorted))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxManifestFanOut)

	for i, entry := range sorted {
		i, entry := i, entry
		g.Go(func() error {
			rows, err := readManifest(gctx, store, loc, entry.ManifestPath)
			if err != nil {
				return errors.New(ErrDanglingReference, "current snapshot's manifest is unreadable", err).
					AddContext("manifest", entry.ManifestPath)
			}
			results[i] = rows
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []dataFileJSON
	for _, rows := range results {
		for _, row := range rows {
			if row.Status == statusDeleted {
				continue
			}
			out = append(out, row.DataFile)
		}
	}
	return out, nil
}
