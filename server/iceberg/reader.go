// Package iceberg reconstructs an Apache Iceberg table's live reference set
// from its metadata.json, manifest-list, and manifest chain.
package iceberg

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hamba/avro/v2/ocf"

	"github.com/gear6io/tablehealth/pkg/errors"
	"github.com/gear6io/tablehealth/server/model"
	"github.com/gear6io/tablehealth/server/objectstore"
)

var (
	ErrNoMetadata        = errors.IcebergCode("no_metadata")
	ErrDanglingReference = errors.IcebergCode("dangling_reference")
)

const metadataDir = "metadata/"

// Result is what Read produces: the reference set plus non-fatal warnings
// about dangling references from historical (non-current) snapshots.
type Result struct {
	Refs     *model.ReferenceSet
	Warnings []string
}

// tableMetadata is the subset of metadata.json this reader needs.
type tableMetadata struct {
	CurrentSnapshotID int64          `json:"current-snapshot-id"`
	Snapshots         []snapshotJSON `json:"snapshots"`
}

type snapshotJSON struct {
	SnapshotID  int64  `json:"snapshot-id"`
	ManifestList string `json:"manifest-list"`
}

// manifestListEntry is a row of the manifest-list Avro file.
type manifestListEntry struct {
	ManifestPath string `avro:"manifest_path"`
}

// manifestEntry is a row of a manifest Avro file.
type manifestEntry struct {
	Status   int32        `avro:"status"`
	DataFile dataFileJSON `avro:"data_file"`
}

type dataFileJSON struct {
	FilePath        string                 `avro:"file_path"`
	FileSizeInBytes int64                  `avro:"file_size_in_bytes"`
	Partition       map[string]interface{} `avro:"partition"`
}

const (
	statusExisting = 0
	statusAdded    = 1
	statusDeleted  = 2
)

// Read loads the latest metadata.json under loc, follows the current
// snapshot's manifest-list and manifests, and returns the resulting
// reference set.
func Read(ctx context.Context, store objectstore.Store, loc objectstore.TableLocation) (*Result, error) {
	metaPrefix := loc.Prefix + metadataDir

	objs, err := store.List(ctx, metaPrefix)
	if err != nil {
		return nil, err
	}

	metaKey, err := latestMetadataFile(objs, metaPrefix)
	if err != nil {
		return nil, err
	}

	meta, err := readTableMetadata(ctx, store, metaKey)
	if err != nil {
		return nil, err
	}

	refs := model.NewReferenceSet()
	refs.SnapshotCount = len(meta.Snapshots)

	var warnings []string
	manifestPaths := make(map[string]struct{})

	for _, snap := range meta.Snapshots {
		isCurrent := snap.SnapshotID == meta.CurrentSnapshotID
		if snap.ManifestList == "" {
			continue
		}

		// Only the current snapshot's manifest-list is actually fetched
		// for counting and reference-set construction. Historical
		// snapshots are probed here only far enough to surface a
		// dangling-reference warning; their manifest contents are never
		// read or counted, per the "current snapshot only" decision.
		if !isCurrent {
			if rc, err := store.Get(ctx, resolveManifestPath(loc, snap.ManifestList)); err != nil {
				warnings = append(warnings, fmt.Sprintf("historical snapshot %d: manifest-list %s unreadable: %v", snap.SnapshotID, snap.ManifestList, err))
			} else {
				rc.Close()
			}
			continue
		}

		entries, err := readManifestList(ctx, store, loc, snap.ManifestList)
		if err != nil {
			return nil, errors.New(ErrDanglingReference, "current snapshot's manifest-list is unreadable", err).
				AddContext("manifest_list", snap.ManifestList)
		}

		for _, entry := range entries {
			manifestPaths[entry.ManifestPath] = struct{}{}
		}

		manifestResults, err := fetchManifestsConcurrently(ctx, store, loc, entries)
		if err != nil {
			return nil, err
		}
		for _, df := range manifestResults {
			applyDataFile(df, loc, refs)
		}
	}

	refs.ManifestCount = len(manifestPaths)

	return &Result{Refs: refs, Warnings: warnings}, nil
}

// latestMetadataFile picks the metadata.json with the highest version
// number ("v<N>.metadata.json"), falling back to the most recently
// modified file when names don't follow that convention (UUID-named
// metadata files written by some engines).
func latestMetadataFile(objs []model.ObjectMeta, metaPrefix string) (string, error) {
	var best string
	bestVersion := -1
	var bestModified int64

	for _, obj := range objs {
		name := strings.TrimPrefix(obj.Key, metaPrefix)
		if !strings.HasSuffix(name, ".metadata.json") {
			continue
		}

		if v, ok := versionOf(name); ok {
			if v > bestVersion {
				bestVersion = v
				best = obj.Key
			}
			continue
		}

		if bestVersion == -1 && obj.LastModified.Unix() >= bestModified {
			bestModified = obj.LastModified.Unix()
			best = obj.Key
		}
	}

	if best == "" {
		return "", errors.New(ErrNoMetadata, "no metadata.json found under the table's metadata/ prefix", nil).
			AddContext("prefix", metaPrefix)
	}
	return best, nil
}

// versionOf extracts N from "v<N>.metadata.json".
func versionOf(name string) (int, bool) {
	if !strings.HasPrefix(name, "v") {
		return 0, false
	}
	rest := strings.TrimPrefix(name, "v")
	digits, _, found := strings.Cut(rest, ".")
	if !found {
		return 0, false
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return v, true
}

func readTableMetadata(ctx context.Context, store objectstore.Store, key string) (*tableMetadata, error) {
	rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, errors.New(ErrNoMetadata, "failed to fetch metadata.json", err).AddContext("key", key)
	}
	defer rc.Close()

	var meta tableMetadata
	if err := json.NewDecoder(rc).Decode(&meta); err != nil {
		return nil, errors.New(ErrNoMetadata, "failed to parse metadata.json", err).AddContext("key", key)
	}
	return &meta, nil
}

// resolveManifestPath turns a manifest(-list) path recorded in Iceberg
// metadata (which may be a bare relative path or a full storage URI) into
// the object key used against loc's bucket. A relative path is taken as
// relative to the table root (loc.Prefix); a path with a leading slash is
// taken as a key from the bucket root.
func resolveManifestPath(loc objectstore.TableLocation, path string) string {
	if idx := strings.Index(path, "://"); idx != -1 {
		rest := path[idx+3:]
		if _, after, ok := strings.Cut(rest, "/"); ok {
			return after
		}
	}
	if strings.HasPrefix(path, "/") {
		return strings.TrimPrefix(path, "/")
	}
	return loc.Prefix + path
}

func readManifestList(ctx context.Context, store objectstore.Store, loc objectstore.TableLocation, path string) ([]manifestListEntry, error) {
	rc, err := store.Get(ctx, resolveManifestPath(loc, path))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dec, err := ocf.NewDecoder(rc)
	if err != nil {
		return nil, err
	}

	var entries []manifestListEntry
	for dec.HasNext() {
		var rec manifestListEntry
		if err := dec.Decode(&rec); err != nil {
			return nil, err
		}
		entries = append(entries, rec)
	}
	return entries, nil
}

func readManifest(ctx context.Context, store objectstore.Store, loc objectstore.TableLocation, path string) ([]manifestEntry, error) {
	rc, err := store.Get(ctx, resolveManifestPath(loc, path))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dec, err := ocf.NewDecoder(rc)
	if err != nil {
		return nil, err
	}

	var entries []manifestEntry
	for dec.HasNext() {
		var rec manifestEntry
		if err := dec.Decode(&rec); err != nil {
			return nil, err
		}
		entries = append(entries, rec)
	}
	return entries, nil
}

// applyDataFile records a live (ADDED or EXISTING) data file into refs.
// DELETED rows are filtered out before this is called (see
// fetchManifestsConcurrently).
func applyDataFile(df dataFileJSON, loc objectstore.TableLocation, refs *model.ReferenceSet) {
	key := resolveManifestPath(loc, df.FilePath)
	refs.Files[key] = model.ReferencedFile{
		SizeBytes:       df.FileSizeInBytes,
		PartitionValues: stringifyPartition(df.Partition),
	}
}

// stringifyPartition renders an Iceberg partition struct's Avro-decoded
// values (which may be ints, strings, or dates depending on the transform)
// as strings for uniform grouping downstream.
func stringifyPartition(partition map[string]interface{}) map[string]string {
	if partition == nil {
		return nil
	}
	keys := make([]string, 0, len(partition))
	for k := range partition {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(partition))
	for _, k := range keys {
		out[k] = fmt.Sprintf("%v", partition[k])
	}
	return out
}
