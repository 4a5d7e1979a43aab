// Package delta reconstructs a Delta Lake table's live reference set by
// replaying its _delta_log/ transaction log, optionally seeded from the
// latest checkpoint.
package delta

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/gear6io/tablehealth/pkg/errors"
	"github.com/gear6io/tablehealth/server/model"
	"github.com/gear6io/tablehealth/server/objectstore"
)

var (
	ErrGapAtVersion     = errors.DeltaCode("gap_at_version")
	ErrCheckpointCorrupt = errors.DeltaCode("checkpoint_corrupt")
)

const deltaLogDir = "_delta_log/"

var (
	commitNameRe     = regexp.MustCompile(`^(\d{20})\.json$`)
	checkpointNameRe = regexp.MustCompile(`^(\d{20})\.checkpoint(?:\.\d+\.\d+)?\.parquet$`)
)

// Read lists loc's _delta_log/ prefix, replays the transaction log, and
// returns the resulting reference set. warnings carries non-fatal anomalies
// (malformed commit lines, unknown action types) the caller should surface
// but not fail on.
func Read(ctx context.Context, store objectstore.Store, loc objectstore.TableLocation) (*model.ReferenceSet, []string, error) {
	logPrefix := loc.Prefix + deltaLogDir

	objs, err := store.List(ctx, logPrefix)
	if err != nil {
		return nil, nil, err
	}

	commitVersions, checkpointVersions, checkpointParts := indexLogFiles(objs, logPrefix)
	if len(commitVersions) == 0 {
		return nil, nil, errors.New(ErrGapAtVersion, "delta log contains no commit files", nil).
			AddContext("prefix", logPrefix)
	}
	sort.Slice(commitVersions, func(i, j int) bool { return commitVersions[i] < commitVersions[j] })
	maxCommit := commitVersions[len(commitVersions)-1]

	checkpointVersion := latestCheckpointAtOrBelow(checkpointVersions, maxCommit)

	refs := model.NewReferenceSet()
	var warnings []string

	if checkpointVersion >= 0 {
		parts := checkpointParts[checkpointVersion]
		sort.Strings(parts)
		for _, key := range parts {
			if err := readCheckpointParquet(ctx, store, loc, key, refs); err != nil {
				return nil, nil, errors.New(ErrCheckpointCorrupt, "failed to read delta checkpoint", err).
					AddContext("key", key)
			}
		}
	}

	startVersion := 0
	if checkpointVersion >= 0 {
		startVersion = checkpointVersion + 1
	}

	present := make(map[int]bool, len(commitVersions))
	for _, v := range commitVersions {
		present[v] = true
	}
	for v := startVersion; v <= maxCommit; v++ {
		if !present[v] {
			return nil, nil, errors.New(ErrGapAtVersion, fmt.Sprintf("missing commit at version %d", v), nil).
				AddContext("version", v)
		}
	}

	replayVersions := make([]int, 0, len(commitVersions))
	for _, v := range commitVersions {
		if v >= startVersion {
			replayVersions = append(replayVersions, v)
		}
	}
	sort.Ints(replayVersions)

	for _, v := range replayVersions {
		key := fmt.Sprintf("%s%020d.json", logPrefix, v)
		w, err := replayCommit(ctx, store, loc, key, refs)
		if err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, w...)
	}

	refs.SnapshotCount = len(commitVersions)
	return refs, warnings, nil
}

// indexLogFiles partitions the _delta_log/ listing into commit versions,
// the set of versions that have a checkpoint, and the object keys making up
// each checkpoint (more than one for multi-part checkpoints).
func indexLogFiles(objs []model.ObjectMeta, logPrefix string) (commits []int, checkpoints []int, parts map[int][]string) {
	parts = make(map[int][]string)
	seenCheckpoint := make(map[int]bool)
	for _, obj := range objs {
		name := strings.TrimPrefix(obj.Key, logPrefix)
		if m := commitNameRe.FindStringSubmatch(name); m != nil {
			v, _ := strconv.Atoi(m[1])
			commits = append(commits, v)
			continue
		}
		if m := checkpointNameRe.FindStringSubmatch(name); m != nil {
			v, _ := strconv.Atoi(m[1])
			parts[v] = append(parts[v], obj.Key)
			if !seenCheckpoint[v] {
				checkpoints = append(checkpoints, v)
				seenCheckpoint[v] = true
			}
		}
	}
	return commits, checkpoints, parts
}

func latestCheckpointAtOrBelow(checkpoints []int, maxVersion int) int {
	best := -1
	for _, v := range checkpoints {
		if v <= maxVersion && v > best {
			best = v
		}
	}
	return best
}

// deltaAction is the union of the action record shapes the reader cares
// about; unrecognized top-level keys (protocol, txn, commitInfo, cdc) are
// simply absent from this struct and therefore skipped.
type deltaAction struct {
	Add *struct {
		Path             string            `json:"path"`
		Size             int64             `json:"size"`
		PartitionValues  map[string]string `json:"partitionValues"`
		ModificationTime int64             `json:"modificationTime"`
	} `json:"add"`
	Remove *struct {
		Path string `json:"path"`
	} `json:"remove"`
}

// replayCommit applies one commit JSON's add/remove actions to refs.
func replayCommit(ctx context.Context, store objectstore.Store, loc objectstore.TableLocation, key string, refs *model.ReferenceSet) ([]string, error) {
	rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var warnings []string
	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(line, &raw); err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped malformed action line in %s: %v", key, err))
			continue
		}
		for name := range raw {
			switch name {
			case "add", "remove", "metaData", "protocol", "txn", "commitInfo", "cdc":
			default:
				warnings = append(warnings, fmt.Sprintf("ignored unknown action type %q in %s", name, key))
			}
		}
		var action deltaAction
		if err := json.Unmarshal(line, &action); err != nil {
			warnings = append(warnings, fmt.Sprintf("skipped malformed action line in %s: %v", key, err))
			continue
		}
		applyAction(action, loc, refs)
	}
	if err := scanner.Err(); err != nil {
		return warnings, errors.New(ErrCheckpointCorrupt, "failed to scan commit file", err).AddContext("key", key)
	}
	return warnings, nil
}

func applyAction(action deltaAction, loc objectstore.TableLocation, refs *model.ReferenceSet) {
	switch {
	case action.Add != nil:
		fullKey := loc.Prefix + action.Add.Path
		refs.Files[fullKey] = model.ReferencedFile{
			SizeBytes:       action.Add.Size,
			PartitionValues: action.Add.PartitionValues,
		}
	case action.Remove != nil:
		fullKey := loc.Prefix + action.Remove.Path
		delete(refs.Files, fullKey)
	}
}

// readCheckpointParquet loads one checkpoint Parquet file and seeds refs
// from its "add" column; pqarrow surfaces that column as a struct with
// path, size, and partitionValues children (see extractAddRows).
func readCheckpointParquet(ctx context.Context, store objectstore.Store, loc objectstore.TableLocation, key string, refs *model.ReferenceSet) error {
	rc, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	data, err := readAllSeekable(rc)
	if err != nil {
		return err
	}

	pf, err := file.NewParquetReader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer pf.Close()

	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return err
	}

	table, err := reader.ReadTable(ctx)
	if err != nil {
		return err
	}
	defer table.Release()

	return extractAddRows(table, loc, refs)
}

func readAllSeekable(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}
