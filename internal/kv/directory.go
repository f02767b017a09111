package kv

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

var segmentNamePattern = regexp.MustCompile(`^(0|[1-9][0-9]*)\.log$`)

// segmentPath returns the path of the log file for the given segment id.
func segmentPath(dir string, id uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%d.log", id))
}

// listSegmentIDs scans dir for files matching <digits>.log and returns their
// numeric ids in ascending order, along with the count of directory entries
// that didn't match and were ignored, per the on-disk layout contract.
func listSegmentIDs(dir string) (ids []uint64, ignored int, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, &IOError{Op: "read segment directory", Err: err}
	}

	ids = make([]uint64, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !segmentNamePattern.MatchString(e.Name()) {
			ignored++
			continue
		}
		idStr := e.Name()[:len(e.Name())-len(".log")]
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			// the pattern guarantees this parses; defensive only.
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, ignored, nil
}

// openSegmentWriter creates (or reopens) the segment file for append+read.
func openSegmentWriter(dir string, id uint64) (*os.File, error) {
	f, err := os.OpenFile(segmentPath(dir, id), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, &IOError{Op: fmt.Sprintf("open segment %d for write", id), Err: err}
	}
	return f, nil
}

// openSegmentReader opens an existing segment file for read-only access.
func openSegmentReader(dir string, id uint64) (*os.File, error) {
	f, err := os.Open(segmentPath(dir, id))
	if err != nil {
		return nil, &IOError{Op: fmt.Sprintf("open segment %d for read", id), Err: err}
	}
	return f, nil
}

// unlinkSegment best-effort deletes the log file for id. A missing file is
// not an error: compaction may be retried after a partial failure.
func unlinkSegment(dir string, id uint64) error {
	if err := os.Remove(segmentPath(dir, id)); err != nil && !os.IsNotExist(err) {
		return &IOError{Op: fmt.Sprintf("unlink segment %d", id), Err: err}
	}
	return nil
}
