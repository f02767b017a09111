package kv

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEngine(t *testing.T) {
	table := map[string]func(t *testing.T, dir string){
		"basic get/set/remove":               testBasicGetSetRemove,
		"durability across reopen":           testDurabilityAcrossReopen,
		"remove then remove again":           testRemoveAbsent,
		"remove absent leaves log untouched": testRemoveAbsentUntouched,
		"overwrite triggers compaction":      testOverwriteTriggersCompaction,
		"two keys two reopenings":            testTwoKeysTwoReopenings,
		"replay is idempotent":               testReplayIdempotent,
	}
	for name, fn := range table {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			fn(t, dir)
		})
	}
}

// scenario 1
func testBasicGetSetRemove(t *testing.T, dir string) {
	e, err := Open(Config{Directory: dir})
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Set("a", "1"))

	v, ok, err := e.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)

	_, ok, err = e.Get("b")
	require.NoError(t, err)
	require.False(t, ok)
}

// scenario 2 / P2
func testDurabilityAcrossReopen(t *testing.T, dir string) {
	e, err := Open(Config{Directory: dir})
	require.NoError(t, err)
	require.NoError(t, e.Set("a", "1"))
	require.NoError(t, e.Set("a", "2"))
	require.NoError(t, e.Close())

	e2, err := Open(Config{Directory: dir})
	require.NoError(t, err)
	defer e2.Close()

	v, ok, err := e2.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)
}

// scenario 3
func testRemoveAbsent(t *testing.T, dir string) {
	e, err := Open(Config{Directory: dir})
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.Set("a", "1"))
	require.NoError(t, e.Remove("a"))

	_, ok, err := e.Get("a")
	require.NoError(t, err)
	require.False(t, ok)

	err = e.Remove("a")
	require.ErrorIs(t, err, ErrKeyNotFound)
}

// P6: remove of an absent key must not touch any segment file on disk.
func testRemoveAbsentUntouched(t *testing.T, dir string) {
	e, err := Open(Config{Directory: dir})
	require.NoError(t, err)
	require.NoError(t, e.Set("a", "1"))
	require.NoError(t, e.Close())

	before, err := snapshotSegments(dir)
	require.NoError(t, err)

	e2, err := Open(Config{Directory: dir})
	require.NoError(t, err)
	defer e2.Close()

	err = e2.Remove("does-not-exist")
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, e2.Close())

	after, err := snapshotSegments(dir)
	require.NoError(t, err)
	// Open() always creates a fresh active segment (I4 / §9), so the set
	// of segment ids legitimately grows across opens; what must not
	// change is the content of every segment that existed before.
	for id, contents := range before {
		require.Equal(t, contents, after[id], "segment %d must be byte-for-byte unchanged", id)
	}
}

// scenario 4 / P4. The threshold is set well below the 1 MiB default so the
// scenario's "total written bytes exceeds the threshold" precondition is
// reached deterministically within 10,000 small records, without the test
// depending on the exact byte size of the JSON encoding.
func testOverwriteTriggersCompaction(t *testing.T, dir string) {
	e, err := Open(Config{Directory: dir, CompactionThresholdBytes: 512})
	require.NoError(t, err)
	defer e.Close()

	for i := 1; i <= 10_000; i++ {
		require.NoError(t, e.Set("k", fmt.Sprintf("%d", i)))
	}

	v, ok, err := e.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "10000", v)

	ids, _, err := listSegmentIDs(dir)
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	// segment 1 was the first active segment; it only leaves the directory
	// when a compaction removes it.
	require.Greater(t, ids[0], uint64(1))

	// the engine's reader table and the directory's on-disk segments must
	// agree exactly: nothing below the last compaction's id survives on
	// disk, and the engine never references a segment it can't read (I5).
	onDisk := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		onDisk[id] = true
	}
	require.Len(t, e.readers, len(ids))
	for id := range e.readers {
		require.True(t, onDisk[id], "engine holds a reader for segment %d not present on disk", id)
	}
}

// scenario 5
func testTwoKeysTwoReopenings(t *testing.T, dir string) {
	e, err := Open(Config{Directory: dir})
	require.NoError(t, err)
	require.NoError(t, e.Set("x", "X"))
	require.NoError(t, e.Set("y", "Y"))
	require.NoError(t, e.Close())

	e2, err := Open(Config{Directory: dir})
	require.NoError(t, err)
	require.NoError(t, e2.Remove("x"))
	require.NoError(t, e2.Close())

	e3, err := Open(Config{Directory: dir})
	require.NoError(t, err)
	defer e3.Close()

	_, ok, err := e3.Get("x")
	require.NoError(t, err)
	require.False(t, ok)

	v, ok, err := e3.Get("y")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Y", v)
}

// P5: reopening twice with no intervening operations yields identical
// index content.
func testReplayIdempotent(t *testing.T, dir string) {
	e, err := Open(Config{Directory: dir})
	require.NoError(t, err)
	require.NoError(t, e.Set("a", "1"))
	require.NoError(t, e.Set("b", "2"))
	require.NoError(t, e.Remove("a"))
	require.NoError(t, e.Close())

	e2, err := Open(Config{Directory: dir})
	require.NoError(t, err)
	snapshot1 := copyIndex(e2.idx)
	require.NoError(t, e2.Close())

	e3, err := Open(Config{Directory: dir})
	require.NoError(t, err)
	defer e3.Close()
	snapshot2 := copyIndex(e3.idx)

	require.Equal(t, snapshot1, snapshot2)
}

func copyIndex(i *index) map[string]extent {
	out := make(map[string]extent, len(i.entries))
	for k, v := range i.entries {
		out[k] = v
	}
	return out
}

func snapshotSegments(dir string) (map[uint64][]byte, error) {
	ids, _, err := listSegmentIDs(dir)
	if err != nil {
		return nil, err
	}
	out := make(map[uint64][]byte, len(ids))
	for _, id := range ids {
		b, err := os.ReadFile(segmentPath(dir, id))
		if err != nil {
			return nil, err
		}
		out[id] = b
	}
	return out, nil
}
