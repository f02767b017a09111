// Package kv implements the log-structured key-value storage engine: the
// on-disk segment layout, the in-memory index, and the compaction process
// that keeps the two in sync as described by C1-C5.
package kv

import (
	"errors"
	"io"
	"sync"
)

// Engine coordinates the record codec, segment directory, and index to
// serve Get/Set/Remove against a single store directory. It is
// single-threaded and not reentrant: exactly one caller may be inside
// Get/Set/Remove at a time, enforced here with a mutex so an embedding
// server only has to serialize connections, not engine calls.
type Engine struct {
	mu  sync.Mutex
	dir string
	cfg Config

	idx     *index
	readers map[uint64]segmentReader
	active  *activeSegment

	uncompactedBytes uint64
}

// Open reconstructs the index by replaying every pre-existing segment in
// ascending id order, then opens a fresh active segment with id
// max(existing)+1 (or 1 if the directory is empty), per I4 and the Open
// Question resolution in §9: a new id is claimed on every open, whether or
// not compaction is needed.
func Open(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	if cfg.Directory == "" {
		return nil, errors.New("kv: Directory is required")
	}

	e := &Engine{
		dir:     cfg.Directory,
		cfg:     cfg,
		idx:     newIndex(),
		readers: make(map[uint64]segmentReader),
	}

	ids, ignored, err := listSegmentIDs(cfg.Directory)
	if err != nil {
		return nil, err
	}
	if ignored > 0 {
		cfg.Logger.Warnw("ignored non-matching entries in segment directory", "dir", cfg.Directory, "ignored", ignored)
	}

	var maxID uint64
	for _, id := range ids {
		if err := e.replaySegment(id); err != nil {
			e.closeAll()
			return nil, err
		}
		if id > maxID {
			maxID = id
		}
	}

	newActiveID := maxID + 1
	if len(ids) == 0 {
		newActiveID = 1
	}
	active, err := newActiveSegment(cfg.Directory, newActiveID)
	if err != nil {
		e.closeAll()
		return nil, err
	}
	e.active = active
	e.readers[newActiveID] = active

	cfg.Logger.Infow("engine opened", "dir", cfg.Directory, "segments_replayed", len(ids), "active_segment", newActiveID)
	return e, nil
}

// replaySegment streams every record out of segment id and folds it into
// the index, per the replay algorithm in §4.4.
func (e *Engine) replaySegment(id uint64) error {
	r, err := openMmapSegment(e.dir, id)
	if err != nil {
		return err
	}
	e.readers[id] = r

	f, err := openSegmentReader(e.dir, id)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := newRecordDecoder(f)
	var pos int64
	for {
		rec, next, err := dec.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &CorruptLogError{SegmentID: id, Offset: pos, Reason: err.Error()}
		}
		ext := extent{segmentID: id, offset: pos, length: next - pos}
		switch rec.Type {
		case recordSet:
			if old, existed := e.idx.insert(rec.Key, ext); existed {
				e.uncompactedBytes += uint64(old.length)
			}
		case recordRemove:
			if old, existed := e.idx.remove(rec.Key); existed {
				e.uncompactedBytes += uint64(old.length)
			}
		}
		pos = next
	}
	return nil
}

// Get consults the index and, if present, reads the extent's bytes from the
// owning segment's reader. A Remove record at that extent, or a missing
// reader for the owning segment, is a fatal CorruptLogError (I5).
func (e *Engine) Get(key string) (string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ext, ok := e.idx.get(key)
	if !ok {
		return "", false, nil
	}

	r, ok := e.readers[ext.segmentID]
	if !ok {
		return "", false, &CorruptLogError{SegmentID: ext.segmentID, Offset: ext.offset, Reason: "no reader for segment referenced by index"}
	}

	buf := make([]byte, ext.length)
	if _, err := r.ReadAt(buf, ext.offset); err != nil {
		return "", false, err
	}

	dec := newRecordDecoder(newByteReader(buf))
	rec, _, err := dec.next()
	if err != nil {
		return "", false, &CorruptLogError{SegmentID: ext.segmentID, Offset: ext.offset, Reason: err.Error()}
	}
	if rec.Type != recordSet || rec.Key != key {
		return "", false, &CorruptLogError{SegmentID: ext.segmentID, Offset: ext.offset, Reason: "extent does not resolve to a matching Set record"}
	}
	return rec.Value, true, nil
}

// Set appends Set(key, value) to the active segment, flushes it, and
// updates the index. Overwriting with an identical value still writes a
// new record and stales the old one, per §4.4's edge cases.
func (e *Engine) Set(key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ext, err := e.appendRecord(setRecord(key, value))
	if err != nil {
		return err
	}
	if old, existed := e.idx.insert(key, ext); existed {
		e.uncompactedBytes += uint64(old.length)
	}
	return e.maybeCompact()
}

// Remove fails with ErrKeyNotFound without touching the log if key has no
// index entry; otherwise it appends Remove(key) and then removes the entry.
func (e *Engine) Remove(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	old, existed := e.idx.get(key)
	if !existed {
		return ErrKeyNotFound
	}

	if _, err := e.appendRecord(removeRecord(key)); err != nil {
		// the index entry is only dropped once the Remove record has been
		// appended and flushed, so a failed append leaves the key readable
		// as before and the caller sees an Io/CorruptLog failure.
		return err
	}
	e.idx.remove(key)
	e.uncompactedBytes += uint64(old.length)
	return e.maybeCompact()
}

// appendRecord encodes rec, appends it to the active segment, and flushes
// before returning, so durability is observable at the call boundary.
func (e *Engine) appendRecord(rec record) (extent, error) {
	p, err := encodeRecord(rec)
	if err != nil {
		return extent{}, err
	}
	offset, err := e.active.append(p)
	if err != nil {
		return extent{}, err
	}
	if err := e.active.flush(); err != nil {
		return extent{}, err
	}
	return extent{segmentID: e.active.id, offset: offset, length: int64(len(p))}, nil
}

func (e *Engine) maybeCompact() error {
	if e.uncompactedBytes <= e.cfg.CompactionThresholdBytes {
		return nil
	}
	return e.compact()
}

// Stats reports the live key count, the number of segments currently held
// open, and the uncompacted-bytes counter that drives compaction, for the
// admin HTTP surface.
func (e *Engine) Stats() (liveKeys int, segments int, uncompactedBytes uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.idx.len(), len(e.readers), e.uncompactedBytes
}

// Close flushes and closes every open segment handle.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closeAll()
}

func (e *Engine) closeAll() error {
	var firstErr error
	for _, r := range e.readers {
		if err := r.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.readers = map[uint64]segmentReader{}
	return firstErr
}

// byteReader lets the Get path reuse recordDecoder over an in-memory slice
// instead of a second file read.
type byteReader struct {
	b   []byte
	pos int
}

func newByteReader(b []byte) *byteReader { return &byteReader{b: b} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.pos:])
	r.pos += n
	return n, nil
}
