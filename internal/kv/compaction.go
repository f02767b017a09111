package kv

// compact rewrites every live index entry into a fresh segment and deletes
// every segment that predates it, per the algorithm in §4.5. The caller
// holds e.mu.
func (e *Engine) compact() error {
	oldActiveID := e.active.id
	compactionID := oldActiveID + 1
	newActiveID := oldActiveID + 2

	compaction, err := newActiveSegment(e.dir, compactionID)
	if err != nil {
		return err
	}
	newActive, err := newActiveSegment(e.dir, newActiveID)
	if err != nil {
		compaction.Close()
		return err
	}

	// copy every live entry's bytes verbatim into the compaction segment
	// and repoint the index at its new extent.
	for key, ext := range e.idx.entries {
		r, ok := e.readers[ext.segmentID]
		if !ok {
			compaction.Close()
			newActive.Close()
			return &CorruptLogError{SegmentID: ext.segmentID, Offset: ext.offset, Reason: "no reader for segment referenced by index during compaction"}
		}
		buf := make([]byte, ext.length)
		if _, err := r.ReadAt(buf, ext.offset); err != nil {
			compaction.Close()
			newActive.Close()
			return err
		}
		newOffset, err := compaction.append(buf)
		if err != nil {
			compaction.Close()
			newActive.Close()
			return err
		}
		e.idx.entries[key] = extent{segmentID: compactionID, offset: newOffset, length: ext.length}
	}
	if err := compaction.flush(); err != nil {
		newActive.Close()
		return err
	}

	compactionReader, err := compaction.reopenImmutable(e.dir)
	if err != nil {
		return err
	}
	e.readers[compactionID] = compactionReader
	e.readers[newActiveID] = newActive
	e.active = newActive

	staleIDs := make([]uint64, 0, len(e.readers))
	for id := range e.readers {
		if id < compactionID {
			staleIDs = append(staleIDs, id)
		}
	}
	for _, id := range staleIDs {
		if err := e.readers[id].Close(); err != nil {
			// the file is already fully copied into the compaction segment;
			// a close failure here doesn't threaten index/reader
			// consistency, but it does leave an orphan handle, so surface
			// it rather than swallow it.
			return err
		}
		delete(e.readers, id)
		if err := unlinkSegment(e.dir, id); err != nil {
			return err
		}
	}

	e.uncompactedBytes = 0

	e.cfg.Logger.Infow("compaction finished",
		"compaction_segment", compactionID,
		"new_active_segment", newActiveID,
		"segments_removed", len(staleIDs),
		"live_keys", e.idx.len(),
	)
	return nil
}
