package kv

import (
	"bufio"
	"os"

	"github.com/tysonmote/gommap"
)

// segmentReader is the random-access side of a segment: enough to serve a
// Get once the index has resolved an extent.
type segmentReader interface {
	ReadAt(buf []byte, off int64) (int, error)
	Close() error
}

// mmapSegment backs every segment that was already on disk when the engine
// opened it (replayed segments) and every segment a compaction finished
// writing: both are immutable for the remainder of the process, so the
// whole file can be memory-mapped once, the same gommap.Map/PROT_READ/
// MAP_SHARED pattern the teacher's offset index used for its own file.
type mmapSegment struct {
	id   uint64
	file *os.File
	mm   gommap.MMap
	size int64
}

func openMmapSegment(dir string, id uint64) (*mmapSegment, error) {
	f, err := openSegmentReader(dir, id)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &IOError{Op: "stat segment", Err: err}
	}
	size := fi.Size()
	if size == 0 {
		// gommap cannot map a zero-length region; an empty segment has
		// nothing to read anyway.
		return &mmapSegment{id: id, file: f, size: 0}, nil
	}
	mm, err := gommap.Map(f.Fd(), gommap.PROT_READ, gommap.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, &IOError{Op: "mmap segment", Err: err}
	}
	return &mmapSegment{id: id, file: f, mm: mm, size: size}, nil
}

// ReadAt reports an out-of-range request as a CorruptLogError: every extent
// it serves comes from the index, so a read past the end of an immutable
// segment means the segment was truncated or tampered with after the index
// recorded it, not a transient I/O condition.
func (m *mmapSegment) ReadAt(buf []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(buf)) > m.size {
		return 0, &CorruptLogError{SegmentID: m.id, Offset: off, Reason: "read past end of segment"}
	}
	return copy(buf, m.mm[off:off+int64(len(buf))]), nil
}

func (m *mmapSegment) Close() error {
	if m.mm != nil {
		if err := m.mm.UnsafeUnmap(); err != nil {
			return &IOError{Op: "unmap segment", Err: err}
		}
	}
	if err := m.file.Close(); err != nil {
		return &IOError{Op: "close segment", Err: err}
	}
	return nil
}

// activeSegment is the sole segment an engine ever appends to. It aliases
// one *os.File between a buffered writer and random-access reads: writes
// go through bufio so small records don't each cost a syscall, and any
// read flushes the buffer first so it never observes stale data, the same
// discipline the teacher's store.go uses for the commit log's active file.
type activeSegment struct {
	id   uint64
	file *os.File
	buf  *bufio.Writer
	size int64
}

func newActiveSegment(dir string, id uint64) (*activeSegment, error) {
	f, err := openSegmentWriter(dir, id)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &IOError{Op: "stat segment", Err: err}
	}
	return &activeSegment{
		id:   id,
		file: f,
		buf:  bufio.NewWriter(f),
		size: fi.Size(),
	}, nil
}

// append writes p to the end of the segment and returns the offset it was
// written at. The bytes stay in the buffer until flush (or a ReadAt, which
// flushes first); the caller flushes before relying on them having reached
// the file.
func (s *activeSegment) append(p []byte) (offset int64, err error) {
	offset = s.size
	n, err := s.buf.Write(p)
	if err != nil {
		return 0, &IOError{Op: "append segment", Err: err}
	}
	s.size += int64(n)
	return offset, nil
}

func (s *activeSegment) flush() error {
	if err := s.buf.Flush(); err != nil {
		return &IOError{Op: "flush segment", Err: err}
	}
	return nil
}

func (s *activeSegment) ReadAt(buf []byte, off int64) (int, error) {
	if err := s.flush(); err != nil {
		return 0, err
	}
	n, err := s.file.ReadAt(buf, off)
	if err != nil {
		return n, &IOError{Op: "read segment", Err: err}
	}
	return n, nil
}

func (s *activeSegment) Close() error {
	if err := s.flush(); err != nil {
		return err
	}
	if err := s.file.Close(); err != nil {
		return &IOError{Op: "close segment", Err: err}
	}
	return nil
}

// reopenImmutable closes the active file handle and reopens the same
// segment as a read-only mmap reader. Compaction uses it once it finishes
// writing the compaction segment; the previous active segment is not
// reopened this way, it is closed and unlinked.
func (s *activeSegment) reopenImmutable(dir string) (*mmapSegment, error) {
	if err := s.Close(); err != nil {
		return nil, err
	}
	return openMmapSegment(dir, s.id)
}
