package kv

import "fmt"

// ErrKeyNotFound is returned by Remove when the key has no index entry.
// A get for an absent key is not an error; see Engine.Get.
var ErrKeyNotFound = fmt.Errorf("Key not found error")

// CorruptLogError reports a record that failed to decode during replay, or
// an index entry whose extent does not resolve to the expected Set record.
type CorruptLogError struct {
	SegmentID uint64
	Offset    int64
	Reason    string
}

func (e *CorruptLogError) Error() string {
	return fmt.Sprintf("corrupt log: segment %d offset %d: %s", e.SegmentID, e.Offset, e.Reason)
}

// IOError wraps an underlying filesystem error with the segment operation
// that triggered it, so logs and client-facing messages stay readable.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
