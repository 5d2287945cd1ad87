// Package buffer provides a growable byte container with a printf-style
// formatted append, used throughout request construction and header
// accumulation.
package buffer

import "reflect"

// defaultCapacity is used by New when a non-positive capacity is requested.
const defaultCapacity = 128

// Buffer is a mutable, growable byte container. It is always kept
// NUL-terminated one byte past its logical length, mirroring the C
// byte-buffer this package is modeled on; Bytes returns the logical
// content without that trailing NUL.
//
// A Buffer is not safe for concurrent use: callers in this module own
// exactly one connection's worth of request/response state at a time.
type Buffer struct {
	data     []byte // len(data) == length+1; data[length] == 0
	length   int
	external bool // true while still backed by caller-supplied storage
}

// New allocates a Buffer with at least the given initial capacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Buffer{data: make([]byte, 1, capacity+1)}
}

// NewFromStorage wraps caller-supplied storage as the buffer's initial
// backing array. The buffer starts empty (length 0); the storage is reused
// until growth forces a reallocation, at which point the buffer stops
// referencing it (the C analogue's "owns_storage" transition).
func NewFromStorage(storage []byte) *Buffer {
	b := &Buffer{external: true}
	b.data = append(storage[:0:cap(storage)], 0)
	return b
}

// Len returns the logical number of bytes written so far.
func (b *Buffer) Len() int { return b.length }

// Cap returns the buffer's current storage capacity, excluding the
// trailing NUL slot.
func (b *Buffer) Cap() int {
	if cap(b.data) == 0 {
		return 0
	}
	return cap(b.data) - 1
}

// Bytes returns the logical content. The slice is invalidated by any
// subsequent mutating call.
func (b *Buffer) Bytes() []byte {
	if b.length == 0 {
		return nil
	}
	return b.data[:b.length]
}

// String returns the logical content as a string.
func (b *Buffer) String() string { return string(b.Bytes()) }

// Reserve grows the backing storage, if needed, to hold at least n bytes
// plus the trailing NUL, doubling capacity until satisfied.
func (b *Buffer) Reserve(n int) {
	need := n + 1
	if cap(b.data) >= need {
		return
	}
	newCap := cap(b.data) - 1
	if newCap <= 0 {
		newCap = defaultCapacity
	}
	for newCap < n {
		newCap *= 2
	}
	grown := make([]byte, len(b.data), newCap+1)
	copy(grown, b.data)
	b.data = grown
	b.external = false
}

// Reset clears the logical length without releasing storage.
func (b *Buffer) Reset() {
	b.length = 0
	if len(b.data) == 0 {
		b.data = append(b.data, 0)
	} else {
		b.data[0] = 0
		b.data = b.data[:1]
	}
}

// Write appends p, satisfying io.Writer so the buffer can be used as a copy
// destination (e.g. io.Copy from a chunked body reader).
func (b *Buffer) Write(p []byte) (int, error) {
	b.appendBytes(p)
	return len(p), nil
}

// WriteString appends s.
func (b *Buffer) WriteString(s string) {
	b.appendBytes([]byte(s))
}

// WriteByteRepeated appends c repeated n times (memset-append).
func (b *Buffer) WriteByteRepeated(c byte, n int) {
	if n <= 0 {
		return
	}
	b.Reserve(b.length + n)
	b.data = b.data[:b.length+n+1]
	for i := 0; i < n; i++ {
		b.data[b.length+i] = c
	}
	b.length += n
	b.data[b.length] = 0
}

// GrowBy ensures at least n bytes are free past the current logical end,
// without changing Len. Used by readers that want to read directly into
// the buffer's backing array.
func (b *Buffer) GrowBy(n int) {
	b.Reserve(b.length + n)
}

// WritableTail returns the free capacity past the current logical end, as
// a slice callers may fill directly (e.g. via io.Reader.Read) before
// calling Commit. The slice is invalidated by any call that may grow the
// buffer.
func (b *Buffer) WritableTail() []byte {
	return b.data[b.length : cap(b.data)-1]
}

// Commit advances the logical length by n, which must not exceed the
// length of the slice most recently returned by WritableTail, and
// restores the trailing NUL invariant.
func (b *Buffer) Commit(n int) {
	if n <= 0 {
		return
	}
	b.length += n
	b.data = b.data[:b.length+1]
	b.data[b.length] = 0
}

// WriteBuffer appends the logical content of other.
func (b *Buffer) WriteBuffer(other *Buffer) {
	b.appendBytes(other.Bytes())
}

func (b *Buffer) appendBytes(p []byte) {
	if len(p) == 0 {
		return
	}
	b.Reserve(b.length + len(p))
	b.data = b.data[:b.length+len(p)+1]
	copy(b.data[b.length:], p)
	b.length += len(p)
	b.data[b.length] = 0
}

// Printf renders fmt with args using the conversions documented in
// formatAppend and appends the result.
func (b *Buffer) Printf(format string, args ...interface{}) {
	formatAppend(b, format, args)
}

// PrintfReset clears the buffer, then renders and appends like Printf.
func (b *Buffer) PrintfReset(format string, args ...interface{}) {
	b.Reset()
	formatAppend(b, format, args)
}

// isNilPointer reports whether v is a nil pointer-like value, so %p and
// %s can special-case it the way the C implementation special-cases a
// NULL char* / void*.
func isNilPointer(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.UnsafePointer, reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}

// pointerValue extracts an integer address-like value from v for %p
// rendering.
func pointerValue(v interface{}) uint64 {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.UnsafePointer, reflect.Chan, reflect.Func, reflect.Map, reflect.Slice:
		return uint64(rv.Pointer())
	case reflect.Uintptr:
		return uint64(rv.Uint())
	default:
		return 0
	}
}
