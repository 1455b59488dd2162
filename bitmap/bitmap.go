// Package bitmap implements the byte-addressed bit array primitive the
// allocator is built on: get/put operations over a byte buffer, bit 0 being
// the least significant bit of byte 0. It does no I/O and performs no
// allocation of its own; callers own the backing buffer.
package bitmap

import "github.com/boljen/go-bitmap"

// Bitmap is a thin wrapper around github.com/boljen/go-bitmap's byte-slice
// view, adding the negative-index tolerance this engine requires: get(i)
// returns 0 and put(i, v) is a no-op for any i < 0, rather than panicking.
type Bitmap struct {
	buf bitmap.Bitmap
}

// Wrap treats buf as a bitmap in place; writes through the returned Bitmap
// mutate buf directly.
func Wrap(buf []byte) Bitmap {
	return Bitmap{buf: bitmap.Bitmap(buf)}
}

// Get returns the bit at index i (0 or 1). Returns 0 if i is negative.
func (b Bitmap) Get(i int) int {
	if i < 0 {
		return 0
	}
	if b.buf.Get(i) {
		return 1
	}
	return 0
}

// Put sets the bit at index i to v (0 or 1). No-op if i is negative.
func (b Bitmap) Put(i int, v int) {
	if i < 0 {
		return
	}
	b.buf.Set(i, v != 0)
}
