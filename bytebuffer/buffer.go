// Package bytebuffer implements the append-and-consume byte store that backs
// request ingress framing and response egress buffering.
//
// A ByteBuffer owns a contiguous, growable slice of bytes plus a read cursor.
// It is not safe for concurrent use: every ByteBuffer belongs to exactly one
// connection handler at a time, which serialises all access to it.
package bytebuffer

import "github.com/valyala/bytebufferpool"

// growthFactor is the minimum geometric growth applied on each reallocation,
// matching the spec's "grows geometrically (>=1.5x)" requirement.
const growthFactor = 1.5

// minCap is the smallest backing array ever allocated, avoiding a string of
// tiny reallocations for connections that only ever exchange a few bytes.
const minCap = 64

// ByteBuffer is a FIFO byte store: bytes written with Append emerge, in
// order, through Fill/FillVec. count is the number of bytes ever appended
// minus the number of bytes discarded by Reset or Compact; r is the read
// cursor into buf, 0 <= r <= count.
type ByteBuffer struct {
	buf []byte
	r   int
}

// New returns an empty ByteBuffer with no pre-allocated backing array.
func New() *ByteBuffer {
	return &ByteBuffer{}
}

// NewFromPool returns an empty ByteBuffer backed by a pooled scratch array,
// reducing allocator pressure when connections are churned rapidly. Release
// must be called when the buffer is no longer needed to return the array to
// the pool.
func NewFromPool() *ByteBuffer {
	bb := bufferPool.Get()
	return &ByteBuffer{buf: bb.B[:0]}
}

var bufferPool bytebufferpool.Pool

// Release returns the buffer's backing array to the shared pool. The
// ByteBuffer must not be used afterwards.
func (b *ByteBuffer) Release() {
	if b.buf == nil {
		return
	}
	bufferPool.Put(&bytebufferpool.ByteBuffer{B: b.buf})
	b.buf = nil
	b.r = 0
}

// Count reports the number of unconsumed-plus-consumed bytes currently held,
// i.e. the total appended since the last Reset, minus any already-read
// bytes dropped by Compact.
func (b *ByteBuffer) Count() int {
	return len(b.buf)
}

// Unread reports the number of bytes available to Fill/FillVec.
func (b *ByteBuffer) Unread() int {
	return len(b.buf) - b.r
}

// Append copies p to the tail of the buffer. Amortised O(1): the backing
// array grows geometrically and existing unread content is preserved across
// reallocation.
func (b *ByteBuffer) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	b.grow(len(p))
	b.buf = append(b.buf, p...)
}

// AppendByte appends a single byte, following the same growth contract as
// Append.
func (b *ByteBuffer) AppendByte(c byte) {
	b.grow(1)
	b.buf = append(b.buf, c)
}

// grow ensures the backing array can absorb extra more bytes without a
// second reallocation this call, following the >=1.5x geometric rule.
func (b *ByteBuffer) grow(extra int) {
	need := len(b.buf) + extra
	if cap(b.buf) >= need {
		return
	}
	newCap := cap(b.buf)
	if newCap < minCap {
		newCap = minCap
	}
	for newCap < need {
		newCap = int(float64(newCap) * growthFactor)
	}
	nb := make([]byte, len(b.buf), newCap)
	copy(nb, b.buf)
	b.buf = nb
}

// Fill copies min(len(dst), Unread()) bytes starting at the read cursor into
// dst, advances the cursor by that many bytes, and returns the count. It
// returns 0 iff the buffer is fully drained.
func (b *ByteBuffer) Fill(dst []byte) int {
	n := copy(dst, b.buf[b.r:])
	b.r += n
	return n
}

// FillVec appends all remaining unread bytes to dst (a growable destination)
// and returns the number of bytes appended.
func (b *ByteBuffer) FillVec(dst *[]byte) int {
	n := b.Unread()
	if n == 0 {
		return 0
	}
	*dst = append(*dst, b.buf[b.r:]...)
	b.r = len(b.buf)
	return n
}

// Discard advances the read cursor by n bytes without copying them anywhere,
// for callers that consumed bytes directly from Peek's backing slice (as the
// connection handler does when feeding a parser that reports a consumed
// count). Discarding more than Unread() is a programming error and panics.
func (b *ByteBuffer) Discard(n int) {
	if n > b.Unread() {
		panic("bytebuffer: Discard past end of buffer")
	}
	b.r += n
}

// Peek returns the unread portion of the buffer without advancing the
// cursor. The returned slice aliases the buffer's backing array and is only
// valid until the next Append/Reset call.
func (b *ByteBuffer) Peek() []byte {
	return b.buf[b.r:]
}

// Reset clears all content; both Count and the read cursor return to 0.
func (b *ByteBuffer) Reset() {
	b.buf = b.buf[:0]
	b.r = 0
}

// Rewind sets the read cursor back to 0 without discarding content, so a
// previously-filled reader can be replayed.
func (b *ByteBuffer) Rewind() {
	b.r = 0
}

// Compact discards already-read bytes by shifting unread content to the
// front of the backing array. It does not change Unread(), only Count()
// and the cursor, and is useful for long-lived keep-alive connections whose
// buffer would otherwise grow unbounded across many requests.
func (b *ByteBuffer) Compact() {
	if b.r == 0 {
		return
	}
	n := copy(b.buf, b.buf[b.r:])
	b.buf = b.buf[:n]
	b.r = 0
}
