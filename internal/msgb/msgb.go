// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

// Package msgb implements the message-buffer primitive: an owned,
// contiguous byte buffer with headroom/tailroom and four layer pointers
// (L1h..L4h), grounded on osmocom's msgb.h from
// original_source/include/osmocom/core/msgb.h but rewritten around Go
// slices with an explicit Alloc/Free lifecycle.
//
// A MsgBuf's invariant is data+len == tail, head <= data, tail <= head+cap.
// Overflow/underflow is a corrupted-buffer condition and panics rather
// than returning an error: it is unrecoverable, and the caller must
// pre-validate sizes via the tlv package.
package msgb

import (
	"encoding/binary"
	"fmt"
)

// noLayer marks a layer pointer as unset.
const noLayer = -1

// MsgBuf is an owned byte buffer with a sliding used window and four
// protocol-layer pointers into it.
type MsgBuf struct {
	Name string

	buf     []byte
	dataIdx int
	tailIdx int

	l1h, l2h, l3h, l4h int

	// Next links this MsgBuf into a single intrusive FIFO: a linkage
	// field allows zero-copy insertion into a single FIFO.
	Next *MsgBuf
}

// Alloc creates a zeroed buffer of the given capacity. data == tail == head,
// len == 0.
func Alloc(capacity int, name string) *MsgBuf {
	if capacity < 0 {
		panic(fmt.Sprintf("msgb: negative capacity %d for %q", capacity, name))
	}
	return &MsgBuf{
		Name:    name,
		buf:     make([]byte, capacity),
		dataIdx: 0,
		tailIdx: 0,
		l1h:     noLayer,
		l2h:     noLayer,
		l3h:     noLayer,
		l4h:     noLayer,
	}
}

// Cap returns the total buffer capacity (data_len in the underlying C model).
func (m *MsgBuf) Cap() int { return len(m.buf) }

// Len returns the current used length, tail-data.
func (m *MsgBuf) Len() int { return m.tailIdx - m.dataIdx }

// Headroom returns data-head (head is always 0 in this implementation: the
// buffer has no separate pre-head region, matching the "owned vector"
// replacement for the source's intrusive-list headroom).
func (m *MsgBuf) Headroom() int { return m.dataIdx }

// Tailroom returns head+data_len-tail.
func (m *MsgBuf) Tailroom() int { return len(m.buf) - m.tailIdx }

// Data returns the current used window [data, tail).
func (m *MsgBuf) Data() []byte { return m.buf[m.dataIdx:m.tailIdx] }

// Reserve may only be called on an empty buffer; it advances both data and
// tail by n. Undefined (panics) otherwise.
func (m *MsgBuf) Reserve(n int) {
	if m.dataIdx != m.tailIdx {
		panic(fmt.Sprintf("msgb(%s): Reserve called on non-empty buffer", m.Name))
	}
	if m.dataIdx+n > len(m.buf) {
		panic(fmt.Sprintf("msgb(%s): Reserve(%d) overflows capacity %d", m.Name, n, len(m.buf)))
	}
	m.dataIdx += n
	m.tailIdx += n
}

// Put appends n bytes to the tail and returns a slice over them.
func (m *MsgBuf) Put(n int) []byte {
	if n < 0 {
		panic(fmt.Sprintf("msgb(%s): Put negative length %d", m.Name, n))
	}
	if m.Tailroom() < n {
		panic(fmt.Sprintf("msgb(%s): Put(%d) exceeds tailroom %d", m.Name, n, m.Tailroom()))
	}
	s := m.buf[m.tailIdx : m.tailIdx+n]
	m.tailIdx += n
	return s
}

// Push prepends n bytes at the front and returns a slice over them.
func (m *MsgBuf) Push(n int) []byte {
	if n < 0 {
		panic(fmt.Sprintf("msgb(%s): Push negative length %d", m.Name, n))
	}
	if m.Headroom() < n {
		panic(fmt.Sprintf("msgb(%s): Push(%d) exceeds headroom %d", m.Name, n, m.Headroom()))
	}
	m.dataIdx -= n
	return m.buf[m.dataIdx : m.dataIdx+n]
}

// Pull consumes n bytes from the front, returning the removed bytes.
func (m *MsgBuf) Pull(n int) []byte {
	if n < 0 || n > m.Len() {
		panic(fmt.Sprintf("msgb(%s): Pull(%d) exceeds length %d", m.Name, n, m.Len()))
	}
	s := m.buf[m.dataIdx : m.dataIdx+n]
	m.dataIdx += n
	return s
}

// Get consumes n bytes from the tail, returning the removed bytes.
func (m *MsgBuf) Get(n int) []byte {
	if n < 0 || n > m.Len() {
		panic(fmt.Sprintf("msgb(%s): Get(%d) exceeds length %d", m.Name, n, m.Len()))
	}
	s := m.buf[m.tailIdx-n : m.tailIdx]
	m.tailIdx -= n
	return s
}

// Trim sets the used region to [data, data+length).
func (m *MsgBuf) Trim(length int) {
	if length < 0 || length > len(m.buf) || m.dataIdx+length > len(m.buf) {
		panic(fmt.Sprintf("msgb(%s): Trim(%d) exceeds capacity %d", m.Name, length, len(m.buf)))
	}
	m.tailIdx = m.dataIdx + length
	if m.l1h != noLayer && m.l1h > m.tailIdx {
		m.l1h = noLayer
	}
	if m.l2h != noLayer && m.l2h > m.tailIdx {
		m.l2h = noLayer
	}
	if m.l3h != noLayer && m.l3h > m.tailIdx {
		m.l3h = noLayer
	}
	if m.l4h != noLayer && m.l4h > m.tailIdx {
		m.l4h = noLayer
	}
}

// PullToL3 pulls everything up to L3h, clearing L1h/L2h.
func (m *MsgBuf) PullToL3() {
	if m.l3h == noLayer {
		panic(fmt.Sprintf("msgb(%s): PullToL3 with no L3h set", m.Name))
	}
	if m.l3h < m.dataIdx {
		panic(fmt.Sprintf("msgb(%s): PullToL3: L3h precedes data", m.Name))
	}
	m.dataIdx = m.l3h
	m.l1h = noLayer
	m.l2h = noLayer
}

// Layer pointer accessors. A negative return means "unset".

func (m *MsgBuf) L1H() int { return m.offsetOf(m.l1h) }
func (m *MsgBuf) L2H() int { return m.offsetOf(m.l2h) }
func (m *MsgBuf) L3H() int { return m.offsetOf(m.l3h) }
func (m *MsgBuf) L4H() int { return m.offsetOf(m.l4h) }

func (m *MsgBuf) offsetOf(v int) int {
	if v == noLayer {
		return -1
	}
	return v
}

// SetL1H, SetL2H, SetL3H, SetL4H record a layer boundary at the given
// absolute offset into the backing buffer (typically m.dataIdx at the time
// a layer is entered).
func (m *MsgBuf) SetL1H(off int) { m.l1h = off }
func (m *MsgBuf) SetL2H(off int) { m.l2h = off }
func (m *MsgBuf) SetL3H(off int) { m.l3h = off }
func (m *MsgBuf) SetL4H(off int) { m.l4h = off }

// L2 returns the bytes from L2h to the tail, or nil if L2h is unset.
func (m *MsgBuf) L2() []byte {
	if m.l2h == noLayer {
		return nil
	}
	return m.buf[m.l2h:m.tailIdx]
}

// L3 returns the bytes from L3h to the tail, or nil if L3h is unset.
func (m *MsgBuf) L3() []byte {
	if m.l3h == noLayer {
		return nil
	}
	return m.buf[m.l3h:m.tailIdx]
}

// Big-endian put helpers.

func (m *MsgBuf) PutU8(v uint8) {
	m.Put(1)[0] = v
}

func (m *MsgBuf) PutU16(v uint16) {
	binary.BigEndian.PutUint16(m.Put(2), v)
}

func (m *MsgBuf) PutU32(v uint32) {
	binary.BigEndian.PutUint32(m.Put(4), v)
}

// Big-endian pull helpers (front).

func (m *MsgBuf) PullU8() uint8 {
	return m.Pull(1)[0]
}

func (m *MsgBuf) PullU16() uint16 {
	return binary.BigEndian.Uint16(m.Pull(2))
}

func (m *MsgBuf) PullU32() uint32 {
	return binary.BigEndian.Uint32(m.Pull(4))
}

// Big-endian get helpers (tail).

func (m *MsgBuf) GetU8() uint8 {
	return m.Get(1)[0]
}

func (m *MsgBuf) GetU16() uint16 {
	return binary.BigEndian.Uint16(m.Get(2))
}

func (m *MsgBuf) GetU32() uint32 {
	return binary.BigEndian.Uint32(m.Get(4))
}

// TestInvariant is the pure predicate checking that pointer ordering
// holds after any sequence of put/pull/push/get/reserve.
func (m *MsgBuf) TestInvariant() bool {
	if m.dataIdx < 0 || m.tailIdx < m.dataIdx || m.tailIdx > len(m.buf) {
		return false
	}
	layers := [4]int{m.l1h, m.l2h, m.l3h, m.l4h}
	prev := -1
	for _, l := range layers {
		if l == noLayer {
			continue
		}
		if l < 0 || l > len(m.buf) {
			return false
		}
		if prev != -1 && l < prev {
			return false
		}
		prev = l
	}
	return true
}

// Clone performs a deep copy of the buffer, preserving the used window and
// all layer pointers but dropping queue linkage.
func (m *MsgBuf) Clone() *MsgBuf {
	c := &MsgBuf{
		Name:    m.Name,
		buf:     make([]byte, len(m.buf)),
		dataIdx: m.dataIdx,
		tailIdx: m.tailIdx,
		l1h:     m.l1h,
		l2h:     m.l2h,
		l3h:     m.l3h,
		l4h:     m.l4h,
	}
	copy(c.buf, m.buf)
	return c
}

// Free releases the buffer. Go's garbage collector reclaims the backing
// array; Free exists so callers mirror the alloc/free lifecycle the
// underlying C model describes, so a future pooled allocator (sync.Pool)
// can be dropped in without changing call sites.
func Free(m *MsgBuf) {
	m.buf = nil
	m.Next = nil
}
