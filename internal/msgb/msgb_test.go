// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

package msgb_test

import (
	"testing"

	"github.com/gsmcore/gsmcore/internal/msgb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocStartsEmpty(t *testing.T) {
	t.Parallel()
	m := msgb.Alloc(256, "test")
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, m.Headroom())
	assert.Equal(t, 256, m.Tailroom())
	assert.True(t, m.TestInvariant())
}

func TestReserveThenPutAndPull(t *testing.T) {
	t.Parallel()
	m := msgb.Alloc(128, "test")
	m.Reserve(20)
	assert.Equal(t, 20, m.Headroom())
	assert.Equal(t, 0, m.Len())

	m.PutU16(0x1234)
	m.PutU8(0xAB)
	assert.Equal(t, 3, m.Len())
	assert.True(t, m.TestInvariant())

	assert.Equal(t, uint16(0x1234), m.PullU16())
	assert.Equal(t, uint8(0xAB), m.PullU8())
	assert.Equal(t, 0, m.Len())
	assert.True(t, m.TestInvariant())
}

func TestPushGrowsFromHeadroom(t *testing.T) {
	t.Parallel()
	m := msgb.Alloc(64, "test")
	m.Reserve(10)
	m.Put(4)
	before := m.Len()

	hdr := m.Push(2)
	hdr[0] = 0xEE
	hdr[1] = 0xFF
	assert.Equal(t, before+2, m.Len())
	assert.Equal(t, uint8(0xEE), m.Data()[0])
	assert.True(t, m.TestInvariant())
}

func TestGetRemovesFromTail(t *testing.T) {
	t.Parallel()
	m := msgb.Alloc(32, "test")
	m.PutU32(0xCAFEBABE)
	got := m.GetU32()
	assert.Equal(t, uint32(0xCAFEBABE), got)
	assert.Equal(t, 0, m.Len())
	assert.True(t, m.TestInvariant())
}

func TestTrimShrinksAndClearsLayerPointers(t *testing.T) {
	t.Parallel()
	m := msgb.Alloc(32, "test")
	m.Put(10)
	m.SetL3H(5)
	m.Trim(3)
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, -1, m.L3H())
	assert.True(t, m.TestInvariant())
}

func TestPullToL3AdvancesDataAndClearsLowerLayers(t *testing.T) {
	t.Parallel()
	m := msgb.Alloc(32, "test")
	m.Put(20)
	m.SetL1H(0)
	m.SetL2H(4)
	m.SetL3H(8)

	m.PullToL3()
	assert.Equal(t, 8, m.Headroom())
	assert.Equal(t, -1, m.L1H())
	assert.Equal(t, -1, m.L2H())
	assert.True(t, m.TestInvariant())
}

func TestPutOverflowPanics(t *testing.T) {
	t.Parallel()
	m := msgb.Alloc(4, "test")
	assert.Panics(t, func() { m.Put(5) })
}

func TestPullUnderflowPanics(t *testing.T) {
	t.Parallel()
	m := msgb.Alloc(4, "test")
	m.Put(1)
	assert.Panics(t, func() { m.Pull(2) })
}

func TestPushExceedingHeadroomPanics(t *testing.T) {
	t.Parallel()
	m := msgb.Alloc(4, "test")
	assert.Panics(t, func() { m.Push(1) })
}

func TestReserveOnNonEmptyBufferPanics(t *testing.T) {
	t.Parallel()
	m := msgb.Alloc(16, "test")
	m.Put(1)
	assert.Panics(t, func() { m.Reserve(2) })
}

func TestCloneIsDeepCopy(t *testing.T) {
	t.Parallel()
	m := msgb.Alloc(16, "test")
	m.PutU16(0xBEEF)
	c := m.Clone()
	require.Equal(t, m.Data(), c.Data())

	m.Data()[0] = 0x00
	assert.NotEqual(t, m.Data()[0], c.Data()[0])
}

func TestInvariantHoldsAcrossRandomizedSequence(t *testing.T) {
	t.Parallel()
	m := msgb.Alloc(512, "test")
	m.Reserve(100)

	ops := []func(){
		func() { m.Put(3) },
		func() { m.Push(2) },
		func() {
			if m.Len() > 0 {
				m.Pull(1)
			}
		},
		func() {
			if m.Len() > 0 {
				m.Get(1)
			}
		},
	}
	for i := 0; i < 200; i++ {
		ops[i%len(ops)]()
		require.True(t, m.TestInvariant(), "invariant violated at step %d", i)
	}
}
