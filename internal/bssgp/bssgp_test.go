// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

package bssgp_test

import (
	"encoding/binary"
	"testing"

	"github.com/gsmcore/gsmcore/internal/bssgp"
	"github.com/gsmcore/gsmcore/internal/gsm48"
	"github.com/gsmcore/gsmcore/internal/gsmconst"
	"github.com/gsmcore/gsmcore/internal/msgb"
	"github.com/gsmcore/gsmcore/internal/tlv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	nsei, bvci uint16
	msg        *msgb.MsgBuf
}

type delivered struct {
	ctx   *bssgp.BTSContext
	event bssgp.Event
	tlli  uint32
	msg   *msgb.MsgBuf
}

type harness struct {
	sends     []sent
	delivers  []delivered
}

func newHarness() (*bssgp.Instance, *harness) {
	h := &harness{}
	inst := bssgp.New()
	inst.NSSend = func(nsei, bvci uint16, msg *msgb.MsgBuf) bool {
		h.sends = append(h.sends, sent{nsei, bvci, msg})
		return true
	}
	inst.Deliver = func(ctx *bssgp.BTSContext, event bssgp.Event, tlli uint32, msg *msgb.MsgBuf) {
		h.delivers = append(h.delivers, delivered{ctx, event, tlli, msg})
	}
	return inst, h
}

func resetPDU(t *testing.T, bvci uint16, cause gsmconst.BSSGPCause, cellID []byte) *msgb.MsgBuf {
	t.Helper()
	msg := msgb.Alloc(64, "bssgp-reset")
	msg.PutU8(uint8(gsmconst.BSSGPBVCReset))
	require.NoError(t, tlv.PutTvLV(msg, gsmconst.BSSGPIEBVCI, []byte{uint8(bvci >> 8), uint8(bvci)}))
	require.NoError(t, tlv.PutTvLV(msg, gsmconst.BSSGPIECause, []byte{uint8(cause)}))
	if cellID != nil {
		require.NoError(t, tlv.PutTvLV(msg, gsmconst.BSSGPIECellID, cellID))
	}
	return msg
}

func cellID(mcc, mnc, lac uint16, rac uint8, cid uint16) []byte {
	ra := gsm48.EncodeRA(mcc, mnc, lac, rac)
	out := make([]byte, 8)
	copy(out[0:6], ra[:])
	binary.BigEndian.PutUint16(out[6:8], cid)
	return out
}

func TestBVCResetWithCellIDCreatesContextAndAcks(t *testing.T) {
	t.Parallel()
	inst, h := newHarness()
	id := cellID(262, 1, 1234, 5, 999)

	err := inst.RcvMsg(42, 0, resetPDU(t, 7, gsmconst.BSSGPCauseEquipFail, id))
	require.NoError(t, err)

	ctx, ok := inst.ByBVCINSEI(7, 42)
	require.True(t, ok)
	assert.True(t, ctx.HaveCellID)
	assert.Equal(t, uint16(262), ctx.MCC)
	assert.Equal(t, uint16(999), ctx.CellID)

	byID, ok := inst.ByRAIDCID(262, 1, 1234, 5, 999)
	require.True(t, ok)
	assert.Same(t, ctx, byID)

	require.Len(t, h.sends, 1)
	assert.Equal(t, uint16(0), h.sends[0].bvci)
	assert.Equal(t, uint8(gsmconst.BSSGPBVCResetAck), h.sends[0].msg.Data()[0])
}

func TestBVCResetMissingCellIDForNonSignallingBVCISendsStatus(t *testing.T) {
	t.Parallel()
	inst, h := newHarness()

	err := inst.RcvMsg(42, 0, resetPDU(t, 7, gsmconst.BSSGPCauseEquipFail, nil))
	require.NoError(t, err)

	require.Len(t, h.sends, 1)
	assert.Equal(t, uint8(gsmconst.BSSGPStatus), h.sends[0].msg.Data()[0])
}

func TestBVCResetOfSignallingBVCIDoesNotRequireCellID(t *testing.T) {
	t.Parallel()
	inst, h := newHarness()

	err := inst.RcvMsg(42, 0, resetPDU(t, 0, gsmconst.BSSGPCauseEquipFail, nil))
	require.NoError(t, err)

	_, ok := inst.ByBVCINSEI(0, 42)
	require.True(t, ok)
	require.Len(t, h.sends, 1)
	assert.Equal(t, uint8(gsmconst.BSSGPBVCResetAck), h.sends[0].msg.Data()[0])
}

func TestULUnitdataExtractsTLLIAndDeliversLLCPayload(t *testing.T) {
	t.Parallel()
	inst, h := newHarness()
	id := cellID(262, 1, 1234, 5, 999)
	require.NoError(t, inst.RcvMsg(42, 0, resetPDU(t, 7, gsmconst.BSSGPCauseEquipFail, id)))

	msg := msgb.Alloc(64, "bssgp-ul-unitdata")
	msg.PutU8(uint8(gsmconst.BSSGPULUnitdata))
	binary.BigEndian.PutUint32(msg.Put(4), 0xAABBCCDD)
	require.NoError(t, tlv.PutTvLV(msg, gsmconst.BSSGPIECellID, id))
	require.NoError(t, tlv.PutTvLV(msg, gsmconst.BSSGPIELLCPDU, []byte{0x01, 0x02, 0x03}))

	err := inst.RcvMsg(42, 7, msg)
	require.NoError(t, err)

	require.Len(t, h.delivers, 1)
	assert.Equal(t, bssgp.EventULUnitdata, h.delivers[0].event)
	assert.Equal(t, uint32(0xAABBCCDD), h.delivers[0].tlli)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, h.delivers[0].msg.Data())
}

func TestULUnitdataMissingLLCPDUSendsStatus(t *testing.T) {
	t.Parallel()
	inst, h := newHarness()

	msg := msgb.Alloc(32, "bssgp-ul-unitdata")
	msg.PutU8(uint8(gsmconst.BSSGPULUnitdata))
	binary.BigEndian.PutUint32(msg.Put(4), 1)
	id := cellID(262, 1, 1234, 5, 999)
	require.NoError(t, tlv.PutTvLV(msg, gsmconst.BSSGPIECellID, id))

	err := inst.RcvMsg(42, 7, msg)
	require.NoError(t, err)
	require.Len(t, h.sends, 1)
	assert.Equal(t, uint8(gsmconst.BSSGPStatus), h.sends[0].msg.Data()[0])
	assert.Empty(t, h.delivers)
}

func TestFlowControlBVCAcksWithTag(t *testing.T) {
	t.Parallel()
	inst, h := newHarness()

	msg := msgb.Alloc(32, "bssgp-fc")
	msg.PutU8(uint8(gsmconst.BSSGPFlowControlBVC))
	require.NoError(t, tlv.PutTvLV(msg, gsmconst.BSSGPIETag, []byte{9}))
	require.NoError(t, tlv.PutTvLV(msg, gsmconst.BSSGPIEBVCBucketSize, []byte{0, 10}))
	require.NoError(t, tlv.PutTvLV(msg, gsmconst.BSSGPIEBucketLeakRate, []byte{0, 20}))
	require.NoError(t, tlv.PutTvLV(msg, gsmconst.BSSGPIEBmaxDefaultMS, []byte{0, 30}))
	require.NoError(t, tlv.PutTvLV(msg, gsmconst.BSSGPIERDefaultMS, []byte{0, 40}))

	err := inst.RcvMsg(42, 7, msg)
	require.NoError(t, err)

	require.Len(t, h.sends, 1)
	out := h.sends[0].msg.Data()
	assert.Equal(t, uint8(gsmconst.BSSGPFlowControlBVCAck), out[0])
	assert.Equal(t, uint16(7), h.sends[0].bvci)
}

func TestFlowControlBVCMissingIESendsStatus(t *testing.T) {
	t.Parallel()
	inst, h := newHarness()

	msg := msgb.Alloc(16, "bssgp-fc")
	msg.PutU8(uint8(gsmconst.BSSGPFlowControlBVC))
	require.NoError(t, tlv.PutTvLV(msg, gsmconst.BSSGPIETag, []byte{9}))

	err := inst.RcvMsg(42, 7, msg)
	require.NoError(t, err)
	require.Len(t, h.sends, 1)
	assert.Equal(t, uint8(gsmconst.BSSGPStatus), h.sends[0].msg.Data()[0])
}

func TestBVCBlockSetsFlagAndAcks(t *testing.T) {
	t.Parallel()
	inst, h := newHarness()

	msg := msgb.Alloc(32, "bssgp-block")
	msg.PutU8(uint8(gsmconst.BSSGPBVCBlock))
	require.NoError(t, tlv.PutTvLV(msg, gsmconst.BSSGPIEBVCI, []byte{0, 7}))
	require.NoError(t, tlv.PutTvLV(msg, gsmconst.BSSGPIECause, []byte{uint8(gsmconst.BSSGPCauseEquipFail)}))

	err := inst.RcvMsg(42, 0, msg)
	require.NoError(t, err)

	ctx, ok := inst.ByBVCINSEI(7, 42)
	require.True(t, ok)
	assert.NotZero(t, ctx.State&bssgp.BVCFBlocked)
	require.Len(t, h.sends, 1)
	assert.Equal(t, uint8(gsmconst.BSSGPBVCBlockAck), h.sends[0].msg.Data()[0])
}

func TestBVCUnblockClearsFlagAndAcks(t *testing.T) {
	t.Parallel()
	inst, h := newHarness()

	block := msgb.Alloc(32, "bssgp-block")
	block.PutU8(uint8(gsmconst.BSSGPBVCBlock))
	require.NoError(t, tlv.PutTvLV(block, gsmconst.BSSGPIEBVCI, []byte{0, 7}))
	require.NoError(t, tlv.PutTvLV(block, gsmconst.BSSGPIECause, []byte{uint8(gsmconst.BSSGPCauseEquipFail)}))
	require.NoError(t, inst.RcvMsg(42, 0, block))
	h.sends = nil

	unblock := msgb.Alloc(32, "bssgp-unblock")
	unblock.PutU8(uint8(gsmconst.BSSGPBVCUnblock))
	require.NoError(t, tlv.PutTvLV(unblock, gsmconst.BSSGPIEBVCI, []byte{0, 7}))
	err := inst.RcvMsg(42, 0, unblock)
	require.NoError(t, err)

	ctx, _ := inst.ByBVCINSEI(7, 42)
	assert.Zero(t, ctx.State&bssgp.BVCFBlocked)
	require.Len(t, h.sends, 1)
	assert.Equal(t, uint8(gsmconst.BSSGPBVCUnblockAck), h.sends[0].msg.Data()[0])
}

func TestTxDLUnitdataBuildsHeaderAndSends(t *testing.T) {
	t.Parallel()
	inst, h := newHarness()

	err := inst.TxDLUnitdata(42, 7, 0x12345678, []byte{0xAA, 0xBB})
	require.NoError(t, err)

	require.Len(t, h.sends, 1)
	out := h.sends[0].msg.Data()
	assert.Equal(t, uint8(gsmconst.BSSGPDLUnitdata), out[0])
	assert.Equal(t, uint32(0x12345678), binary.BigEndian.Uint32(out[1:5]))
	assert.Equal(t, []byte{0x00, 0x00, 0x21}, out[5:8])

	_, ok := inst.ByBVCINSEI(7, 42)
	assert.True(t, ok)
}

func TestTxDLUnitdataRejectsSignallingBVCI(t *testing.T) {
	t.Parallel()
	inst, _ := newHarness()
	err := inst.TxDLUnitdata(42, 0, 1, []byte{0x01})
	assert.Error(t, err)
}

func TestRcvMsgDownlinkOnlyPDUReturnsError(t *testing.T) {
	t.Parallel()
	inst, _ := newHarness()
	msg := msgb.Alloc(8, "bssgp-dl")
	msg.PutU8(uint8(gsmconst.BSSGPDLUnitdata))
	err := inst.RcvMsg(42, 7, msg)
	assert.Error(t, err)
}
