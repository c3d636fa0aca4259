// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

package ns_test

import (
	"net"
	"testing"
	"time"

	"github.com/gsmcore/gsmcore/internal/gsmconst"
	"github.com/gsmcore/gsmcore/internal/msgb"
	"github.com/gsmcore/gsmcore/internal/ns"
	"github.com/gsmcore/gsmcore/internal/tlv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	nsvc *ns.NSVC
	msg  *msgb.MsgBuf
}

type harness struct {
	sends    []sent
	delivers []struct {
		event ns.Event
		bvci  uint16
	}
	armed     []time.Duration
	cancelled int
}

func newHarness() (*ns.Instance, *harness) {
	h := &harness{}
	inst := ns.New()
	inst.Send = func(nsvc *ns.NSVC, msg *msgb.MsgBuf) {
		h.sends = append(h.sends, sent{nsvc, msg})
	}
	inst.Deliver = func(_ *ns.NSVC, event ns.Event, bvci uint16, _ *msgb.MsgBuf) {
		h.delivers = append(h.delivers, struct {
			event ns.Event
			bvci  uint16
		}{event, bvci})
	}
	inst.ArmAliveTimer = func(_ *ns.NSVC, d time.Duration) { h.armed = append(h.armed, d) }
	inst.CancelAliveTimer = func(_ *ns.NSVC) { h.cancelled++ }
	return inst, h
}

func udpAddr(port int) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: port}
}

func resetPDU(t *testing.T, nsvci, nsei uint16, cause gsmconst.NSCause) *msgb.MsgBuf {
	t.Helper()
	msg := msgb.Alloc(64, "ns-reset")
	msg.SetL2H(0)
	msg.PutU8(uint8(gsmconst.NSPDUReset))
	require.NoError(t, tlv.PutTvLV(msg, gsmconst.NSIECause, []byte{uint8(cause)}))
	require.NoError(t, tlv.PutTvLV(msg, gsmconst.NSIEVCI, []byte{uint8(nsvci >> 8), uint8(nsvci)}))
	require.NoError(t, tlv.PutTvLV(msg, gsmconst.NSIENSEI, []byte{uint8(nsei >> 8), uint8(nsei)}))
	return msg
}

func TestResetFromUnknownPeerCreatesNSVCAndSendsResetAck(t *testing.T) {
	t.Parallel()
	inst, h := newHarness()
	addr := udpAddr(1234)
	inst.RcvMsg(addr, resetPDU(t, 7, 42, gsmconst.NSCauseOMIntervention))

	nsvc, ok := inst.ByNSVCI(7)
	require.True(t, ok)
	assert.Equal(t, uint16(42), nsvc.NSEI)
	assert.Equal(t, ns.StateBlocked|ns.StateAlive, nsvc.State)
	require.Len(t, h.sends, 1)
	require.Len(t, h.armed, 1)
	assert.Equal(t, 3*time.Second, h.armed[0])
}

func TestPDUFromUnknownPeerThatIsNotResetIsDropped(t *testing.T) {
	t.Parallel()
	inst, h := newHarness()
	msg := msgb.Alloc(8, "ns-alive")
	msg.SetL2H(0)
	msg.PutU8(uint8(gsmconst.NSPDUAlive))
	inst.RcvMsg(udpAddr(1234), msg)

	assert.Empty(t, h.sends)
	_, ok := inst.ByNSEI(0)
	assert.False(t, ok)
}

func TestAliveRepliesWithAliveAck(t *testing.T) {
	t.Parallel()
	inst, h := newHarness()
	addr := udpAddr(1234)
	inst.RcvMsg(addr, resetPDU(t, 7, 42, gsmconst.NSCauseOMIntervention))
	h.sends = nil

	msg := msgb.Alloc(8, "ns-alive")
	msg.SetL2H(0)
	msg.PutU8(uint8(gsmconst.NSPDUAlive))
	inst.RcvMsg(addr, msg)

	require.Len(t, h.sends, 1)
	assert.Equal(t, uint8(gsmconst.NSPDUAliveAck), h.sends[0].msg.L2()[0])
}

func TestAliveAckCancelsAliveTimerAndStartsTnsTest(t *testing.T) {
	t.Parallel()
	inst, h := newHarness()
	addr := udpAddr(1234)
	inst.RcvMsg(addr, resetPDU(t, 7, 42, gsmconst.NSCauseOMIntervention))

	msg := msgb.Alloc(8, "ns-alive-ack")
	msg.SetL2H(0)
	msg.PutU8(uint8(gsmconst.NSPDUAliveAck))
	inst.RcvMsg(addr, msg)

	assert.Equal(t, 1, h.cancelled)
	require.Len(t, h.armed, 2)
	assert.Equal(t, 30*time.Second, h.armed[len(h.armed)-1])
}

func TestUnitdataExtractsBVCIAndDeliversPayload(t *testing.T) {
	t.Parallel()
	inst, h := newHarness()
	addr := udpAddr(1234)
	inst.RcvMsg(addr, resetPDU(t, 7, 42, gsmconst.NSCauseOMIntervention))

	msg := msgb.Alloc(16, "ns-unitdata")
	msg.SetL2H(0)
	msg.PutU8(uint8(gsmconst.NSPDUUnitdata))
	msg.PutU8(0) // spare
	msg.PutU8(0x12)
	msg.PutU8(0x34)
	payload := msg.Put(3)
	copy(payload, []byte{0xAA, 0xBB, 0xCC})

	inst.RcvMsg(addr, msg)

	require.Len(t, h.delivers, 1)
	assert.Equal(t, ns.EventUnitData, h.delivers[0].event)
	assert.Equal(t, uint16(0x1234), h.delivers[0].bvci)
}

func TestSendMsgResolvesNSEIAndPushesHeader(t *testing.T) {
	t.Parallel()
	inst, h := newHarness()
	addr := udpAddr(1234)
	inst.RcvMsg(addr, resetPDU(t, 7, 42, gsmconst.NSCauseOMIntervention))
	h.sends = nil

	payload := msgb.Alloc(2, "bssgp-payload")
	body := payload.Put(2)
	copy(body, []byte{0x01, 0x02})

	ok := inst.SendMsg(42, 0x5678, payload)
	require.True(t, ok)
	require.Len(t, h.sends, 1)
	out := h.sends[0].msg.Data()
	assert.Equal(t, uint8(gsmconst.NSPDUUnitdata), out[0])
	assert.Equal(t, uint8(0x56), out[2])
	assert.Equal(t, uint8(0x78), out[3])
}

func TestSendMsgUnknownNSEIFails(t *testing.T) {
	t.Parallel()
	inst, _ := newHarness()
	ok := inst.SendMsg(99, 1, msgb.Alloc(4, "x"))
	assert.False(t, ok)
}

func TestAliveTimerExpiredSendsAliveThenBlocksAfterRetryLimit(t *testing.T) {
	t.Parallel()
	inst, h := newHarness()
	addr := udpAddr(1234)
	inst.RcvMsg(addr, resetPDU(t, 7, 42, gsmconst.NSCauseOMIntervention))
	nsvc, _ := inst.ByNSVCI(7)
	h.sends = nil

	inst.AliveTimerExpired(nsvc) // Tns-test fires: sends ALIVE, switches to Tns-alive
	require.Len(t, h.sends, 1)

	for i := 0; i < 11; i++ {
		inst.AliveTimerExpired(nsvc) // Tns-alive expiring without ALIVE_ACK
	}

	assert.Equal(t, ns.StateBlocked, nsvc.State)
	require.NotEmpty(t, h.delivers)
	assert.Equal(t, ns.EventBlocked, h.delivers[len(h.delivers)-1].event)
}

func TestBlockRepliesWithUnblockAck(t *testing.T) {
	t.Parallel()
	inst, h := newHarness()
	addr := udpAddr(1234)
	inst.RcvMsg(addr, resetPDU(t, 7, 42, gsmconst.NSCauseOMIntervention))
	h.sends = nil

	msg := msgb.Alloc(8, "ns-block")
	msg.SetL2H(0)
	msg.PutU8(uint8(gsmconst.NSPDUBlock))
	inst.RcvMsg(addr, msg)

	nsvc, _ := inst.ByNSVCI(7)
	assert.NotZero(t, nsvc.State&ns.StateBlocked)
	require.Len(t, h.sends, 1)
	assert.Equal(t, uint8(gsmconst.NSPDUUnblockAck), h.sends[0].msg.L2()[0])
}
