// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

// Package ns implements the GPRS Network Service (NS) sublayer (GSM
// 08.16): the NSVC state machine, its PDU handlers,
// and the alive procedure that supervises peer reachability. Grounded on
// openbsc's gprs_ns.c (original_source/openbsc/src/gprs_ns.c) — the NSVC
// lookup functions, gprs_ns_alive_cb's single-timer-callback
// alive/test-procedure design, and gprs_ns_rcvmsg's PDU dispatch are
// transcribed directly. As in internal/smc and internal/smr, the alive
// timer and the underlying transport are inverted into caller-supplied
// hooks so this package has no dependency on the event loop or a concrete
// socket.
package ns

import (
	"net"
	"time"

	"github.com/gsmcore/gsmcore/internal/gsmconst"
	"github.com/gsmcore/gsmcore/internal/msgb"
	"github.com/gsmcore/gsmcore/internal/tlv"
	"github.com/puzpuzpuz/xsync/v4"
	"k8s.io/klog/v2"
)

// State is a bitmask describing an NSVC's local or remote status.
type State uint8

const (
	StateBlocked State = 1 << iota
	StateAlive
)

const (
	tnsAlive    = 3 * time.Second
	tnsTest     = 30 * time.Second
	aliveRetryLimit = 10
)

// nsIEDefs is the TLV descriptor table for NS attribute IEs: every one of
// them is carried as TvLV (gprs_ns.c's ns_att_tlvdef).
var nsIEDefs tlv.DescTable

func init() {
	d := tlv.Descriptor{Kind: tlv.KindTvLV}
	nsIEDefs[gsmconst.NSIECause] = d
	nsIEDefs[gsmconst.NSIEVCI] = d
	nsIEDefs[gsmconst.NSIENSPDU] = d
	nsIEDefs[gsmconst.NSIEBVCI] = d
	nsIEDefs[gsmconst.NSIENSEI] = d
}

// NSVC is one NS Virtual Connection (GSM 08.16 §5).
type NSVC struct {
	NSVCI      uint16
	NSEI       uint16
	RemoteAddr *net.UDPAddr

	State       State
	RemoteState State

	timerIsTnsAlive bool
	aliveRetries    int
}

// Event is delivered to the upper (BSSGP) layer.
type Event int

const (
	EventUnitData Event = iota
	EventBlocked
)

// Instance owns the set of NSVCs for one NS entity and the hooks that
// connect it to transport, the timer heap, and BSSGP.
type Instance struct {
	byNSVCI *xsync.Map[uint16, *NSVC]
	byNSEI  *xsync.Map[uint16, *NSVC]
	byAddr  *xsync.Map[string, *NSVC]

	// Send transmits a fully-formed NS PDU (header already pushed) to the
	// NSVC's remote peer.
	Send func(nsvc *NSVC, msg *msgb.MsgBuf)
	// Deliver hands an event up to BSSGP. bvci is only meaningful for
	// EventUnitData.
	Deliver func(nsvc *NSVC, event Event, bvci uint16, msg *msgb.MsgBuf)
	// ArmAliveTimer/CancelAliveTimer schedule/cancel the per-NSVC
	// alive/test timer without ns depending on the timer heap.
	ArmAliveTimer    func(nsvc *NSVC, d time.Duration)
	CancelAliveTimer func(nsvc *NSVC)
}

// New creates an empty NS instance.
func New() *Instance {
	return &Instance{
		byNSVCI: xsync.NewMap[uint16, *NSVC](),
		byNSEI:  xsync.NewMap[uint16, *NSVC](),
		byAddr:  xsync.NewMap[string, *NSVC](),
	}
}

func addrKey(addr *net.UDPAddr) string { return addr.String() }

func (inst *Instance) byRemoteAddr(addr *net.UDPAddr) (*NSVC, bool) {
	return inst.byAddr.Load(addrKey(addr))
}

// ByNSVCI looks up an NSVC by its NS-VC identifier.
func (inst *Instance) ByNSVCI(nsvci uint16) (*NSVC, bool) { return inst.byNSVCI.Load(nsvci) }

// ByNSEI looks up an NSVC by its NS entity identifier.
func (inst *Instance) ByNSEI(nsei uint16) (*NSVC, bool) { return inst.byNSEI.Load(nsei) }

// index registers nsvc under its NSVCI/NSEI keys. Called once the RESET
// procedure has assigned real values -- the placeholder NSVCI a freshly
// created NSVC carries before that is never indexed, so no stale entry is
// left behind once the real keys are known.
func (inst *Instance) index(nsvc *NSVC) {
	inst.byNSVCI.Store(nsvc.NSVCI, nsvc)
	inst.byNSEI.Store(nsvc.NSEI, nsvc)
}

// create allocates a new NSVC, before the RESET procedure completes it
// starts BLOCKED and dead, mirroring nsvc_create. It is indexed by remote
// address immediately (so a retransmitted RESET finds the same instance)
// but not yet by NSVCI/NSEI, which RESET assigns.
func (inst *Instance) create(remoteAddr *net.UDPAddr) *NSVC {
	nsvc := &NSVC{
		NSVCI:      0xffff,
		RemoteAddr: remoteAddr,
		State:      StateBlocked,
	}
	inst.byAddr.Store(addrKey(remoteAddr), nsvc)
	return nsvc
}

// --- Transmit side. ---

func (inst *Instance) txSimple(nsvc *NSVC, pduType gsmconst.NSPDUType) {
	msg := msgb.Alloc(64, "ns")
	msg.PutU8(uint8(pduType))
	inst.Send(nsvc, msg)
}

func (inst *Instance) txResetAck(nsvc *NSVC) {
	msg := msgb.Alloc(64, "ns")
	msg.PutU8(uint8(gsmconst.NSPDUResetAck))
	_ = tlv.PutTvLV(msg, gsmconst.NSIEVCI, be16(nsvc.NSVCI))
	_ = tlv.PutTvLV(msg, gsmconst.NSIENSEI, be16(nsvc.NSEI))
	inst.Send(nsvc, msg)
}

func be16(v uint16) []byte { return []byte{uint8(v >> 8), uint8(v)} }

// SendMsg implements the NS-UNITDATA-REQUEST primitive (§9.2.10): resolve
// the NSVC by NSEI, push the 4-byte NS header, transmit. nsei/bvci are
// carried by the caller (normally BSSGP) alongside the payload since this
// port has no msgb side-channel fields for them.
func (inst *Instance) SendMsg(nsei, bvci uint16, msg *msgb.MsgBuf) bool {
	nsvc, ok := inst.ByNSEI(nsei)
	if !ok {
		klog.Warningf("ns: unable to resolve NSEI %d to NS-VC", nsei)
		return false
	}
	// Build a fresh buffer with the NS header's headroom pre-reserved
	// rather than pushing into the caller's buffer, since the caller
	// (normally BSSGP) cannot be relied on to have reserved NS-header
	// headroom itself.
	payload := msg.Data()
	out := msgb.Alloc(4+len(payload), "ns-unitdata-tx")
	out.Reserve(4)
	if len(payload) > 0 {
		copy(out.Put(len(payload)), payload)
	}
	hdr := out.Push(4)
	hdr[0] = uint8(gsmconst.NSPDUUnitdata)
	hdr[1] = 0 // spare
	hdr[2] = uint8(bvci >> 8)
	hdr[3] = uint8(bvci)
	inst.Send(nsvc, out)
	return true
}

// --- Receive side. ---

func (inst *Instance) rxUnitdata(nsvc *NSVC, msg *msgb.MsgBuf) {
	data := msg.L2()
	if len(data) < 4 {
		klog.Warningf("ns: truncated UNITDATA from NSEI %d", nsvc.NSEI)
		return
	}
	bvci := uint16(data[2])<<8 | uint16(data[3])
	rest := msgb.Alloc(len(data)-4, "ns-unitdata")
	copy(rest.Put(len(data)-4), data[4:])
	inst.Deliver(nsvc, EventUnitData, bvci, rest)
}

func (inst *Instance) rxStatus(nsvc *NSVC, pduData []byte) {
	var parsed tlv.ParsedTable
	parsed.Reset()
	if res := tlv.Parse(&nsIEDefs, pduData, &parsed, -1, -1, false); res.Err != nil {
		klog.Warningf("ns: STATUS parse error from NSEI %d: %v", nsvc.NSEI, res.Err)
		return
	}
	p := parsed[gsmconst.NSIECause]
	if p == nil {
		klog.Warningf("ns: STATUS missing cause IE from NSEI %d", nsvc.NSEI)
		return
	}
	cause := gsmconst.NSCause(p.Value[0])
	klog.Infof("ns: STATUS from NSEI %d, cause=%s", nsvc.NSEI, cause)
}

func (inst *Instance) rxReset(nsvc *NSVC, pduData []byte) {
	var parsed tlv.ParsedTable
	parsed.Reset()
	tlv.Parse(&nsIEDefs, pduData, &parsed, -1, -1, false)

	cause := parsed[gsmconst.NSIECause]
	vci := parsed[gsmconst.NSIEVCI]
	nsei := parsed[gsmconst.NSIENSEI]
	if cause == nil || vci == nil || nsei == nil {
		klog.Warningf("ns: RESET missing mandatory IE from %s", nsvc.RemoteAddr)
		return
	}

	nsvc.State = StateBlocked | StateAlive
	nsvc.NSEI = uint16(nsei.Value[0])<<8 | uint16(nsei.Value[1])
	nsvc.NSVCI = uint16(vci.Value[0])<<8 | uint16(vci.Value[1])
	inst.index(nsvc)

	klog.Infof("ns: RESET cause=%s NSVCI=%d NSEI=%d", gsmconst.NSCause(cause.Value[0]), nsvc.NSVCI, nsvc.NSEI)

	nsvc.timerIsTnsAlive = false
	inst.ArmAliveTimer(nsvc, tnsAlive)
	inst.txResetAck(nsvc)
}

// AliveTimerExpired is the single alive/test timer callback, mirroring
// gprs_ns_alive_cb: which procedure fired is distinguished by
// nsvc.timerIsTnsAlive rather than by two separate callbacks.
func (inst *Instance) AliveTimerExpired(nsvc *NSVC) {
	if nsvc.timerIsTnsAlive {
		nsvc.aliveRetries++
		if nsvc.aliveRetries > aliveRetryLimit {
			nsvc.State = StateBlocked
			klog.Warningf("ns: Tns-alive exceeded %d retries, blocking NSVCI %d", aliveRetryLimit, nsvc.NSVCI)
			inst.Deliver(nsvc, EventBlocked, 0, nil)
			return
		}
	} else {
		inst.txSimple(nsvc, gsmconst.NSPDUAlive)
		nsvc.timerIsTnsAlive = true
	}
	inst.ArmAliveTimer(nsvc, tnsAlive)
}

// RcvMsg is the main NS entry point. The caller must have called
// msg.SetL2H to position L2h at the start of the NS header (pdu_type,
// data...) before calling in -- normally right after a UDP datagram is
// read off the wire. Mirrors gprs_ns_rcvmsg.
func (inst *Instance) RcvMsg(remoteAddr *net.UDPAddr, msg *msgb.MsgBuf) {
	data := msg.L2()
	if len(data) < 1 {
		klog.Warningf("ns: empty PDU from %s", remoteAddr)
		return
	}
	pduType := gsmconst.NSPDUType(data[0])
	pduData := data[1:]

	nsvc, ok := inst.byRemoteAddr(remoteAddr)
	if !ok {
		if pduType != gsmconst.NSPDUReset {
			klog.Warningf("ns: PDU type %#x from unknown peer %s, dropping", pduType, remoteAddr)
			return
		}
		nsvc = inst.create(remoteAddr)
		inst.rxReset(nsvc, pduData)
		return
	}

	switch pduType {
	case gsmconst.NSPDUAlive:
		inst.txSimple(nsvc, gsmconst.NSPDUAliveAck)
	case gsmconst.NSPDUAliveAck:
		inst.CancelAliveTimer(nsvc)
		nsvc.timerIsTnsAlive = false
		inst.ArmAliveTimer(nsvc, tnsTest)
	case gsmconst.NSPDUUnitdata:
		inst.rxUnitdata(nsvc, msg)
	case gsmconst.NSPDUStatus:
		inst.rxStatus(nsvc, pduData)
	case gsmconst.NSPDUReset:
		inst.rxReset(nsvc, pduData)
	case gsmconst.NSPDUResetAck:
		nsvc.RemoteState = StateBlocked | StateAlive
	case gsmconst.NSPDUUnblock:
		nsvc.State &^= StateBlocked
		inst.txSimple(nsvc, gsmconst.NSPDUUnblockAck)
	case gsmconst.NSPDUUnblockAck:
		nsvc.RemoteState = StateAlive
	case gsmconst.NSPDUBlock:
		nsvc.State |= StateBlocked
		// Follows gprs_ns.c's source semantics as observed: BLOCK also
		// replies UNBLOCK_ACK rather than BLOCK_ACK.
		inst.txSimple(nsvc, gsmconst.NSPDUUnblockAck)
	case gsmconst.NSPDUBlockAck:
		nsvc.RemoteState = StateBlocked | StateAlive
	default:
		klog.Warningf("ns: unknown NS PDU type %#x from NSEI %d", pduType, nsvc.NSEI)
	}
}
