// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

// Package bssgp implements the GSM 08.18 BSSGP sublayer: per-BVC context
// tracking, the UL PDU dispatch table, and the DL-UNITDATA transmit
// framing used to carry LLC PDUs over the NS
// sublayer. Grounded on osmocom's gprs_bssgp.c
// (original_source/openbsc/src/gprs_bssgp.c) in full: the bts context
// lookup/creation rule, the mandatory-IE checks per PDU type, the
// BVC-RESET Cell-ID requirement for non-signalling BVCIs, and the
// DL-UNITDATA header layout are all transcribed from that file. As in
// internal/ns, every BSSGP IE on the wire uses the tag+length-indicator+
// value framing that this core's tlv package calls TvLV.
package bssgp

import (
	"encoding/binary"
	"fmt"

	"github.com/gsmcore/gsmcore/internal/gsm48"
	"github.com/gsmcore/gsmcore/internal/gsmconst"
	"github.com/gsmcore/gsmcore/internal/msgb"
	"github.com/gsmcore/gsmcore/internal/tlv"
	"github.com/puzpuzpuz/xsync/v4"
	"k8s.io/klog/v2"
)

// signallingBVCI is the BVCI reserved for NS-level BSSGP signalling
// (BVC-BLOCK/-UNBLOCK/-RESET acks and STATUS all ride on it).
const signallingBVCI = 0

// BVCState is a bitmask of per-BVC flags, mirroring gprs_bssgp.c's
// bssgp_bts_ctx.bvc_state.
type BVCState uint32

const (
	BVCFBlocked BVCState = 1 << iota
)

// bssgpIEDefs is the shared IE descriptor table: every BSSGP IE is framed
// as tag + length-indicator + value (this core's KindTvLV), so the table
// is a flat list of tags rather than a per-kind breakdown.
var bssgpIEDefs tlv.DescTable

func init() {
	for _, tag := range []uint8{
		gsmconst.BSSGPIEBVCI,
		gsmconst.BSSGPIECause,
		gsmconst.BSSGPIECellID,
		gsmconst.BSSGPIETLLI,
		gsmconst.BSSGPIETag,
		gsmconst.BSSGPIELLCPDU,
		gsmconst.BSSGPIEPDUInError,
		gsmconst.BSSGPIEPDULifetime,
		gsmconst.BSSGPIERoutingArea,
		gsmconst.BSSGPIESuspendRef,
		gsmconst.BSSGPIEBVCBucketSize,
		gsmconst.BSSGPIEBucketLeakRate,
		gsmconst.BSSGPIEBmaxDefaultMS,
		gsmconst.BSSGPIERDefaultMS,
		gsmconst.BSSGPIEQoSProfile,
	} {
		bssgpIEDefs[tag] = tlv.Descriptor{Kind: tlv.KindTvLV}
	}
}

// BTSContext is one BVC's tracked state, mirroring gprs_bssgp.c's
// bssgp_bts_ctx: the routeing-area/cell identity it last reset with, plus
// the (BVCI, NSEI) pair it is reachable over.
type BTSContext struct {
	BVCI uint16
	NSEI uint16
	State BVCState

	HaveCellID bool
	MCC, MNC, LAC uint16
	RAC           uint8
	CellID        uint16
}

type bvciNseiKey struct{ bvci, nsei uint16 }

type raidCidKey struct {
	mcc, mnc, lac uint16
	rac           uint8
	cid           uint16
}

// Event is an indication delivered up to the LLC/GMM layer above BSSGP.
// This core does not implement LLC or GMM, so Deliver is typically wired
// to a logging stub or a forwarding shim.
type Event int

const (
	EventULUnitdata Event = iota
	EventSuspend
	EventResume
)

// Instance is one BSS-side BSSGP endpoint, tracking every BVC reachable
// over it.
type Instance struct {
	byBVCINSEI *xsync.Map[bvciNseiKey, *BTSContext]
	byRAIDCID  *xsync.Map[raidCidKey, *BTSContext]

	// NSSend transmits a BSSGP PDU down to the NS sublayer (wired to
	// ns.Instance.SendMsg).
	NSSend func(nsei, bvci uint16, msg *msgb.MsgBuf) bool
	// Deliver hands an uplink indication to the layer above BSSGP.
	Deliver func(ctx *BTSContext, event Event, tlli uint32, msg *msgb.MsgBuf)
}

// New creates an empty BSSGP instance.
func New() *Instance {
	return &Instance{
		byBVCINSEI: xsync.NewMap[bvciNseiKey, *BTSContext](),
		byRAIDCID:  xsync.NewMap[raidCidKey, *BTSContext](),
	}
}

// ByBVCINSEI looks up a tracked BVC context by (BVCI, NSEI).
func (inst *Instance) ByBVCINSEI(bvci, nsei uint16) (*BTSContext, bool) {
	return inst.byBVCINSEI.Load(bvciNseiKey{bvci, nsei})
}

// ByRAIDCID looks up a tracked BVC context by its last-known routeing
// area and cell identity.
func (inst *Instance) ByRAIDCID(mcc, mnc, lac uint16, rac uint8, cid uint16) (*BTSContext, bool) {
	return inst.byRAIDCID.Load(raidCidKey{mcc, mnc, lac, rac, cid})
}

// getOrCreate returns the BVC context for (bvci, nsei), allocating and
// registering a fresh one on first sight. Mirrors
// btsctx_by_bvci_nsei/btsctx_alloc.
func (inst *Instance) getOrCreate(bvci, nsei uint16) *BTSContext {
	key := bvciNseiKey{bvci, nsei}
	if ctx, ok := inst.byBVCINSEI.Load(key); ok {
		return ctx
	}
	ctx := &BTSContext{BVCI: bvci, NSEI: nsei}
	inst.byBVCINSEI.Store(key, ctx)
	return ctx
}

// --- Transmit helpers. ---

func putCause(m *msgb.MsgBuf, cause gsmconst.BSSGPCause) {
	_ = tlv.PutTvLV(m, gsmconst.BSSGPIECause, []byte{uint8(cause)})
}

func putBVCI(m *msgb.MsgBuf, bvci uint16) {
	_ = tlv.PutTvLV(m, gsmconst.BSSGPIEBVCI, []byte{uint8(bvci >> 8), uint8(bvci)})
}

// txSimpleBVCI sends a PDU whose body is only a BVCI IE, over the
// signalling BVC. Mirrors bssgp_tx_simple_bvci.
func (inst *Instance) txSimpleBVCI(pduType gsmconst.BSSGPPDUType, nsei, bvci uint16) {
	out := msgb.Alloc(1+4, "bssgp-simple-bvci")
	out.Reserve(1)
	putBVCI(out, bvci)
	hdr := out.Push(1)
	hdr[0] = uint8(pduType)
	inst.NSSend(nsei, signallingBVCI, out)
}

// txFCBVCAck replies FLOW-CONTROL-BVC-ACK, echoing the peer's Tag value,
// transmitted over the same transport BVCI the request arrived on.
// Mirrors bssgp_tx_fc_bvc_ack.
func (inst *Instance) txFCBVCAck(nsei, nsBVCI uint16, tagValue uint8) {
	out := msgb.Alloc(1+3, "bssgp-fc-bvc-ack")
	out.Reserve(1)
	_ = tlv.PutTvLV(out, gsmconst.BSSGPIETag, []byte{tagValue})
	hdr := out.Push(1)
	hdr[0] = uint8(gsmconst.BSSGPFlowControlBVCAck)
	inst.NSSend(nsei, nsBVCI, out)
}

// TxStatus replies STATUS with the given cause, optionally echoing the
// BVCI the error concerns and the triggering PDU's bytes as
// PDU-in-error. Mirrors bssgp_tx_status.
func (inst *Instance) TxStatus(nsei uint16, cause gsmconst.BSSGPCause, bvci *uint16, origPDU []byte) error {
	size := 1 + 4
	if bvci != nil {
		size += 4
	}
	if len(origPDU) > 0 {
		size += 3 + len(origPDU)
	}
	out := msgb.Alloc(size, "bssgp-status")
	out.Reserve(1)
	putCause(out, cause)
	if bvci != nil {
		putBVCI(out, *bvci)
	}
	if len(origPDU) > 0 {
		if err := tlv.PutTvLV(out, gsmconst.BSSGPIEPDUInError, origPDU); err != nil {
			return err
		}
	}
	hdr := out.Push(1)
	hdr[0] = uint8(gsmconst.BSSGPStatus)
	inst.NSSend(nsei, signallingBVCI, out)
	return nil
}

// TxDLUnitdata frames an LLC PDU for downlink delivery: an LLC-PDU IE, a
// fixed 1000-centisecond PDU-lifetime IE, and the 8-byte bssgp_ud_hdr
// (pdu_type, TLLI, QoS profile) pushed onto the front. Mirrors
// gprs_bssgp_tx_dl_ud.
func (inst *Instance) TxDLUnitdata(nsei, bvci uint16, tlli uint32, llcPDU []byte) error {
	if bvci < 2 {
		return fmt.Errorf("bssgp: DL-UNITDATA requires BVCI >= 2, got %d", bvci)
	}
	inst.getOrCreate(bvci, nsei)

	out := msgb.Alloc(8+3+len(llcPDU)+4, "bssgp-dl-unitdata")
	out.Reserve(8)
	if err := tlv.PutTvLV(out, gsmconst.BSSGPIELLCPDU, llcPDU); err != nil {
		return err
	}
	var lifetime [2]byte
	binary.BigEndian.PutUint16(lifetime[:], 1000)
	if err := tlv.PutTvLV(out, gsmconst.BSSGPIEPDULifetime, lifetime[:]); err != nil {
		return err
	}
	hdr := out.Push(8)
	hdr[0] = uint8(gsmconst.BSSGPDLUnitdata)
	binary.BigEndian.PutUint32(hdr[1:5], tlli)
	hdr[5], hdr[6], hdr[7] = 0x00, 0x00, 0x21 // default QoS profile

	inst.NSSend(nsei, bvci, out)
	return nil
}

// --- Receive dispatch. ---

// RcvMsg dispatches one BSSGP PDU received from the NS sublayer over
// (nsei, bvci). msg's used window must start at the PDU type octet.
// Mirrors gprs_bssgp_rcvmsg's switch, with the same UL_UNITDATA/
// DL_UNITDATA special case: those two PDU types parse their own IEs
// (they carry a raw TLLI before the generic IE list) rather than going
// through the shared tlv.Parse call every other PDU type gets.
func (inst *Instance) RcvMsg(nsei, bvci uint16, msg *msgb.MsgBuf) error {
	data := msg.Data()
	if len(data) < 1 {
		return fmt.Errorf("bssgp: empty PDU")
	}
	pduType := gsmconst.BSSGPPDUType(data[0])
	rest := data[1:]

	switch pduType {
	case gsmconst.BSSGPULUnitdata:
		return inst.rxULUnitdata(nsei, bvci, rest)
	case gsmconst.BSSGPSuspend:
		return inst.rxSuspendResume(nsei, bvci, EventSuspend, rest)
	case gsmconst.BSSGPResume:
		return inst.rxSuspendResume(nsei, bvci, EventResume, rest)
	case gsmconst.BSSGPRACapability, gsmconst.BSSGPRadioStatus,
		gsmconst.BSSGPFlushLL, gsmconst.BSSGPLLCDiscard:
		klog.V(2).Infof("bssgp: PDU type %#x not implemented, ignoring", pduType)
		return nil
	case gsmconst.BSSGPFlowControlBVC:
		return inst.rxFlowControlBVC(nsei, bvci, rest)
	case gsmconst.BSSGPBVCBlock:
		return inst.rxBVCBlock(nsei, rest)
	case gsmconst.BSSGPBVCUnblock:
		return inst.rxBVCUnblock(nsei, rest)
	case gsmconst.BSSGPBVCReset:
		return inst.rxBVCReset(nsei, rest)
	case gsmconst.BSSGPStatus:
		klog.V(2).Infof("bssgp: received STATUS from NSEI %d", nsei)
		return nil
	case gsmconst.BSSGPDLUnitdata, gsmconst.BSSGPSuspendAck, gsmconst.BSSGPSuspendNack,
		gsmconst.BSSGPResumeAck, gsmconst.BSSGPResumeNack, gsmconst.BSSGPBVCBlockAck,
		gsmconst.BSSGPBVCUnblockAck, gsmconst.BSSGPFlowControlBVCAck:
		return fmt.Errorf("bssgp: PDU type %#x is downlink-only, received from NSEI %d", pduType, nsei)
	default:
		klog.Warningf("bssgp: unknown PDU type %#x from NSEI %d", pduType, nsei)
		return nil
	}
}

func requireIEs(parsed *tlv.ParsedTable, tags ...uint8) bool {
	for _, t := range tags {
		if parsed[t] == nil {
			return false
		}
	}
	return true
}

func (inst *Instance) rxULUnitdata(nsei, bvci uint16, rest []byte) error {
	if len(rest) < 4 {
		return inst.TxStatus(nsei, gsmconst.BSSGPCauseMissingMandIE, &bvci, rest)
	}
	tlli := binary.BigEndian.Uint32(rest[0:4])

	var parsed tlv.ParsedTable
	res := tlv.Parse(&bssgpIEDefs, rest[4:], &parsed, -1, -1, false)
	if res.Err != nil {
		return res.Err
	}
	if !requireIEs(&parsed, gsmconst.BSSGPIECellID, gsmconst.BSSGPIELLCPDU) {
		return inst.TxStatus(nsei, gsmconst.BSSGPCauseMissingMandIE, &bvci, rest)
	}

	ctx, _ := inst.ByBVCINSEI(bvci, nsei)
	llcIE := parsed[gsmconst.BSSGPIELLCPDU]
	llc := msgb.Alloc(llcIE.Len, "bssgp-ul-llc")
	copy(llc.Put(llcIE.Len), llcIE.Value)
	inst.Deliver(ctx, EventULUnitdata, tlli, llc)
	return nil
}

func (inst *Instance) rxSuspendResume(nsei, bvci uint16, event Event, rest []byte) error {
	var parsed tlv.ParsedTable
	res := tlv.Parse(&bssgpIEDefs, rest, &parsed, -1, -1, false)
	if res.Err != nil {
		return res.Err
	}
	if !requireIEs(&parsed, gsmconst.BSSGPIETLLI, gsmconst.BSSGPIERoutingArea) {
		return inst.TxStatus(nsei, gsmconst.BSSGPCauseMissingMandIE, &bvci, rest)
	}
	tlli := binary.BigEndian.Uint32(parsed[gsmconst.BSSGPIETLLI].Value)
	ctx, _ := inst.ByBVCINSEI(bvci, nsei)
	// GMM is out of scope: deliver up so a higher layer can decide
	// SUSPEND_ACK/RESUME_ACK/NACK.
	inst.Deliver(ctx, event, tlli, nil)
	return nil
}

func (inst *Instance) rxFlowControlBVC(nsei, bvci uint16, rest []byte) error {
	var parsed tlv.ParsedTable
	res := tlv.Parse(&bssgpIEDefs, rest, &parsed, -1, -1, false)
	if res.Err != nil {
		return res.Err
	}
	if !requireIEs(&parsed, gsmconst.BSSGPIETag, gsmconst.BSSGPIEBVCBucketSize,
		gsmconst.BSSGPIEBucketLeakRate, gsmconst.BSSGPIEBmaxDefaultMS, gsmconst.BSSGPIERDefaultMS) {
		return inst.TxStatus(nsei, gsmconst.BSSGPCauseMissingMandIE, &bvci, rest)
	}
	inst.txFCBVCAck(nsei, bvci, parsed[gsmconst.BSSGPIETag].Value[0])
	return nil
}

func (inst *Instance) rxBVCBlock(nsei uint16, rest []byte) error {
	var parsed tlv.ParsedTable
	res := tlv.Parse(&bssgpIEDefs, rest, &parsed, -1, -1, false)
	if res.Err != nil {
		return res.Err
	}
	if !requireIEs(&parsed, gsmconst.BSSGPIEBVCI, gsmconst.BSSGPIECause) {
		return inst.TxStatus(nsei, gsmconst.BSSGPCauseMissingMandIE, nil, rest)
	}
	bvci := binary.BigEndian.Uint16(parsed[gsmconst.BSSGPIEBVCI].Value)
	ctx := inst.getOrCreate(bvci, nsei)
	ctx.State |= BVCFBlocked
	klog.Infof("bssgp: BVCI %d/NSEI %d blocked, cause %s", bvci, nsei,
		gsmconst.BSSGPCause(parsed[gsmconst.BSSGPIECause].Value[0]))
	inst.txSimpleBVCI(gsmconst.BSSGPBVCBlockAck, nsei, bvci)
	return nil
}

func (inst *Instance) rxBVCUnblock(nsei uint16, rest []byte) error {
	var parsed tlv.ParsedTable
	res := tlv.Parse(&bssgpIEDefs, rest, &parsed, -1, -1, false)
	if res.Err != nil {
		return res.Err
	}
	if !requireIEs(&parsed, gsmconst.BSSGPIEBVCI) {
		return inst.TxStatus(nsei, gsmconst.BSSGPCauseMissingMandIE, nil, rest)
	}
	bvci := binary.BigEndian.Uint16(parsed[gsmconst.BSSGPIEBVCI].Value)
	ctx := inst.getOrCreate(bvci, nsei)
	ctx.State &^= BVCFBlocked
	inst.txSimpleBVCI(gsmconst.BSSGPBVCUnblockAck, nsei, bvci)
	return nil
}

func (inst *Instance) rxBVCReset(nsei uint16, rest []byte) error {
	var parsed tlv.ParsedTable
	res := tlv.Parse(&bssgpIEDefs, rest, &parsed, -1, -1, false)
	if res.Err != nil {
		return res.Err
	}
	if !requireIEs(&parsed, gsmconst.BSSGPIEBVCI, gsmconst.BSSGPIECause) {
		return inst.TxStatus(nsei, gsmconst.BSSGPCauseMissingMandIE, nil, rest)
	}
	bvci := binary.BigEndian.Uint16(parsed[gsmconst.BSSGPIEBVCI].Value)
	ctx := inst.getOrCreate(bvci, nsei)

	if bvci != 0 && bvci != 1 {
		cellIE := parsed[gsmconst.BSSGPIECellID]
		if cellIE == nil || cellIE.Len != 8 {
			return inst.TxStatus(nsei, gsmconst.BSSGPCauseMissingMandIE, &bvci, rest)
		}
		var raw [6]byte
		copy(raw[:], cellIE.Value[0:6])
		mcc, mnc, lac, rac := gsm48.DecodeRA(raw)
		ctx.MCC, ctx.MNC, ctx.LAC, ctx.RAC = mcc, mnc, lac, rac
		ctx.CellID = binary.BigEndian.Uint16(cellIE.Value[6:8])
		ctx.HaveCellID = true
		inst.byRAIDCID.Store(raidCidKey{mcc, mnc, lac, rac, ctx.CellID}, ctx)
	}

	klog.Infof("bssgp: BVC-RESET for BVCI %d/NSEI %d, cause %s", bvci, nsei,
		gsmconst.BSSGPCause(parsed[gsmconst.BSSGPIECause].Value[0]))
	inst.txSimpleBVCI(gsmconst.BSSGPBVCResetAck, nsei, bvci)
	return nil
}
