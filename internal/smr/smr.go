// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

// Package smr implements the GSM 04.11 SM-RL relay state machine: the
// MNSMS primitive exchange that carries RP-DATA/RP-ACK/RP-ERROR/RP-SMMA
// messages between the SMS relay layer and
// SM-CP. Grounded on osmocom's gsm0411_smr.c
// (original_source/src/shared/libosmocore/src/gsm/gsm0411_smr.c): the
// rp_state enum (including its unused gap value), the direction-check rule,
// and the distinct TX-side vs RX-side error handling are all transcribed
// from that file's state handler bodies. As in internal/smc, timer
// scheduling is inverted into caller-supplied hooks so this package has no
// dependency on the event loop's timer heap.
package smr

import (
	"time"

	"github.com/gsmcore/gsmcore/internal/gsmconst"
	"github.com/gsmcore/gsmcore/internal/msgb"
	"k8s.io/klog/v2"
)

// RPState is the SM-RL relay state (3GPP TS 04.11 §5.3).
type RPState int

const (
	IDLE RPState = iota
	WaitForRPAck
	// state value 2 is reserved: osmocom's rp_state enum leaves a gap here
	// (an illegal/unused state between WAIT_FOR_RP_ACK and
	// WAIT_TO_TX_RP_ACK) which this port preserves for numeric fidelity
	// with the original rather than renumbering.
	rpStateReserved
	WaitToTxRPAck
)

func (s RPState) String() string {
	switch s {
	case IDLE:
		return "IDLE"
	case WaitForRPAck:
		return "WAIT_FOR_RP_ACK"
	case WaitToTxRPAck:
		return "WAIT_TO_TX_RP_ACK"
	default:
		return "UNKNOWN"
	}
}

// RPMsgType is the GSM 04.11 RP message type octet. Bit 0 discriminates
// MO (mobile-originated, bit clear) from MT (mobile-terminated, bit set).
type RPMsgType uint8

const (
	RPDataMO RPMsgType = 0x00
	RPDataMT RPMsgType = 0x01
	RPAckMO  RPMsgType = 0x02
	RPAckMT  RPMsgType = 0x03
	RPErrMO  RPMsgType = 0x04
	RPErrMT  RPMsgType = 0x05
	RPSMMAMO RPMsgType = 0x06
)

// RLEvent is an event delivered up to the SM-RL / relay application layer.
type RLEvent int

const (
	RLDataInd RLEvent = iota
	RLReportInd
	RLMemAvailInd
)

// CPEvent is a request sent down to the SM-CP layer.
type CPEvent int

const (
	CPDataReq CPEvent = iota
	CPRelReq
)

// Instance is one SM-RL relay transaction.
type Instance struct {
	Network bool // true on the network side, false on the MS side

	State   RPState
	msgType RPMsgType
	msgRef  uint8

	// RLRecv delivers an event to the upper (relay) layer.
	RLRecv func(inst *Instance, event RLEvent, cause gsmconst.RPCause, msg *msgb.MsgBuf)
	// CPSend delivers a request to the lower (SM-CP) layer.
	CPSend func(inst *Instance, event CPEvent, msg *msgb.MsgBuf)
	// ArmTR1N/CancelTR1N schedule/cancel the "waiting for RP-ACK" timer.
	ArmTR1N    func(inst *Instance)
	CancelTR1N func(inst *Instance)
	// ArmTR2N/CancelTR2N schedule/cancel the "waiting to transmit RP-ACK"
	// timer.
	ArmTR2N    func(inst *Instance)
	CancelTR2N func(inst *Instance)

	tr1n time.Duration
	tr2n time.Duration
}

// New creates an SMR instance for one side of the link.
func New(network bool, tr1n, tr2n time.Duration) *Instance {
	return &Instance{
		Network: network,
		State:   IDLE,
		tr1n:    tr1n,
		tr2n:    tr2n,
	}
}

func (inst *Instance) setState(s RPState) {
	klog.V(3).Infof("smr: state %s -> %s", inst.State, s)
	inst.State = s
}

// checkDirection implements gsm0411_smr.c's `inst->network == (msg_type &
// 1)` rule: on the network side an incoming message type must have bit 0
// clear (MO, i.e. coming from the MS); on the MS side it must have bit 0
// set (MT, coming from the network). A mismatch means the message
// travelled the wrong way for this instance's side.
func (inst *Instance) checkDirection(msgType RPMsgType) bool {
	bit0 := msgType&1 != 0
	return inst.Network == bit0
}

// --- Downlink (relay -> SMR) entry points. ---

// EstReq handles MNSMS-EST-REQ / MNSMS-DATA-REQ for an RP-DATA or RP-SMMA
// message originated locally: only valid from IDLE.
func (inst *Instance) EstReq(msgType RPMsgType, msgRef uint8, msg *msgb.MsgBuf) {
	if inst.State != IDLE {
		klog.V(2).Infof("smr: EST-REQ ignored in state %s", inst.State)
		return
	}
	inst.msgType = msgType
	inst.msgRef = msgRef
	inst.setState(WaitForRPAck)
	inst.ArmTR1N(inst)
	inst.CPSend(inst, CPDataReq, inst.sendRP(msgType, msgRef, msg))
}

// DataReq handles MNSMS-DATA-REQ for an RP-ACK/RP-ERROR reply to a
// previously indicated RP-DATA: only valid from WAIT_TO_TX_RP_ACK.
func (inst *Instance) DataReq(msgType RPMsgType, cause *gsmconst.RPCause, msg *msgb.MsgBuf) {
	if inst.State != WaitToTxRPAck {
		klog.V(2).Infof("smr: DATA-REQ ignored in state %s", inst.State)
		return
	}
	inst.CancelTR2N(inst)
	inst.setState(IDLE)
	if cause != nil {
		causeMsg := msgb.Alloc(1, "rp-cause")
		causeMsg.PutU8(uint8(*cause))
		msg = causeMsg
	}
	inst.CPSend(inst, CPDataReq, inst.sendRP(msgType, inst.msgRef, msg))
}

// sendRP prefixes the RP header (length, message type, message reference)
// onto msg's content, mirroring gsm411_rp_sendmsg's msgb_push of the RP
// header. It always builds a fresh buffer with the header's headroom
// pre-reserved rather than pushing into the caller's buffer, since callers
// (including tests) cannot be relied on to have reserved RP-header
// headroom themselves.
func (inst *Instance) sendRP(msgType RPMsgType, msgRef uint8, msg *msgb.MsgBuf) *msgb.MsgBuf {
	var payload []byte
	if msg != nil {
		payload = msg.Data()
	}
	out := msgb.Alloc(3+len(payload), "rp")
	out.Reserve(3)
	if len(payload) > 0 {
		copy(out.Put(len(payload)), payload)
	}
	hdr := out.Push(3)
	hdr[0] = uint8(len(payload))
	hdr[1] = uint8(msgType)
	hdr[2] = msgRef
	return out
}

// --- Uplink (SM-CP -> SMR) entry points. ---

// EstInd handles MNSMS-EST-IND: an RP-DATA or RP-SMMA arrived from the
// peer. Mirrors gsm411_mnsms_est_ind.
func (inst *Instance) EstInd(msgType RPMsgType, msgRef uint8, msg *msgb.MsgBuf) {
	if inst.checkDirection(msgType) {
		inst.sendRPError(msgRef, gsmconst.RPCauseMsgIncompState)
		return
	}
	switch msgType {
	case RPDataMT, RPDataMO, RPSMMAMO:
		inst.msgType = msgType
		inst.msgRef = msgRef
		inst.setState(WaitToTxRPAck)
		inst.ArmTR2N(inst)
		inst.RLRecv(inst, RLDataInd, 0, msg)
	default:
		klog.Warningf("smr: unexpected RP message type %#x in EST-IND", msgType)
		inst.sendRPErrorNotExist(msgRef)
	}
}

// DataIndTx handles MNSMS-DATA-IND for the reply (RP-ACK/RP-ERROR) to a
// locally-originated RP-DATA/RP-SMMA: only meaningful from WAIT_FOR_RP_ACK.
// Mirrors gsm411_mnsms_data_ind_tx.
func (inst *Instance) DataIndTx(msgType RPMsgType, msgRef uint8, cause gsmconst.RPCause, msg *msgb.MsgBuf) {
	if inst.State != WaitForRPAck {
		klog.V(2).Infof("smr: DATA-IND (tx side) unexpected in state %s", inst.State)
		return
	}
	if inst.checkDirection(msgType) {
		inst.sendRPError(msgRef, gsmconst.RPCauseMsgIncompState)
		return
	}
	switch msgType {
	case RPAckMO, RPAckMT:
		inst.CancelTR1N(inst)
		inst.setState(IDLE)
		inst.RLRecv(inst, RLReportInd, 0, msg)
	case RPErrMO, RPErrMT:
		inst.CancelTR1N(inst)
		inst.setState(IDLE)
		inst.RLRecv(inst, RLReportInd, cause, msg)
	default:
		klog.Warningf("smr: unexpected RP message type %#x in DATA-IND(tx)", msgType)
		inst.sendRPErrorNotExist(msgRef)
	}
}

// ErrorIndTx handles MNSMS-ERROR-IND raised by SM-CP while an
// RP-DATA/RP-ACK/RP-ERROR was outbound: releases and reports immediately.
// Mirrors gsm411_mnsms_error_ind_tx.
func (inst *Instance) ErrorIndTx() {
	inst.setState(IDLE)
	inst.RLRecv(inst, RLReportInd, gsmconst.RPCauseMsgIncompState, nil)
	inst.CPSend(inst, CPRelReq, nil)
}

// ErrorIndRx handles MNSMS-ERROR-IND raised by SM-CP while something was
// inbound: releases and reports, but unlike ErrorIndTx does not itself
// request SM-CP release (the inbound side already owns that). Mirrors
// gsm411_mnsms_error_ind_rx.
func (inst *Instance) ErrorIndRx() {
	inst.setState(IDLE)
	inst.RLRecv(inst, RLReportInd, gsmconst.RPCauseMsgIncompState, nil)
}

// TR1NExpired handles expiry of the "waiting for RP-ACK" timer while in
// WAIT_FOR_RP_ACK. Mirrors rp_timer_expired's TR1N branch: always reports
// and aborts, no retry.
func (inst *Instance) TR1NExpired() {
	if inst.State != WaitForRPAck {
		return
	}
	klog.V(2).Infof("smr: TR1N expired")
	inst.setState(IDLE)
	inst.RLRecv(inst, RLReportInd, gsmconst.RPCauseMsgIncompState, nil)
	inst.CPSend(inst, CPRelReq, nil)
}

// TR2NExpired handles expiry of the "waiting to transmit RP-ACK" timer
// while in WAIT_TO_TX_RP_ACK. Mirrors rp_timer_expired's TR2N branch.
func (inst *Instance) TR2NExpired() {
	if inst.State != WaitToTxRPAck {
		return
	}
	klog.V(2).Infof("smr: TR2N expired")
	inst.setState(IDLE)
	inst.RLRecv(inst, RLReportInd, gsmconst.RPCauseMsgIncompState, nil)
	inst.CPSend(inst, CPRelReq, nil)
}

func (inst *Instance) sendRPError(msgRef uint8, cause gsmconst.RPCause) {
	inst.setState(IDLE)
	out := msgb.Alloc(1, "rp-error-cause")
	out.PutU8(uint8(cause))
	errType := RPErrMT
	if inst.Network {
		errType = RPErrMO
	}
	inst.CPSend(inst, CPDataReq, inst.sendRP(errType, msgRef, out))
	inst.CPSend(inst, CPRelReq, nil)
}

// sendRPErrorNotExist implements the "unknown RP message type" default
// case present in both gsm411_mnsms_est_ind and gsm411_mnsms_data_ind_tx:
// reply RP-ERROR(MSGTYPE_NOTEXIST).
func (inst *Instance) sendRPErrorNotExist(msgRef uint8) {
	inst.sendRPError(msgRef, gsmconst.RPCauseMsgTypeNotExist)
}
