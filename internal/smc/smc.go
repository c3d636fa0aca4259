// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

// Package smc implements the GSM 04.11 SM-CP connection-management state
// machine: the MNSMS/MMSMS primitive exchange that multiplexes
// CP-DATA/CP-ACK/CP-ERROR over an MM connection.
// Grounded on osmocom's gsm0411_smc.c
// (original_source/src/shared/libosmocore/src/gsm/gsm0411_smc.c), with the
// static dispatch tables translated into explicit switch statements (Go has
// no SBIT/ALL_STATES bitmask idiom worth preserving) and the timer
// scheduling inverted into caller-supplied hooks so this package stays free
// of any dependency on the event loop's timer heap.
package smc

import (
	"time"

	"github.com/gsmcore/gsmcore/internal/gsmconst"
	"github.com/gsmcore/gsmcore/internal/msgb"
	"k8s.io/klog/v2"
)

// CPState is the SM-CP connection state (3GPP TS 04.11 §5).
type CPState int

const (
	IDLE CPState = iota
	MMConnPending
	WaitCPAck
	MMEstablished
)

func (s CPState) String() string {
	switch s {
	case IDLE:
		return "IDLE"
	case MMConnPending:
		return "MM_CONN_PENDING"
	case WaitCPAck:
		return "WAIT_CP_ACK"
	case MMEstablished:
		return "MM_ESTABLISHED"
	default:
		return "UNKNOWN"
	}
}

// CPMsgType is the GSM 04.11 CP message type octet.
type CPMsgType uint8

const (
	CPData  CPMsgType = 0x01
	CPAck   CPMsgType = 0x04
	CPError CPMsgType = 0x10
)

// MNEvent is an event delivered up to the MN (SMS relay/application) layer.
type MNEvent int

const (
	MNErrorInd MNEvent = iota
	MNEstInd
	MNDataInd
)

// MMEvent is a request sent down to the MM (mobility-management) layer.
type MMEvent int

const (
	MMEstReq MMEvent = iota
	MMDataReq
	MMRelReq
)

const maxCPRetries = 2

// Instance is one SM-CP connection (one per active MS/transaction).
type Instance struct {
	Network bool // true on the network side, false on the MS side

	State          CPState
	cpMsg          *msgb.MsgBuf
	releasePending bool
	retries        int
	TC1N           time.Duration // TC1A / (max_retries+1)

	// MNRecv delivers an event to the upper (MN) layer.
	MNRecv func(inst *Instance, event MNEvent, msg *msgb.MsgBuf)
	// MMSend delivers a request to the lower (MM) layer. cpType is only
	// meaningful when event == MMDataReq.
	MMSend func(inst *Instance, event MMEvent, msg *msgb.MsgBuf, cpType CPMsgType)
	// ArmTC1N and CancelTC1N let the owning stack schedule/cancel this
	// instance's retry timer without smc depending on the timer heap.
	ArmTC1N    func(inst *Instance)
	CancelTC1N func(inst *Instance)
}

// New creates an SMC instance. tc1a is the CP-DATA retransmit budget
// (default 30s); TC1N is derived as tc1a/(maxRetries+1).
func New(network bool, tc1a time.Duration) *Instance {
	return &Instance{
		Network: network,
		State:   IDLE,
		TC1N:    tc1a / (maxCPRetries + 1),
	}
}

func (inst *Instance) setState(s CPState) {
	klog.V(3).Infof("smc: state %s -> %s", inst.State, s)
	inst.State = s
}

// --- Downlink (MN -> SMC) entry points. ---

// EstReq handles MNSMS-EST-REQ: only valid from IDLE.
func (inst *Instance) EstReq(msg *msgb.MsgBuf) {
	if inst.State != IDLE {
		klog.V(2).Infof("smc: EST-REQ ignored in state %s", inst.State)
		return
	}
	inst.cpMsg = msg
	inst.setState(MMConnPending)
	inst.releasePending = false
	inst.MMSend(inst, MMEstReq, nil, 0)
}

// DataReq handles MN-DATA-REQ: only valid from MM_ESTABLISHED.
func (inst *Instance) DataReq(msg *msgb.MsgBuf) {
	if inst.State != MMEstablished {
		klog.V(2).Infof("smc: DATA-REQ ignored in state %s", inst.State)
		return
	}
	inst.cpMsg = msg
	inst.sendCPData()
}

// RelReq handles MN-REL-REQ. From MM_ESTABLISHED it releases immediately;
// otherwise (except IDLE, which discards silently) it sets the
// release-pending flag for later.
func (inst *Instance) RelReq() {
	if inst.State == IDLE {
		return
	}
	if inst.State != MMEstablished {
		klog.V(2).Infof("smc: REL-REQ deferred, current state %s", inst.State)
		inst.releasePending = true
		return
	}
	inst.cpMsg = nil
	inst.setState(IDLE)
	inst.MMSend(inst, MMRelReq, nil, 0)
}

// AbortReq handles MN-ABORT-REQ: valid in any state except IDLE.
func (inst *Instance) AbortReq(msg *msgb.MsgBuf) {
	if inst.State == IDLE {
		return
	}
	inst.cpMsg = nil
	inst.setState(IDLE)
	inst.MMSend(inst, MMDataReq, msg, CPError)
	inst.MMSend(inst, MMRelReq, nil, 0)
}

// --- Uplink (MM -> SMC) entry points. ---

// EstCnf handles MMSMS-EST-CNF: valid only from MM_CONN_PENDING.
func (inst *Instance) EstCnf() {
	if inst.State != MMConnPending {
		klog.V(2).Infof("smc: EST-CNF unexpected in state %s", inst.State)
		return
	}
	if inst.cpMsg == nil {
		klog.Warningf("smc: EST-CNF with no pending message")
		return
	}
	inst.sendCPData()
}

func (inst *Instance) sendCPData() {
	if inst.State != WaitCPAck {
		inst.retries = 0
	}
	inst.setState(WaitCPAck)
	inst.ArmTC1N(inst)
	inst.MMSend(inst, MMDataReq, inst.cpMsg.Clone(), CPData)
}

// TC1NExpired is called by the owning stack when this instance's TC1N
// timer fires.
func (inst *Instance) TC1NExpired() {
	if inst.retries >= maxCPRetries {
		klog.V(2).Infof("smc: TC1N expired, no more retries")
		inst.setState(IDLE)
		inst.MNRecv(inst, MNErrorInd, nil)
		inst.cpMsg = nil
		inst.MMSend(inst, MMRelReq, nil, 0)
		return
	}
	inst.retries++
	inst.sendCPData()
}

// DataInd handles MMSMS-DATA-IND, dispatching on the embedded CP message
// type.
func (inst *Instance) DataInd(cpType CPMsgType, msg *msgb.MsgBuf) {
	switch {
	case cpType == CPData && (inst.State == IDLE || inst.State == MMEstablished):
		inst.recvCPData(msg)
	case cpType == CPAck && inst.State == WaitCPAck:
		inst.recvCPAck()
	case cpType == CPError:
		inst.recvCPError(msg)
	default:
		inst.unexpectedCPMessage()
	}
}

func (inst *Instance) recvCPData(msg *msgb.MsgBuf) {
	event := MNDataInd
	if inst.State == IDLE {
		inst.setState(MMEstablished)
		event = MNEstInd
		inst.releasePending = false
	}
	inst.MMSend(inst, MMDataReq, nil, CPAck)
	inst.MNRecv(inst, event, msg)
}

func (inst *Instance) recvCPAck() {
	inst.cpMsg = nil
	inst.setState(MMEstablished)
	inst.CancelTC1N(inst)

	if inst.releasePending {
		inst.setState(IDLE)
		inst.MMSend(inst, MMRelReq, nil, 0)
	}
}

func (inst *Instance) recvCPError(msg *msgb.MsgBuf) {
	inst.cpMsg = nil
	inst.setState(IDLE)
	inst.MNRecv(inst, MNErrorInd, msg)
	inst.MMSend(inst, MMRelReq, nil, 0)
}

// unexpectedCPMessage implements the "unknown message-type in IDLE or
// MM_ESTABLISHED" rule: reply CP-ERROR(MSGTYPE_NOTEXIST) and go IDLE.
func (inst *Instance) unexpectedCPMessage() {
	klog.Warningf("smc: unexpected CP message in state %s", inst.State)
	inst.setState(IDLE)
	cause := msgb.Alloc(1, "cp-error-cause")
	cause.PutU8(uint8(gsmconst.CPCauseMsgTypeNotExist))
	inst.MMSend(inst, MMDataReq, cause, CPError)
	inst.MNRecv(inst, MNErrorInd, nil)
	inst.MMSend(inst, MMRelReq, nil, 0)
}

// RelInd handles MMSMS-REL-IND: the MM layer released without our asking.
func (inst *Instance) RelInd() {
	inst.cpMsg = nil
	inst.setState(IDLE)
	inst.MNRecv(inst, MNErrorInd, nil)
}
