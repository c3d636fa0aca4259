// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

// Package primitive implements the primitive glue and the IPA-framed L1
// transport: an IPA header pair (ipaccess_head + ipaccess_head_ext), the
// SAP_L1 and SAP_MNSMS primitive contracts, and a Bus of function-valued
// hooks that wires them to the protocol stack. Grounded on osmocom-bb's
// prim_fbsb.c/prim_bts.c (original_source/src/target/firmware/layer1) for
// the info-parameter shape (frame number, SNR, time-of-arrival) carried
// alongside L1 primitives, and on the function-hook wiring style used by
// internal/ns.Instance's Send/Deliver fields for the Bus itself.
package primitive

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/gsmcore/gsmcore/internal/msgb"
)

// IPA header proto/ext-proto values.
const (
	ProtoOSMO     uint8 = 0xee
	ExtProtoL1CTL uint8 = 0x01
	ExtProtoCTRL  uint8 = 0x00
)

// IPAHeader is the first 3 bytes of every framed message: a big-endian
// length (covering everything after these 3 bytes) and a protocol byte.
type IPAHeader struct {
	Len   uint16
	Proto uint8
}

// IPAHeaderExt follows IPAHeader when Proto == ProtoOSMO, selecting the
// sub-protocol multiplexed under OSMO (L1CTL, CTRL, ...).
type IPAHeaderExt struct {
	Proto uint8
}

// ErrShortFrame is returned when a frame's declared length does not fit
// what could be read from the stream.
var ErrShortFrame = errors.New("primitive: short IPA frame")

// ReadIPAFrame reads one length-prefixed frame from r and splits off the
// extended protocol byte when Proto is ProtoOSMO. payload excludes both
// headers. extProto is only meaningful when proto is ProtoOSMO.
func ReadIPAFrame(r io.Reader) (proto uint8, extProto uint8, payload []byte, err error) {
	var hdr [3]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		return 0, 0, nil, err
	}
	length := binary.BigEndian.Uint16(hdr[:2])
	proto = hdr[2]

	body := make([]byte, length)
	if _, err = io.ReadFull(r, body); err != nil {
		return 0, 0, nil, err
	}
	if proto != ProtoOSMO {
		return proto, 0, body, nil
	}
	if len(body) < 1 {
		return 0, 0, nil, ErrShortFrame
	}
	return proto, body[0], body[1:], nil
}

// WriteIPAFrame writes one length-prefixed frame to w. When proto is
// ProtoOSMO the caller must supply extProto; it is ignored otherwise.
func WriteIPAFrame(w io.Writer, proto, extProto uint8, payload []byte) error {
	bodyLen := len(payload)
	if proto == ProtoOSMO {
		bodyLen++
	}
	out := make([]byte, 3+bodyLen)
	binary.BigEndian.PutUint16(out[0:2], uint16(bodyLen))
	out[2] = proto
	if proto == ProtoOSMO {
		out[3] = extProto
		copy(out[4:], payload)
	} else {
		copy(out[3:], payload)
	}
	_, err := w.Write(out)
	return err
}

// SAP identifies a primitive service access point.
type SAP uint8

const (
	SAPL1 SAP = iota
	SAPMNSMS
)

// L1Op enumerates SAP_L1 operations.
type L1Op uint8

const (
	L1OpDataInd L1Op = iota
	L1OpDataCnf
	L1OpRACHConf
	L1OpFBSBConf
	L1OpTrafficInd
)

// MNSMSOp enumerates SAP_MNSMS operations that feed SMC/SMR.
type MNSMSOp uint8

const (
	MNSMSOpEstReq MNSMSOp = iota
	MNSMSOpEstInd
	MNSMSOpEstCnf
	MNSMSOpDataReq
	MNSMSOpDataInd
	MNSMSOpRelReq
	MNSMSOpRelInd
	MNSMSOpErrorInd
)

// L1Info carries the timing/quality metadata attached to SAP_L1
// primitives, shaped after l1ctl_info_dl's fn/snr/toa trio as used by
// prim_fbsb.c/prim_bts.c.
type L1Info struct {
	FN     uint32
	SNR    int16
	TOA256 int16
}

// L1Primitive is one SAP_L1 message: an operation, its info parameters,
// and a payload message buffer (nil for confirmations that carry no
// data).
type L1Primitive struct {
	Op   L1Op
	Info L1Info
	Data *msgb.MsgBuf
}

// MNSMSPrimitive is one SAP_MNSMS message feeding/leaving SMC/SMR.
type MNSMSPrimitive struct {
	Op  MNSMSOp
	Msg *msgb.MsgBuf
}

// EncodeL1Primitive builds the wire form of p: SAP(1) + Op(1) + FN(be32)
// + SNR(be16) + TOA256(be16), followed by the payload if any.
func EncodeL1Primitive(p L1Primitive) *msgb.MsgBuf {
	var payload []byte
	if p.Data != nil {
		payload = p.Data.Data()
	}
	m := msgb.Alloc(10+len(payload), "l1-prim")
	m.PutU8(uint8(SAPL1))
	m.PutU8(uint8(p.Op))
	m.PutU32(p.Info.FN)
	m.PutU16(uint16(p.Info.SNR))
	m.PutU16(uint16(p.Info.TOA256))
	if len(payload) > 0 {
		copy(m.Put(len(payload)), payload)
	}
	return m
}

// ErrTruncated is returned by the Decode* functions when the buffer is
// shorter than its fixed header.
var ErrTruncated = errors.New("primitive: truncated primitive header")

// ErrWrongSAP is returned when a Decode* function is handed a buffer
// whose leading SAP byte does not match what it expects.
var ErrWrongSAP = errors.New("primitive: unexpected SAP")

// DecodeL1Primitive parses the wire form produced by EncodeL1Primitive.
func DecodeL1Primitive(m *msgb.MsgBuf) (L1Primitive, error) {
	if m.Len() < 1 {
		return L1Primitive{}, ErrTruncated
	}
	if SAP(m.Data()[0]) != SAPL1 {
		return L1Primitive{}, ErrWrongSAP
	}
	if m.Len() < 10 {
		return L1Primitive{}, ErrTruncated
	}
	m.PullU8()
	op := L1Op(m.PullU8())
	info := L1Info{
		FN:     m.PullU32(),
		SNR:    int16(m.PullU16()),
		TOA256: int16(m.PullU16()),
	}
	var data *msgb.MsgBuf
	if m.Len() > 0 {
		rest := m.Pull(m.Len())
		data = msgb.Alloc(len(rest), "l1-prim-data")
		copy(data.Put(len(rest)), rest)
	}
	return L1Primitive{Op: op, Info: info, Data: data}, nil
}

// EncodeMNSMSPrimitive builds the wire form: SAP(1) + Op(1), followed by
// the carried L3 message if any.
func EncodeMNSMSPrimitive(p MNSMSPrimitive) *msgb.MsgBuf {
	var payload []byte
	if p.Msg != nil {
		payload = p.Msg.Data()
	}
	m := msgb.Alloc(2+len(payload), "mnsms-prim")
	m.PutU8(uint8(SAPMNSMS))
	m.PutU8(uint8(p.Op))
	if len(payload) > 0 {
		copy(m.Put(len(payload)), payload)
	}
	return m
}

// DecodeMNSMSPrimitive parses the wire form produced by
// EncodeMNSMSPrimitive.
func DecodeMNSMSPrimitive(m *msgb.MsgBuf) (MNSMSPrimitive, error) {
	if m.Len() < 2 {
		return MNSMSPrimitive{}, ErrTruncated
	}
	sap := m.PullU8()
	if SAP(sap) != SAPMNSMS {
		return MNSMSPrimitive{}, ErrWrongSAP
	}
	op := MNSMSOp(m.PullU8())
	var msg *msgb.MsgBuf
	if m.Len() > 0 {
		rest := m.Pull(m.Len())
		msg = msgb.Alloc(len(rest), "mnsms-prim-data")
		copy(msg.Put(len(rest)), rest)
	}
	return MNSMSPrimitive{Op: op, Msg: msg}, nil
}

// wrapPayload copies raw bytes received off the wire into a fresh MsgBuf
// sized exactly to hold them, ready for Decode*Primitive's Pull calls.
func wrapPayload(payload []byte) *msgb.MsgBuf {
	m := msgb.Alloc(len(payload), "primitive-rx")
	copy(m.Put(len(payload)), payload)
	return m
}

// Bus is the cross-component dispatch point every protocol component
// holds a reference to, playing the role internal/ns.Instance plays for
// a single layer but generalized across every SAP: every direction of
// traffic is a function-valued field set by whichever side owns that
// direction, never a channel or goroutine, keeping every dispatch on
// the single event-loop thread.
type Bus struct {
	// L1DataReq is called by SMC/SMR/BSSGP's downward path to hand a
	// primitive to the L1 transport.
	L1DataReq func(p L1Primitive)
	// L1Indicate delivers an upward SAP_L1 primitive (DATA_IND,
	// DATA_CNF, RACH_CONF, FBSB_CONF, TRAFFIC_IND) from the transport.
	L1Indicate func(p L1Primitive)

	// MNSMSRequest carries a downward (*_REQ) SAP_MNSMS primitive from
	// SMC/SMR to whatever owns the L3 transmit path.
	MNSMSRequest func(p MNSMSPrimitive)
	// MNSMSIndicate carries an upward (*_IND/_CNF/ERROR_IND) SAP_MNSMS
	// primitive into SMC/SMR.
	MNSMSIndicate func(p MNSMSPrimitive)
}
