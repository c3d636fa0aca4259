// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

// Package gsmconst carries the shared enumerations used across the
// protocol-core packages: CP/RP cause codes, NS/BSSGP PDU type octets, and
// the logical-channel type table. Centralizing these avoids every state
// machine package redefining the same 3GPP constant tables.
package gsmconst

// CPCause values are the GSM 04.11 CP-ERROR cause codes (table 8.4).
type CPCause uint8

const (
	CPCauseNetFail         CPCause = 17
	CPCauseCongestion      CPCause = 22
	CPCauseInvTransID      CPCause = 81
	CPCauseSemantIncMsg    CPCause = 95
	CPCauseInvMandInf      CPCause = 96
	CPCauseMsgTypeNotExist CPCause = 97
	CPCauseIENotExist      CPCause = 99
	CPCauseMsgIncompState  CPCause = 101
	CPCauseProtocolErr     CPCause = 111
)

// RPCause values are the GSM 04.11 RP-ERROR cause codes in scope for SMR.
type RPCause uint8

const (
	RPCauseMsgIncompState  RPCause = 98
	RPCauseMissingMandIE   RPCause = 96
	RPCauseMsgTypeNotExist RPCause = 97
	RPCauseProtocolErr     RPCause = 111
)

// BSSGPCause values are the subset of GSM 08.18 BSSGP cause codes this core
// emits.
type BSSGPCause uint8

const (
	BSSGPCauseProcOverload     BSSGPCause = 0x00
	BSSGPCauseEquipFail        BSSGPCause = 0x01
	BSSGPCauseTransitFail      BSSGPCause = 0x02
	BSSGPCauseCapacityExceeded BSSGPCause = 0x03
	BSSGPCauseUnknownMS        BSSGPCause = 0x04
	BSSGPCauseUnknownBVCI      BSSGPCause = 0x05
	BSSGPCauseBVCIBlocked      BSSGPCause = 0x06
	BSSGPCausePDUIncompState   BSSGPCause = 0x08
	BSSGPCauseMissingMandIE    BSSGPCause = 0x09
	BSSGPCauseInvalidMandIE    BSSGPCause = 0x0A
	BSSGPCauseSemIncorrectPDU BSSGPCause = 0x0B
	BSSGPCauseUnknownNSEI      BSSGPCause = 0x22
)

func (c BSSGPCause) String() string {
	switch c {
	case BSSGPCauseProcOverload:
		return "Processor overload"
	case BSSGPCauseEquipFail:
		return "Equipment failure"
	case BSSGPCauseTransitFail:
		return "Transit network failure"
	case BSSGPCauseCapacityExceeded:
		return "Capacity exceeded"
	case BSSGPCauseUnknownMS:
		return "Unknown MS"
	case BSSGPCauseUnknownBVCI:
		return "Unknown BVCI"
	case BSSGPCauseBVCIBlocked:
		return "BVCI blocked"
	case BSSGPCausePDUIncompState:
		return "PDU not compatible with protocol state"
	case BSSGPCauseMissingMandIE:
		return "Missing mandatory IE"
	case BSSGPCauseInvalidMandIE:
		return "Invalid mandatory IE"
	case BSSGPCauseSemIncorrectPDU:
		return "Semantically incorrect PDU"
	case BSSGPCauseUnknownNSEI:
		return "Unknown NSEI"
	default:
		return "Unknown BSSGP cause"
	}
}

// NSCause values are the GSM 08.16 §10.3.2 table 13 NS cause codes.
type NSCause uint8

const (
	NSCauseTransitFail     NSCause = 0x00
	NSCauseOMIntervention  NSCause = 0x01
	NSCauseEquipFail       NSCause = 0x02
	NSCauseNSVCBlocked     NSCause = 0x03
	NSCauseNSVCUnknown     NSCause = 0x04
	NSCauseBVCIUnknown     NSCause = 0x05
	NSCauseSemIncorrPDU    NSCause = 0x08
	NSCausePDUIncompPState NSCause = 0x09
	NSCauseProtoErrUnspec  NSCause = 0x0A
	NSCauseInvalEssentIE   NSCause = 0x0B
	NSCauseMissingEssentIE NSCause = 0x0C
)

func (c NSCause) String() string {
	switch c {
	case NSCauseTransitFail:
		return "Transit network failure"
	case NSCauseOMIntervention:
		return "O&M intervention"
	case NSCauseEquipFail:
		return "Equipment failure"
	case NSCauseNSVCBlocked:
		return "NS-VC blocked"
	case NSCauseNSVCUnknown:
		return "NS-VC unknown"
	case NSCauseBVCIUnknown:
		return "BVCI unknown"
	case NSCauseSemIncorrPDU:
		return "Semantically incorrect PDU"
	case NSCausePDUIncompPState:
		return "PDU not compatible with protocol state"
	case NSCauseProtoErrUnspec:
		return "Protocol error, unspecified"
	case NSCauseInvalEssentIE:
		return "Invalid essential IE"
	case NSCauseMissingEssentIE:
		return "Missing essential IE"
	default:
		return "Unknown NS cause"
	}
}
