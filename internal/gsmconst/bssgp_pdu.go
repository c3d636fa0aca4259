// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

package gsmconst

// BSSGPPDUType is the first octet of every BSSGP (GSM 08.18) PDU.
type BSSGPPDUType uint8

const (
	BSSGPDLUnitdata      BSSGPPDUType = 0x00
	BSSGPULUnitdata      BSSGPPDUType = 0x01
	BSSGPSuspend         BSSGPPDUType = 0x06
	BSSGPSuspendAck      BSSGPPDUType = 0x07
	BSSGPSuspendNack     BSSGPPDUType = 0x08
	BSSGPResume          BSSGPPDUType = 0x09
	BSSGPResumeAck       BSSGPPDUType = 0x0A
	BSSGPResumeNack      BSSGPPDUType = 0x0B
	BSSGPBVCBlock        BSSGPPDUType = 0x20
	BSSGPBVCBlockAck     BSSGPPDUType = 0x21
	BSSGPBVCReset        BSSGPPDUType = 0x22
	BSSGPBVCResetAck     BSSGPPDUType = 0x23
	BSSGPBVCUnblock      BSSGPPDUType = 0x24
	BSSGPBVCUnblockAck   BSSGPPDUType = 0x25
	BSSGPFlushLL            BSSGPPDUType = 0x0E
	BSSGPFlowControlBVC     BSSGPPDUType = 0x26
	BSSGPFlowControlBVCAck  BSSGPPDUType = 0x27
	BSSGPLLCDiscard      BSSGPPDUType = 0x28
	BSSGPStatus          BSSGPPDUType = 0x41
	BSSGPRadioStatus     BSSGPPDUType = 0x56
	BSSGPRACapability    BSSGPPDUType = 0x10
)

// BSSGP IE tags (GSM 08.18 §11.3) used by this core.
const (
	BSSGPIEBVCI             uint8 = 0x04
	BSSGPIECause            uint8 = 0x08
	BSSGPIECellID           uint8 = 0x09
	BSSGPIETLLI             uint8 = 0x0E
	BSSGPIETag              uint8 = 0x1E
	BSSGPIELLCPDU           uint8 = 0x0C
	BSSGPIEPDUInError       uint8 = 0x0D
	BSSGPIEPDULifetime      uint8 = 0x1A
	BSSGPIERoutingArea      uint8 = 0x1B
	BSSGPIESuspendRef       uint8 = 0x1D
	BSSGPIEBVCBucketSize    uint8 = 0x03
	BSSGPIEBucketLeakRate   uint8 = 0x05
	BSSGPIEBmaxDefaultMS    uint8 = 0x02
	BSSGPIERDefaultMS       uint8 = 0x1F
	BSSGPIEQoSProfile       uint8 = 0x18
)
