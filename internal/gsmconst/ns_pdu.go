// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

package gsmconst

// NSPDUType is the first octet of every NS (Network Service, GSM 08.16) PDU.
type NSPDUType uint8

const (
	NSPDUUnitdata NSPDUType = 0x00
	NSPDUReset    NSPDUType = 0x02
	NSPDUResetAck NSPDUType = 0x03
	NSPDUBlock    NSPDUType = 0x04
	NSPDUBlockAck NSPDUType = 0x05
	NSPDUUnblock  NSPDUType = 0x06
	NSPDUUnblockAck NSPDUType = 0x07
	NSPDUStatus   NSPDUType = 0x08
	NSPDUAlive    NSPDUType = 0x0A
	NSPDUAliveAck NSPDUType = 0x0B
)

// NS IE tags (GSM 08.16 §10.3).
const (
	NSIECause       uint8 = 0x00
	NSIEVCI         uint8 = 0x01
	NSIENSEI        uint8 = 0x02
	NSIEBVCI        uint8 = 0x03
	NSIENSPDU       uint8 = 0x04
)
