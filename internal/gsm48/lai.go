// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

package gsm48

import "encoding/binary"

// toBCDDigits splits val into its decimal digits, most-significant first,
// zero-padded to 3 digits (mirrors osmocom's to_bcd()).
func toBCDDigits(val uint16) [3]uint8 {
	var bcd [3]uint8
	bcd[2] = uint8(val % 10)
	val /= 10
	bcd[1] = uint8(val % 10)
	val /= 10
	bcd[0] = uint8(val % 10)
	return bcd
}

// EncodeLAI packs mcc/mnc/lac into the 5-byte Location Area Identification
// per 3GPP TS 24.008 Table 10.5.3: three MCC/MNC nibble-interleaved octets
// (with a 2-digit MNC signaled by an 0xF filler nibble, a 3-digit MNC using
// that nibble for its units digit) followed by a 16-bit big-endian LAC.
func EncodeLAI(mcc, mnc, lac uint16) [5]byte {
	var out [5]byte
	mccBCD := toBCDDigits(mcc)
	out[0] = mccBCD[0] | mccBCD[1]<<4
	out[1] = mccBCD[2]

	mncBCD := toBCDDigits(mnc)
	if mnc > 99 {
		out[1] |= mncBCD[2] << 4
		out[2] = mncBCD[0] | mncBCD[1]<<4
	} else {
		out[1] |= 0xF << 4
		out[2] = mncBCD[1] | mncBCD[2]<<4
	}

	binary.BigEndian.PutUint16(out[3:5], lac)
	return out
}

// DecodeLAI is the inverse of EncodeLAI.
func DecodeLAI(lai [5]byte) (mcc, mnc, lac uint16) {
	mcc = uint16(lai[0]&0x0F)*100 + uint16(lai[0]>>4)*10 + uint16(lai[1]&0x0F)
	if lai[1]&0xF0 == 0xF0 {
		mnc = uint16(lai[2]&0x0F)*10 + uint16(lai[2]>>4)
	} else {
		mnc = uint16(lai[2]&0x0F)*100 + uint16(lai[2]>>4)*10 + uint16(lai[1]>>4)
	}
	lac = binary.BigEndian.Uint16(lai[3:5])
	return mcc, mnc, lac
}

// EncodeRA packs mcc/mnc/lac/rac into the 6-byte Routing Area Identification:
// an EncodeLAI followed by the Routing Area Code octet.
func EncodeRA(mcc, mnc, lac uint16, rac uint8) [6]byte {
	lai := EncodeLAI(mcc, mnc, lac)
	var out [6]byte
	copy(out[0:5], lai[:])
	out[5] = rac
	return out
}

// DecodeRA is the inverse of EncodeRA.
func DecodeRA(ra [6]byte) (mcc, mnc, lac uint16, rac uint8) {
	var lai [5]byte
	copy(lai[:], ra[0:5])
	mcc, mnc, lac = DecodeLAI(lai)
	rac = ra[5]
	return mcc, mnc, lac, rac
}
