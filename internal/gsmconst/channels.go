// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

package gsmconst

// ChanType enumerates every logical channel type the TDMA scheduler and
// RSL glue code reason about.
type ChanType int

const (
	ChanIDLE ChanType = iota
	ChanFCCH
	ChanSCH
	ChanBCCH
	ChanRACH
	ChanCCCH
	ChanTCHF
	ChanTCHH0
	ChanTCHH1
	ChanSDCCH4_0
	ChanSDCCH4_1
	ChanSDCCH4_2
	ChanSDCCH4_3
	ChanSDCCH8_0
	ChanSDCCH8_1
	ChanSDCCH8_2
	ChanSDCCH8_3
	ChanSDCCH8_4
	ChanSDCCH8_5
	ChanSDCCH8_6
	ChanSDCCH8_7
	ChanSACCHTF
	ChanSACCHTH0
	ChanSACCHTH1
	ChanSACCH4_0
	ChanSACCH4_1
	ChanSACCH4_2
	ChanSACCH4_3
	ChanSACCH8_0
	ChanSACCH8_1
	ChanSACCH8_2
	ChanSACCH8_3
	ChanSACCH8_4
	ChanSACCH8_5
	ChanSACCH8_6
	ChanSACCH8_7
	ChanPDTCH
	ChanPTCCH
	ChanSDCCH4CBCH
	ChanSDCCH8CBCH
)

// ChanFlag bits describe per-channel behavior.
type ChanFlag uint8

const (
	ChanFlagPDCH ChanFlag = 1 << iota
	ChanFlagAuto
)

// ChanDescriptor names one entry in the logical-channel table: its display
// name, RSL channel number/link identifier, burst buffer size, flags, and
// the discriminators used to look up its rx/tx handlers.
type ChanDescriptor struct {
	Name        string
	RSLChanNr   uint8
	RSLLinkID   uint8
	BurstBufLen int
	Flags       ChanFlag
	RxHandler   string
	TxHandler   string
}

// ChanTable maps every ChanType to its descriptor. Burst buffer sizes and
// RSL channel numbers follow 3GPP TS 08.58 §9.3.1's channel-number
// encoding; RxHandler/TxHandler are name strings only, and no package in
// this module resolves them to functions.
var ChanTable = map[ChanType]ChanDescriptor{
	ChanIDLE:  {Name: "IDLE", BurstBufLen: 0},
	ChanFCCH:  {Name: "FCCH", BurstBufLen: 1, RxHandler: "fcch_rx"},
	ChanSCH:   {Name: "SCH", BurstBufLen: 4, RxHandler: "sch_rx"},
	ChanBCCH:  {Name: "BCCH", RSLChanNr: 0x80, BurstBufLen: 23, RxHandler: "bcch_rx"},
	ChanRACH:  {Name: "RACH", RSLChanNr: 0x88, BurstBufLen: 1, RxHandler: "rach_rx"},
	ChanCCCH:  {Name: "CCCH", RSLChanNr: 0x90, BurstBufLen: 23, RxHandler: "ccch_rx", TxHandler: "ccch_tx"},
	ChanTCHF:  {Name: "TCH/F", RSLChanNr: 0x08, BurstBufLen: 33, RxHandler: "tchf_rx", TxHandler: "tchf_tx"},
	ChanTCHH0: {Name: "TCH/H0", RSLChanNr: 0x10, BurstBufLen: 33, Flags: ChanFlagAuto, RxHandler: "tchh_rx", TxHandler: "tchh_tx"},
	ChanTCHH1: {Name: "TCH/H1", RSLChanNr: 0x18, BurstBufLen: 33, Flags: ChanFlagAuto, RxHandler: "tchh_rx", TxHandler: "tchh_tx"},
	ChanPDTCH:    {Name: "PDTCH", BurstBufLen: 23, Flags: ChanFlagPDCH, RxHandler: "pdtch_rx", TxHandler: "pdtch_tx"},
	ChanPTCCH:    {Name: "PTCCH", BurstBufLen: 1, Flags: ChanFlagPDCH, RxHandler: "ptcch_rx"},
	ChanSACCHTF:  {Name: "SACCH/TF", RSLChanNr: 0x08, RSLLinkID: 0x40, BurstBufLen: 23, RxHandler: "sacch_rx", TxHandler: "sacch_tx"},
	ChanSACCHTH0: {Name: "SACCH/TH0", RSLChanNr: 0x10, RSLLinkID: 0x40, BurstBufLen: 23, RxHandler: "sacch_rx", TxHandler: "sacch_tx"},
	ChanSACCHTH1: {Name: "SACCH/TH1", RSLChanNr: 0x18, RSLLinkID: 0x40, BurstBufLen: 23, RxHandler: "sacch_rx", TxHandler: "sacch_tx"},
	ChanSDCCH4CBCH: {Name: "SDCCH/4-CBCH", RSLChanNr: 0x20 | 2<<3, BurstBufLen: 23, RxHandler: "cbch_rx"},
	ChanSDCCH8CBCH: {Name: "SDCCH/8-CBCH", RSLChanNr: 0x48 | 2<<3, BurstBufLen: 23, RxHandler: "cbch_rx"},
}

func init() {
	for i := 0; i < 4; i++ {
		ChanTable[ChanSDCCH4_0+ChanType(i)] = ChanDescriptor{
			Name:        sdcchName("SDCCH/4", i),
			RSLChanNr:   0x20 | uint8(i)<<3,
			BurstBufLen: 23,
			RxHandler:   "sdcch_rx",
			TxHandler:   "sdcch_tx",
		}
		ChanTable[ChanSACCH4_0+ChanType(i)] = ChanDescriptor{
			Name:        sdcchName("SACCH/C4", i),
			RSLChanNr:   0x40 | uint8(i)<<3,
			RSLLinkID:   0x40,
			BurstBufLen: 23,
			RxHandler:   "sacch_rx",
			TxHandler:   "sacch_tx",
		}
	}
	for i := 0; i < 8; i++ {
		ChanTable[ChanSDCCH8_0+ChanType(i)] = ChanDescriptor{
			Name:        sdcchName("SDCCH/8", i),
			RSLChanNr:   0x48 | uint8(i)<<3,
			BurstBufLen: 23,
			RxHandler:   "sdcch_rx",
			TxHandler:   "sdcch_tx",
		}
		ChanTable[ChanSACCH8_0+ChanType(i)] = ChanDescriptor{
			Name:        sdcchName("SACCH/C8", i),
			RSLChanNr:   0x48 | uint8(i)<<3,
			RSLLinkID:   0x40,
			BurstBufLen: 23,
			RxHandler:   "sacch_rx",
			TxHandler:   "sacch_tx",
		}
	}
}

func sdcchName(prefix string, subslot int) string {
	const digits = "01234567"
	return prefix + "-" + string(digits[subslot])
}
