// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

package sched

// SubChannel selects one of the two half-rate sub-channels multiplexed
// onto a TCH/H timeslot.
type SubChannel int

const (
	SubChannel0 SubChannel = iota
	SubChannel1
)

// tchTrafficBlockMap gives the four fn-mod-13 burst positions of each of
// the three TCH/H traffic blocks per sub-channel; position 0 is the
// block's first burst, the last position its last. Grounded on
// sched_lchan_tchh.c's tch_h0_traffic_block_map / tch_h1_traffic_block_map.
var tchTrafficBlockMap = [2][3][4]uint8{
	SubChannel0: {
		{0, 2, 4, 6},
		{4, 6, 8, 10},
		{8, 10, 0, 2},
	},
	SubChannel1: {
		{1, 3, 5, 7},
		{5, 7, 9, 11},
		{9, 11, 1, 3},
	},
}

// tchDLFACCHBlockMap / tchULFACCHBlockMap give the six fn-mod-26 burst
// positions of each of the three FACCH/H blocks per sub-channel,
// direction-specific. Grounded on the same file's
// tch_h{0,1}_{dl,ul}_facch_block_map.
var tchDLFACCHBlockMap = [2][3][6]uint8{
	SubChannel0: {
		{4, 6, 8, 10, 13, 15},
		{13, 15, 17, 19, 21, 23},
		{21, 23, 0, 2, 4, 6},
	},
	SubChannel1: {
		{5, 7, 9, 11, 14, 16},
		{14, 16, 18, 20, 22, 24},
		{22, 24, 1, 3, 5, 7},
	},
}

var tchULFACCHBlockMap = [2][3][6]uint8{
	SubChannel0: {
		{0, 2, 4, 6, 8, 10},
		{8, 10, 13, 15, 17, 19},
		{17, 19, 21, 23, 0, 2},
	},
	SubChannel1: {
		{1, 3, 5, 7, 9, 11},
		{9, 11, 14, 16, 18, 20},
		{18, 20, 22, 24, 1, 3},
	},
}

// dlFACCHMap marks, for fn mod 26, whether that frame carries the last
// burst of some FACCH/H block (valid for both sub-channels). Grounded
// on sched_tchh_dl_facch_map.
var dlFACCHMap = [26]bool{15: true, 16: true, 23: true, 24: true, 6: true, 7: true}

// amrDLCMIMap / amrULCMIMap mark, for fn mod 26, the frame carrying the
// AMR codec-mode indication/request for each sub-channel's block.
// Grounded on sched_tchh_dl_amr_cmi_map / sched_tchh_ul_amr_cmi_map.
var amrDLCMIMap = [26]bool{15: true, 23: true, 6: true, 16: true, 24: true, 7: true}
var amrULCMIMap = [26]bool{0: true, 8: true, 17: true, 1: true, 9: true, 18: true}

// TCHHBlockMapFN answers whether fn is the start or end boundary of a
// TCH/H traffic or FACCH/H block for the given sub-channel and
// direction. Mirrors l1sched_tchh_block_map_fn.
func TCHHBlockMapFN(sub SubChannel, fn uint32, ul, facch, start bool) bool {
	if facch {
		fnMF := uint8(fn % 26)
		blocks := tchDLFACCHBlockMap[sub]
		if ul {
			blocks = tchULFACCHBlockMap[sub]
		}
		return blockMapHasBoundary(blocks[:], fnMF, start)
	}
	fnMF := uint8(fn % 13)
	return blockMapHasBoundary4(tchTrafficBlockMap[sub][:], fnMF, start)
}

func blockMapHasBoundary(blocks [][6]uint8, fnMF uint8, start bool) bool {
	for _, b := range blocks {
		pos := b[0]
		if !start {
			pos = b[len(b)-1]
		}
		if pos == fnMF {
			return true
		}
	}
	return false
}

func blockMapHasBoundary4(blocks [][4]uint8, fnMF uint8, start bool) bool {
	for _, b := range blocks {
		pos := b[0]
		if !start {
			pos = b[len(b)-1]
		}
		if pos == fnMF {
			return true
		}
	}
	return false
}

// DLFACCHMap reports whether fn (downlink) carries the last burst of a
// FACCH/H block, used to select HR-codec FACCH decoding vs traffic
// decoding.
func DLFACCHMap(fn uint32) bool { return dlFACCHMap[fn%26] }

// AMRDLCMIMap reports whether fn carries the downlink AMR codec-mode
// indication for its block.
func AMRDLCMIMap(fn uint32) bool { return amrDLCMIMap[fn%26] }

// AMRULCMIMap reports whether fn carries the uplink AMR codec-mode
// request for its block.
func AMRULCMIMap(fn uint32) bool { return amrULCMIMap[fn%26] }

// ReverseBlockStartFN returns the frame number of a block's first burst
// given the frame number of its last burst, by locating which mapped
// block lastFN's modulo position terminates and subtracting the
// in-block distance. Returns lastFN unchanged if no block ends there
// (mirrors tchh_block_dl_first_fn's "couldn't calculate" fallback).
func ReverseBlockStartFN(sub SubChannel, lastFN uint32, facch bool) uint32 {
	if facch {
		fnMF := uint8(lastFN % 26)
		for _, b := range tchDLFACCHBlockMap[sub] {
			if b[len(b)-1] == fnMF {
				diff := uint32((uint16(fnMF) - uint16(b[0]) + 26) % 26)
				return subFN(lastFN, diff)
			}
		}
		return lastFN
	}
	fnMF := uint8(lastFN % 13)
	for _, b := range tchTrafficBlockMap[sub] {
		if b[len(b)-1] == fnMF {
			diff := uint32((uint16(fnMF) - uint16(b[0]) + 13) % 13)
			return subFN(lastFN, diff)
		}
	}
	return lastFN
}

func subFN(fn, diff uint32) uint32 {
	return uint32((uint64(fn) - uint64(diff) + FNMax) % FNMax)
}
