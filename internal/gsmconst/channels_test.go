// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

package gsmconst_test

import (
	"testing"

	"github.com/gsmcore/gsmcore/internal/gsmconst"
	"github.com/stretchr/testify/assert"
)

func TestChanTableCoversEverySDCCH8Subslot(t *testing.T) {
	t.Parallel()
	for i := 0; i < 8; i++ {
		d, ok := gsmconst.ChanTable[gsmconst.ChanSDCCH8_0+gsmconst.ChanType(i)]
		assert.True(t, ok, "missing SDCCH/8 subslot %d", i)
		assert.NotEmpty(t, d.Name)
	}
}

func TestChanTableMarksPDTCHWithPDCHFlag(t *testing.T) {
	t.Parallel()
	d := gsmconst.ChanTable[gsmconst.ChanPDTCH]
	assert.NotZero(t, d.Flags&gsmconst.ChanFlagPDCH)
}

func TestCPCauseValuesMatchSpec(t *testing.T) {
	t.Parallel()
	assert.EqualValues(t, 17, gsmconst.CPCauseNetFail)
	assert.EqualValues(t, 97, gsmconst.CPCauseMsgTypeNotExist)
	assert.EqualValues(t, 111, gsmconst.CPCauseProtocolErr)
}
