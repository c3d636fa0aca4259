// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

package sms7bit_test

import (
	"testing"

	"github.com/gsmcore/gsmcore/internal/sms7bit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTripDefaultAlphabet(t *testing.T) {
	t.Parallel()
	cases := []string{
		"hello",
		"Hello, World!",
		"0123456789",
		"THE QUICK BROWN FOX",
		"a",
		"",
	}
	for _, s := range cases {
		s := s
		t.Run(s, func(t *testing.T) {
			t.Parallel()
			octets, n, err := sms7bit.Encode(s, 140)
			require.NoError(t, err)
			got := sms7bit.Decode(octets, n, false)
			assert.Equal(t, s, got)
		})
	}
}

func TestEncodeDecodeRoundTripExtensionAlphabet(t *testing.T) {
	t.Parallel()
	s := "a{b}c[d]e~f|g"
	octets, n, err := sms7bit.Encode(s, 160)
	require.NoError(t, err)
	// Each extension character occupies two septets (ESC + page septet).
	assert.Greater(t, n, len(s))
	assert.Equal(t, s, sms7bit.Decode(octets, n, false))
}

func TestEncodeCountsExtensionCharAsTwoSeptets(t *testing.T) {
	t.Parallel()
	_, n, err := sms7bit.Encode("{", 140)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEncodeUnencodableCharacter(t *testing.T) {
	t.Parallel()
	_, _, err := sms7bit.Encode("日本語", 140)
	assert.ErrorIs(t, err, sms7bit.ErrUnencodable)
}

func TestEncodeTruncatesAtBufferLimit(t *testing.T) {
	t.Parallel()
	s := "this is a fairly long test message that should get truncated"
	_, n, err := sms7bit.Encode(s, 5) // 5 octets -> max 5*8/7 = 5 septets
	require.NoError(t, err)
	assert.LessOrEqual(t, n, 5)
}

func TestEncodeAppendsDisambiguatingCROnSeptetBoundaryQuirk(t *testing.T) {
	t.Parallel()
	// A 7-character message packs into exactly one octet-aligned block
	// with zero padding bits remaining, which would be ambiguous with an
	// extra '@' — a disambiguating <CR> septet is appended, a documented
	// quirk of the 03.38 packing rule, not a decode failure.
	s := "1234567"
	octets, n, err := sms7bit.Encode(s, 140)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, s+"\r", sms7bit.Decode(octets, n, false))
}
