package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys() (spend, view []byte) {
	spend = bytes.Repeat([]byte{0x11}, 32)
	view = make([]byte, 32)
	for i := range view {
		view[i] = byte(i * 7)
	}
	return spend, view
}

func TestMoneroBase58RoundTrip(t *testing.T) {
	for n := 0; n <= 40; n++ {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(255 - i*13)
		}
		decoded, err := DecodeMoneroBase58(EncodeMoneroBase58(data))
		require.NoError(t, err, "length %d", n)
		assert.Equal(t, data, append([]byte{}, decoded...), "length %d", n)
	}
}

func TestEncodeMoneroBase58BlockWidths(t *testing.T) {
	assert.Equal(t, "11", EncodeMoneroBase58([]byte{0}))
	assert.Equal(t, "11111111111", EncodeMoneroBase58(make([]byte, 8)))
	assert.Len(t, EncodeMoneroBase58(make([]byte, 69)), 95)
	assert.Len(t, EncodeMoneroBase58(make([]byte, 77)), 106)
}

func TestDecodeMoneroBase58Rejects(t *testing.T) {
	_, err := DecodeMoneroBase58("0OIl")
	assert.Error(t, err)

	// 4 characters is not a valid tail block width.
	_, err = DecodeMoneroBase58("2222")
	assert.Error(t, err)

	// Largest 2-character value exceeds one byte.
	_, err = DecodeMoneroBase58("zz")
	assert.ErrorIs(t, err, errBase58Overflow)

	// Largest 11-character value exceeds 64 bits.
	_, err = DecodeMoneroBase58("zzzzzzzzzzz")
	assert.ErrorIs(t, err, errBase58Overflow)
}

func TestParseMoneroAddress(t *testing.T) {
	spend, view := testKeys()

	t.Run("mainnet standard", func(t *testing.T) {
		addr := EncodeMoneroAddress(18, spend, view, nil)
		require.Len(t, addr, 95)

		parsed, err := ParseMoneroAddress(addr)
		require.NoError(t, err)
		assert.Equal(t, MoneroMainnet, parsed.Network)
		assert.Equal(t, AddressStandard, parsed.Kind)
		assert.Equal(t, spend, parsed.SpendKey)
		assert.Equal(t, view, parsed.ViewKey)
		assert.Nil(t, parsed.PaymentID)
	})

	t.Run("mainnet integrated", func(t *testing.T) {
		pid := []byte{1, 2, 3, 4, 5, 6, 7, 8}
		addr := EncodeMoneroAddress(19, spend, view, pid)
		require.Len(t, addr, 106)

		parsed, err := ParseMoneroAddress(addr)
		require.NoError(t, err)
		assert.Equal(t, AddressIntegrated, parsed.Kind)
		assert.Equal(t, pid, parsed.PaymentID)
	})

	t.Run("stagenet subaddress", func(t *testing.T) {
		parsed, err := ParseMoneroAddress(EncodeMoneroAddress(36, spend, view, nil))
		require.NoError(t, err)
		assert.Equal(t, MoneroStagenet, parsed.Network)
		assert.Equal(t, AddressSubaddress, parsed.Kind)
	})

	t.Run("checksum mismatch", func(t *testing.T) {
		addr := []byte(EncodeMoneroAddress(18, spend, view, nil))
		// Change a character inside the key material.
		if addr[20] == 'A' {
			addr[20] = 'B'
		} else {
			addr[20] = 'A'
		}
		_, err := ParseMoneroAddress(string(addr))
		assert.Error(t, err)
	})

	t.Run("unknown prefix", func(t *testing.T) {
		_, err := ParseMoneroAddress(EncodeMoneroAddress(99, spend, view, nil))
		assert.ErrorContains(t, err, "unknown address prefix")
	})

	t.Run("integrated without payment id", func(t *testing.T) {
		_, err := ParseMoneroAddress(EncodeMoneroAddress(19, spend, view, nil))
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseMoneroAddress("  ")
		assert.Error(t, err)
	})
}

func TestValidateMoneroAddressNetwork(t *testing.T) {
	spend, view := testKeys()
	testnet := EncodeMoneroAddress(53, spend, view, nil)

	assert.NoError(t, ValidateMoneroAddress(testnet, ""))
	assert.NoError(t, ValidateMoneroAddress(testnet, MoneroTestnet))
	assert.Error(t, ValidateMoneroAddress(testnet, MoneroMainnet))
}
