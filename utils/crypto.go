package utils

import (
	"bytes"
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// Monero encodes addresses with its own block-wise base58 variant: every
// 8-byte block becomes exactly 11 characters, the tail block is padded to a
// fixed width that depends on its byte length.
const (
	base58Alphabet      = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"
	fullBlockSize       = 8
	fullEncodedBlockLen = 11
	checksumSize        = 4
	publicKeySize       = 32
	paymentIDSize       = 8
)

var encodedBlockSizes = [...]int{0, 2, 3, 5, 6, 7, 9, 10, 11}

// AddressKind classifies a Monero address by its network prefix.
type AddressKind int

const (
	AddressStandard AddressKind = iota
	AddressIntegrated
	AddressSubaddress
)

// MoneroNetwork is the network an address belongs to.
type MoneroNetwork string

const (
	MoneroMainnet  MoneroNetwork = "mainnet"
	MoneroTestnet  MoneroNetwork = "testnet"
	MoneroStagenet MoneroNetwork = "stagenet"
)

type addressPrefix struct {
	network MoneroNetwork
	kind    AddressKind
}

var addressPrefixes = map[uint64]addressPrefix{
	18: {MoneroMainnet, AddressStandard},
	19: {MoneroMainnet, AddressIntegrated},
	42: {MoneroMainnet, AddressSubaddress},
	53: {MoneroTestnet, AddressStandard},
	54: {MoneroTestnet, AddressIntegrated},
	63: {MoneroTestnet, AddressSubaddress},
	24: {MoneroStagenet, AddressStandard},
	25: {MoneroStagenet, AddressIntegrated},
	36: {MoneroStagenet, AddressSubaddress},
}

// MoneroAddress is a decoded and checksum-verified address.
type MoneroAddress struct {
	Network   MoneroNetwork
	Kind      AddressKind
	SpendKey  []byte
	ViewKey   []byte
	PaymentID []byte
}

// ParseMoneroAddress decodes addr and verifies its Keccak-256 checksum.
func ParseMoneroAddress(addr string) (*MoneroAddress, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("address cannot be empty")
	}

	raw, err := DecodeMoneroBase58(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address encoding: %w", err)
	}

	if len(raw) < 1+2*publicKeySize+checksumSize {
		return nil, fmt.Errorf("address too short")
	}

	body, sum := raw[:len(raw)-checksumSize], raw[len(raw)-checksumSize:]
	if !bytes.Equal(crypto.Keccak256(body)[:checksumSize], sum) {
		return nil, fmt.Errorf("address checksum mismatch")
	}

	tag, n := readVarint(body)
	if n <= 0 {
		return nil, fmt.Errorf("invalid address prefix")
	}

	prefix, ok := addressPrefixes[tag]
	if !ok {
		return nil, fmt.Errorf("unknown address prefix %d", tag)
	}

	keys := body[n:]
	want := 2 * publicKeySize
	if prefix.kind == AddressIntegrated {
		want += paymentIDSize
	}
	if len(keys) != want {
		return nil, fmt.Errorf("address payload has %d bytes, want %d", len(keys), want)
	}

	out := &MoneroAddress{
		Network:  prefix.network,
		Kind:     prefix.kind,
		SpendKey: keys[:publicKeySize],
		ViewKey:  keys[publicKeySize : 2*publicKeySize],
	}
	if prefix.kind == AddressIntegrated {
		out.PaymentID = keys[2*publicKeySize:]
	}
	return out, nil
}

// ValidateMoneroAddress checks that addr is a well-formed address, and when
// network is non-empty, that it belongs to that network.
func ValidateMoneroAddress(addr string, network MoneroNetwork) error {
	parsed, err := ParseMoneroAddress(addr)
	if err != nil {
		return err
	}
	if network != "" && parsed.Network != network {
		return fmt.Errorf("address is for %s, want %s", parsed.Network, network)
	}
	return nil
}

// EncodeMoneroAddress builds the textual address for the given prefix tag
// and key material, appending the checksum.
func EncodeMoneroAddress(tag uint64, spendKey, viewKey, paymentID []byte) string {
	body := appendVarint(nil, tag)
	body = append(body, spendKey...)
	body = append(body, viewKey...)
	body = append(body, paymentID...)
	body = append(body, crypto.Keccak256(body)[:checksumSize]...)
	return EncodeMoneroBase58(body)
}

// EncodeMoneroBase58 encodes data with Monero's block-wise base58.
func EncodeMoneroBase58(data []byte) string {
	var sb strings.Builder
	for len(data) > 0 {
		n := min(fullBlockSize, len(data))
		sb.WriteString(encodeBlock(data[:n]))
		data = data[n:]
	}
	return sb.String()
}

func encodeBlock(block []byte) string {
	var num uint64
	for _, b := range block {
		num = num<<8 | uint64(b)
	}

	size := encodedBlockSizes[len(block)]
	out := bytes.Repeat([]byte{base58Alphabet[0]}, size)
	for i := size - 1; i >= 0 && num > 0; i-- {
		out[i] = base58Alphabet[num%58]
		num /= 58
	}
	return string(out)
}

// DecodeMoneroBase58 reverses EncodeMoneroBase58.
func DecodeMoneroBase58(s string) ([]byte, error) {
	var out []byte
	for len(s) > 0 {
		n := min(fullEncodedBlockLen, len(s))
		block, err := decodeBlock(s[:n])
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
		s = s[n:]
	}
	return out, nil
}

var errBase58Overflow = errors.New("base58 block overflow")

func decodeBlock(s string) ([]byte, error) {
	size := -1
	for i, l := range encodedBlockSizes {
		if l == len(s) {
			size = i
			break
		}
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid base58 block length %d", len(s))
	}

	var num uint64
	order := uint64(1)
	for i := len(s) - 1; i >= 0; i-- {
		digit := strings.IndexByte(base58Alphabet, s[i])
		if digit < 0 {
			return nil, fmt.Errorf("invalid base58 character %q", s[i])
		}

		hi, lo := bits.Mul64(order, uint64(digit))
		if hi != 0 {
			return nil, errBase58Overflow
		}
		var carry uint64
		num, carry = bits.Add64(num, lo, 0)
		if carry != 0 {
			return nil, errBase58Overflow
		}
		order *= 58
	}

	if size < fullBlockSize && num>>(8*size) != 0 {
		return nil, errBase58Overflow
	}

	out := make([]byte, size)
	for i := size - 1; i >= 0; i-- {
		out[i] = byte(num)
		num >>= 8
	}
	return out, nil
}

func readVarint(b []byte) (uint64, int) {
	var v uint64
	for i, c := range b {
		if i == 9 {
			return 0, -1
		}
		v |= uint64(c&0x7f) << (7 * i)
		if c < 0x80 {
			return v, i + 1
		}
	}
	return 0, 0
}

func appendVarint(b []byte, v uint64) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}
