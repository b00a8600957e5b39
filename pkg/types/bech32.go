package types

import (
	"fmt"
	"strings"
)

// Kaspa addresses use the bech32 character set with a CashAddr-style
// 40-bit BCH checksum and a ':' separator between prefix and data.
const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// checksumLength is the number of 5-bit checksum groups (40 bits).
const checksumLength = 8

// bech32CharsetRev maps bech32 characters to their 5-bit values. -1 = invalid.
var bech32CharsetRev [128]int8

// checksumGenerator is the BCH generator used for the 40-bit checksum.
var checksumGenerator = [5]uint64{0x98f2bc8e61, 0x79b76d99e2, 0xf33e5fb3c4, 0xae2eabe2a8, 0x1e4f43e470}

func init() {
	for i := range bech32CharsetRev {
		bech32CharsetRev[i] = -1
	}
	for i, c := range bech32Charset {
		bech32CharsetRev[c] = int8(i)
	}
}

// Bech32Encode encodes a prefix, version byte and payload into "prefix:data".
func Bech32Encode(prefix string, version byte, payload []byte) (string, error) {
	if len(prefix) == 0 {
		return "", fmt.Errorf("bech32: empty prefix")
	}
	for _, c := range prefix {
		if c < 'a' || c > 'z' {
			return "", fmt.Errorf("bech32: invalid prefix character %q", c)
		}
	}

	data := make([]byte, 0, len(payload)+1)
	data = append(data, version)
	data = append(data, payload...)

	conv, err := convertBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("bech32: convert bits: %w", err)
	}

	chk := bech32Checksum(prefix, conv)

	var sb strings.Builder
	sb.Grow(len(prefix) + 1 + len(conv) + checksumLength)
	sb.WriteString(prefix)
	sb.WriteByte(':')
	for _, b := range conv {
		sb.WriteByte(bech32Charset[b])
	}
	for i := 0; i < checksumLength; i++ {
		sb.WriteByte(bech32Charset[(chk>>uint(5*(checksumLength-1-i)))&31])
	}
	return sb.String(), nil
}

// Bech32Decode decodes "prefix:data" into its prefix, version byte and payload.
func Bech32Decode(s string) (prefix string, version byte, payload []byte, err error) {
	if len(s) == 0 {
		return "", 0, nil, fmt.Errorf("bech32: empty string")
	}

	hasUpper, hasLower := false, false
	for _, c := range s {
		if c >= 'A' && c <= 'Z' {
			hasUpper = true
		}
		if c >= 'a' && c <= 'z' {
			hasLower = true
		}
	}
	if hasUpper && hasLower {
		return "", 0, nil, fmt.Errorf("bech32: mixed case")
	}
	s = strings.ToLower(s)

	sepIdx := strings.LastIndexByte(s, ':')
	if sepIdx < 1 {
		return "", 0, nil, fmt.Errorf("bech32: missing prefix separator")
	}
	if sepIdx+1+checksumLength >= len(s) {
		return "", 0, nil, fmt.Errorf("bech32: too short")
	}

	prefix = s[:sepIdx]
	dataStr := s[sepIdx+1:]

	data5 := make([]byte, len(dataStr))
	for i, c := range dataStr {
		if c > 127 {
			return "", 0, nil, fmt.Errorf("bech32: invalid character %q", c)
		}
		val := bech32CharsetRev[c]
		if val < 0 {
			return "", 0, nil, fmt.Errorf("bech32: invalid character %q", c)
		}
		data5[i] = byte(val)
	}

	if !bech32VerifyChecksum(prefix, data5) {
		return "", 0, nil, fmt.Errorf("bech32: invalid checksum")
	}
	data5 = data5[:len(data5)-checksumLength]

	data8, err := convertBits(data5, 5, 8, false)
	if err != nil {
		return "", 0, nil, fmt.Errorf("bech32: convert bits: %w", err)
	}
	if len(data8) == 0 {
		return "", 0, nil, fmt.Errorf("bech32: missing version byte")
	}
	return prefix, data8[0], data8[1:], nil
}

// bech32Polymod computes the 40-bit BCH polynomial modulus.
func bech32Polymod(values []byte) uint64 {
	chk := uint64(1)
	for _, v := range values {
		top := chk >> 35
		chk = (chk&0x07ffffffff)<<5 ^ uint64(v)
		for i := 0; i < len(checksumGenerator); i++ {
			if (top>>uint(i))&1 == 1 {
				chk ^= checksumGenerator[i]
			}
		}
	}
	return chk ^ 1
}

// prefixLower5 expands the prefix to the low 5 bits of each character,
// followed by the zero separator.
func prefixLower5(prefix string) []byte {
	ret := make([]byte, 0, len(prefix)+1)
	for _, c := range prefix {
		ret = append(ret, byte(c)&31)
	}
	return append(ret, 0)
}

func bech32Checksum(prefix string, data []byte) uint64 {
	values := append(prefixLower5(prefix), data...)
	values = append(values, make([]byte, checksumLength)...)
	return bech32Polymod(values)
}

func bech32VerifyChecksum(prefix string, data []byte) bool {
	return bech32Polymod(append(prefixLower5(prefix), data...)) == 0
}

// convertBits converts between bit groups.
// fromBits/toBits are the source/destination group sizes (e.g. 8 and 5).
// pad controls whether incomplete groups are zero-padded.
func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	acc := uint32(0)
	bits := uint(0)
	maxv := uint32((1 << toBits) - 1)
	var ret []byte

	for _, b := range data {
		if uint32(b)>>fromBits != 0 {
			return nil, fmt.Errorf("invalid data byte: %d", b)
		}
		acc = acc<<fromBits | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			ret = append(ret, byte((acc>>bits)&maxv))
		}
	}

	if pad {
		if bits > 0 {
			ret = append(ret, byte((acc<<(toBits-bits))&maxv))
		}
	} else {
		if bits >= fromBits {
			return nil, fmt.Errorf("non-zero padding")
		}
		if (acc<<(toBits-bits))&maxv != 0 {
			return nil, fmt.Errorf("non-zero padding")
		}
	}

	return ret, nil
}
