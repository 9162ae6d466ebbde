package keyring

import (
	"fmt"

	"firestige.xyz/meshmon/internal/core"
)

// ChannelHash folds the channel name and the expanded PSK into the 8-bit
// value carried in the envelope channel field.
func ChannelHash(name string, psk []byte) uint8 {
	return xorFold([]byte(name)) ^ xorFold(psk)
}

func xorFold(b []byte) uint8 {
	var h uint8
	for _, c := range b {
		h ^= c
	}
	return h
}

// ExpandPSK applies the firmware key conventions:
//   - empty or {0x00}: no encryption
//   - one byte n: the default key with its last byte increased by n-1
//   - shorter than 16 bytes: zero-padded to AES-128
//   - 17 to 31 bytes: zero-padded to AES-256
func ExpandPSK(psk []byte) ([]byte, error) {
	switch n := len(psk); {
	case n == 0:
		return nil, nil
	case n == 1:
		if psk[0] == 0 {
			return nil, nil
		}
		key := append([]byte(nil), DefaultPSK...)
		key[len(key)-1] += psk[0] - 1
		return key, nil
	case n <= 16:
		key := make([]byte, 16)
		copy(key, psk)
		return key, nil
	case n <= 32:
		key := make([]byte, 32)
		copy(key, psk)
		return key, nil
	default:
		return nil, fmt.Errorf("%w: %d bytes", core.ErrInvalidKey, n)
	}
}
