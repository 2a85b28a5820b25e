package evm

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// Minimal ABI decoding for the handful of shapes the scanner reads: 32-byte
// words, addresses packed into topics or words, and string return values.

// HexBytes decodes a 0x-prefixed hex payload.
func HexBytes(s string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decode hex payload: %w", err)
	}
	return raw, nil
}

// Words splits an ABI payload into 32-byte words.
func Words(data string) ([][]byte, error) {
	raw, err := HexBytes(data)
	if err != nil {
		return nil, err
	}
	if len(raw)%32 != 0 {
		return nil, fmt.Errorf("abi payload length %d is not word-aligned", len(raw))
	}
	words := make([][]byte, 0, len(raw)/32)
	for i := 0; i < len(raw); i += 32 {
		words = append(words, raw[i:i+32])
	}
	return words, nil
}

// AddressFromWord extracts the address packed into the low 20 bytes of a
// 32-byte word, lower-cased and 0x-prefixed.
func AddressFromWord(word []byte) (string, error) {
	if len(word) != 32 {
		return "", fmt.Errorf("abi word length %d, want 32", len(word))
	}
	return "0x" + hex.EncodeToString(word[12:]), nil
}

// AddressFromTopic extracts an indexed address parameter from a topic slot.
func AddressFromTopic(topic string) (string, error) {
	raw, err := HexBytes(topic)
	if err != nil {
		return "", err
	}
	return AddressFromWord(raw)
}

// DecodeString decodes an ABI-encoded dynamic string return value
// (offset word, length word, bytes).
func DecodeString(data string) (string, error) {
	raw, err := HexBytes(data)
	if err != nil {
		return "", err
	}
	if len(raw) < 64 {
		return "", fmt.Errorf("abi string payload too short: %d bytes", len(raw))
	}
	// Subtraction-form bounds checks: offset and length are attacker
	// controlled words and additions can wrap.
	offset := binary.BigEndian.Uint64(raw[24:32])
	if offset > uint64(len(raw))-32 {
		return "", fmt.Errorf("abi string offset %d out of range", offset)
	}
	length := binary.BigEndian.Uint64(raw[offset+24 : offset+32])
	start := offset + 32
	if length > uint64(len(raw))-start {
		return "", fmt.Errorf("abi string length %d out of range", length)
	}
	return string(raw[start : start+length]), nil
}

// DecodeBytes32String decodes the legacy bytes32 return shape some tokens
// use for symbol()/name(): the first word with trailing zero bytes trimmed.
func DecodeBytes32String(data string) (string, error) {
	raw, err := HexBytes(data)
	if err != nil {
		return "", err
	}
	if len(raw) < 32 {
		return "", fmt.Errorf("bytes32 payload too short: %d bytes", len(raw))
	}
	return string(trimZeroBytes(raw[:32])), nil
}

func trimZeroBytes(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return b[:end]
}
