package evm

import (
	"fmt"
	"strconv"
	"strings"
)

// Log is one entry returned by eth_getLogs.
type Log struct {
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	BlockNumber string   `json:"blockNumber"` // hex quantity
	TxHash      string   `json:"transactionHash"`
	LogIndex    string   `json:"logIndex"` // hex quantity
	Removed     bool     `json:"removed"`
}

// Block carries the header fields the scanner needs.
type Block struct {
	Number    string `json:"number"`    // hex quantity
	Hash      string `json:"hash"`
	Timestamp string `json:"timestamp"` // hex quantity, Unix seconds
}

// TimeMs returns the block timestamp in Unix milliseconds.
func (b *Block) TimeMs() (int64, error) {
	secs, err := ParseHexUint64(b.Timestamp)
	if err != nil {
		return 0, fmt.Errorf("block timestamp: %w", err)
	}
	return int64(secs) * 1000, nil
}

// Filter is the eth_getLogs filter object. A nil entry in Topics matches
// any topic at that position; a multi-value entry matches any of them.
type Filter struct {
	FromBlock string     `json:"fromBlock,omitempty"`
	ToBlock   string     `json:"toBlock,omitempty"`
	Addresses []string   `json:"address,omitempty"`
	Topics    [][]string `json:"topics,omitempty"`
}

// HexUint64 formats v as a 0x-prefixed hex quantity.
func HexUint64(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

// ParseHexUint64 parses a 0x-prefixed hex quantity.
func ParseHexUint64(s string) (uint64, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if trimmed == "" {
		return 0, fmt.Errorf("empty hex quantity %q", s)
	}
	v, err := strconv.ParseUint(trimmed, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hex quantity %q: %w", s, err)
	}
	return v, nil
}
