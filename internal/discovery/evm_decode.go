package discovery

import (
	"fmt"
	"strings"

	"launch-radar/internal/evm"
)

// Event signature topics the log strategies filter on.
const (
	// PairCreated(address,address,address,uint256), V2-style factories.
	TopicPairCreatedV2 = "0x0d3648bd0f6ba80134a33ba9275ac585d9d315f0ad8355cddefde31afa28d0e9"

	// PoolCreated(address,address,uint24,int24,address), V3-style factories.
	TopicPoolCreatedV3 = "0x783cca1c0412dd0d695e784568c96da2e9c22ff989357a2e8b1d9b2b4e6b7118"

	// Mint(address,uint256,uint256), first liquidity supplied to a pool.
	TopicLiquidityMint = "0x4c209b5fc8ad50758f13e2e1088ba56a560dff690a1c6fef26394f4c03821c4f"

	// Transfer(address,address,uint256), erc20 transfers; with a zero-address
	// sender this is a mint, the lowest-confidence launch signal.
	TopicTransfer = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

	topicZeroWord = "0x0000000000000000000000000000000000000000000000000000000000000000"
)

// pairEvent is the raw decoded form of one launch-signal log. Token fields
// stay empty when the log does not carry them; the scanner resolves those
// with auxiliary reads.
type pairEvent struct {
	Pool   string // pool or token contract address, lower-cased
	Token0 string
	Token1 string
	Block  uint64
}

// decodePairCreated handles both factory creation shapes. Indexed token
// addresses sit in topics 1 and 2; the new pool's address sits in the data
// words (word 0 for V2, word 1 for V3 after tick spacing).
func decodePairCreated(lg evm.Log) (*pairEvent, error) {
	if len(lg.Topics) < 3 {
		return nil, fmt.Errorf("creation log has %d topics, want at least 3", len(lg.Topics))
	}
	token0, err := evm.AddressFromTopic(lg.Topics[1])
	if err != nil {
		return nil, fmt.Errorf("token0 topic: %w", err)
	}
	token1, err := evm.AddressFromTopic(lg.Topics[2])
	if err != nil {
		return nil, fmt.Errorf("token1 topic: %w", err)
	}

	words, err := evm.Words(lg.Data)
	if err != nil {
		return nil, err
	}

	var poolWord int
	switch lg.Topics[0] {
	case TopicPairCreatedV2:
		poolWord = 0
	case TopicPoolCreatedV3:
		poolWord = 1
	default:
		return nil, fmt.Errorf("unexpected creation topic %s", lg.Topics[0])
	}
	if len(words) <= poolWord {
		return nil, fmt.Errorf("creation log has %d data words, pool expected at %d", len(words), poolWord)
	}
	pool, err := evm.AddressFromWord(words[poolWord])
	if err != nil {
		return nil, fmt.Errorf("pool word: %w", err)
	}

	block, err := evm.ParseHexUint64(lg.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("block number: %w", err)
	}

	return &pairEvent{
		Pool:   pool,
		Token0: token0,
		Token1: token1,
		Block:  block,
	}, nil
}

// decodeLiquidityMint handles pool Mint logs. The emitting contract is the
// pool itself; the backing tokens are resolved by the scanner afterwards.
func decodeLiquidityMint(lg evm.Log) (*pairEvent, error) {
	if len(lg.Topics) == 0 || lg.Topics[0] != TopicLiquidityMint {
		return nil, fmt.Errorf("not a liquidity mint log")
	}
	block, err := evm.ParseHexUint64(lg.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("block number: %w", err)
	}
	return &pairEvent{
		Pool:  strings.ToLower(lg.Address),
		Block: block,
	}, nil
}

// decodeMintTransfer handles zero-address Transfer logs. The emitting
// contract is the freshly minted token; there is no pool yet.
func decodeMintTransfer(lg evm.Log) (*pairEvent, error) {
	if len(lg.Topics) < 3 {
		return nil, fmt.Errorf("transfer log has %d topics, want 3", len(lg.Topics))
	}
	if lg.Topics[1] != topicZeroWord {
		return nil, fmt.Errorf("transfer sender is not the zero address")
	}
	block, err := evm.ParseHexUint64(lg.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("block number: %w", err)
	}
	token := strings.ToLower(lg.Address)
	return &pairEvent{
		Pool:   token,
		Token0: token,
		Block:  block,
	}, nil
}
