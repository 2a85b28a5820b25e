package discovery

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Move payload shapes, in the order they are tried.
const (
	shapeTokenPair  = "token-pair"
	shapeCoinPair   = "coin-pair"
	shapeSingleCoin = "single-coin"
	shapePoolOnly   = "pool-only"
)

// movePayload is what a Move event's parsed JSON yields after shape probing:
// an on-chain identity plus whatever coin types the payload exposed.
type movePayload struct {
	Address   string   // pool object id, or the traded coin type itself
	CoinTypes []string // zero, one or two fully qualified coin types
	Shape     string
}

// Field families seen across Move DEX packages. Each row is one naming
// convention for the same concept; rows are tried top to bottom.
var (
	typedPairFields = [][2]string{
		{"token_x.name", "token_y.name"},
		{"token_a.name", "token_b.name"},
		{"coin_x.name", "coin_y.name"},
	}
	coinPairFields = [][2]string{
		{"coin_type_a", "coin_type_b"},
		{"coin_type_x", "coin_type_y"},
		{"coin_x", "coin_y"},
	}
	singleCoinFields = []string{"coin_type", "token_type"}
	poolIDFields     = []string{"pool_id", "pool", "id.id", "id"}
)

// decodeMovePayload probes a Move event payload against the known shapes,
// most specific first. Events whose payload carries neither a coin type nor
// a pool identity are not decodable.
func decodeMovePayload(raw []byte) (*movePayload, error) {
	poolID := firstString(raw, poolIDFields...)

	for _, pair := range typedPairFields {
		x := gjson.GetBytes(raw, pair[0])
		y := gjson.GetBytes(raw, pair[1])
		if x.Type == gjson.String && y.Type == gjson.String {
			return &movePayload{
				Address:   poolID,
				CoinTypes: []string{normalizeCoinType(x.Str), normalizeCoinType(y.Str)},
				Shape:     shapeTokenPair,
			}, nil
		}
	}

	for _, pair := range coinPairFields {
		x := gjson.GetBytes(raw, pair[0])
		y := gjson.GetBytes(raw, pair[1])
		if x.Type == gjson.String && y.Type == gjson.String {
			return &movePayload{
				Address:   poolID,
				CoinTypes: []string{normalizeCoinType(x.Str), normalizeCoinType(y.Str)},
				Shape:     shapeCoinPair,
			}, nil
		}
	}

	if ct := firstString(raw, singleCoinFields...); ct != "" {
		return &movePayload{
			Address:   poolID,
			CoinTypes: []string{normalizeCoinType(ct)},
			Shape:     shapeSingleCoin,
		}, nil
	}

	if poolID != "" {
		return &movePayload{Address: poolID, Shape: shapePoolOnly}, nil
	}

	return nil, fmt.Errorf("unrecognized payload shape")
}

// firstString returns the first of the given paths that resolves to a
// non-empty JSON string.
func firstString(raw []byte, paths ...string) string {
	for _, path := range paths {
		if v := gjson.GetBytes(raw, path); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

// normalizeCoinType ensures a fully qualified coin type keeps its 0x
// prefix; typed payloads often serialize the name without it.
func normalizeCoinType(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" || strings.HasPrefix(ct, "0x") {
		return ct
	}
	if strings.Contains(ct, "::") {
		return "0x" + ct
	}
	return ct
}

// CoinSymbol extracts the struct name from a fully qualified coin type,
// e.g. "0x2::sui::SUI" yields "SUI".
func CoinSymbol(coinType string) string {
	if i := strings.LastIndex(coinType, "::"); i >= 0 {
		return coinType[i+2:]
	}
	return coinType
}

// syntheticSymbol names a launch whose payload exposed no coin at all:
// the event's module name plus a transaction digest prefix.
func syntheticSymbol(eventType, txDigest string) string {
	module := eventType
	if parts := strings.Split(eventType, "::"); len(parts) >= 2 {
		module = parts[1]
	}
	digest := txDigest
	if len(digest) > 6 {
		digest = digest[:6]
	}
	return strings.ToUpper(module) + "-" + strings.ToUpper(digest)
}
