package quest

import (
	"strconv"
	"strings"

	"github.com/playrise/questengine/model"
)

// RewardKind names the wallet operation a reward op maps to.
type RewardKind string

const (
	RewardCurrency RewardKind = "currency" // main balance delta
	RewardCoins    RewardKind = "coins"    // coin balance delta
	RewardEnergy   RewardKind = "energy"   // resource points
)

// RewardOp is one typed reward operation produced by the grammar.
type RewardOp struct {
	Kind   RewardKind
	Amount int64
}

const mixedMarker = "_energy_"

// ParseMagnitude decodes a flat magnitude token: digits optionally
// followed by K (x1000) or M (x1000000). Anything else resolves to 0.
func ParseMagnitude(token string) int64 {
	if token == "" {
		return 0
	}
	mult := int64(1)
	switch {
	case strings.HasSuffix(token, "K"):
		mult = 1_000
		token = strings.TrimSuffix(token, "K")
	case strings.HasSuffix(token, "M"):
		mult = 1_000_000
		token = strings.TrimSuffix(token, "M")
	}
	n, err := strconv.ParseInt(token, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n * mult
}

// ParseReward decodes a reward spec string into wallet operations.
// The reward type tag on the instance selects the grammar branch:
// money/coins/energy use the flat grammar, mixed uses the composite
// "<n>_energy_<n><K|M>_<coins|money>" shape, and wheel carries no
// parsed magnitude (an external prize mechanism settles it).
func ParseReward(rewardType, spec string) []RewardOp {
	switch rewardType {
	case model.RewardTypeWheel:
		return nil
	case model.RewardTypeCoins:
		return []RewardOp{{Kind: RewardCoins, Amount: ParseMagnitude(spec)}}
	case model.RewardTypeEnergy:
		return []RewardOp{{Kind: RewardEnergy, Amount: ParseMagnitude(spec)}}
	case model.RewardTypeMixed:
		if ops := parseMixed(spec); ops != nil {
			return ops
		}
		// Not decomposable: fall through to the flat grammar.
		return []RewardOp{{Kind: RewardCurrency, Amount: ParseMagnitude(spec)}}
	default: // money and anything unrecognized
		return []RewardOp{{Kind: RewardCurrency, Amount: ParseMagnitude(spec)}}
	}
}

// parseMixed decodes the composite shape. The grammar is positional:
// field 0 is the energy magnitude, field 2 the secondary magnitude and
// field 3 the secondary type. Returns nil when the marker is absent or
// the shape is too short to index.
func parseMixed(spec string) []RewardOp {
	if !strings.Contains(spec, mixedMarker) {
		return nil
	}
	parts := strings.Split(spec, "_")
	if len(parts) < 4 {
		return nil
	}
	ops := []RewardOp{{Kind: RewardEnergy, Amount: ParseMagnitude(parts[0])}}
	secondary := ParseMagnitude(parts[2])
	switch parts[3] {
	case "coins":
		ops = append(ops, RewardOp{Kind: RewardCoins, Amount: secondary})
	case "money":
		ops = append(ops, RewardOp{Kind: RewardCurrency, Amount: secondary})
	}
	return ops
}
