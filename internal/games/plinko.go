package games

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fairbet-labs/plinko-engine/internal/engine"
)

const (
	// MinRows and MaxRows bound the supported board sizes.
	MinRows = 8
	MaxRows = 16
)

// Risk selects one of the payout curves.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Risks lists the supported risk levels in display order.
func Risks() []Risk {
	return []Risk{RiskLow, RiskMedium, RiskHigh}
}

// ParseRisk normalizes a risk string.
func ParseRisk(s string) (Risk, error) {
	switch risk := Risk(strings.ToLower(strings.TrimSpace(s))); risk {
	case RiskLow, RiskMedium, RiskHigh:
		return risk, nil
	default:
		return "", fmt.Errorf("%w: risk %q", ErrUnsupportedConfiguration, s)
	}
}

// Path is the per-row move sequence of one drop and where it landed. The
// landing index equals the count of right moves, so 0 <= LandingIndex <= rows.
type Path struct {
	Moves        []int `json:"moves"`
	LandingIndex int   `json:"landingIndex"`
}

// String renders the compact "0110..." form stored in the audit log
// (0 = left, 1 = right).
func (p Path) String() string {
	buf := make([]byte, len(p.Moves))
	for i, m := range p.Moves {
		buf[i] = '0' + byte(m)
	}
	return string(buf)
}

// DerivePath walks the peg board for the given inputs. The move bit for row r
// is bit r%8 (least significant first) of byte r%32 of the derived block.
// Within the supported row range the block is never exhausted; a configuration
// large enough to wrap the bit positions would need a fresh block per wrap
// rather than cycling the same bytes.
func DerivePath(serverSeed, clientSeed string, nonce uint64, rows int) Path {
	block := engine.DeriveBlock(serverSeed, clientSeed, nonce)
	return pathFromBlock(block[:], rows)
}

func pathFromBlock(block []byte, rows int) Path {
	moves := make([]int, rows)
	landing := 0

	for r := 0; r < rows; r++ {
		bit := int(block[r%len(block)]>>(r%8)) & 1
		moves[r] = bit
		landing += bit
	}

	return Path{Moves: moves, LandingIndex: landing}
}

// Outcome is the fully resolved result of one drop.
type Outcome struct {
	Path           Path
	Multiplier     float64
	Payout         decimal.Decimal
	ServerSeedHash string
}

// ComputePayout applies the multiplier and the fixed rounding rule: 2 decimal
// places, half away from zero. The rule is part of the house-edge contract and
// must never change.
func ComputePayout(amount decimal.Decimal, multiplier float64) decimal.Decimal {
	return amount.Mul(decimal.NewFromFloat(multiplier)).Round(2)
}

// Resolve computes the outcome for one bet. Pure: no clock, no hidden state,
// no randomness beyond the arguments, so a verifier holding the revealed
// server seed reproduces the result exactly.
func Resolve(amount decimal.Decimal, rows int, risk Risk, serverSeed, clientSeed string, nonce uint64) (Outcome, error) {
	table, err := Multipliers(rows, risk)
	if err != nil {
		return Outcome{}, err
	}

	path := DerivePath(serverSeed, clientSeed, nonce, rows)
	multiplier := table[path.LandingIndex]

	return Outcome{
		Path:           path,
		Multiplier:     multiplier,
		Payout:         ComputePayout(amount, multiplier),
		ServerSeedHash: engine.HashSeed(serverSeed),
	}, nil
}

// Verification is the third-party recomputation of a past bet from a revealed
// server seed.
type Verification struct {
	ServerSeedHash string  `json:"serverSeedHash"`
	Path           Path    `json:"path"`
	Multiplier     float64 `json:"multiplier"`
}

// Verify recomputes the commitment and the outcome for a revealed seed. An
// auditor compares ServerSeedHash against the commitment shown before the bet
// and the path/multiplier against the receipt.
func Verify(serverSeed, clientSeed string, nonce uint64, rows int, risk Risk) (Verification, error) {
	table, err := Multipliers(rows, risk)
	if err != nil {
		return Verification{}, err
	}

	path := DerivePath(serverSeed, clientSeed, nonce, rows)

	return Verification{
		ServerSeedHash: engine.HashSeed(serverSeed),
		Path:           path,
		Multiplier:     table[path.LandingIndex],
	}, nil
}
