package games

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrUnsupportedConfiguration is returned for a (rows, risk) pair the engine
// has no payout curve for. Configuration problems are surfaced, never
// defaulted.
var ErrUnsupportedConfiguration = errors.New("unsupported configuration")

//go:embed plinko_tables.json
var plinkoTablesJSON []byte

var payoutTables = mustLoadTables()

type tableSet map[Risk]map[int][]float64

func mustLoadTables() tableSet {
	raw := map[string]map[string][]float64{}
	if err := json.Unmarshal(plinkoTablesJSON, &raw); err != nil {
		panic(fmt.Sprintf("failed to parse plinko payout tables: %v", err))
	}

	set, err := buildTables(raw)
	if err != nil {
		panic(fmt.Sprintf("embedded plinko payout tables: %v", err))
	}
	return set
}

func buildTables(raw map[string]map[string][]float64) (tableSet, error) {
	set := make(tableSet, len(raw))

	for riskKey, rowTables := range raw {
		risk, err := ParseRisk(riskKey)
		if err != nil {
			return nil, fmt.Errorf("unknown risk key %q", riskKey)
		}

		set[risk] = make(map[int][]float64, len(rowTables))
		for rowKey, multipliers := range rowTables {
			rows, err := strconv.Atoi(rowKey)
			if err != nil {
				return nil, fmt.Errorf("invalid row key %q for risk %q: %v", rowKey, riskKey, err)
			}

			if err := validateTable(rows, multipliers); err != nil {
				return nil, fmt.Errorf("risk %q rows %d: %v", riskKey, rows, err)
			}

			copied := make([]float64, len(multipliers))
			copy(copied, multipliers)
			set[risk][rows] = copied
		}
	}

	// Every supported pair must resolve; a partially populated table never
	// makes it past startup.
	for _, risk := range Risks() {
		for rows := MinRows; rows <= MaxRows; rows++ {
			if _, ok := set[risk][rows]; !ok {
				return nil, fmt.Errorf("missing table for risk %q rows %d", risk, rows)
			}
		}
	}

	return set, nil
}

func validateTable(rows int, multipliers []float64) error {
	if rows < MinRows || rows > MaxRows {
		return fmt.Errorf("rows out of supported range %d-%d", MinRows, MaxRows)
	}

	if len(multipliers) != rows+1 {
		return fmt.Errorf("expected %d entries, got %d", rows+1, len(multipliers))
	}

	for i, m := range multipliers {
		if m < 0 {
			return fmt.Errorf("negative multiplier %f at index %d", m, i)
		}
		// Symmetry about the center index is a hard invariant.
		if m != multipliers[rows-i] {
			return fmt.Errorf("asymmetric at index %d: %f != %f", i, m, multipliers[rows-i])
		}
	}

	return nil
}

// Multipliers returns the payout curve for the configuration: rows+1 entries,
// index 0..rows corresponding to landing positions.
func Multipliers(rows int, risk Risk) ([]float64, error) {
	riskTables, ok := payoutTables[risk]
	if !ok {
		return nil, fmt.Errorf("%w: risk %q", ErrUnsupportedConfiguration, risk)
	}

	table, ok := riskTables[rows]
	if !ok {
		return nil, fmt.Errorf("%w: rows %d for risk %q", ErrUnsupportedConfiguration, rows, risk)
	}

	return table, nil
}

// OverrideTables installs replacement payout curves, typically parsed from an
// operator-supplied config file. The replacement passes the same validation as
// the embedded tables and must cover every supported (rows, risk) pair.
// Intended to be called once at startup, before any bet is resolved.
func OverrideTables(raw map[string]map[string][]float64) error {
	set, err := buildTables(raw)
	if err != nil {
		return err
	}
	payoutTables = set
	return nil
}

// SupportedRows lists every supported row count in ascending order.
func SupportedRows() []int {
	rows := make([]int, 0, MaxRows-MinRows+1)
	for r := MinRows; r <= MaxRows; r++ {
		rows = append(rows, r)
	}
	return rows
}

// AllTables returns a fresh copy of every payout curve, keyed rows then risk;
// exactly the values Multipliers would return, for client display.
func AllTables() map[int]map[Risk][]float64 {
	dump := make(map[int]map[Risk][]float64, MaxRows-MinRows+1)
	for _, rows := range SupportedRows() {
		dump[rows] = make(map[Risk][]float64, len(payoutTables))
		for _, risk := range Risks() {
			table := payoutTables[risk][rows]
			copied := make([]float64, len(table))
			copy(copied, table)
			dump[rows][risk] = copied
		}
	}
	return dump
}
