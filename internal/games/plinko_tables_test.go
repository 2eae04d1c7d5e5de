package games

import (
	"errors"
	"fmt"
	"testing"
)

func TestTablesComplete(t *testing.T) {
	for _, risk := range Risks() {
		for rows := MinRows; rows <= MaxRows; rows++ {
			table, err := Multipliers(rows, risk)
			if err != nil {
				t.Fatalf("Multipliers(%d, %s) error = %v", rows, risk, err)
			}
			if len(table) != rows+1 {
				t.Errorf("risk %s rows %d: %d entries, want %d", risk, rows, len(table), rows+1)
			}
		}
	}
}

func TestTablesSymmetric(t *testing.T) {
	for _, risk := range Risks() {
		for rows := MinRows; rows <= MaxRows; rows++ {
			table, err := Multipliers(rows, risk)
			if err != nil {
				t.Fatalf("Multipliers(%d, %s) error = %v", rows, risk, err)
			}
			for i := range table {
				if table[i] != table[rows-i] {
					t.Errorf("risk %s rows %d: table[%d]=%v != table[%d]=%v", risk, rows, i, table[i], rows-i, table[rows-i])
				}
			}
		}
	}
}

// Expected value over the uniform binomial landing distribution must sit
// strictly below 1: the house edge.
func TestTablesHouseEdge(t *testing.T) {
	for _, risk := range Risks() {
		for rows := MinRows; rows <= MaxRows; rows++ {
			t.Run(fmt.Sprintf("%s_%d", risk, rows), func(t *testing.T) {
				table, err := Multipliers(rows, risk)
				if err != nil {
					t.Fatalf("Multipliers() error = %v", err)
				}

				ev := 0.0
				for k, m := range table {
					ev += m * binomialProbability(rows, k)
				}

				if ev >= 1 {
					t.Errorf("expected value %f >= 1, no house edge", ev)
				}
				if ev < 0.9 {
					t.Errorf("expected value %f suspiciously low", ev)
				}
			})
		}
	}
}

func binomialProbability(n, k int) float64 {
	c := 1.0
	for i := 0; i < k; i++ {
		c = c * float64(n-i) / float64(i+1)
	}
	p := 1.0
	for i := 0; i < n; i++ {
		p /= 2
	}
	return c * p
}

func TestMultipliersUnsupported(t *testing.T) {
	if _, err := Multipliers(7, RiskLow); !errors.Is(err, ErrUnsupportedConfiguration) {
		t.Errorf("rows=7: error = %v, want ErrUnsupportedConfiguration", err)
	}
	if _, err := Multipliers(17, RiskHigh); !errors.Is(err, ErrUnsupportedConfiguration) {
		t.Errorf("rows=17: error = %v, want ErrUnsupportedConfiguration", err)
	}
	if _, err := Multipliers(8, Risk("mild")); !errors.Is(err, ErrUnsupportedConfiguration) {
		t.Errorf("unknown risk: error = %v, want ErrUnsupportedConfiguration", err)
	}
}

func TestAllTablesMatchesLookup(t *testing.T) {
	dump := AllTables()

	for _, rows := range SupportedRows() {
		for _, risk := range Risks() {
			table, err := Multipliers(rows, risk)
			if err != nil {
				t.Fatalf("Multipliers(%d, %s) error = %v", rows, risk, err)
			}

			dumped := dump[rows][risk]
			if len(dumped) != len(table) {
				t.Fatalf("rows %d risk %s: dump length %d != %d", rows, risk, len(dumped), len(table))
			}
			for i := range table {
				if dumped[i] != table[i] {
					t.Errorf("rows %d risk %s index %d: %v != %v", rows, risk, i, dumped[i], table[i])
				}
			}
		}
	}

	// The dump is a copy; mutating it must not touch the live tables.
	dump[MinRows][RiskLow][0] = 9999
	table, _ := Multipliers(MinRows, RiskLow)
	if table[0] == 9999 {
		t.Error("AllTables returned live table storage")
	}
}

func TestOverrideTablesValidation(t *testing.T) {
	full := func() map[string]map[string][]float64 {
		raw := map[string]map[string][]float64{}
		for _, risk := range Risks() {
			raw[string(risk)] = map[string][]float64{}
			for rows := MinRows; rows <= MaxRows; rows++ {
				table := make([]float64, rows+1)
				for i := range table {
					table[i] = 0.9
				}
				raw[string(risk)][fmt.Sprint(rows)] = table
			}
		}
		return raw
	}

	t.Run("rejects asymmetric table", func(t *testing.T) {
		raw := full()
		raw["low"]["8"][0] = 5
		if err := OverrideTables(raw); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("rejects missing pair", func(t *testing.T) {
		raw := full()
		delete(raw["high"], "16")
		if err := OverrideTables(raw); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		raw := full()
		raw["medium"]["10"] = []float64{1, 1}
		if err := OverrideTables(raw); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("installs valid override", func(t *testing.T) {
		if err := OverrideTables(full()); err != nil {
			t.Fatalf("OverrideTables() error = %v", err)
		}
		table, err := Multipliers(8, RiskLow)
		if err != nil {
			t.Fatalf("Multipliers() error = %v", err)
		}
		if table[0] != 0.9 {
			t.Errorf("override not installed: got %v", table[0])
		}

		// Restore the embedded tables for other tests.
		payoutTables = mustLoadTables()
	})
}
