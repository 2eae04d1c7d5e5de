// Command verify-bet recomputes a plinko outcome offline from a revealed
// server seed, so a bet can be audited without trusting the server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fairbet-labs/plinko-engine/internal/games"
)

func main() {
	var (
		serverSeed   = flag.String("server-seed", "", "revealed server seed")
		clientSeed   = flag.String("client-seed", "", "client seed used for the bet")
		nonce        = flag.Uint64("nonce", 0, "nonce of the bet within its session")
		rows         = flag.Int("rows", 16, "board rows (8-16)")
		risk         = flag.String("risk", "medium", "risk level: low, medium, high")
		expectedHash = flag.String("expected-hash", "", "server seed hash committed before the bet (optional)")
	)
	flag.Parse()

	if *serverSeed == "" {
		fmt.Fprintln(os.Stderr, "error: -server-seed is required")
		flag.Usage()
		os.Exit(2)
	}

	riskLevel, err := games.ParseRisk(*risk)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	v, err := games.Verify(*serverSeed, *clientSeed, *nonce, *rows, riskLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("server seed hash: %s\n", v.ServerSeedHash)
	fmt.Printf("path:             %s\n", v.Path)
	fmt.Printf("landing index:    %d\n", v.Path.LandingIndex)
	fmt.Printf("multiplier:       %gx\n", v.Multiplier)

	if *expectedHash != "" {
		if v.ServerSeedHash != *expectedHash {
			fmt.Println("commitment:       MISMATCH")
			os.Exit(1)
		}
		fmt.Println("commitment:       ok")
	}
}
