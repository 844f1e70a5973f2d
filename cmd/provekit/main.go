// ABOUTME: Secure-device CLI that computes the proof for an issued challenge
// ABOUTME: Holds the long-term secret; its output is relayed to the agent out of band

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/gatewarden/gatewarden/internal/proof"
	"github.com/gatewarden/gatewarden/internal/secret"
)

func main() {
	challengeID := flag.String("challenge", "", "Challenge id from the blocked response")
	nonce := flag.String("nonce", "", "Challenge nonce from the blocked response")
	code := flag.String("code", "", "Rotating code (derived from the seed when omitted)")
	period := flag.Duration("period", secret.DefaultRotationPeriod, "Rotating code period")
	jsonOnly := flag.Bool("json", false, "Print only the proof JSON")
	flag.Parse()

	if err := run(*challengeID, *nonce, *code, *period, *jsonOnly); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(challengeID, nonce, code string, period time.Duration, jsonOnly bool) error {
	if challengeID == "" || nonce == "" {
		return fmt.Errorf("both -challenge and -nonce are required")
	}

	// The secret never appears on the command line; argv is visible to
	// other processes.
	longTermSecret := os.Getenv("GATEWARDEN_SECRET")
	if longTermSecret == "" {
		return fmt.Errorf("GATEWARDEN_SECRET must be set")
	}

	if code == "" {
		seed := os.Getenv("GATEWARDEN_ROTATING_SEED")
		if seed == "" {
			return fmt.Errorf("provide -code or set GATEWARDEN_ROTATING_SEED to derive it")
		}
		store := secret.NewStore(longTermSecret, seed, period)
		code = store.CurrentRotatingCode(time.Now())
	}

	p := proof.Build([]byte(longTermSecret), challengeID, code, nonce)

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding proof: %w", err)
	}

	if jsonOnly {
		fmt.Println(string(data))
		return nil
	}

	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)

	cyan.Println("Proof computed. Relay it to the agent for submission:")
	gray.Printf("  challenge: %s\n", challengeID)
	fmt.Println(string(data))
	return nil
}
