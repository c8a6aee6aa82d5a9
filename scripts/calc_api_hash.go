package main

import (
	"fmt"
	"os"

	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
)

// calc_api_hash.go - prints the SHA256 stored in api_keys.key_hash
//
// Usage:
//   go run scripts/calc_api_hash.go <api_key>

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run scripts/calc_api_hash.go <api_key>")
		os.Exit(1)
	}

	apiKey := os.Args[1]
	if !domain.IsValidFormat(apiKey) {
		fmt.Fprintln(os.Stderr, "warning: key does not match vid_<env>_<32 chars>")
	}

	fmt.Printf("API Key: %s\n", apiKey)
	fmt.Printf("SHA256:  %s\n", domain.HashAPIKey(apiKey))
}
