package main

import (
	"fmt"
	"os"

	"github.com/communitytime/allocation-api/internal/auth"
)

// hashpass prints an argon2id hash suitable for ADMIN_PASSWORD_HASH.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: hashpass <admin-password>")
		os.Exit(1)
	}

	hash, err := auth.Hash(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("ADMIN_PASSWORD_HASH=%s\n", hash)
}
