// Command walletgen generates an encrypted wallet offline. It prompts for a
// password without echo, creates a fresh key, and prints the address plus the
// base64-encoded blob for seeding test accounts.
package main

import (
	"encoding/base64"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/dkurguzov/betkeeper/internal/common"
	"github.com/dkurguzov/betkeeper/internal/keystore"
	"github.com/dkurguzov/betkeeper/internal/wallet"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	fmt.Print("Enter password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	defer common.WipeByteArray(password)

	fmt.Print("Repeat password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	defer common.WipeByteArray(confirm)

	if string(password) != string(confirm) {
		return fmt.Errorf("passwords do not match")
	}
	if len(password) == 0 {
		return fmt.Errorf("password must not be empty")
	}

	m := wallet.NewManager(keystore.Params{ScryptN: keystore.DefaultScryptN})
	address, blob, err := m.Create(password)
	if err != nil {
		return fmt.Errorf("wallet generation failed: %w", err)
	}

	fmt.Printf("address: %s\n", address)
	fmt.Printf("blob:    %s\n", base64.StdEncoding.EncodeToString(blob))
	return nil
}
