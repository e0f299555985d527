package main

import (
	"fmt"
	"os"

	"github.com/crucial707/ledger/cmd/cli/auth"
	"github.com/crucial707/ledger/cmd/cli/root"
	"github.com/crucial707/ledger/cmd/cli/summary"
	"github.com/crucial707/ledger/cmd/cli/tx"
)

func main() {
	rootCmd := root.NewRoot()
	auth.InitAuth(rootCmd)
	tx.InitTx(rootCmd)
	summary.InitSummary(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
