package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "proxyjohn",
		Short: "Proxy OAuth multi-provider: dance, tokens y passthrough",
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newKeysCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
