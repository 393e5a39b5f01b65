package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/proxyjohn/internal/security/secretbox"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Utilidades de claves",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "gen-secretbox",
		Short: "Genera una clave para SECRETBOX_MASTER_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := secretbox.GenerateMasterKey()
			if err != nil {
				return err
			}
			fmt.Printf("SECRETBOX_MASTER_KEY=%s\n", k)
			return nil
		},
	})
	return cmd
}
