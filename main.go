package main

import (
	"os"

	"github.com/cloudinv/cloudinv/cli"
	"github.com/cloudinv/cloudinv/globals"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:     os.Args[0],
		Version: globals.CLOUDINV_VERSION,
	}
)

func main() {
	rootCmd.AddCommand(
		cli.InventoryCommand,
		cli.CheckAPIsCommand,
		cli.WhoamiCommand,
	)
	rootCmd.Execute()
}
