package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print account for the specific wallet",
	RunE:  accountRun,
}

func init() {
	rootCmd.AddCommand(accountCmd)
}

func accountRun(cmd *cobra.Command, args []string) error {
	privateKey, err := loadPrivateKey()
	if err != nil {
		return err
	}

	fmt.Println(crypto.PubkeyToAddress(privateKey.PublicKey))
	return nil
}
