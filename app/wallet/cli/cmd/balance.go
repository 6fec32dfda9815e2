package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// weiDecimals is the number of decimals between wei and a coin.
const weiDecimals = 18

var balanceCmd = &cobra.Command{
	Use:   "balance [name|address]",
	Short: "Print your balance.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) error {
	var account common.Address
	switch len(args) {
	case 1:
		var err error
		if account, err = resolve(args[0]); err != nil {
			return err
		}

	default:
		privateKey, err := loadPrivateKey()
		if err != nil {
			return err
		}
		account = crypto.PubkeyToAddress(privateKey.PublicKey)
	}

	client, ctx, cancel, err := dial()
	if err != nil {
		return err
	}
	defer cancel()
	defer client.Close()

	wei, err := client.BalanceAt(ctx, account, nil)
	if err != nil {
		return err
	}

	fmt.Println("For Account:", account)
	fmt.Println(decimal.NewFromBigInt(wei, -weiDecimals).String())

	return nil
}
