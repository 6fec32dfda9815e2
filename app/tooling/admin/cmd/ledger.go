package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/btc2/ledgerchain/foundation/blockchain/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const (
	weiDecimals  = 18
	queryTimeout = 10 * time.Second
)

var balanceCmd = &cobra.Command{
	Use:   "balance <address>",
	Short: "Print the ledger balance of an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}

		db, gen, err := openLedger()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()

		units, err := db.Balance(ctx, addr)
		if err != nil {
			return err
		}

		fmt.Printf("%s units=%d coins=%s\n", addr, units, coins(units, gen.WeiPerLedgerUnit))
		return nil
	},
}

var ledgerCmd = &cobra.Command{
	Use:   "ledger <address>",
	Short: "Print the ledger entries touching an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}

		db, gen, err := openLedger()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()

		entries, err := db.Entries(ctx, addr)
		if err != nil {
			return err
		}

		for _, e := range entries {
			fmt.Printf("%s %s -> %s %s\n", e.TransactionHash, e.Debtor, e.Creditor, coins(e.Amount, gen.WeiPerLedgerUnit))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd, ledgerCmd)
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func coins(units int64, weiPerUnit uint64) string {
	return decimal.NewFromBigInt(ledger.LedgerToWei(units, weiPerUnit), -weiDecimals).String()
}
