package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/btc2/ledgerchain/foundation/blockchain/utxo"
	"github.com/spf13/cobra"
)

var utxoCmd = &cobra.Command{
	Use:   "utxo",
	Short: "Manage the legacy output set",
}

var utxoPutCmd = &cobra.Command{
	Use:   "put <hash> <index> <amount> <script_hex>",
	Short: "Store a single legacy output",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := parseOutpoint(args[0], args[1])
		if err != nil {
			return err
		}

		amount, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("parsing amount: %w", err)
		}

		script, err := hex.DecodeString(args[3])
		if err != nil {
			return fmt.Errorf("decoding script: %w", err)
		}

		store, err := openOutputs()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Put(op, amount, script); err != nil {
			return err
		}

		log.Infow("utxo put", "outpoint", op, "amount", amount)
		return nil
	},
}

var utxoImportCmd = &cobra.Command{
	Use:   "import <csv>",
	Short: "Bulk load legacy outputs from a csv file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		store, err := openOutputs()
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.Import(f)
		if err != nil {
			return fmt.Errorf("imported %d outputs: %w", n, err)
		}

		total, err := store.Count()
		if err != nil {
			return err
		}

		log.Infow("utxo import", "imported", n, "total", total)
		return nil
	},
}

var utxoGetCmd = &cobra.Command{
	Use:   "get <hash> <index>",
	Short: "Print a legacy output",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		op, err := parseOutpoint(args[0], args[1])
		if err != nil {
			return err
		}

		store, err := openOutputs()
		if err != nil {
			return err
		}
		defer store.Close()

		amount, script, err := store.Lookup(context.Background(), op.Hash, op.Index)
		if err != nil {
			return err
		}

		fmt.Printf("%s amount=%d script=%x\n", op, amount, script)
		return nil
	},
}

var utxoScriptCmd = &cobra.Command{
	Use:   "script <pubkey_hex>",
	Short: "Print the compressed P2WPKH script for a public key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pub, err := hex.DecodeString(args[0])
		if err != nil {
			return fmt.Errorf("decoding public key: %w", err)
		}

		script, err := utxo.CompressP2WPKH(utxo.Hash160(pub))
		if err != nil {
			return err
		}

		fmt.Printf("%x\n", script)
		return nil
	},
}

func init() {
	utxoCmd.AddCommand(utxoPutCmd, utxoImportCmd, utxoGetCmd, utxoScriptCmd)
	rootCmd.AddCommand(utxoCmd)
}

func parseOutpoint(hash string, index string) (utxo.Outpoint, error) {
	i, err := strconv.ParseUint(index, 10, 16)
	if err != nil {
		return utxo.Outpoint{}, fmt.Errorf("parsing index: %w", err)
	}

	return utxo.NewOutpoint(hash, uint16(i))
}
