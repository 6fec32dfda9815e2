package cmd

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/btc2/ledgerchain/foundation/blockchain/signature"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/spf13/cobra"
)

var signCmd = &cobra.Command{
	Use:   "sign-message <legacy_key_hex> <message_file>",
	Short: "Sign a message the way legacy wallets do",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := hex.DecodeString(args[0])
		if err != nil {
			return fmt.Errorf("decoding key: %w", err)
		}

		message, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}

		key := secp256k1.PrivKeyFromBytes(b)
		sig := signature.SignLegacyMessage(key, message)

		fmt.Printf("pubkey:    %x\n", key.PubKey().SerializeCompressed())
		fmt.Printf("signature: %s\n", base64.StdEncoding.EncodeToString(sig))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(signCmd)
}
