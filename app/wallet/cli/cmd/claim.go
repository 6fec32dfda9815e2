package cmd

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"os"

	"github.com/btc2/ledgerchain/foundation/blockchain/migration"
	"github.com/btc2/ledgerchain/foundation/blockchain/signature"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	messageFile  string
	legacySig    string
	legacyKeyHex string
	system       string
)

// claimCmd submits a migration claim for legacy outputs.
var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim legacy outputs with a signed migration message",
	RunE: func(cmd *cobra.Command, args []string) error {
		message, err := os.ReadFile(messageFile)
		if err != nil {
			return err
		}

		var sig []byte
		switch {
		case legacySig != "":
			if sig, err = base64.StdEncoding.DecodeString(legacySig); err != nil {
				return fmt.Errorf("decoding signature: %w", err)
			}

		case legacyKeyHex != "":
			b, err := hex.DecodeString(legacyKeyHex)
			if err != nil {
				return fmt.Errorf("decoding legacy key: %w", err)
			}
			sig = signature.SignLegacyMessage(secp256k1.PrivKeyFromBytes(b), message)

		default:
			return errors.New("either a signature or a legacy key is required")
		}

		// Fail here rather than on the node when the message is malformed.
		if _, err := migration.ParseMessage(string(message)); err != nil {
			return err
		}

		data, err := migration.EncodeCall(string(message), sig)
		if err != nil {
			return err
		}

		privateKey, err := loadPrivateKey()
		if err != nil {
			return err
		}

		systemAddr := common.HexToAddress(system)
		return sendTx(privateKey, &systemAddr, big.NewInt(0), data)
	},
}

func init() {
	rootCmd.AddCommand(claimCmd)
	claimCmd.Flags().StringVarP(&messageFile, "message", "m", "", "File holding the migration message.")
	claimCmd.Flags().StringVarP(&legacySig, "signature", "s", "", "Base64 legacy message signature.")
	claimCmd.Flags().StringVarP(&legacyKeyHex, "legacy-key", "k", "", "Hex legacy private key used to sign the message.")
	claimCmd.Flags().StringVar(&system, "system", "0x0000000000000000000000000000000000000000", "System address receiving claims.")
	claimCmd.MarkFlagRequired("message")
}

func ethereumCall(from common.Address, to *common.Address, wei *big.Int, data []byte) ethereum.CallMsg {
	return ethereum.CallMsg{
		From:  from,
		To:    to,
		Value: wei,
		Data:  data,
	}
}
