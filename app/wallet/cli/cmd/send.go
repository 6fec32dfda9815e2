package cmd

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/btc2/ledgerchain/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	to    string
	value string
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a transfer",
	RunE: func(cmd *cobra.Command, args []string) error {
		toAddr, err := resolve(to)
		if err != nil {
			return err
		}

		coins, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("parsing value: %w", err)
		}
		if coins.IsNegative() {
			return errors.New("value must not be negative")
		}

		wei := coins.Shift(weiDecimals).BigInt()

		privateKey, err := loadPrivateKey()
		if err != nil {
			return err
		}

		return sendTx(privateKey, &toAddr, wei, nil)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Name or address of the account receiving the value.")
	sendCmd.Flags().StringVarP(&value, "value", "v", "0", "Value to send in coins.")
}

// sendTx signs a legacy transaction for the node's chain and submits it.
func sendTx(privateKey *ecdsa.PrivateKey, to *common.Address, wei *big.Int, data []byte) error {
	client, ctx, cancel, err := dial()
	if err != nil {
		return err
	}
	defer cancel()
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("reading chain id: %w", err)
	}

	from := crypto.PubkeyToAddress(privateKey.PublicKey)
	nonce, err := client.NonceAt(ctx, from, nil)
	if err != nil {
		return fmt.Errorf("reading nonce: %w", err)
	}

	gas, err := client.EstimateGas(ctx, ethereumCall(from, to, wei, data))
	if err != nil {
		return fmt.Errorf("estimating gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       to,
		Value:    wei,
		Gas:      gas,
		GasPrice: big.NewInt(0),
		Data:     data,
	})

	signed, err := signature.SignTx(tx, privateKey, chainID)
	if err != nil {
		return err
	}

	if err := client.SendTransaction(ctx, signed); err != nil {
		return err
	}

	fmt.Println(signed.Hash())
	return nil
}
