// Package cmd contains wallet app
package cmd

import (
	"context"
	"crypto/ecdsa"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btc2/ledgerchain/foundation/nameservice"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"
)

var (
	accountName string
	accountPath string
	url         string
)

const (
	keyExtenstion = ".ecdsa"
	callTimeout   = 10 * time.Second
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&accountName, "account", "a", "private.ecdsa", "Path to the private key.")
	rootCmd.PersistentFlags().StringVarP(&accountPath, "account-path", "p", "zblock/accounts/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8545", "Url of the node.")
}

var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "A simple wallet for the ledger chain",
}

// Execute runs the wallet commands.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func getPrivateKeyPath() string {
	if !strings.HasSuffix(accountName, keyExtenstion) {
		accountName += keyExtenstion
	}

	return filepath.Join(accountPath, accountName)
}

func loadPrivateKey() (*ecdsa.PrivateKey, error) {
	return crypto.LoadECDSA(getPrivateKeyPath())
}

// dial connects to the JSON-RPC endpoint of the node.
func dial() (*ethclient.Client, context.Context, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}

	return client, ctx, cancel, nil
}

// resolve accepts a hex address or the name of a key under the account path.
func resolve(nameOrAddress string) (common.Address, error) {
	ns, err := nameservice.New(accountPath)
	if err != nil {
		return common.Address{}, err
	}

	return ns.Resolve(nameOrAddress)
}
