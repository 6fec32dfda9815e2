// This program is a command line wallet for the ledger chain.
package main

import "github.com/btc2/ledgerchain/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
