// This program performs administrative tasks for the ledger node.
package main

import (
	"fmt"
	"os"

	"github.com/btc2/ledgerchain/app/tooling/admin/cmd"
	"github.com/btc2/ledgerchain/foundation/logger"
)

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cmd.Execute(log); err != nil {
		log.Errorw("admin", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}
