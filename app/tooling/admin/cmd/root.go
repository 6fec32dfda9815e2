// Package cmd contains the admin commands.
package cmd

import (
	"github.com/btc2/ledgerchain/foundation/blockchain/genesis"
	"github.com/btc2/ledgerchain/foundation/blockchain/storage/sqldb"
	"github.com/btc2/ledgerchain/foundation/blockchain/utxo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	utxoPath    string
	dbDriver    string
	dbURL       string
	genesisPath string
)

var log *zap.SugaredLogger

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Administrative tasks for the ledger node",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&utxoPath, "utxo-db", "zblock/utxo.db", "Path to the legacy output set.")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", sqldb.DriverSQLite, "Ledger database driver (sqlite3 or postgres).")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "file:zblock/ledger.db", "Ledger database url.")
	rootCmd.PersistentFlags().StringVar(&genesisPath, "genesis", "zblock/genesis.json", "Path to the genesis file.")
}

// Execute runs the command named on the command line.
func Execute(l *zap.SugaredLogger) error {
	log = l
	return rootCmd.Execute()
}

func openOutputs() (*utxo.BoltStore, error) {
	return utxo.OpenBoltStore(utxoPath)
}

func openLedger() (*sqldb.DB, genesis.Genesis, error) {
	gen, err := genesis.Load(genesisPath)
	if err != nil {
		return nil, genesis.Genesis{}, err
	}

	db, err := sqldb.Open(sqldb.Config{
		Driver:       dbDriver,
		URL:          dbURL,
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	})
	if err != nil {
		return nil, genesis.Genesis{}, err
	}

	return db, gen, nil
}
