package rpcgrp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/btc2/ledgerchain/app/services/node/handlers/v1/rpcgrp"
	"github.com/btc2/ledgerchain/business/web/errs"
	"github.com/btc2/ledgerchain/foundation/blockchain/genesis"
	"github.com/btc2/ledgerchain/foundation/blockchain/ledger"
	"github.com/btc2/ledgerchain/foundation/blockchain/migration"
	"github.com/btc2/ledgerchain/foundation/blockchain/signature"
	"github.com/btc2/ledgerchain/foundation/blockchain/storage/sqldb"
	"github.com/btc2/ledgerchain/foundation/blockchain/utxo"
	"github.com/btc2/ledgerchain/foundation/web"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	aliceKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	alice    = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
	bob      = "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32"
)

func Test_RPC(t *testing.T) {
	l := newLedger(t)
	mux := newMux(l)

	t.Log("Given the need to serve the JSON-RPC surface.")
	{
		t.Logf("\tTest 0:\tWhen asking for chain parameters.")
		{
			var chainID string
			result(t, mux, 0, "eth_chainId", &chainID)
			if chainID != "0xb2" {
				t.Fatalf("\t%s\tTest 0:\tShould get chain 178: got %s", failed, chainID)
			}
			t.Logf("\t%s\tTest 0:\tShould get chain 178.", success)

			var netVersion string
			result(t, mux, 0, "net_version", &netVersion)
			if netVersion != "178" {
				t.Fatalf("\t%s\tTest 0:\tShould get the network version: got %s", failed, netVersion)
			}
			t.Logf("\t%s\tTest 0:\tShould get the network version.", success)

			var number string
			result(t, mux, 0, "eth_blockNumber", &number)
			if number != "0x1481f" {
				t.Fatalf("\t%s\tTest 0:\tShould report the last legacy block: got %s", failed, number)
			}
			t.Logf("\t%s\tTest 0:\tShould report the last legacy block.", success)

			var gas string
			result(t, mux, 0, "eth_estimateGas", &gas, map[string]string{"to": bob})
			if gas != "0x5208" {
				t.Fatalf("\t%s\tTest 0:\tShould estimate the gas limit: got %s", failed, gas)
			}
			t.Logf("\t%s\tTest 0:\tShould estimate the gas limit.", success)
		}

		t.Logf("\tTest 1:\tWhen sending a transfer.")
		{
			var balance string
			result(t, mux, 1, "eth_getBalance", &balance, alice, "latest")
			if balance != "0x2386f26fc10000" {
				t.Fatalf("\t%s\tTest 1:\tShould report the genesis balance in wei: got %s", failed, balance)
			}
			t.Logf("\t%s\tTest 1:\tShould report the genesis balance in wei.", success)

			raw := transfer(t, 0, bob, 40)

			var hash common.Hash
			result(t, mux, 1, "eth_sendRawTransaction", &hash, hexutil.Encode(raw))
			t.Logf("\t%s\tTest 1:\tShould be able to send the transaction.", success)

			var rcpt json.RawMessage
			result(t, mux, 1, "eth_getTransactionReceipt", &rcpt, hash)
			if string(rcpt) != "null" {
				t.Fatalf("\t%s\tTest 1:\tShould have no receipt before the seal: got %s", failed, rcpt)
			}
			t.Logf("\t%s\tTest 1:\tShould have no receipt before the seal.", success)

			if _, err := l.Seal(context.Background(), time.Now()); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to seal: %v", failed, err)
			}

			var got struct {
				BlockNumber string `json:"blockNumber"`
				Status      string `json:"status"`
				From        string `json:"from"`
			}
			result(t, mux, 1, "eth_getTransactionReceipt", &got, hash)
			if got.BlockNumber != "0x14820" || got.Status != "0x1" || !strings.EqualFold(got.From, alice) {
				t.Fatalf("\t%s\tTest 1:\tShould get the receipt after the seal: %+v", failed, got)
			}
			t.Logf("\t%s\tTest 1:\tShould get the receipt after the seal.", success)

			var blk struct {
				Number       string   `json:"number"`
				Transactions []string `json:"transactions"`
			}
			result(t, mux, 1, "eth_getBlockByNumber", &blk, "latest", false)
			if blk.Number != "0x14820" || len(blk.Transactions) != 1 || blk.Transactions[0] != hash.Hex() {
				t.Fatalf("\t%s\tTest 1:\tShould list the transaction in the block: %+v", failed, blk)
			}
			t.Logf("\t%s\tTest 1:\tShould list the transaction in the block.", success)

			var entries []struct {
				Debtor   string `json:"debtor"`
				Creditor string `json:"creditor"`
				Amount   string `json:"amount"`
			}
			result(t, mux, 1, "btc2_getLedger", &entries, bob)
			if len(entries) != 1 || !strings.EqualFold(entries[0].Debtor, alice) || entries[0].Amount != "0xe35fa931a0000" {
				t.Fatalf("\t%s\tTest 1:\tShould list the ledger entry: %+v", failed, entries)
			}
			t.Logf("\t%s\tTest 1:\tShould list the ledger entry.", success)

			var count string
			result(t, mux, 1, "eth_getTransactionCount", &count, alice, "latest")
			if count != "0x1" {
				t.Fatalf("\t%s\tTest 1:\tShould count the transaction: got %s", failed, count)
			}
			t.Logf("\t%s\tTest 1:\tShould count the transaction.", success)
		}

		t.Logf("\tTest 2:\tWhen the call is not valid.")
		{
			tt := []struct {
				name   string
				method string
				params []any
				code   int
			}{
				{"unknown method", "eth_mining", nil, errs.CodeMethodNotFound},
				{"missing parameter", "eth_getBalance", nil, errs.CodeInvalidParams},
				{"bad address", "eth_getBalance", []any{"0x1234", "latest"}, errs.CodeInvalidParams},
				{"bad transaction", "eth_sendRawTransaction", []any{"0x0102"}, errs.CodeRejected},
			}

			for _, tst := range tt {
				resp := call(t, mux, tst.method, tst.params...)
				if resp.Error == nil || resp.Error.Code != tst.code {
					t.Fatalf("\t%s\tTest 2:\tShould get code %d for a %s: %+v", failed, tst.code, tst.name, resp.Error)
				}
				t.Logf("\t%s\tTest 2:\tShould get code %d for a %s.", success, tst.code, tst.name)
			}

			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, r)

			var resp rpcgrp.Response
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || resp.Error == nil || resp.Error.Code != errs.CodeParse {
				t.Fatalf("\t%s\tTest 2:\tShould get a parse error for malformed json: %+v %v", failed, resp.Error, err)
			}
			t.Logf("\t%s\tTest 2:\tShould get a parse error for malformed json.", success)
		}
	}
}

// =============================================================================

func newLedger(t *testing.T) *ledger.Ledger {
	t.Helper()

	dir := t.TempDir()

	db, err := sqldb.Open(sqldb.Config{Driver: sqldb.DriverSQLite, URL: "file:" + filepath.Join(dir, "ledger.db")})
	if err != nil {
		t.Fatalf("Should be able to open the database: %s", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Should be able to create the schema: %s", err)
	}

	outputs, err := utxo.OpenBoltStore(filepath.Join(dir, "utxo.db"))
	if err != nil {
		t.Fatalf("Should be able to open the output set: %s", err)
	}
	t.Cleanup(func() { outputs.Close() })

	g := genesis.Default()
	g.Balances = map[string]int64{alice: 100}

	l, err := ledger.New(ledger.Config{
		Storage:        db,
		Claims:         migration.NewDecoder(utxo.NewValidator(outputs), 0),
		Genesis:        g,
		AllowOverdraft: true,
	})
	if err != nil {
		t.Fatalf("Should be able to construct the ledger: %s", err)
	}

	if _, err := l.ApplyGenesis(context.Background()); err != nil {
		t.Fatalf("Should be able to apply the genesis: %s", err)
	}

	return l
}

func newMux(l *ledger.Ledger) http.Handler {
	app := web.NewApp(make(chan os.Signal, 1))

	h := rpcgrp.Handlers{
		Log:    zap.NewNop().Sugar(),
		Ledger: l,
	}
	app.Handle(http.MethodPost, "", "/", h.RPC)

	return app
}

func call(t *testing.T, mux http.Handler, method string, params ...any) rpcgrp.Response {
	t.Helper()

	if params == nil {
		params = []any{}
	}

	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	if err != nil {
		t.Fatalf("Should be able to encode the request: %s", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("Should receive a status code of 200 for %s: got %d", method, w.Code)
	}

	var resp rpcgrp.Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Should be able to decode the response: %s", err)
	}

	if string(resp.ID) != "1" {
		t.Fatalf("Should echo the request id: got %s", resp.ID)
	}

	return resp
}

func result(t *testing.T, mux http.Handler, testID int, method string, v any, params ...any) {
	t.Helper()

	resp := call(t, mux, method, params...)
	if resp.Error != nil {
		t.Fatalf("\t%s\tTest %d:\tShould be able to call %s: %+v", failed, testID, method, resp.Error)
	}

	if err := json.Unmarshal(resp.Result, v); err != nil {
		t.Fatalf("\t%s\tTest %d:\tShould be able to decode the %s result: %v", failed, testID, method, err)
	}
}

func transfer(t *testing.T, nonce uint64, to string, units int64) []byte {
	t.Helper()

	pk, err := crypto.HexToECDSA(aliceKey)
	if err != nil {
		t.Fatalf("Should be able to load the private key: %s", err)
	}

	toAddr := common.HexToAddress(to)
	g := genesis.Default()

	tx, err := signature.SignTx(types.NewTx(&types.LegacyTx{
		Nonce: nonce,
		To:    &toAddr,
		Value: ledger.LedgerToWei(units, g.WeiPerLedgerUnit),
		Gas:   g.GasLimit,
	}), pk, g.ChainIDBig())
	if err != nil {
		t.Fatalf("Should be able to sign the transaction: %s", err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("Should be able to encode the transaction: %s", err)
	}
	return raw
}
