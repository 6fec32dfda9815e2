// Package rpcgrp maintains the group of handlers for the Ethereum style
// JSON-RPC surface of the node.
package rpcgrp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/btc2/ledgerchain/business/sys/validate"
	"github.com/btc2/ledgerchain/business/web/errs"
	"github.com/btc2/ledgerchain/foundation/blockchain/ledger"
	"github.com/btc2/ledgerchain/foundation/web"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// method is the signature every RPC method implements.
type method func(ctx context.Context, params []json.RawMessage) (any, error)

// Handlers manages the set of JSON-RPC endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Ledger *ledger.Ledger
}

// RPC decodes a JSON-RPC call, dispatches it to the method and replies with
// its result. Failures of the call are reported in the JSON-RPC error member
// with a 200 status.
func (h Handlers) RPC(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req Request
	if err := web.Decode(r, &req); err != nil {
		return h.respondError(ctx, w, nil, errs.NewRPC(err, errs.CodeParse))
	}

	if err := validate.Check(req); err != nil {
		return h.respondError(ctx, w, req.ID, errs.NewRPC(err, errs.CodeInvalidRequest))
	}

	m, exists := h.methods()[req.Method]
	if !exists {
		return h.respondError(ctx, w, req.ID, errs.NewRPC(fmt.Errorf("method %q not supported", req.Method), errs.CodeMethodNotFound))
	}

	result, err := m(ctx, req.Params)
	if err != nil {
		return h.respondError(ctx, w, req.ID, err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding %s result: %w", req.Method, err)
	}

	resp := Response{
		JSONRPC: version,
		ID:      req.ID,
		Result:  data,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

func (h Handlers) methods() map[string]method {
	return map[string]method{
		"net_version":               h.netVersion,
		"eth_chainId":               h.chainID,
		"eth_blockNumber":           h.blockNumber,
		"eth_gasPrice":              zero,
		"eth_maxPriorityFeePerGas":  zero,
		"eth_estimateGas":           h.estimateGas,
		"eth_getCode":               getCode,
		"eth_call":                  call,
		"eth_getBalance":            h.getBalance,
		"eth_getTransactionCount":   h.getTransactionCount,
		"eth_sendRawTransaction":    h.sendRawTransaction,
		"eth_getBlockByNumber":      h.getBlockByNumber,
		"eth_getBlockByHash":        h.getBlockByHash,
		"eth_getTransactionByHash":  h.getTransactionByHash,
		"eth_getTransactionReceipt": h.getTransactionReceipt,
		"btc2_getLedger":            h.getLedger,
	}
}

// respondError replies with the JSON-RPC error for err. Errors the client
// did not cause are logged and reported without detail.
func (h Handlers) respondError(ctx context.Context, w http.ResponseWriter, id json.RawMessage, err error) error {
	rpcErr := Error{
		Code:    errs.CodeInternal,
		Message: "internal error",
	}

	switch {
	case errs.IsTrusted(err):
		trsErr := errs.GetTrusted(err)
		rpcErr = Error{
			Code:    trsErr.Code,
			Message: trsErr.Error(),
		}

	case ledger.IsClientError(err):
		rpcErr = Error{
			Code:    errs.CodeRejected,
			Message: err.Error(),
		}

	default:
		h.Log.Errorw("ERROR", "traceid", web.GetTraceID(ctx), "ERROR", err)
	}

	resp := Response{
		JSONRPC: version,
		ID:      id,
		Error:   &rpcErr,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// =============================================================================

func (h Handlers) netVersion(ctx context.Context, params []json.RawMessage) (any, error) {
	return strconv.FormatUint(h.Ledger.Genesis().ChainID, 10), nil
}

func (h Handlers) chainID(ctx context.Context, params []json.RawMessage) (any, error) {
	return hexutil.Uint64(h.Ledger.Genesis().ChainID), nil
}

func (h Handlers) blockNumber(ctx context.Context, params []json.RawMessage) (any, error) {
	b, err := h.Ledger.LatestBlock(ctx)
	if err != nil {
		return nil, err
	}
	return hexutil.Uint64(b.Number), nil
}

func (h Handlers) estimateGas(ctx context.Context, params []json.RawMessage) (any, error) {
	return hexutil.Uint64(h.Ledger.Genesis().GasLimit), nil
}

func zero(ctx context.Context, params []json.RawMessage) (any, error) {
	return hexutil.Uint64(0), nil
}

func getCode(ctx context.Context, params []json.RawMessage) (any, error) {
	return hexutil.Bytes{}, nil
}

func call(ctx context.Context, params []json.RawMessage) (any, error) {
	return nil, nil
}

func (h Handlers) getBalance(ctx context.Context, params []json.RawMessage) (any, error) {
	var addr common.Address
	if err := decodeParam(params, 0, &addr); err != nil {
		return nil, err
	}

	wei, err := h.Ledger.BalanceWei(ctx, addr)
	if err != nil {
		return nil, err
	}

	return (*hexutil.Big)(wei), nil
}

func (h Handlers) getTransactionCount(ctx context.Context, params []json.RawMessage) (any, error) {
	var addr common.Address
	if err := decodeParam(params, 0, &addr); err != nil {
		return nil, err
	}

	n, err := h.Ledger.TransactionCount(ctx, addr)
	if err != nil {
		return nil, err
	}

	return hexutil.Uint64(n), nil
}

func (h Handlers) sendRawTransaction(ctx context.Context, params []json.RawMessage) (any, error) {
	var raw hexutil.Bytes
	if err := decodeParam(params, 0, &raw); err != nil {
		return nil, err
	}

	hash, err := h.Ledger.Submit(ctx, raw)
	if err != nil {
		return nil, err
	}

	h.Log.Infow("transaction submitted", "traceid", web.GetTraceID(ctx), "hash", hash)

	return hash, nil
}

func (h Handlers) getBlockByNumber(ctx context.Context, params []json.RawMessage) (any, error) {
	var tag string
	if err := decodeParam(params, 0, &tag); err != nil {
		return nil, err
	}

	var fullTx bool
	if len(params) > 1 {
		if err := decodeParam(params, 1, &fullTx); err != nil {
			return nil, err
		}
	}

	var b ledger.Block
	switch tag {
	case "latest", "pending", "safe", "finalized":
		latest, err := h.Ledger.LatestBlock(ctx)
		if err != nil {
			return nil, err
		}
		b = latest

	case "earliest":
		b = h.legacyBlock()

	default:
		number, err := hexutil.DecodeUint64(tag)
		if err != nil {
			return nil, errs.NewRPC(fmt.Errorf("block number %q: %w", tag, err), errs.CodeInvalidParams)
		}

		if int64(number) <= h.Ledger.Genesis().LastLegacyBlockNumber {
			b = h.legacyBlock()
			break
		}

		b, err = h.Ledger.Block(ctx, int64(number))
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
	}

	return h.block(ctx, b, fullTx)
}

func (h Handlers) getBlockByHash(ctx context.Context, params []json.RawMessage) (any, error) {
	var hash common.Hash
	if err := decodeParam(params, 0, &hash); err != nil {
		return nil, err
	}

	var fullTx bool
	if len(params) > 1 {
		if err := decodeParam(params, 1, &fullTx); err != nil {
			return nil, err
		}
	}

	b, err := h.Ledger.BlockByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return h.block(ctx, b, fullTx)
}

func (h Handlers) getTransactionByHash(ctx context.Context, params []json.RawMessage) (any, error) {
	var hash common.Hash
	if err := decodeParam(params, 0, &hash); err != nil {
		return nil, err
	}

	row, tx, err := h.transaction(ctx, hash)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if row.BlockNumber == nil {
		return toTransaction(row, tx, nil, 0), nil
	}

	b, err := h.Ledger.Block(ctx, *row.BlockNumber)
	if err != nil {
		return nil, err
	}

	return toTransaction(row, tx, &b.Hash, index(b, hash)), nil
}

// getTransactionReceipt returns null until the transaction is sealed into a
// block, the way wallets expect a pending transaction to look.
func (h Handlers) getTransactionReceipt(ctx context.Context, params []json.RawMessage) (any, error) {
	var hash common.Hash
	if err := decodeParam(params, 0, &hash); err != nil {
		return nil, err
	}

	row, tx, err := h.transaction(ctx, hash)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if row.BlockNumber == nil {
		return nil, nil
	}

	b, err := h.Ledger.Block(ctx, *row.BlockNumber)
	if err != nil {
		return nil, err
	}

	rcpt := receipt{
		TransactionHash:  hash,
		TransactionIndex: hexutil.Uint64(index(b, hash)),
		BlockHash:        b.Hash,
		BlockNumber:      hexutil.Uint64(b.Number),
		From:             row.Signer,
		To:               tx.To(),
		Logs:             []any{},
		Type:             hexutil.Uint64(tx.Type()),
		Status:           hexutil.Uint64(types.ReceiptStatusSuccessful),
	}

	return rcpt, nil
}

func (h Handlers) getLedger(ctx context.Context, params []json.RawMessage) (any, error) {
	var addr common.Address
	if err := decodeParam(params, 0, &addr); err != nil {
		return nil, err
	}

	entries, err := h.Ledger.Entries(ctx, addr)
	if err != nil {
		return nil, err
	}

	weiPerUnit := h.Ledger.Genesis().WeiPerLedgerUnit

	out := make([]entry, len(entries))
	for i, e := range entries {
		out[i] = toEntry(e, weiPerUnit)
	}

	return out, nil
}

// =============================================================================

// legacyBlock stands in for every block of the legacy chain.
func (h Handlers) legacyBlock() ledger.Block {
	g := h.Ledger.Genesis()
	return ledger.Block{
		Number:    g.LastLegacyBlockNumber,
		Timestamp: g.LastLegacyBlockTime(),
	}
}

func (h Handlers) block(ctx context.Context, b ledger.Block, fullTx bool) (any, error) {
	var parent common.Hash
	if b.Number > h.Ledger.Genesis().LastLegacyBlockNumber+1 {
		p, err := h.Ledger.Block(ctx, b.Number-1)
		if err != nil && !errors.Is(err, ledger.ErrNotFound) {
			return nil, err
		}
		parent = p.Hash
	}

	var txs []any
	if fullTx {
		txs = make([]any, len(b.Transactions))
		for i, hash := range b.Transactions {
			row, tx, err := h.transaction(ctx, hash)
			if err != nil {
				return nil, err
			}
			txs[i] = toTransaction(row, tx, &b.Hash, i)
		}
	}

	return toBlock(b, parent, h.Ledger.Genesis().GasLimit, txs), nil
}

func (h Handlers) transaction(ctx context.Context, hash common.Hash) (ledger.Transaction, *types.Transaction, error) {
	row, err := h.Ledger.TransactionByHash(ctx, hash)
	if err != nil {
		return ledger.Transaction{}, nil, err
	}

	var tx types.Transaction
	if err := tx.UnmarshalBinary(row.Raw); err != nil {
		return ledger.Transaction{}, nil, fmt.Errorf("decoding stored transaction %s: %w", hash, err)
	}

	return row, &tx, nil
}

func index(b ledger.Block, hash common.Hash) int {
	for i, h := range b.Transactions {
		if h == hash {
			return i
		}
	}
	return 0
}

func decodeParam(params []json.RawMessage, i int, v any) error {
	if i >= len(params) {
		return errs.NewRPC(fmt.Errorf("missing parameter %d", i), errs.CodeInvalidParams)
	}

	if err := json.Unmarshal(params[i], v); err != nil {
		return errs.NewRPC(fmt.Errorf("parameter %d: %w", i, err), errs.CodeInvalidParams)
	}

	return nil
}
