package rpcgrp

import (
	"encoding/json"

	"github.com/btc2/ledgerchain/foundation/blockchain/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// version is the only JSON-RPC protocol version accepted.
const version = "2.0"

// Request is a JSON-RPC 2.0 call.
type Request struct {
	JSONRPC string            `json:"jsonrpc" validate:"required,eq=2.0"`
	ID      json.RawMessage   `json:"id"`
	Method  string            `json:"method" validate:"required"`
	Params  []json.RawMessage `json:"params"`
}

// Response is a JSON-RPC 2.0 reply. Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the error member of a JSON-RPC reply.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// =============================================================================

type block struct {
	Number           hexutil.Uint64 `json:"number"`
	Hash             common.Hash    `json:"hash"`
	ParentHash       common.Hash    `json:"parentHash"`
	Nonce            hexutil.Bytes  `json:"nonce"`
	Sha3Uncles       common.Hash    `json:"sha3Uncles"`
	LogsBloom        types.Bloom    `json:"logsBloom"`
	TransactionsRoot common.Hash    `json:"transactionsRoot"`
	StateRoot        common.Hash    `json:"stateRoot"`
	ReceiptsRoot     common.Hash    `json:"receiptsRoot"`
	Miner            common.Address `json:"miner"`
	Difficulty       hexutil.Uint64 `json:"difficulty"`
	ExtraData        hexutil.Bytes  `json:"extraData"`
	Size             hexutil.Uint64 `json:"size"`
	GasLimit         hexutil.Uint64 `json:"gasLimit"`
	GasUsed          hexutil.Uint64 `json:"gasUsed"`
	Timestamp        hexutil.Uint64 `json:"timestamp"`
	Transactions     []any          `json:"transactions"`
	Uncles           []common.Hash  `json:"uncles"`
}

type transaction struct {
	Hash             common.Hash     `json:"hash"`
	Nonce            hexutil.Uint64  `json:"nonce"`
	BlockHash        *common.Hash    `json:"blockHash"`
	BlockNumber      *hexutil.Uint64 `json:"blockNumber"`
	TransactionIndex *hexutil.Uint64 `json:"transactionIndex"`
	From             common.Address  `json:"from"`
	To               *common.Address `json:"to"`
	Value            *hexutil.Big    `json:"value"`
	Gas              hexutil.Uint64  `json:"gas"`
	GasPrice         *hexutil.Big    `json:"gasPrice"`
	Input            hexutil.Bytes   `json:"input"`
	ChainID          *hexutil.Big    `json:"chainId,omitempty"`
	Type             hexutil.Uint64  `json:"type"`
	V                *hexutil.Big    `json:"v"`
	R                *hexutil.Big    `json:"r"`
	S                *hexutil.Big    `json:"s"`
}

type receipt struct {
	TransactionHash   common.Hash     `json:"transactionHash"`
	TransactionIndex  hexutil.Uint64  `json:"transactionIndex"`
	BlockHash         common.Hash     `json:"blockHash"`
	BlockNumber       hexutil.Uint64  `json:"blockNumber"`
	From              common.Address  `json:"from"`
	To                *common.Address `json:"to"`
	CumulativeGasUsed hexutil.Uint64  `json:"cumulativeGasUsed"`
	GasUsed           hexutil.Uint64  `json:"gasUsed"`
	EffectiveGasPrice hexutil.Uint64  `json:"effectiveGasPrice"`
	ContractAddress   *common.Address `json:"contractAddress"`
	Logs              []any           `json:"logs"`
	LogsBloom         types.Bloom     `json:"logsBloom"`
	Type              hexutil.Uint64  `json:"type"`
	Status            hexutil.Uint64  `json:"status"`
}

type entry struct {
	TransactionHash common.Hash    `json:"transactionHash"`
	Debtor          common.Address `json:"debtor"`
	Creditor        common.Address `json:"creditor"`
	Amount          *hexutil.Big   `json:"amount"`
}

// =============================================================================

func toBlock(b ledger.Block, parent common.Hash, gasLimit uint64, txs []any) block {
	if txs == nil {
		txs = make([]any, len(b.Transactions))
		for i, hash := range b.Transactions {
			txs[i] = hash
		}
	}

	return block{
		Number:           hexutil.Uint64(b.Number),
		Hash:             b.Hash,
		ParentHash:       parent,
		Nonce:            make(hexutil.Bytes, 8),
		Sha3Uncles:       types.EmptyUncleHash,
		TransactionsRoot: ledger.TransactionsRoot(b.Transactions),
		ExtraData:        hexutil.Bytes{},
		GasLimit:         hexutil.Uint64(gasLimit),
		Timestamp:        hexutil.Uint64(b.Timestamp.Unix()),
		Transactions:     txs,
		Uncles:           []common.Hash{},
	}
}

func toTransaction(row ledger.Transaction, tx *types.Transaction, blockHash *common.Hash, index int) transaction {
	v, r, s := tx.RawSignatureValues()

	out := transaction{
		Hash:     row.Hash,
		Nonce:    hexutil.Uint64(tx.Nonce()),
		From:     row.Signer,
		To:       tx.To(),
		Value:    (*hexutil.Big)(tx.Value()),
		Gas:      hexutil.Uint64(tx.Gas()),
		GasPrice: (*hexutil.Big)(tx.GasPrice()),
		Input:    tx.Data(),
		Type:     hexutil.Uint64(tx.Type()),
		V:        (*hexutil.Big)(v),
		R:        (*hexutil.Big)(r),
		S:        (*hexutil.Big)(s),
	}

	if tx.Protected() {
		out.ChainID = (*hexutil.Big)(tx.ChainId())
	}

	if row.BlockNumber != nil && blockHash != nil {
		number := hexutil.Uint64(*row.BlockNumber)
		idx := hexutil.Uint64(index)
		out.BlockHash = blockHash
		out.BlockNumber = &number
		out.TransactionIndex = &idx
	}

	return out
}

func toEntry(e ledger.Entry, weiPerUnit uint64) entry {
	return entry{
		TransactionHash: e.TransactionHash,
		Debtor:          e.Debtor,
		Creditor:        e.Creditor,
		Amount:          (*hexutil.Big)(ledger.LedgerToWei(e.Amount, weiPerUnit)),
	}
}
