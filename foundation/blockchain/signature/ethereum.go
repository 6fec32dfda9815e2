package signature

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxSender extracts the address for the account that signed the transaction.
// Transactions carrying replay protection must be signed for chainID.
func TxSender(tx *types.Transaction, chainID *big.Int) (common.Address, error) {
	var signer types.Signer

	switch {
	case !tx.Protected():
		signer = types.HomesteadSigner{}

	case tx.ChainId().Cmp(chainID) != 0:
		return common.Address{}, fmt.Errorf("%w: got %s, exp %s", ErrWrongChain, tx.ChainId(), chainID)

	default:
		signer = types.LatestSignerForChainID(chainID)
	}

	from, err := types.Sender(signer, tx)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return from, nil
}

// SignTx uses the specified private key to sign the transaction for chainID.
func SignTx(tx *types.Transaction, privateKey *ecdsa.PrivateKey, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), privateKey)
	if err != nil {
		return nil, err
	}

	return signed, nil
}
